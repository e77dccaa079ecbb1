package audio

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Errors returned by the WAV codec.
var (
	ErrInvalidWAV        = errors.New("audio: not a valid WAV stream")
	ErrUnsupportedFormat = errors.New("audio: unsupported WAV format")
	ErrEmpty             = errors.New("audio: no samples")
)

const (
	formatPCM        = 1
	formatExtensible = 0xFFFE
)

// DecodeWAV parses a RIFF/WAVE byte stream into a mono buffer. Multi-channel
// input is averaged down to one channel.
func DecodeWAV(data []byte) (*Buffer, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, ErrInvalidWAV
	}
	if f := dec.WavAudioFormat; f != formatPCM && f != formatExtensible {
		return nil, fmt.Errorf("%w: format tag %d", ErrUnsupportedFormat, f)
	}
	switch dec.BitDepth {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d-bit samples", ErrUnsupportedFormat, dec.BitDepth)
	}

	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidWAV, err)
	}
	if pcm.Format == nil || pcm.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: missing sample rate", ErrInvalidWAV)
	}
	mono := Mixdown(pcm.Data, pcm.Format.NumChannels)
	if len(mono) == 0 {
		return nil, ErrEmpty
	}
	return &Buffer{
		Samples:    IntToFloat(mono, int(dec.BitDepth)),
		SampleRate: pcm.Format.SampleRate,
		BitDepth:   int(dec.BitDepth),
	}, nil
}

// EncodeWAV writes b as a mono PCM WAV file of the given bit depth.
func EncodeWAV(b *Buffer, bitDepth int) ([]byte, error) {
	var out memFile
	enc := wav.NewEncoder(&out, b.SampleRate, bitDepth, 1, formatPCM)
	err := enc.Write(&goaudio.IntBuffer{
		Data: FloatToInt(b.Samples, bitDepth),
		Format: &goaudio.Format{
			NumChannels: 1,
			SampleRate:  b.SampleRate,
		},
		SourceBitDepth: bitDepth,
	})
	if err != nil {
		return nil, fmt.Errorf("audio: encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("audio: finalize wav: %w", err)
	}
	return out.buf, nil
}

// DecodeBase64 decodes standard base64, tolerating a data URI prefix and
// surrounding whitespace.
func DecodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		if i := strings.IndexByte(s, ','); i >= 0 {
			s = s[i+1:]
		}
	}
	return base64.StdEncoding.DecodeString(s)
}

// EncodeBase64 encodes data as standard base64.
func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// IsRIFFWave reports whether data starts with a RIFF/WAVE header.
func IsRIFFWave(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

// memFile is an in-memory io.WriteSeeker; the WAV encoder seeks back to
// patch chunk sizes once the data length is known.
type memFile struct {
	buf []byte
	pos int
}

func (m *memFile) Write(p []byte) (int, error) {
	if end := m.pos + len(p); end > len(m.buf) {
		m.buf = append(m.buf, make([]byte, end-len(m.buf))...)
	}
	n := copy(m.buf[m.pos:], p)
	m.pos += n
	return n, nil
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = int64(m.pos)
	case io.SeekEnd:
		base = int64(len(m.buf))
	default:
		return 0, fmt.Errorf("audio: invalid whence %d", whence)
	}
	next := base + offset
	if next < 0 {
		return 0, errors.New("audio: negative seek position")
	}
	m.pos = int(next)
	return next, nil
}
