package rnnoise

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var commandContext = exec.CommandContext

// stderrTail bounds how much process output ends up in an error message.
const stderrTail = 512

// runFFmpeg pipes input through ffmpeg and returns its stdout.
func runFFmpeg(ctx context.Context, binary string, args []string, input []byte) ([]byte, error) {
	cmd := commandContext(ctx, binary, args...) //nolint:gosec
	cmd.Stdin = bytes.NewReader(input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > stderrTail {
			msg = "..." + msg[len(msg)-stderrTail:]
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%w: exit status %d: %s", ErrProcess, exitErr.ExitCode(), msg)
		}
		return nil, fmt.Errorf("%w: %w", ErrProcess, err)
	}
	return stdout.Bytes(), nil
}

// filterArgs builds the ffmpeg command line for a filter chain.
func filterArgs(chain string) []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "wav", "-i", "pipe:0",
		"-af", chain,
		"-f", "wav", "pipe:1",
	}
}
