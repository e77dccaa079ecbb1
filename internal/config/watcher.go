package config

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Reload is an accepted config edit that touches at least one
// hot-reloadable group.
type Reload struct {
	Old, New *Config
	Diff     ConfigDiff
}

// ReloadFunc applies a [Reload] to the running service.
type ReloadFunc func(Reload)

// fileSnapshot identifies one version of the watched file.
type fileSnapshot struct {
	modTime time.Time
	sum     [sha256.Size]byte
}

// Watcher polls a config file and hands hot-reloadable changes to a
// [ReloadFunc]. Invalid edits are rejected and the previous config is kept.
// Edits to restart-only fields become current but are not applied; they are
// logged so operators know a restart is pending.
type Watcher struct {
	path     string
	interval time.Duration
	apply    ReloadFunc
	log      *slog.Logger

	current atomic.Pointer[Config]
	seen    fileSnapshot // owned by the polling goroutine after NewWatcher

	stop     chan struct{}
	stopOnce sync.Once
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval. The default is 5 seconds.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithWatchLogger sets the logger for reload events. Default: slog.Default().
func WithWatchLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.log = l
		}
	}
}

// NewWatcher loads path and starts polling it. apply may be nil.
func NewWatcher(path string, apply ReloadFunc, opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		interval: 5 * time.Second,
		apply:    apply,
		log:      slog.Default(),
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	cfg, snap, err := readSnapshot(path)
	if err != nil {
		return nil, fmt.Errorf("config: watcher initial load: %w", err)
	}
	w.current.Store(cfg)
	w.seen = snap

	go w.run()
	return w, nil
}

// Current returns the most recently accepted config.
func (w *Watcher) Current() *Config { return w.current.Load() }

// Stop ends polling. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
}

func (w *Watcher) run() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			if r, ok := w.poll(); ok && w.apply != nil {
				w.apply(r)
			}
		}
	}
}

// poll reports a Reload when the file changed to a valid config that
// differs in a hot-reloadable group.
func (w *Watcher) poll() (Reload, bool) {
	info, err := os.Stat(w.path)
	if err != nil {
		w.log.Warn("config watcher: cannot stat file", "path", w.path, "err", err)
		return Reload{}, false
	}
	if info.ModTime().Equal(w.seen.modTime) {
		return Reload{}, false
	}

	cfg, snap, err := readSnapshot(w.path)
	if err != nil {
		w.log.Warn("config watcher: rejected config, keeping previous", "path", w.path, "err", err)
		return Reload{}, false
	}
	sameContent := snap.sum == w.seen.sum
	w.seen = snap
	if sameContent {
		return Reload{}, false
	}

	old := w.current.Load()
	d := Diff(old, cfg)
	if len(d.RestartRequired) > 0 {
		w.log.Warn("config watcher: changes need a restart to take effect", "path", w.path, "keys", d.RestartRequired)
	}
	w.current.Store(cfg)
	if !d.LogLevelChanged && !d.TunablesChanged() {
		return Reload{}, false
	}
	w.log.Info("config watcher: hot reload",
		"path", w.path,
		"log_level", d.LogLevelChanged,
		"thresholds", d.ThresholdsChanged,
		"pause", d.PauseChanged,
		"denoiser", d.DenoiserChanged,
	)
	return Reload{Old: old, New: cfg, Diff: d}, true
}

// readSnapshot parses and validates path and fingerprints its content.
func readSnapshot(path string) (*Config, fileSnapshot, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fileSnapshot{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fileSnapshot{}, err
	}
	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fileSnapshot{}, err
	}
	return cfg, fileSnapshot{modTime: info.ModTime(), sum: sha256.Sum256(data)}, nil
}
