// Command speechscore serves pronunciation scoring over HTTP: text error
// matrices with phoneme mastery sets, phoneme listing, and audio pause
// counting with denoising.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrWong99/speechscore/internal/api"
	"github.com/MrWong99/speechscore/internal/config"
	"github.com/MrWong99/speechscore/internal/health"
	"github.com/MrWong99/speechscore/internal/observe"
	"github.com/MrWong99/speechscore/internal/resilience"
	"github.com/MrWong99/speechscore/internal/rnnoise"
	"github.com/MrWong99/speechscore/internal/scoring"
	"github.com/MrWong99/speechscore/internal/transcript/fuzzy"
)

// version is overridden at build time with -ldflags "-X main.version=…".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file; empty runs on defaults")
	watchInterval := flag.Duration("watch-interval", 5*time.Second, "how often the config file is polled for changes")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				fmt.Fprintf(os.Stderr, "speechscore: config file %q not found; pass -config \"\" to run on defaults\n", *configPath)
			} else {
				fmt.Fprintf(os.Stderr, "speechscore: %v\n", err)
			}
			return 1
		}
		cfg = loaded
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	var level slog.LevelVar
	level.Set(slogLevel(cfg.Server.LogLevel))
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &level})))

	slog.Info("speechscore starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
		"denoise_mode", cfg.Audio.Denoiser.Mode,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdownOTel, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    cfg.Observe.ServiceName,
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(flushCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── Text path ─────────────────────────────────────────────────────────────
	dict, err := newDictionary(cfg)
	if err != nil {
		slog.Error("failed to load pronunciation dictionary", "err", err)
		return 1
	}
	tok := newTokenizer(cfg, metrics)
	defer logAnomalies(tok)

	// ── Audio path ────────────────────────────────────────────────────────────
	checkers := []health.Checker{{
		Name: "dictionary",
		Check: func(context.Context) error {
			if dict.Len() == 0 {
				return errors.New("no entries loaded")
			}
			return nil
		},
	}}
	deps := scoring.Deps{
		Matcher:    fuzzy.New(),
		Pronouncer: dict,
		Tokenizer:  tok,
		Metrics:    metrics,
	}
	if cfg.Audio.Denoiser.Mode == config.DenoiseRNNoise {
		filter := rnnoise.New(rnnoiseConfig(cfg.Audio.RNNoise),
			rnnoise.WithStateChange(func(name string, _, to resilience.State) {
				metrics.RecordBreakerTransition(context.Background(), name, to.String())
			}),
		)
		defer filter.Close()
		if err := filter.Check(ctx); err != nil {
			slog.Warn("rnnoise backend not ready; requests will fail until it is", "err", err)
		}
		deps.Filter = filter
		checkers = append(checkers, health.Checker{Name: "rnnoise", Check: filter.Check})
	}

	svc, err := scoring.New(scoringConfig(cfg), deps)
	if err != nil {
		slog.Error("failed to initialise scoring service", "err", err)
		return 1
	}

	// ── Config hot reload ─────────────────────────────────────────────────────
	if *configPath != "" {
		w, err := config.NewWatcher(*configPath, reloader(&level, svc), config.WithInterval(*watchInterval))
		if err != nil {
			slog.Error("failed to start config watcher", "err", err)
			return 1
		}
		defer w.Stop()
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	probes := health.New(checkers...)
	mux := http.NewServeMux()
	probes.Register(mux)
	api.New(svc, api.WithMaxBodyBytes(cfg.Server.MaxBodyBytes)).Register(mux)
	mux.Handle("GET "+cfg.Observe.MetricsPath, observe.MetricsHandler())

	handler := observe.Middleware(metrics,
		observe.WithQuietPaths("/healthz", "/readyz", cfg.Observe.MetricsPath),
	)(mux)
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	ln, err := net.Listen("tcp", cfg.Server.ListenAddr)
	if err != nil {
		slog.Error("failed to listen", "addr", cfg.Server.ListenAddr, "err", err)
		return 1
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()
	slog.Info("server ready; press Ctrl+C to shut down", "addr", ln.Addr().String())

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			return 1
		}
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	slog.Info("shutdown signal received, draining…")
	probes.SetDraining(true)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}
