// Command verselate is the main entry point for the Verselate translation server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/verselate/verselate/internal/app"
	"github.com/verselate/verselate/internal/config"
	"github.com/verselate/verselate/internal/observe"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	serve := flag.Bool("serve", false, "run the HTTP server instead of a one-shot translation")
	audioPath := flag.String("audio", "", "path to an audio sample to identify and translate")
	artist := flag.String("artist", "", "artist name (skips recognition)")
	title := flag.String("title", "", "song title (skips recognition)")
	text := flag.String("text", "", "raw lyrics text (skips recognition and lyrics lookup)")
	target := flag.String("target", "", "target language code, overrides the configured default")
	source := flag.String("source", "", "source language code hint")
	flag.Parse()

	// ── Environment ───────────────────────────────────────────────────────────
	// A local .env is optional; real deployments set variables directly.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "verselate: load .env: %v\n", err)
		return 1
	}

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "verselate: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "verselate: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("verselate starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdownObserve, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		if err := shutdownObserve(context.Background()); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Application ───────────────────────────────────────────────────────────
	application, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}
	defer func() {
		if err := application.Close(); err != nil {
			slog.Warn("close error", "err", err)
		}
	}()

	if *serve {
		slog.Info("server ready — press Ctrl+C to shut down")
		if err := application.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("serve error", "err", err)
			return 1
		}
		slog.Info("goodbye")
		return 0
	}

	return oneShot(ctx, application, oneShotArgs{
		audioPath: *audioPath,
		artist:    *artist,
		title:     *title,
		text:      *text,
		target:    *target,
		source:    *source,
	})
}

type oneShotArgs struct {
	audioPath string
	artist    string
	title     string
	text      string
	target    string
	source    string
}

// oneShot runs a single pipeline invocation from CLI flags and prints the
// outcome as JSON on stdout.
func oneShot(ctx context.Context, application *app.App, args oneShotArgs) int {
	pipe := application.Pipeline()

	var out any
	switch {
	case args.text != "":
		out = pipe.TranslateLyricsOnly(ctx, args.text, args.target, args.source)
	case args.artist != "" && args.title != "":
		out = pipe.TranslateFromSongInfo(ctx, args.artist, args.title, args.target, args.source)
	case args.audioPath != "":
		audio, err := os.ReadFile(args.audioPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "verselate: read audio: %v\n", err)
			return 1
		}
		out = pipe.TranslateFromAudio(ctx, audio, args.target, args.source)
	default:
		fmt.Fprintln(os.Stderr, "verselate: provide -audio, -artist/-title, or -text (or -serve to run the server)")
		return 2
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "verselate: encode outcome: %v\n", err)
		return 1
	}
	return 0
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
