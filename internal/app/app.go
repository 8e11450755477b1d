// Package app wires all Verselate subsystems into a running application.
//
// The App struct owns the full lifecycle: New builds the provider chains
// from config, connects the optional result cache, and assembles the
// pipeline; Serve runs the HTTP status server; Close tears everything down.
//
// For testing, inject doubles via functional options (WithRecognition,
// WithLyrics, WithTranslation, WithCache). When an option is not provided,
// New creates real provider adapters from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/verselate/verselate/internal/cache"
	"github.com/verselate/verselate/internal/config"
	"github.com/verselate/verselate/internal/health"
	"github.com/verselate/verselate/internal/observe"
	"github.com/verselate/verselate/internal/pipeline"
	"github.com/verselate/verselate/internal/ratelimit"
	"github.com/verselate/verselate/internal/resilience"
	"github.com/verselate/verselate/pkg/provider/lyrics"
	"github.com/verselate/verselate/pkg/provider/lyrics/lrclib"
	"github.com/verselate/verselate/pkg/provider/lyrics/lyricsovh"
	"github.com/verselate/verselate/pkg/provider/lyrics/musixmatch"
	"github.com/verselate/verselate/pkg/provider/recognition"
	"github.com/verselate/verselate/pkg/provider/recognition/acrcloud"
	"github.com/verselate/verselate/pkg/provider/recognition/audd"
	"github.com/verselate/verselate/pkg/provider/translation"
	"github.com/verselate/verselate/pkg/provider/translation/googletrans"
	"github.com/verselate/verselate/pkg/provider/translation/libretranslate"
	"github.com/verselate/verselate/pkg/provider/translation/mymemory"
	"github.com/verselate/verselate/pkg/provider/translation/openaitr"
	"github.com/verselate/verselate/pkg/types"
)

// App owns all subsystem lifetimes.
type App struct {
	cfg     *config.Config
	limiter *ratelimit.Limiter
	pipe    *pipeline.Pipeline
	cache   pipeline.Cache
	server  *http.Server

	// Injected test doubles, keyed by provider name.
	recognitionOverrides map[string]recognition.Provider
	lyricsOverrides      map[string]lyrics.Provider
	translationOverrides map[string]translation.Provider

	closers []func() error

	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithRecognition injects a recognition provider for the given config name
// instead of building the real adapter.
func WithRecognition(name string, p recognition.Provider) Option {
	return func(a *App) { a.recognitionOverrides[name] = p }
}

// WithLyrics injects a lyrics provider for the given config name.
func WithLyrics(name string, p lyrics.Provider) Option {
	return func(a *App) { a.lyricsOverrides[name] = p }
}

// WithTranslation injects a translation provider for the given config name.
func WithTranslation(name string, p translation.Provider) Option {
	return func(a *App) { a.translationOverrides[name] = p }
}

// WithCache injects a result cache instead of connecting to PostgreSQL.
func WithCache(c pipeline.Cache) Option {
	return func(a *App) { a.cache = c }
}

// New creates an App by wiring all subsystems together. Providers whose
// required credentials are absent from the config are skipped with a log
// line rather than an error, so a partially configured deployment still
// serves the stages it can.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{
		cfg:                  cfg,
		limiter:              ratelimit.New(),
		recognitionOverrides: map[string]recognition.Provider{},
		lyricsOverrides:      map[string]lyrics.Provider{},
		translationOverrides: map[string]translation.Provider{},
	}
	for _, o := range opts {
		o(a)
	}

	if a.cache == nil && cfg.Cache.PostgresDSN != "" {
		store, err := cache.NewStore(ctx, cfg.Cache.PostgresDSN, cfg.Cache.TTL())
		if err != nil {
			return nil, fmt.Errorf("app: init cache: %w", err)
		}
		a.cache = store
		a.closers = append(a.closers, func() error {
			store.Close()
			return nil
		})
	}

	chainCfg := resilience.ChainConfig{Breaker: resilience.BreakerConfig{}}

	recognitionChain := resilience.NewChain[[]byte, types.SongInfo](pipeline.StageRecognition, a.limiter, chainCfg)
	for _, entry := range cfg.Providers.Recognition {
		p, err := a.buildRecognition(entry)
		if err != nil {
			return nil, fmt.Errorf("app: recognition provider %q: %w", entry.Name, err)
		}
		if p == nil {
			continue
		}
		recognitionChain.Add(resilience.Entry[[]byte, types.SongInfo]{
			Name:    entry.Name,
			Limits:  limits(entry),
			Timeout: entry.Timeout(),
			Trusted: entry.Trusted,
			Attempt: p.Recognize,
		})
	}

	lyricsChain := resilience.NewChain[pipeline.LyricsQuery, types.Lyrics](pipeline.StageLyrics, a.limiter, chainCfg)
	for _, entry := range cfg.Providers.Lyrics {
		p, err := a.buildLyrics(entry)
		if err != nil {
			return nil, fmt.Errorf("app: lyrics provider %q: %w", entry.Name, err)
		}
		if p == nil {
			continue
		}
		lyricsChain.Add(resilience.Entry[pipeline.LyricsQuery, types.Lyrics]{
			Name:    entry.Name,
			Limits:  limits(entry),
			Timeout: entry.Timeout(),
			Trusted: entry.Trusted,
			Attempt: lyricsAttempt(p),
		})
	}

	translationChain := resilience.NewChain[translation.Request, types.Translation](pipeline.StageTranslation, a.limiter, chainCfg)
	for _, entry := range cfg.Providers.Translation {
		p, err := a.buildTranslation(entry)
		if err != nil {
			return nil, fmt.Errorf("app: translation provider %q: %w", entry.Name, err)
		}
		if p == nil {
			continue
		}
		translationChain.Add(resilience.Entry[translation.Request, types.Translation]{
			Name:    entry.Name,
			Limits:  limits(entry),
			Timeout: entry.Timeout(),
			Trusted: entry.Trusted,
			Attempt: p.Translate,
		})
	}

	pipeOpts := []pipeline.Option{}
	if a.cache != nil {
		pipeOpts = append(pipeOpts, pipeline.WithCache(a.cache))
	}
	a.pipe = pipeline.New(
		recognitionChain, lyricsChain, translationChain, a.limiter,
		pipeline.Config{
			TargetLanguage:   cfg.Pipeline.TargetLanguage,
			Retries:          cfg.Pipeline.RetryAttempts,
			RetryDelay:       cfg.Pipeline.RetryDelay(),
			BatchConcurrency: cfg.Pipeline.BatchConcurrency,
			BatchDelay:       cfg.Pipeline.BatchDelay(),
			BestQuality:      cfg.Pipeline.BestQualityTranslation,
		},
		pipeOpts...,
	)

	slog.Info("pipeline assembled",
		"recognition", recognitionChain.Providers(),
		"lyrics", lyricsChain.Providers(),
		"translation", translationChain.Providers(),
		"cache", a.cache != nil,
	)
	return a, nil
}

// Pipeline returns the assembled pipeline.
func (a *App) Pipeline() *pipeline.Pipeline {
	return a.pipe
}

// Serve runs the HTTP status server until ctx is cancelled. It returns nil
// after a clean shutdown.
func (a *App) Serve(ctx context.Context) error {
	addr := a.cfg.Server.ListenAddr
	if addr == "" {
		addr = ":8080"
	}

	checkers := []health.Checker{
		{Name: "providers", Check: func(context.Context) error {
			if h := a.pipe.HealthCheck(); h.Status == pipeline.HealthUnhealthy {
				return errors.New("no stage has an admissible provider")
			}
			return nil
		}},
	}
	if pinger, ok := a.cache.(interface{ Ping(context.Context) error }); ok {
		checkers = append(checkers, health.Checker{Name: "cache", Check: pinger.Ping})
	}

	mux := http.NewServeMux()
	h := health.New(checkers, health.WithStatus(func() any {
		return a.pipe.ServiceStatus()
	}))
	h.Register(mux)

	a.server = &http.Server{
		Addr:              addr,
		Handler:           observe.Middleware(observe.DefaultMetrics())(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.ListenAndServe()
	}()
	slog.Info("status server listening", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Close tears down all subsystems. Safe to call more than once.
func (a *App) Close() error {
	var errs []error
	a.stopOnce.Do(func() {
		for _, fn := range a.closers {
			if err := fn(); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}

// limits converts a config entry's rate-limit block.
func limits(e config.ProviderEntry) ratelimit.Config {
	return ratelimit.Config{
		MaxRequests: e.RateLimit.MaxRequests,
		Window:      e.RateLimit.Window(),
	}
}

// buildRecognition constructs one recognition provider. Returns (nil, nil)
// when required credentials are missing, which disables the provider.
func (a *App) buildRecognition(e config.ProviderEntry) (recognition.Provider, error) {
	if p, ok := a.recognitionOverrides[e.Name]; ok {
		return p, nil
	}
	switch e.Name {
	case "acrcloud":
		if e.APIKey == "" || e.APISecret == "" {
			slog.Info("skipping provider: credentials not configured", "provider", e.Name)
			return nil, nil
		}
		var opts []acrcloud.Option
		if e.BaseURL != "" {
			opts = append(opts, acrcloud.WithBaseURL(e.BaseURL))
		}
		return acrcloud.New(e.APIKey, e.APISecret, opts...)
	case "audd":
		if e.APIKey == "" {
			slog.Info("skipping provider: credentials not configured", "provider", e.Name)
			return nil, nil
		}
		var opts []audd.Option
		if e.BaseURL != "" {
			opts = append(opts, audd.WithBaseURL(e.BaseURL))
		}
		return audd.New(e.APIKey, opts...)
	default:
		return nil, fmt.Errorf("unknown recognition provider")
	}
}

// buildLyrics constructs one lyrics provider.
func (a *App) buildLyrics(e config.ProviderEntry) (lyrics.Provider, error) {
	if p, ok := a.lyricsOverrides[e.Name]; ok {
		return p, nil
	}
	switch e.Name {
	case "musixmatch":
		if e.APIKey == "" {
			slog.Info("skipping provider: credentials not configured", "provider", e.Name)
			return nil, nil
		}
		var opts []musixmatch.Option
		if e.BaseURL != "" {
			opts = append(opts, musixmatch.WithBaseURL(e.BaseURL))
		}
		return musixmatch.New(e.APIKey, opts...)
	case "lyricsovh":
		var opts []lyricsovh.Option
		if e.BaseURL != "" {
			opts = append(opts, lyricsovh.WithBaseURL(e.BaseURL))
		}
		return lyricsovh.New(opts...), nil
	case "lrclib":
		var opts []lrclib.Option
		if e.BaseURL != "" {
			opts = append(opts, lrclib.WithBaseURL(e.BaseURL))
		}
		return lrclib.New(opts...), nil
	default:
		return nil, fmt.Errorf("unknown lyrics provider")
	}
}

// buildTranslation constructs one translation provider.
func (a *App) buildTranslation(e config.ProviderEntry) (translation.Provider, error) {
	if p, ok := a.translationOverrides[e.Name]; ok {
		return p, nil
	}
	switch e.Name {
	case "mymemory":
		var opts []mymemory.Option
		if e.BaseURL != "" {
			opts = append(opts, mymemory.WithBaseURL(e.BaseURL))
		}
		return mymemory.New(opts...), nil
	case "libretranslate":
		var opts []libretranslate.Option
		if e.BaseURL != "" {
			opts = append(opts, libretranslate.WithBaseURL(e.BaseURL))
		}
		if e.APIKey != "" {
			opts = append(opts, libretranslate.WithAPIKey(e.APIKey))
		}
		return libretranslate.New(opts...), nil
	case "googletrans":
		var opts []googletrans.Option
		if e.BaseURL != "" {
			opts = append(opts, googletrans.WithBaseURL(e.BaseURL))
		}
		return googletrans.New(opts...), nil
	case "openai":
		if e.APIKey == "" {
			slog.Info("skipping provider: credentials not configured", "provider", e.Name)
			return nil, nil
		}
		var opts []openaitr.Option
		if e.Model != "" {
			opts = append(opts, openaitr.WithModel(e.Model))
		}
		if e.BaseURL != "" {
			opts = append(opts, openaitr.WithBaseURL(e.BaseURL))
		}
		return openaitr.New(e.APIKey, opts...)
	default:
		return nil, fmt.Errorf("unknown translation provider")
	}
}

// lyricsAttempt adapts a lyrics provider to the chain's attempt contract and
// verifies the provider actually returned the requested song. A mismatched
// result is demoted to a miss so the chain falls through to the next source.
func lyricsAttempt(p lyrics.Provider) resilience.Attempt[pipeline.LyricsQuery, types.Lyrics] {
	return func(ctx context.Context, q pipeline.LyricsQuery) (*types.Lyrics, error) {
		l, err := p.Fetch(ctx, q.Artist, q.Title)
		if err != nil || l == nil {
			return nil, err
		}
		if !lyrics.MatchesRequest(q.Artist, q.Title, l) {
			slog.Debug("discarding lyrics for mismatched song",
				"requested_artist", q.Artist, "requested_title", q.Title,
				"got_artist", l.Artist, "got_title", l.Title, "source", l.Source)
			return nil, nil
		}
		return l, nil
	}
}
