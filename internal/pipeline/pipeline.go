// Package pipeline implements the song-translation orchestrator.
//
// A pipeline run is strictly linear with early exit:
//
//	RECOGNIZE (runs only for audio input without song info or raw text)
//	  -> FETCH LYRICS (requires non-empty artist+title)
//	  -> TRANSLATE (requires non-empty lyrics text)
//	  -> done
//
// Each stage dispatches through an ordered provider fallback chain; a stage
// that exhausts every provider fails the run immediately with a partial
// [types.Outcome]. No error ever escapes the public entry points — all
// failures surface as entries on the returned outcome.
//
// The only state shared across runs is the rate limiter's counters, reached
// through the chains. Everything else is request-scoped.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/verselate/verselate/internal/observe"
	"github.com/verselate/verselate/internal/ratelimit"
	"github.com/verselate/verselate/internal/resilience"
	"github.com/verselate/verselate/pkg/provider/translation"
	"github.com/verselate/verselate/pkg/types"
)

// Stage names used for error attribution, metrics, and status reporting.
const (
	StageRecognition = "recognition"
	StageLyrics      = "lyrics"
	StageTranslation = "translation"
)

// Messages recorded on fatal stage errors.
const (
	msgStageExhausted  = "all providers failed"
	msgMissingSongInfo = "missing song info"
	msgMissingTarget   = "missing target language"
)

// LyricsQuery is the request type of the lyrics chain.
type LyricsQuery struct {
	Artist string
	Title  string
}

// Cache stores lyrics and translations between runs. Implementations must
// treat a miss as (nil, nil), mirroring the provider contract. All methods
// must be safe for concurrent use.
type Cache interface {
	GetLyrics(ctx context.Context, artist, title string) (*types.Lyrics, error)
	PutLyrics(ctx context.Context, artist, title string, l *types.Lyrics) error
	GetTranslation(ctx context.Context, text, targetLang string) (*types.Translation, error)
	PutTranslation(ctx context.Context, text, targetLang string, tr *types.Translation) error
}

// Config holds the orchestrator's tuning knobs.
type Config struct {
	// TargetLanguage is the default translation target when a request leaves
	// it empty.
	TargetLanguage string

	// Retries is how many extra dispatch passes a stage gets after a pass
	// that recorded a transport error. Passes that end in a clean miss or
	// pure rate-limit exhaustion are never retried: re-running them cannot
	// change the outcome.
	Retries int

	// RetryDelay is the pause between stage retry passes.
	RetryDelay time.Duration

	// BatchConcurrency bounds how many batch items run at once. Values below
	// one mean strictly sequential.
	BatchConcurrency int

	// BatchDelay is the pause between batch item starts, so a batch does not
	// burn through shared provider quotas in one burst.
	BatchDelay time.Duration

	// BestQuality makes the translation stage try every admissible provider
	// and keep the best-scored result instead of the first success.
	BestQuality bool
}

// Pipeline chains the three stages over their fallback dispatchers.
// Safe for concurrent use; concurrent runs share only the rate limiter.
type Pipeline struct {
	recognition *resilience.Chain[[]byte, types.SongInfo]
	lyrics      *resilience.Chain[LyricsQuery, types.Lyrics]
	translation *resilience.Chain[translation.Request, types.Translation]

	limiter *ratelimit.Limiter
	cfg     Config
	metrics *observe.Metrics
	cache   Cache
	scorer  resilience.Scorer[translation.Request, types.Translation]
	sleep   func(ctx context.Context, d time.Duration) error
}

// Option is a functional option for configuring a Pipeline.
type Option func(*Pipeline)

// WithCache enables the result cache consulted before the lyrics and
// translation stages.
func WithCache(c Cache) Option {
	return func(p *Pipeline) { p.cache = c }
}

// WithMetrics overrides the metrics instance, mainly for tests.
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithScorer replaces the translation quality scorer used in best-quality
// mode. The default is [translation.ScoreQuality].
func WithScorer(s resilience.Scorer[translation.Request, types.Translation]) Option {
	return func(p *Pipeline) { p.scorer = s }
}

// WithSleep replaces the delay function, so tests can skip real waiting.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Pipeline) { p.sleep = fn }
}

// New constructs a Pipeline over the three stage chains. The limiter must be
// the same instance the chains were built with; it backs status reporting.
func New(
	recognition *resilience.Chain[[]byte, types.SongInfo],
	lyrics *resilience.Chain[LyricsQuery, types.Lyrics],
	translationChain *resilience.Chain[translation.Request, types.Translation],
	limiter *ratelimit.Limiter,
	cfg Config,
	opts ...Option,
) *Pipeline {
	p := &Pipeline{
		recognition: recognition,
		lyrics:      lyrics,
		translation: translationChain,
		limiter:     limiter,
		cfg:         cfg,
		sleep:       sleepCtx,
	}
	p.scorer = resilience.ScorerFunc[translation.Request, types.Translation](translation.ScoreQuality)
	for _, o := range opts {
		o(p)
	}
	if p.metrics == nil {
		p.metrics = observe.DefaultMetrics()
	}
	return p
}

// TranslateFromAudio runs the full pipeline starting from a raw audio sample.
func (p *Pipeline) TranslateFromAudio(ctx context.Context, audio []byte, targetLang, sourceLang string) *types.Outcome {
	return p.run(ctx, types.Request{
		Audio:          audio,
		TargetLanguage: targetLang,
		SourceLanguage: sourceLang,
	})
}

// TranslateFromSongInfo runs the pipeline from a known artist and title,
// skipping recognition.
func (p *Pipeline) TranslateFromSongInfo(ctx context.Context, artist, title, targetLang, sourceLang string) *types.Outcome {
	return p.run(ctx, types.Request{
		Artist:         artist,
		Title:          title,
		TargetLanguage: targetLang,
		SourceLanguage: sourceLang,
	})
}

// TranslateLyricsOnly translates caller-supplied lyrics text, skipping both
// recognition and the lyrics lookup. The text is passed through to the
// outcome unchanged.
func (p *Pipeline) TranslateLyricsOnly(ctx context.Context, text, targetLang, sourceLang string) *types.Outcome {
	return p.run(ctx, types.Request{
		Text:           text,
		TargetLanguage: targetLang,
		SourceLanguage: sourceLang,
	})
}

// Run executes one pipeline request, picking the entry point from which
// fields are populated. Used directly by batch mode.
func (p *Pipeline) Run(ctx context.Context, req types.Request) *types.Outcome {
	return p.run(ctx, req)
}

func (p *Pipeline) run(ctx context.Context, req types.Request) *types.Outcome {
	start := time.Now()
	out := &types.Outcome{}
	defer func() {
		out.ProcessingTime = time.Since(start)
		out.Confidence = p.confidence(out)
		p.metrics.RecordPipeline(ctx, out.ProcessingTime, out.Confidence)
	}()

	targetLang := req.TargetLanguage
	if targetLang == "" {
		targetLang = p.cfg.TargetLanguage
	}
	if targetLang == "" {
		out.Errors = append(out.Errors, types.ServiceError{
			Service: StageTranslation, Message: msgMissingTarget,
		})
		return out
	}

	artist, title := req.Artist, req.Title

	// Recognition runs only when audio is present and neither song info nor
	// raw text was supplied. A request with none of the four inputs falls
	// through to the lyrics stage's missing-input failure.
	if req.Text == "" && artist == "" && title == "" && len(req.Audio) > 0 {
		info, errs := p.recognize(ctx, req.Audio)
		out.Errors = append(out.Errors, errs...)
		if info == nil {
			out.Errors = append(out.Errors, types.ServiceError{
				Service: StageRecognition, Message: msgStageExhausted,
			})
			return out
		}
		out.Recognition = info
		artist, title = info.Artist, info.Title
	}

	// Lyrics, unless raw text was supplied.
	text := req.Text
	if text == "" {
		if artist == "" || title == "" {
			out.Errors = append(out.Errors, types.ServiceError{
				Service: StageLyrics, Message: msgMissingSongInfo,
			})
			return out
		}
		l, errs := p.fetchLyrics(ctx, artist, title)
		out.Errors = append(out.Errors, errs...)
		if l == nil {
			out.Errors = append(out.Errors, types.ServiceError{
				Service: StageLyrics, Message: msgStageExhausted,
			})
			return out
		}
		out.Lyrics = l
		text = l.Text
	} else {
		// Pass the caller's text through so repeated lyrics-only calls see a
		// stable lyrics value.
		out.Lyrics = &types.Lyrics{Text: text, Source: "input"}
	}

	tr, errs := p.translate(ctx, text, targetLang, req.SourceLanguage)
	out.Errors = append(out.Errors, errs...)
	if tr == nil {
		out.Errors = append(out.Errors, types.ServiceError{
			Service: StageTranslation, Message: msgStageExhausted,
		})
		return out
	}
	out.Translation = tr
	return out
}

// recognize runs the recognition stage with retry.
func (p *Pipeline) recognize(ctx context.Context, audio []byte) (*types.SongInfo, []types.ServiceError) {
	res, _, errs := runStage(ctx, p, StageRecognition, p.recognition, audio)
	return res, errs
}

// fetchLyrics runs the lyrics stage with retry, consulting the cache first.
func (p *Pipeline) fetchLyrics(ctx context.Context, artist, title string) (*types.Lyrics, []types.ServiceError) {
	if p.cache != nil {
		if l, err := p.cache.GetLyrics(ctx, artist, title); err != nil {
			slog.Warn("lyrics cache lookup failed", "error", err)
		} else if l != nil {
			p.metrics.RecordCacheHit(ctx, "lyrics")
			return l, nil
		}
	}

	res, _, errs := runStage(ctx, p, StageLyrics, p.lyrics, LyricsQuery{Artist: artist, Title: title})
	if res != nil && p.cache != nil {
		if err := p.cache.PutLyrics(ctx, artist, title, res); err != nil {
			slog.Warn("lyrics cache write failed", "error", err)
		}
	}
	return res, errs
}

// translate runs the translation stage with retry, consulting the cache
// first. In best-quality mode every admissible provider is tried and the
// best-scored result wins.
func (p *Pipeline) translate(ctx context.Context, text, targetLang, sourceLang string) (*types.Translation, []types.ServiceError) {
	if p.cache != nil {
		if tr, err := p.cache.GetTranslation(ctx, text, targetLang); err != nil {
			slog.Warn("translation cache lookup failed", "error", err)
		} else if tr != nil {
			p.metrics.RecordCacheHit(ctx, "translation")
			return tr, nil
		}
	}

	req := translation.Request{
		Text:           text,
		TargetLanguage: targetLang,
		SourceLanguage: sourceLang,
	}

	var (
		res  *types.Translation
		errs []types.ServiceError
	)
	if p.cfg.BestQuality {
		res, _, errs = runStageWith(ctx, p, StageTranslation, req, func(ctx context.Context, req translation.Request) (*types.Translation, string, []types.ServiceError) {
			return p.translation.DispatchBest(ctx, req, p.scorer)
		})
	} else {
		res, _, errs = runStage(ctx, p, StageTranslation, p.translation, req)
	}

	if res != nil && p.cache != nil {
		if err := p.cache.PutTranslation(ctx, text, targetLang, res); err != nil {
			slog.Warn("translation cache write failed", "error", err)
		}
	}
	return res, errs
}

// runStage dispatches one stage through its chain with the pipeline's retry
// policy.
func runStage[Req, Res any](ctx context.Context, p *Pipeline, stage string, c *resilience.Chain[Req, Res], req Req) (*Res, string, []types.ServiceError) {
	res, source, errs := runStageWith(ctx, p, stage, req, func(ctx context.Context, req Req) (*Res, string, []types.ServiceError) {
		return c.Dispatch(ctx, req)
	})
	return res, source, errs
}

// runStageWith wraps a single dispatch function in the bounded stage retry.
// A pass is retried only when it recorded at least one transport error: a
// clean miss or pure rate-limit exhaustion already exhausted the fallback
// list, and re-running it cannot change the outcome.
func runStageWith[Req, Res any](ctx context.Context, p *Pipeline, stage string, req Req, dispatch func(context.Context, Req) (*Res, string, []types.ServiceError)) (*Res, string, []types.ServiceError) {
	var all []types.ServiceError

	for pass := 0; ; pass++ {
		start := time.Now()
		res, source, errs := dispatch(ctx, req)
		p.metrics.RecordStage(ctx, stage, time.Since(start))
		recordDispatch(ctx, p.metrics, stage, errs)
		all = append(all, errs...)

		if res != nil {
			p.metrics.RecordProviderRequest(ctx, source, stage, "success")
			return res, source, all
		}
		if pass >= p.cfg.Retries || !resilience.HasTransportError(errs) {
			return nil, "", all
		}
		slog.Info("retrying stage after transient failure",
			"stage", stage, "pass", pass+1, "delay", p.cfg.RetryDelay)
		if err := p.sleep(ctx, p.cfg.RetryDelay); err != nil {
			return nil, "", all
		}
	}
}

// recordDispatch translates a dispatch pass's error list into metrics.
func recordDispatch(ctx context.Context, m *observe.Metrics, stage string, errs []types.ServiceError) {
	for _, e := range errs {
		switch e.Message {
		case resilience.MsgRateLimited:
			m.RecordRateLimitRejection(ctx, e.Service, stage)
		case resilience.MsgBreakerOpen:
			// Skips, not failures.
		default:
			m.RecordProviderError(ctx, e.Service, stage)
		}
	}
}

// sleepCtx waits d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
