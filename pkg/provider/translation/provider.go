// Package translation defines the Provider interface for text-translation
// backends.
//
// A translation provider wraps an external service (e.g. MyMemory,
// LibreTranslate, the public Google endpoint, or an LLM) behind a uniform
// contract. A nil result with a nil error means the service could not produce
// a usable translation without failing — the dispatcher falls through
// silently. Non-nil errors are transport or protocol failures.
//
// Implementations must be safe for concurrent use and must honour context
// cancellation on every network call.
package translation

import (
	"context"

	"github.com/verselate/verselate/pkg/types"
)

// Request carries the text to translate and the language pair.
type Request struct {
	// Text is the source text. Must be non-empty.
	Text string

	// TargetLanguage is the ISO 639-1 code to translate into (e.g. "es").
	TargetLanguage string

	// SourceLanguage is the input language code. Empty means auto-detect.
	SourceLanguage string
}

// Provider is the abstraction over any translation backend.
type Provider interface {
	// Translate translates req.Text into req.TargetLanguage.
	//
	// Returns (nil, nil) when the service responds cleanly but without a
	// usable translation. Returns a non-nil error only for transport or
	// protocol failures.
	Translate(ctx context.Context, req Request) (*types.Translation, error)
}
