// Package recognition defines the Provider interface for audio-recognition
// backends.
//
// A recognition provider wraps an external song-identification service (e.g.
// ACRCloud or AudD) behind a uniform contract: given a raw audio sample it
// returns the identified song, or nil when the service finds no match. A nil
// result with a nil error is a semantic miss, not a failure — the dispatcher
// falls through to the next provider silently.
//
// Implementations must be safe for concurrent use and must honour context
// cancellation on every network call.
package recognition

import (
	"context"

	"github.com/verselate/verselate/pkg/types"
)

// Provider is the abstraction over any audio-recognition backend.
type Provider interface {
	// Recognize identifies the song in the given raw audio sample.
	//
	// Returns (nil, nil) when the service reports no match. Returns a non-nil
	// error only for transport or protocol failures (timeout, non-2xx beyond
	// a recognised not-found status, malformed payload).
	Recognize(ctx context.Context, audio []byte) (*types.SongInfo, error)
}
