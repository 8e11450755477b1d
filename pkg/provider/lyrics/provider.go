// Package lyrics defines the Provider interface for lyrics-lookup backends.
//
// A lyrics provider wraps an external catalogue (e.g. Musixmatch, Lyrics.ovh,
// or LRCLIB) behind a uniform contract: given artist and title it returns the
// lyrics text, or nil when the catalogue has no entry. A nil result with a
// nil error is a semantic miss, not a failure.
//
// Implementations must be safe for concurrent use and must honour context
// cancellation on every network call.
package lyrics

import (
	"context"

	"github.com/verselate/verselate/pkg/types"
)

// Provider is the abstraction over any lyrics-lookup backend.
type Provider interface {
	// Fetch looks up the lyrics for the given artist and title.
	//
	// Returns (nil, nil) when the catalogue has no entry for the song.
	// Returns a non-nil error only for transport or protocol failures.
	Fetch(ctx context.Context, artist, title string) (*types.Lyrics, error)
}
