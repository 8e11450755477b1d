// Package mock provides a test double for the lyrics.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/verselate/verselate/pkg/provider/lyrics"
	"github.com/verselate/verselate/pkg/types"
)

// Call records a single invocation of Provider.Fetch.
type Call struct {
	Artist string
	Title  string
}

// Provider is a mock implementation of lyrics.Provider.
type Provider struct {
	mu sync.Mutex

	// Lyrics is returned from Fetch. Nil with a nil Err models a miss.
	Lyrics *types.Lyrics

	// Err, if non-nil, is returned as the error from Fetch.
	Err error

	// Calls records every invocation.
	Calls []Call
}

var _ lyrics.Provider = (*Provider)(nil)

// Fetch records the call and returns Lyrics, Err.
func (p *Provider) Fetch(_ context.Context, artist, title string) (*types.Lyrics, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, Call{Artist: artist, Title: title})
	if p.Err != nil {
		return nil, p.Err
	}
	return p.Lyrics, nil
}

// CallCount returns how many times Fetch was invoked.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}
