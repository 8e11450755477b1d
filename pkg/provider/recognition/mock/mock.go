// Package mock provides a test double for the recognition.Provider interface.
//
// Configure the fields to control behaviour and inspect Calls afterwards:
//
//	p := &mock.Provider{Info: &types.SongInfo{Artist: "a", Title: "t"}}
//	info, err := p.Recognize(ctx, sample)
package mock

import (
	"context"
	"sync"

	"github.com/verselate/verselate/pkg/provider/recognition"
	"github.com/verselate/verselate/pkg/types"
)

// Call records a single invocation of Provider.Recognize.
type Call struct {
	// Audio is the sample passed to Recognize.
	Audio []byte
}

// Provider is a mock implementation of recognition.Provider.
type Provider struct {
	mu sync.Mutex

	// Info is returned from Recognize. Nil with a nil Err models a miss.
	Info *types.SongInfo

	// Err, if non-nil, is returned as the error from Recognize.
	Err error

	// Calls records every invocation.
	Calls []Call
}

var _ recognition.Provider = (*Provider)(nil)

// Recognize records the call and returns Info, Err.
func (p *Provider) Recognize(_ context.Context, audio []byte) (*types.SongInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, Call{Audio: audio})
	if p.Err != nil {
		return nil, p.Err
	}
	return p.Info, nil
}

// CallCount returns how many times Recognize was invoked.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}
