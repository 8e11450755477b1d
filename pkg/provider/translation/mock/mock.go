// Package mock provides a mock implementation of translation.Provider
// for testing.
package mock

import (
	"context"
	"sync"

	"github.com/verselate/verselate/pkg/provider/translation"
	"github.com/verselate/verselate/pkg/types"
)

// Provider is a configurable mock translation provider.
type Provider struct {
	// Translation is returned by Translate when Err is nil.
	Translation *types.Translation

	// Err is returned by Translate when set.
	Err error

	mu sync.Mutex
	// Calls records every request passed to Translate.
	Calls []translation.Request
}

var _ translation.Provider = (*Provider)(nil)

// Translate implements translation.Provider.
func (p *Provider) Translate(ctx context.Context, req translation.Request) (*types.Translation, error) {
	p.mu.Lock()
	p.Calls = append(p.Calls, req)
	p.mu.Unlock()
	if p.Err != nil {
		return nil, p.Err
	}
	return p.Translation, nil
}

// CallCount returns how many times Translate was invoked.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}
