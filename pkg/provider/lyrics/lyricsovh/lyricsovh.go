// Package lyricsovh provides a Lyrics.ovh-backed lyrics provider. The API is
// keyless, which makes it the natural unlimited-but-basic fallback at the end
// of the lyrics chain. It implements the lyrics.Provider interface.
package lyricsovh

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/verselate/verselate/pkg/provider/lyrics"
	"github.com/verselate/verselate/pkg/types"
)

const defaultBaseURL = "https://api.lyrics.ovh/v1"

// Option is a functional option for the Lyrics.ovh Provider.
type Option func(*Provider)

// WithBaseURL overrides the default API endpoint.
func WithBaseURL(u string) Option {
	return func(p *Provider) {
		p.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient replaces the HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements lyrics.Provider backed by Lyrics.ovh.
type Provider struct {
	baseURL    string
	httpClient *http.Client
}

var _ lyrics.Provider = (*Provider)(nil)

// New creates a Lyrics.ovh Provider. No credentials are required.
func New(opts ...Option) *Provider {
	p := &Provider{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// lyricsResponse is the Lyrics.ovh payload.
type lyricsResponse struct {
	Lyrics string `json:"lyrics"`
	Error  string `json:"error"`
}

// Fetch implements lyrics.Provider. A 404 yields a silent miss.
func (p *Provider) Fetch(ctx context.Context, artist, title string) (*types.Lyrics, error) {
	reqURL := fmt.Sprintf("%s/%s/%s",
		p.baseURL, url.PathEscape(artist), url.PathEscape(title))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("lyricsovh: new request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lyricsovh: fetch: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, fmt.Errorf("lyricsovh: fetch: unexpected status %d", resp.StatusCode)
	}

	var lr lyricsResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return nil, fmt.Errorf("lyricsovh: decode response: %w", err)
	}
	if lr.Error != "" || strings.TrimSpace(lr.Lyrics) == "" {
		return nil, nil
	}
	return &types.Lyrics{
		Text:   strings.TrimSpace(lr.Lyrics),
		Source: "lyricsovh",
	}, nil
}
