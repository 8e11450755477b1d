// Package lrclib provides an LRCLIB-backed lyrics provider. LRCLIB is keyless
// and returns both plain and time-synchronised lyrics, plus its own artist
// and track metadata which the pipeline verifies against the request.
// It implements the lyrics.Provider interface.
package lrclib

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

const defaultBaseURL = "https://lrclib.net/api"

// Option is a functional option for the LRCLIB Provider.
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

// Provider implements lyrics.Provider backed by LRCLIB.
type Provider struct {
	baseURL    string
	httpClient *http.Client
}

var _ lyrics.Provider = (*Provider)(nil)

// New creates an LRCLIB Provider. No credentials are required.
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

// getResponse mirrors the LRCLIB /api/get payload.
type getResponse struct {
	ArtistName   string `json:"artistName"`
	TrackName    string `json:"trackName"`
	PlainLyrics  string `json:"plainLyrics"`
	SyncedLyrics string `json:"syncedLyrics"`
	Instrumental bool   `json:"instrumental"`
}

// Fetch implements lyrics.Provider. A 404, or an instrumental track, yields a
// silent miss.
func (p *Provider) Fetch(ctx context.Context, artist, title string) (*types.Lyrics, error) {
	q := url.Values{}
	q.Set("artist_name", artist)
	q.Set("track_name", title)

	reqURL := fmt.Sprintf("%s/get?%s", p.baseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("lrclib: new request: %w", err)
	}
	req.Header.Set("User-Agent", "verselate/1.0")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lrclib: fetch: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, fmt.Errorf("lrclib: fetch: unexpected status %d", resp.StatusCode)
	}

	var gr getResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return nil, fmt.Errorf("lrclib: decode response: %w", err)
	}
	if gr.Instrumental || strings.TrimSpace(gr.PlainLyrics) == "" {
		return nil, nil
	}
	return &types.Lyrics{
		Text:   strings.TrimSpace(gr.PlainLyrics),
		Synced: gr.SyncedLyrics,
		Artist: gr.ArtistName,
		Title:  gr.TrackName,
		Source: "lrclib",
	}, nil
}
