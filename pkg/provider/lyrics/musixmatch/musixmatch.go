// Package musixmatch provides a Musixmatch-backed lyrics provider using the
// matcher.lyrics.get endpoint. It implements the lyrics.Provider interface.
package musixmatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/verselate/verselate/pkg/provider/lyrics"
	"github.com/verselate/verselate/pkg/types"
)

const defaultBaseURL = "https://api.musixmatch.com/ws/1.1"

// Option is a functional option for the Musixmatch Provider.
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

// Provider implements lyrics.Provider backed by Musixmatch.
type Provider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

var _ lyrics.Provider = (*Provider)(nil)

// New creates a Musixmatch Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("musixmatch: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// matcherResponse mirrors the Musixmatch envelope for matcher.lyrics.get.
type matcherResponse struct {
	Message struct {
		Header struct {
			StatusCode int `json:"status_code"`
		} `json:"header"`
		Body json.RawMessage `json:"body"`
	} `json:"message"`
}

// matcherBody is the body payload when the lookup succeeds.
type matcherBody struct {
	Lyrics struct {
		LyricsBody string `json:"lyrics_body"`
	} `json:"lyrics"`
}

// Fetch implements lyrics.Provider. A 404 status inside the envelope means
// the catalogue has no entry and yields a silent miss.
func (p *Provider) Fetch(ctx context.Context, artist, title string) (*types.Lyrics, error) {
	q := url.Values{}
	q.Set("q_artist", artist)
	q.Set("q_track", title)
	q.Set("apikey", p.apiKey)

	reqURL := fmt.Sprintf("%s/matcher.lyrics.get?%s", p.baseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("musixmatch: new request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("musixmatch: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("musixmatch: fetch: unexpected status %d", resp.StatusCode)
	}

	var mr matcherResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return nil, fmt.Errorf("musixmatch: decode response: %w", err)
	}

	switch mr.Message.Header.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, fmt.Errorf("musixmatch: api status %d", mr.Message.Header.StatusCode)
	}

	var body matcherBody
	if err := json.Unmarshal(mr.Message.Body, &body); err != nil {
		return nil, fmt.Errorf("musixmatch: decode body: %w", err)
	}

	text := cleanLyrics(body.Lyrics.LyricsBody)
	if text == "" {
		return nil, nil
	}
	return &types.Lyrics{
		Text:   text,
		Source: "musixmatch",
	}, nil
}

// cleanLyrics strips the free-tier disclaimer and tracking line Musixmatch
// appends to lyrics_body.
func cleanLyrics(s string) string {
	if i := strings.Index(s, "******* This Lyrics is NOT"); i >= 0 {
		s = s[:i]
	}
	lines := strings.Split(s, "\n")
	for len(lines) > 0 {
		last := strings.TrimSpace(lines[len(lines)-1])
		if last == "" || strings.HasPrefix(last, "...") {
			lines = lines[:len(lines)-1]
			continue
		}
		break
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
