// Package mymemory provides a MyMemory-backed translation provider. The API
// is keyless (an optional contact email raises the daily quota), which makes
// it the preferred free-quota head of the translation chain.
// It implements the translation.Provider interface.
package mymemory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/verselate/verselate/pkg/provider/translation"
	"github.com/verselate/verselate/pkg/types"
)

const (
	defaultBaseURL = "https://api.mymemory.translated.net"

	// maxChunkLen is MyMemory's per-request query length ceiling. Longer
	// texts are split on line boundaries and translated chunk by chunk.
	maxChunkLen = 450
)

// Option is a functional option for the MyMemory Provider.
type Option func(*Provider)

// WithBaseURL overrides the default API endpoint.
func WithBaseURL(u string) Option {
	return func(p *Provider) {
		p.baseURL = strings.TrimRight(u, "/")
	}
}

// WithEmail sets the contact email MyMemory uses to grant the larger free
// quota.
func WithEmail(email string) Option {
	return func(p *Provider) {
		p.email = email
	}
}

// WithHTTPClient replaces the HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements translation.Provider backed by MyMemory.
type Provider struct {
	baseURL    string
	email      string
	httpClient *http.Client
}

var _ translation.Provider = (*Provider)(nil)

// New creates a MyMemory Provider. No credentials are required.
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

// getResponse mirrors the MyMemory envelope.
type getResponse struct {
	ResponseStatus  int    `json:"responseStatus"`
	ResponseDetails string `json:"responseDetails"`
	ResponseData    struct {
		TranslatedText string `json:"translatedText"`
	} `json:"responseData"`
}

// Translate implements translation.Provider. Long texts are split into
// line-aligned chunks under MyMemory's query length limit and rejoined.
func (p *Provider) Translate(ctx context.Context, req translation.Request) (*types.Translation, error) {
	source := req.SourceLanguage
	if source == "" {
		source = "Autodetect"
	}
	langpair := source + "|" + req.TargetLanguage

	var out []string
	for _, chunk := range splitChunks(req.Text, maxChunkLen) {
		translated, err := p.translateChunk(ctx, chunk, langpair)
		if err != nil {
			return nil, err
		}
		out = append(out, translated)
	}

	text := strings.TrimSpace(strings.Join(out, "\n"))
	if text == "" {
		return nil, nil
	}
	return &types.Translation{
		Text:           text,
		SourceLanguage: req.SourceLanguage,
		TargetLanguage: req.TargetLanguage,
		Source:         "mymemory",
	}, nil
}

// translateChunk performs one GET /get call.
func (p *Provider) translateChunk(ctx context.Context, text, langpair string) (string, error) {
	q := url.Values{}
	q.Set("q", text)
	q.Set("langpair", langpair)
	if p.email != "" {
		q.Set("de", p.email)
	}

	reqURL := fmt.Sprintf("%s/get?%s", p.baseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("mymemory: new request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("mymemory: translate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("mymemory: translate: unexpected status %d", resp.StatusCode)
	}

	var gr getResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return "", fmt.Errorf("mymemory: decode response: %w", err)
	}
	if gr.ResponseStatus != http.StatusOK {
		return "", fmt.Errorf("mymemory: api status %d: %s", gr.ResponseStatus, gr.ResponseDetails)
	}
	return gr.ResponseData.TranslatedText, nil
}

// splitChunks groups lines into chunks of at most maxLen bytes. A single
// line longer than maxLen becomes its own chunk; MyMemory truncates rather
// than rejects slightly oversized queries.
func splitChunks(text string, maxLen int) []string {
	lines := strings.Split(text, "\n")
	var (
		chunks  []string
		current strings.Builder
	)
	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}
	for _, line := range lines {
		if current.Len() > 0 && current.Len()+len(line)+1 > maxLen {
			flush()
		}
		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(line)
	}
	flush()
	return chunks
}
