// Package libretranslate provides a LibreTranslate-backed translation
// provider. It works against any LibreTranslate instance; the public one is
// keyless while self-hosted or mirror instances may require an API key.
// It implements the translation.Provider interface.
package libretranslate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/verselate/verselate/pkg/provider/translation"
	"github.com/verselate/verselate/pkg/types"
)

const defaultBaseURL = "https://libretranslate.com"

// Option is a functional option for the LibreTranslate Provider.
type Option func(*Provider)

// WithBaseURL points the provider at a specific LibreTranslate instance.
func WithBaseURL(u string) Option {
	return func(p *Provider) {
		p.baseURL = strings.TrimRight(u, "/")
	}
}

// WithAPIKey sets the API key for instances that require one.
func WithAPIKey(key string) Option {
	return func(p *Provider) {
		p.apiKey = key
	}
}

// WithHTTPClient replaces the HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements translation.Provider backed by LibreTranslate.
type Provider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ translation.Provider = (*Provider)(nil)

// New creates a LibreTranslate Provider.
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

// translateRequest is the JSON body for POST /translate.
type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

// translateResponse is the success payload.
type translateResponse struct {
	TranslatedText   string `json:"translatedText"`
	DetectedLanguage struct {
		Language string `json:"language"`
	} `json:"detectedLanguage"`
}

// errorResponse is the failure payload.
type errorResponse struct {
	Error string `json:"error"`
}

// Translate implements translation.Provider.
func (p *Provider) Translate(ctx context.Context, req translation.Request) (*types.Translation, error) {
	if req.Text == "" {
		return nil, errors.New("libretranslate: text must not be empty")
	}
	source := req.SourceLanguage
	if source == "" {
		source = "auto"
	}

	body, err := json.Marshal(translateRequest{
		Q:      req.Text,
		Source: source,
		Target: req.TargetLanguage,
		Format: "text",
		APIKey: p.apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("libretranslate: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/translate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("libretranslate: new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("libretranslate: translate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var er errorResponse
		if json.Unmarshal(raw, &er) == nil && er.Error != "" {
			return nil, fmt.Errorf("libretranslate: status %d: %s", resp.StatusCode, er.Error)
		}
		return nil, fmt.Errorf("libretranslate: translate: unexpected status %d", resp.StatusCode)
	}

	var tr translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("libretranslate: decode response: %w", err)
	}

	text := strings.TrimSpace(tr.TranslatedText)
	if text == "" {
		return nil, nil
	}
	sourceLang := req.SourceLanguage
	if sourceLang == "" {
		sourceLang = tr.DetectedLanguage.Language
	}
	return &types.Translation{
		Text:           text,
		SourceLanguage: sourceLang,
		TargetLanguage: req.TargetLanguage,
		Source:         "libretranslate",
	}, nil
}
