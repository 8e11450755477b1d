// Package googletrans provides a translation provider backed by the public
// Google Translate single-translate endpoint (the "gtx" client used by
// browser extensions). It needs no credentials but is rate-limited
// aggressively, so it sits late in the translation chain.
// It implements the translation.Provider interface.
package googletrans

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/verselate/verselate/pkg/provider/translation"
	"github.com/verselate/verselate/pkg/types"
)

const defaultBaseURL = "https://translate.googleapis.com"

// Option is a functional option for the Google Translate Provider.
type Option func(*Provider)

// WithBaseURL overrides the default endpoint, mainly for tests.
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

// Provider implements translation.Provider via the public gtx endpoint.
type Provider struct {
	baseURL    string
	httpClient *http.Client
}

var _ translation.Provider = (*Provider)(nil)

// New creates a Google Translate Provider. No credentials are required.
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

// Translate implements translation.Provider. The gtx endpoint answers with
// deeply nested positional JSON arrays rather than an object, so the
// response is picked apart with gjson paths instead of struct decoding.
func (p *Provider) Translate(ctx context.Context, req translation.Request) (*types.Translation, error) {
	if req.Text == "" {
		return nil, errors.New("googletrans: text must not be empty")
	}
	source := req.SourceLanguage
	if source == "" {
		source = "auto"
	}

	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", source)
	q.Set("tl", req.TargetLanguage)
	q.Set("dt", "t")
	q.Set("q", req.Text)

	reqURL := fmt.Sprintf("%s/translate_a/single?%s", p.baseURL, q.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("googletrans: new request: %w", err)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("googletrans: translate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("googletrans: translate: unexpected status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("googletrans: read response: %w", err)
	}
	if !gjson.ValidBytes(raw) {
		return nil, errors.New("googletrans: malformed response body")
	}

	// The first element is a list of [translated, original, ...] segments;
	// the third element is the detected source language.
	var b strings.Builder
	for _, seg := range gjson.GetBytes(raw, "0").Array() {
		b.WriteString(seg.Get("0").String())
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return nil, nil
	}

	sourceLang := req.SourceLanguage
	if sourceLang == "" {
		sourceLang = gjson.GetBytes(raw, "2").String()
	}
	return &types.Translation{
		Text:           text,
		SourceLanguage: sourceLang,
		TargetLanguage: req.TargetLanguage,
		Source:         "googletrans",
	}, nil
}
