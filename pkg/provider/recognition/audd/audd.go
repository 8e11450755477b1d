// Package audd provides an AudD-backed recognition provider using the audd.io
// HTTP API. It implements the recognition.Provider interface.
package audd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/verselate/verselate/pkg/provider/recognition"
	"github.com/verselate/verselate/pkg/types"
)

const defaultBaseURL = "https://api.audd.io/"

// Option is a functional option for the AudD Provider.
type Option func(*Provider)

// WithBaseURL overrides the default API endpoint.
func WithBaseURL(url string) Option {
	return func(p *Provider) {
		if !strings.HasSuffix(url, "/") {
			url += "/"
		}
		p.baseURL = url
	}
}

// WithHTTPClient replaces the HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements recognition.Provider backed by AudD.
type Provider struct {
	apiToken   string
	baseURL    string
	httpClient *http.Client
}

var _ recognition.Provider = (*Provider)(nil)

// New creates an AudD Provider. apiToken must be non-empty.
func New(apiToken string, opts ...Option) (*Provider, error) {
	if apiToken == "" {
		return nil, errors.New("audd: apiToken must not be empty")
	}
	p := &Provider{
		apiToken:   apiToken,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// recognizeResponse mirrors the AudD response envelope. A null result means
// the service found no match.
type recognizeResponse struct {
	Status string `json:"status"`
	Error  *struct {
		ErrorCode    int    `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	} `json:"error"`
	Result *struct {
		Artist string `json:"artist"`
		Title  string `json:"title"`
		Album  string `json:"album"`
	} `json:"result"`
}

// Recognize implements recognition.Provider. It uploads the sample as a
// multipart file and returns the match, or nil when AudD reports none.
func (p *Provider) Recognize(ctx context.Context, audio []byte) (*types.SongInfo, error) {
	if len(audio) == 0 {
		return nil, errors.New("audd: audio sample is empty")
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := w.WriteField("api_token", p.apiToken); err != nil {
		return nil, fmt.Errorf("audd: build request: %w", err)
	}
	fw, err := w.CreateFormFile("file", "sample.bin")
	if err != nil {
		return nil, fmt.Errorf("audd: build request: %w", err)
	}
	if _, err := fw.Write(audio); err != nil {
		return nil, fmt.Errorf("audd: build request: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("audd: build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, &body)
	if err != nil {
		return nil, fmt.Errorf("audd: new request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("audd: recognize: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("audd: recognize: unexpected status %d", resp.StatusCode)
	}

	var rr recognizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return nil, fmt.Errorf("audd: decode response: %w", err)
	}

	if rr.Status != "success" {
		if rr.Error != nil {
			return nil, fmt.Errorf("audd: error %d: %s", rr.Error.ErrorCode, rr.Error.ErrorMessage)
		}
		return nil, fmt.Errorf("audd: unexpected status %q", rr.Status)
	}
	if rr.Result == nil || rr.Result.Artist == "" || rr.Result.Title == "" {
		return nil, nil
	}
	return &types.SongInfo{
		Artist: rr.Result.Artist,
		Title:  rr.Result.Title,
		Album:  rr.Result.Album,
		Source: "audd",
	}, nil
}
