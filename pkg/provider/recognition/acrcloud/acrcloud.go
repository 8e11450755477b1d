// Package acrcloud provides an ACRCloud-backed recognition provider using the
// identification HTTP API. It implements the recognition.Provider interface.
package acrcloud

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/verselate/verselate/pkg/provider/recognition"
	"github.com/verselate/verselate/pkg/types"
)

const (
	defaultBaseURL   = "https://identify-eu-west-1.acrcloud.com"
	identifyEndpoint = "/v1/identify"
	dataType         = "audio"
	signatureVersion = "1"
)

// ACRCloud status codes of interest. Everything else non-zero is a protocol
// error.
const (
	statusSuccess  = 0
	statusNoResult = 1001
)

// Option is a functional option for the ACRCloud Provider.
type Option func(*Provider)

// WithBaseURL overrides the default regional identification endpoint.
func WithBaseURL(url string) Option {
	return func(p *Provider) {
		p.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient replaces the HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements recognition.Provider backed by ACRCloud.
type Provider struct {
	accessKey    string
	accessSecret string
	baseURL      string
	httpClient   *http.Client
	now          func() time.Time
}

// Compile-time interface assertion.
var _ recognition.Provider = (*Provider)(nil)

// New creates an ACRCloud Provider. accessKey and accessSecret must be
// non-empty.
func New(accessKey, accessSecret string, opts ...Option) (*Provider, error) {
	if accessKey == "" || accessSecret == "" {
		return nil, errors.New("acrcloud: accessKey and accessSecret must not be empty")
	}
	p := &Provider{
		accessKey:    accessKey,
		accessSecret: accessSecret,
		baseURL:      defaultBaseURL,
		httpClient:   &http.Client{},
		now:          time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// identifyResponse mirrors the subset of the ACRCloud response we consume.
type identifyResponse struct {
	Status struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	} `json:"status"`
	Metadata struct {
		Music []struct {
			Title   string `json:"title"`
			Score   float64 `json:"score"`
			Artists []struct {
				Name string `json:"name"`
			} `json:"artists"`
			Album struct {
				Name string `json:"name"`
			} `json:"album"`
		} `json:"music"`
	} `json:"metadata"`
}

// Recognize implements recognition.Provider. It posts the sample as a signed
// multipart request and returns the best match, or nil when ACRCloud reports
// no result.
func (p *Provider) Recognize(ctx context.Context, audio []byte) (*types.SongInfo, error) {
	if len(audio) == 0 {
		return nil, errors.New("acrcloud: audio sample is empty")
	}

	timestamp := strconv.FormatInt(p.now().Unix(), 10)
	signature := p.sign(timestamp)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fields := map[string]string{
		"access_key":        p.accessKey,
		"data_type":         dataType,
		"signature_version": signatureVersion,
		"signature":         signature,
		"timestamp":         timestamp,
		"sample_bytes":      strconv.Itoa(len(audio)),
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("acrcloud: build request: %w", err)
		}
	}
	fw, err := w.CreateFormFile("sample", "sample.bin")
	if err != nil {
		return nil, fmt.Errorf("acrcloud: build request: %w", err)
	}
	if _, err := fw.Write(audio); err != nil {
		return nil, fmt.Errorf("acrcloud: build request: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("acrcloud: build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+identifyEndpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("acrcloud: new request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("acrcloud: identify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("acrcloud: identify: unexpected status %d", resp.StatusCode)
	}

	var ir identifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&ir); err != nil {
		return nil, fmt.Errorf("acrcloud: decode response: %w", err)
	}
	return parseIdentifyResponse(&ir)
}

// parseIdentifyResponse maps an ACRCloud response to a SongInfo. A no-result
// status yields (nil, nil).
func parseIdentifyResponse(ir *identifyResponse) (*types.SongInfo, error) {
	switch ir.Status.Code {
	case statusSuccess:
	case statusNoResult:
		return nil, nil
	default:
		return nil, fmt.Errorf("acrcloud: status %d: %s", ir.Status.Code, ir.Status.Msg)
	}
	if len(ir.Metadata.Music) == 0 {
		return nil, nil
	}

	m := ir.Metadata.Music[0]
	info := &types.SongInfo{
		Title:      m.Title,
		Album:      m.Album.Name,
		Confidence: m.Score / 100,
		Source:     "acrcloud",
	}
	if len(m.Artists) > 0 {
		info.Artist = m.Artists[0].Name
	}
	if info.Artist == "" || info.Title == "" {
		// A hit without both fields cannot drive the lyrics stage.
		return nil, nil
	}
	return info, nil
}

// sign computes the base64 HMAC-SHA1 request signature over the canonical
// string ACRCloud expects.
func (p *Provider) sign(timestamp string) string {
	toSign := strings.Join([]string{
		http.MethodPost,
		identifyEndpoint,
		p.accessKey,
		dataType,
		signatureVersion,
		timestamp,
	}, "\n")
	mac := hmac.New(sha1.New, []byte(p.accessSecret))
	mac.Write([]byte(toSign))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
