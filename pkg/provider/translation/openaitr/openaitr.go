// Package openaitr provides a translation provider backed by OpenAI chat
// completions. It produces the highest-quality lyric translations in the
// chain but costs money per request, so deployments usually place it
// behind the free HTTP providers or mark it trusted for best-quality mode.
// It implements the translation.Provider interface.
package openaitr

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/verselate/verselate/pkg/provider/translation"
	"github.com/verselate/verselate/pkg/types"
)

const defaultModel = "gpt-4o-mini"

const systemPrompt = "You are a professional song lyric translator. " +
	"Translate the lyrics you are given into the requested language. " +
	"Preserve line breaks and stanza structure exactly. " +
	"Do not add commentary, notes, or romanization. Output only the translated lyrics."

// Provider implements translation.Provider using the OpenAI API.
type Provider struct {
	client oai.Client
	model  string
}

var _ translation.Provider = (*Provider)(nil)

// config holds optional configuration for the provider.
type config struct {
	model   string
	baseURL string
	timeout time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithModel overrides the default chat model.
func WithModel(model string) Option {
	return func(c *config) {
		c.model = model
	}
}

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// New constructs a new OpenAI translation Provider.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openaitr: apiKey must not be empty")
	}

	cfg := &config{model: defaultModel}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	client := oai.NewClient(reqOpts...)
	return &Provider{client: client, model: cfg.model}, nil
}

// Translate implements translation.Provider.
func (p *Provider) Translate(ctx context.Context, req translation.Request) (*types.Translation, error) {
	if req.Text == "" {
		return nil, fmt.Errorf("openaitr: text must not be empty")
	}

	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(systemPrompt),
			oai.UserMessage(userPrompt(req)),
		},
		Temperature: param.NewOpt(0.3),
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openaitr: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openaitr: empty choices in response")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return nil, nil
	}
	return &types.Translation{
		Text:           text,
		SourceLanguage: req.SourceLanguage,
		TargetLanguage: req.TargetLanguage,
		Source:         "openai",
	}, nil
}

// userPrompt builds the user message for a translation request.
func userPrompt(req translation.Request) string {
	var b strings.Builder
	if req.SourceLanguage != "" {
		fmt.Fprintf(&b, "Translate the following lyrics from %s to %s:\n\n", req.SourceLanguage, req.TargetLanguage)
	} else {
		fmt.Fprintf(&b, "Translate the following lyrics to %s:\n\n", req.TargetLanguage)
	}
	b.WriteString(req.Text)
	return b.String()
}
