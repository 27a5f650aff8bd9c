// Package llm wraps the OpenAI API for relevance filtering and enrichment.
package llm

import (
	"context"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/rotisserie/eris"

	"github.com/bfsi-insights/curation-cli/internal/model"
)

// EnrichRequest carries everything the enrichment prompt needs.
type EnrichRequest struct {
	Title       string
	Description string
	Source      string
	URL         string
	Text        string
	Taxonomies  model.Taxonomies
}

// FilterRequest carries the fields the relevance gate looks at.
type FilterRequest struct {
	Title       string
	Description string
	Source      string
	URL         string
}

// Client is the LLM surface the pipeline depends on.
type Client interface {
	FilterRelevance(ctx context.Context, req FilterRequest) (model.FilterVerdict, error)
	Enrich(ctx context.Context, req EnrichRequest) (*model.Enrichment, error)
}

// Options configures the OpenAI-backed client.
type Options struct {
	APIKey      string
	FilterModel string
	EnrichModel string
	Timeout     time.Duration
}

// OpenAIClient implements Client against the OpenAI chat completions API.
type OpenAIClient struct {
	client      openai.Client
	filterModel string
	enrichModel string
}

func NewOpenAIClient(opts Options) (*OpenAIClient, error) {
	if opts.APIKey == "" {
		return nil, eris.New("llm: api key is required")
	}
	if opts.FilterModel == "" {
		opts.FilterModel = "gpt-4o-mini"
	}
	if opts.EnrichModel == "" {
		opts.EnrichModel = "gpt-5.1"
	}
	reqOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if opts.Timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(opts.Timeout))
	}
	return &OpenAIClient{
		client:      openai.NewClient(reqOpts...),
		filterModel: opts.FilterModel,
		enrichModel: opts.EnrichModel,
	}, nil
}

// FilterRelevance asks a small model whether an item belongs in a BFSI
// knowledge base. The response is a tiny JSON object; a malformed reply
// falls back to a substring scan rather than failing the item.
func (c *OpenAIClient) FilterRelevance(ctx context.Context, req FilterRequest) (model.FilterVerdict, error) {
	prompt := filterPrompt(req)

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.filterModel,
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfSystem: &openai.ChatCompletionSystemMessageParam{
					Content: openai.ChatCompletionSystemMessageParamContentUnion{
						OfString: openai.String(filterSystemPrompt),
					},
				},
			},
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: openai.String(prompt),
					},
				},
			},
		},
		Temperature: openai.Float(0.3),
		MaxTokens:   openai.Int(150),
	})
	if err != nil {
		return model.FilterVerdict{}, eris.Wrap(err, "llm: filter request")
	}
	if len(resp.Choices) == 0 {
		return model.FilterVerdict{}, eris.New("llm: empty filter response")
	}

	return parseFilterVerdict(resp.Choices[0].Message.Content), nil
}

// Enrich generates summaries, tags, persona scores, and entity mentions for
// an item that passed the relevance filter.
func (c *OpenAIClient) Enrich(ctx context.Context, req EnrichRequest) (*model.Enrichment, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.enrichModel,
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfSystem: &openai.ChatCompletionSystemMessageParam{
					Content: openai.ChatCompletionSystemMessageParamContentUnion{
						OfString: openai.String(enrichSystemPrompt),
					},
				},
			},
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: openai.String(enrichPrompt(req)),
					},
				},
			},
		},
		Temperature: openai.Float(0.2),
	})
	if err != nil {
		return nil, eris.Wrap(err, "llm: enrich request")
	}
	if len(resp.Choices) == 0 {
		return nil, eris.New("llm: empty enrich response")
	}

	enrichment, err := parseEnrichment(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, eris.Wrap(err, "llm: parse enrichment")
	}
	return enrichment, nil
}
