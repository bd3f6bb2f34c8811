// Package anthropic provides a reasoner backed by the Anthropic Messages API.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/reasoning"
)

// Interface compliance (compile-time assertion)
var _ core.Reasoner = (*Reasoner)(nil)

// Options configures the Anthropic reasoner (model id, temperature, max
// tokens, API key). Extend via functional options to preserve stability.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Reasoner drives task decisions through the Anthropic Messages API.
type Reasoner struct {
	client *anthropic.Client
	opts   Options
}

// NewReasoner creates a new Anthropic reasoner using the official client
func NewReasoner(optFns ...func(o *Options)) *Reasoner {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.2,
		MaxTokens:   4096,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Reasoner{
		client: &client,
		opts:   opts,
	}
}

// NewReasonerFromClient creates a new Anthropic reasoner from an existing client
func NewReasonerFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Reasoner {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.2,
		MaxTokens:   4096,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Reasoner{
		client: client,
		opts:   opts,
	}
}

// Think sends the rendered context to the Messages API and parses the
// response into a decision.
func (r *Reasoner) Think(ctx context.Context, tc core.ThinkContext) (*core.Decision, error) {
	params := anthropic.MessageNewParams{
		Model:       r.opts.Model,
		MaxTokens:   r.opts.MaxTokens,
		Temperature: anthropic.Float(r.opts.Temperature),
		System: []anthropic.TextBlockParam{
			{Text: reasoning.SystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(reasoning.BuildUserPrompt(tc))),
		},
	}

	resp, err := r.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic api error: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.AsText().Text)
		}
	}

	return reasoning.ParseDecision(text.String()), nil
}
