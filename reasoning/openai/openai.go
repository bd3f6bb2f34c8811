// Package openai provides a reasoner backed by the OpenAI Chat Completions API.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/reasoning"
)

// Interface compliance (compile-time assertion)
var _ core.Reasoner = (*Reasoner)(nil)

// Options configure the OpenAI reasoner.
// Fields mirror a subset of Chat Completion parameters intentionally kept
// minimal; extend via functional options without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Reasoner drives task decisions through the OpenAI Chat Completions API.
type Reasoner struct {
	client *openai.Client
	opts   Options
}

// NewReasoner creates a new OpenAI reasoner using the official client
func NewReasoner(optFns ...func(o *Options)) *Reasoner {
	client := openai.NewClient()
	return NewReasonerFromClient(&client, optFns...)
}

// NewReasonerFromClient creates a new OpenAI reasoner from an existing client
func NewReasonerFromClient(client *openai.Client, optFns ...func(o *Options)) *Reasoner {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.2,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Reasoner{client: client, opts: opts}
}

// Think sends the rendered context to the Chat Completions API and parses
// the response into a decision.
func (r *Reasoner) Think(ctx context.Context, tc core.ThinkContext) (*core.Decision, error) {
	params := openai.ChatCompletionNewParams{
		Model:               r.opts.Model,
		Temperature:         openai.Float(r.opts.Temperature),
		MaxCompletionTokens: openai.Int(r.opts.MaxCompletionTokens),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(reasoning.SystemPrompt),
			openai.UserMessage(reasoning.BuildUserPrompt(tc)),
		},
	}

	resp, err := r.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned")
	}

	return reasoning.ParseDecision(resp.Choices[0].Message.Content), nil
}
