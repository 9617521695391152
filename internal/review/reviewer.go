// Package review sends assistant instructions to an AI reviewer and runs
// the call on a background worker so a UI loop never blocks on it.
package review

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const reviewPrompt = `You are an expert reviewer of instructions written for AI assistants.
Review the instructions you are given: point out ambiguity, missing constraints,
and contradictions, then provide an improved version. Reply in plain text.`

// Reviewer performs one synchronous instructions review.
type Reviewer interface {
	Review(ctx context.Context, instructions string) (string, error)
}

// OpenAIReviewer reviews instructions via an OpenAI-compatible chat
// completion endpoint.
type OpenAIReviewer struct {
	client *openai.Client
	model  string
}

// NewOpenAIReviewer creates a reviewer against the given endpoint. An empty
// baseURL uses the default OpenAI API endpoint.
func NewOpenAIReviewer(baseURL, apiKey, model string) *OpenAIReviewer {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(120 * time.Second),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return &OpenAIReviewer{client: &client, model: model}
}

// Review sends the instructions for review and returns the reviewer's
// free-form response.
func (r *OpenAIReviewer) Review(ctx context.Context, instructions string) (string, error) {
	completion, err := r.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(reviewPrompt),
			openai.UserMessage(instructions),
		},
		Model: r.model,
	})
	if err != nil {
		return "", fmt.Errorf("requesting review: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("review response contained no choices")
	}
	return completion.Choices[0].Message.Content, nil
}
