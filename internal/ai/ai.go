// Package ai provides the conversational fallback for utterances no command
// pattern claims. It is optional; without an API key the assistant still
// works, it just declines small talk.
package ai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"voxsurf/internal/config"
	. "voxsurf/internal/logging"
)

// Responder answers free-form utterances with a short spoken reply.
type Responder struct {
	client *openai.Client
	cfg    config.AIConfig
}

// New builds a responder from config. A nil responder is returned when no
// API key is configured; callers treat that as "fallback disabled".
func New(cfg config.AIConfig) *Responder {
	if cfg.APIKey == "" {
		return nil
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return &Responder{client: openai.NewClientWithConfig(oc), cfg: cfg}
}

// Respond produces a short spoken answer for an utterance.
func (r *Responder) Respond(ctx context.Context, utterance string) (string, error) {
	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: r.cfg.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: utterance},
		},
		MaxTokens: 150,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	L_debug("ai fallback answered", "chars", len(answer))
	return answer, nil
}
