package variator

import (
	"context"
	"fmt"
	"strings"

	"mensageiro/internal/models"

	openai "github.com/sashabaranov/go-openai"
)

const paraphraseInstruction = `Reescreva a mensagem abaixo com outras palavras, mantendo o mesmo sentido, o mesmo idioma e um tom natural. Preserve exatamente qualquer marcador no formato [[...]], sem alterar ou remover nenhum deles. Responda apenas com a mensagem reescrita.`

// OpenAIGenerator paraphrases content through a chat-completion API.
type OpenAIGenerator struct {
	client      *openai.Client
	model       string
	temperature float32
}

func NewOpenAIGenerator(cfg models.VariatorConfig) *OpenAIGenerator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.APIBaseURL != "" {
		clientCfg.BaseURL = cfg.APIBaseURL
	}

	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = 0.9
	}

	return &OpenAIGenerator{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: temperature,
	}
}

func (g *OpenAIGenerator) Paraphrase(ctx context.Context, content string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: g.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: paraphraseInstruction},
			{Role: openai.ChatMessageRoleUser, Content: content},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
