package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/PeterSaffarian/replit-propertyrecommender/internal/domain"
)

// Generator implements domain.Generator on top of the OpenAI chat completions
// API. Structured replies are forced through tool calls, so a well-behaved
// model cannot answer with free text.
type Generator struct {
	client      *openai.Client
	model       string
	temperature float32
	limiter     *rate.Limiter
}

// NewGenerator creates a generator using the given API key and model
func NewGenerator(apiKey, model string, temperature float32) *Generator {
	return newGenerator(openai.DefaultConfig(apiKey), model, temperature)
}

// newGenerator allows tests to point the client at a fake server
func newGenerator(cfg openai.ClientConfig, model string, temperature float32) *Generator {
	return &Generator{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		temperature: temperature,
		limiter:     rate.NewLimiter(rate.Limit(3), 5),
	}
}

// GenerateStructured sends the role-tagged messages constrained by fn and
// returns the structured payload the model produced. A reply without the
// requested tool call is domain.ErrGenerationFailed; callers decide whether
// to append corrective feedback and retry.
func (g *Generator) GenerateStructured(ctx context.Context, messages []domain.Message, fn domain.FunctionSpec) (json.RawMessage, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	chatMessages := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Name:    m.Name,
			Content: m.Content,
		})
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    chatMessages,
		Temperature: g.temperature,
		Tools: []openai.Tool{
			{
				Type: openai.ToolTypeFunction,
				Function: &openai.FunctionDefinition{
					Name:        fn.Name,
					Description: fn.Description,
					Parameters:  fn.Parameters,
				},
			},
		},
		ToolChoice: openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: fn.Name},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}

	log.Printf("[LLM] %s call completed in %v", fn.Name, time.Since(start))

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty response", domain.ErrGenerationFailed)
	}

	msg := resp.Choices[0].Message
	for _, call := range msg.ToolCalls {
		if call.Function.Name == fn.Name {
			return json.RawMessage(call.Function.Arguments), nil
		}
	}

	return nil, fmt.Errorf("%w: model did not call %s", domain.ErrGenerationFailed, fn.Name)
}
