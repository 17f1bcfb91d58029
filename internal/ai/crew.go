package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"
)

const defaultModel = openai.GPT4oMini

// ErrNoAPIKey is returned when the crew is built without credentials.
var ErrNoAPIKey = errors.New("OPENAI_API_KEY is not set")

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// CrewConfig selects the chat model behind the crew. BaseURL may point at any
// OpenAI-compatible endpoint.
type CrewConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
}

// Crew is the three-agent summarization pipeline: a summarizer and a
// consultant read the transcript concurrently, then a report generator merges
// their outputs.
type Crew struct {
	client      chatCompleter
	model       string
	temperature float32
}

// NewCrew builds a crew over the OpenAI chat completion API.
func NewCrew(cfg CrewConfig) (*Crew, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNoAPIKey
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return newCrew(openai.NewClientWithConfig(clientCfg), cfg.Model, cfg.Temperature), nil
}

func newCrew(client chatCompleter, model string, temperature float32) *Crew {
	if model == "" {
		model = defaultModel
	}
	return &Crew{client: client, model: model, temperature: temperature}
}

// Run implements Pipeline.
func (c *Crew) Run(ctx context.Context, text string) (Result, error) {
	log.Printf("[Crew] Summarizing transcript: %d characters, model: %s", len(text), c.model)

	var summary, consultation string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := c.ask(gctx, summarizerAgent, summaryTask(text))
		summary = out
		return err
	})
	g.Go(func() error {
		out, err := c.ask(gctx, consultantAgent, consultTask(text))
		consultation = out
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report, err := c.ask(ctx, reportAgent, reportTask(summary, consultation))
	if err != nil {
		return nil, err
	}
	log.Printf("[Crew] Report ready: %d characters", len(report))

	return StructuredResult{
		Raw: report,
		Tasks: []TaskOutput{
			{Agent: summarizerAgent.Role, Output: summary},
			{Agent: consultantAgent.Role, Output: consultation},
			{Agent: reportAgent.Role, Output: report},
		},
	}, nil
}

func (c *Crew) ask(ctx context.Context, agent Agent, task Task) (string, error) {
	systemPrompt, userPrompt := buildMessages(agent, task)
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", agent.Role, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: model returned no choices", agent.Role)
	}
	log.Printf("[Crew] %s done (tokens: %d)", agent.Role, resp.Usage.TotalTokens)
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
