package ai

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChat struct {
	mu       sync.Mutex
	requests []openai.ChatCompletionRequest
	failRole string
	err      error
}

func (f *fakeChat) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	system := req.Messages[0].Content
	if f.failRole != "" && strings.Contains(system, f.failRole) {
		return openai.ChatCompletionResponse{}, f.err
	}
	var answer string
	switch {
	case strings.Contains(system, summarizerAgent.Role):
		answer = "SUMMARY"
	case strings.Contains(system, consultantAgent.Role):
		answer = "ADVICE"
	case strings.Contains(system, reportAgent.Role):
		answer = "REPORT from " + req.Messages[1].Content
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: "  " + answer + "\n"}}},
	}, nil
}

func TestNewCrew_RequiresKey(t *testing.T) {
	_, err := NewCrew(CrewConfig{})
	assert.ErrorIs(t, err, ErrNoAPIKey)

	crew, err := NewCrew(CrewConfig{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, openai.GPT4oMini, crew.model)
}

func TestCrew_Run(t *testing.T) {
	chat := &fakeChat{}
	crew := newCrew(chat, "test-model", 0.1)

	res, err := crew.Run(context.Background(), "A: we are blocked on the API")
	require.NoError(t, err)

	structured, ok := res.(StructuredResult)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(structured.Raw, "REPORT from "))
	assert.Contains(t, structured.Raw, "SUMMARY")
	assert.Contains(t, structured.Raw, "ADVICE")
	require.Len(t, structured.Tasks, 3)
	assert.Equal(t, "SUMMARY", structured.Tasks[0].Output)
	assert.Equal(t, "ADVICE", structured.Tasks[1].Output)

	require.Len(t, chat.requests, 3)
	for _, req := range chat.requests {
		assert.Equal(t, "test-model", req.Model)
		assert.Equal(t, float32(0.1), req.Temperature)
	}
	// the report request is always last
	assert.Contains(t, chat.requests[2].Messages[0].Content, reportAgent.Role)
	for _, req := range chat.requests[:2] {
		assert.Contains(t, req.Messages[1].Content, "we are blocked on the API")
	}
}

func TestCrew_AgentFailure(t *testing.T) {
	chat := &fakeChat{failRole: consultantAgent.Role, err: errors.New("status code: 503")}
	crew := newCrew(chat, "", 0)

	_, err := crew.Run(context.Background(), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), consultantAgent.Role)
	assert.True(t, IsTransient(err))
}

func TestCrew_ThroughGateway(t *testing.T) {
	g := NewGateway(newCrew(&fakeChat{}, "", 0))
	got, err := g.Summarize(context.Background(), "A: hi")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "REPORT from "))
}
