package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"
)

const (
	defaultAttempts = 3
	defaultBackoff  = 3 * time.Second
)

// transientMarkers are matched case-insensitively against error messages.
var transientMarkers = []string{"503", "unavailable", "overloaded", "timeout", "rate limit"}

// Result is what a summarization pipeline hands back: either a TextResult or
// a StructuredResult.
type Result interface {
	isResult()
}

// TextResult is a plain-text pipeline answer.
type TextResult string

func (TextResult) isResult() {}

// TaskOutput is one agent's contribution to a structured result.
type TaskOutput struct {
	Agent  string `json:"agent"`
	Output string `json:"output"`
}

// StructuredResult is a rich pipeline answer. Raw is the final report when the
// pipeline produced one.
type StructuredResult struct {
	Raw    string         `json:"raw,omitempty"`
	Output string         `json:"output,omitempty"`
	Tasks  []TaskOutput   `json:"tasks,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
}

func (StructuredResult) isResult() {}

// Pipeline is the external multi-agent summarizer.
type Pipeline interface {
	Run(ctx context.Context, text string) (Result, error)
}

// PipelineFunc adapts a function to Pipeline.
type PipelineFunc func(ctx context.Context, text string) (Result, error)

func (f PipelineFunc) Run(ctx context.Context, text string) (Result, error) {
	return f(ctx, text)
}

// Text flattens any pipeline result into a plain string.
func Text(res Result) string {
	switch r := res.(type) {
	case nil:
		return ""
	case TextResult:
		return string(r)
	case StructuredResult:
		return structuredText(r)
	case *StructuredResult:
		if r == nil {
			return ""
		}
		return structuredText(*r)
	default:
		return fmt.Sprint(r)
	}
}

func structuredText(r StructuredResult) string {
	if strings.TrimSpace(r.Raw) != "" {
		return r.Raw
	}
	if strings.TrimSpace(r.Output) != "" {
		return r.Output
	}
	var payload any = r.Fields
	if len(r.Fields) == 0 {
		payload = r.Tasks
	}
	if data, err := json.Marshal(payload); err == nil {
		return string(data)
	}
	return fmt.Sprint(r)
}

// IsTransient reports whether err looks like a temporary provider failure.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, m := range transientMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// Gateway runs the pipeline with a small retry budget for transient failures.
type Gateway struct {
	pipeline Pipeline
	attempts int
	backoff  time.Duration
	sleep    func(context.Context, time.Duration) error
}

// GatewayOption customizes a Gateway.
type GatewayOption func(*Gateway)

// WithRetry overrides the attempt count and the linear backoff step.
func WithRetry(attempts int, backoff time.Duration) GatewayOption {
	return func(g *Gateway) {
		if attempts > 0 {
			g.attempts = attempts
		}
		g.backoff = backoff
	}
}

// WithSleeper overrides how the gateway waits between attempts (tests).
func WithSleeper(sleep func(context.Context, time.Duration) error) GatewayOption {
	return func(g *Gateway) {
		if sleep != nil {
			g.sleep = sleep
		}
	}
}

// NewGateway wraps pipeline.
func NewGateway(pipeline Pipeline, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		pipeline: pipeline,
		attempts: defaultAttempts,
		backoff:  defaultBackoff,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Summarize returns the pipeline's summary of text as plain text. Transient
// errors are retried after backoff*attempt; any other error returns at once.
func (g *Gateway) Summarize(ctx context.Context, text string) (string, error) {
	for attempt := 1; ; attempt++ {
		res, err := g.pipeline.Run(ctx, text)
		if err == nil {
			return Text(res), nil
		}
		if !IsTransient(err) {
			return "", err
		}
		if attempt >= g.attempts {
			return "", fmt.Errorf("summarize failed after %d attempts: %w", attempt, err)
		}
		wait := g.backoff * time.Duration(attempt)
		log.Printf("[Summarizer] Transient error on attempt %d/%d, retrying in %v: %v", attempt, g.attempts, wait, err)
		if err := g.sleep(ctx, wait); err != nil {
			return "", err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
