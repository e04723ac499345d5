// Package agent bridges the gateway with a tool-augmented language-model
// backend. The backend streams a sequence of steps: plain assistant text or a
// tool invocation together with its observation. Steps are a closed sum type
// consumed with an exhaustive type switch.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotReady is returned when the agent backend is not configured.
var ErrNotReady = errors.New("agent backend is not configured")

// Step is one unit of the agent's streamed output. Exactly two
// implementations exist: TextChunk and ToolInvocation.
type Step interface {
	isStep()
}

// TextChunk is a fragment of the assistant's spoken answer.
type TextChunk struct {
	Content string
}

// ToolInvocation records a tool the agent ran while answering, with the
// observation the tool returned. It carries no speakable text.
type ToolInvocation struct {
	Name        string
	Input       string
	Observation string
}

func (TextChunk) isStep()      {}
func (ToolInvocation) isStep() {}

// StepHandler receives streaming steps as they arrive.
type StepHandler func(step Step) error

// QueryRequest is the normalized request sent to the agent backend.
type QueryRequest struct {
	Input   string   `json:"input"`
	Context []string `json:"context,omitempty"`
}

// QueryResponse is the final response after streaming steps.
type QueryResponse struct {
	Text string `json:"text"`
}

// Adapter bridges the gateway with the agent backend.
type Adapter interface {
	StreamQuery(ctx context.Context, req QueryRequest, onStep StepHandler) (QueryResponse, error)
}

// Config controls adapter construction.
type Config struct {
	Mode    string
	HTTPURL string
}

// NewAdapter selects a backend. "auto" resolves to http when a URL is
// configured and falls back to the mock otherwise. An http adapter with no
// URL is still constructed; it fails with ErrNotReady at first use rather
// than at startup.
func NewAdapter(cfg Config) (Adapter, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.HTTPURL) != "" {
			return NewHTTPAdapter(cfg.HTTPURL), nil
		}
		return NewMockAdapter(), nil
	case "http":
		return NewHTTPAdapter(cfg.HTTPURL), nil
	case "mock":
		return NewMockAdapter(), nil
	default:
		return nil, fmt.Errorf("unsupported agent adapter mode %q", cfg.Mode)
	}
}

// joinText builds the final answer from streamed text chunks. Chunks are
// joined with single spaces so backends that emit word- or sentence-level
// fragments both read naturally.
func joinText(chunks []string) string {
	var parts []string
	for _, c := range chunks {
		c = strings.TrimSpace(c)
		if c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, " ")
}
