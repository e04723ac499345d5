package agent

import (
	"context"
	"fmt"
	"strings"
)

// MockAdapter provides deterministic local replies when no agent backend is
// configured.
type MockAdapter struct{}

func NewMockAdapter() *MockAdapter { return &MockAdapter{} }

func (a *MockAdapter) StreamQuery(ctx context.Context, req QueryRequest, onStep StepHandler) (QueryResponse, error) {
	select {
	case <-ctx.Done():
		return QueryResponse{}, ctx.Err()
	default:
	}

	text := buildMockReply(req)
	if err := emit(onStep, TextChunk{Content: text}); err != nil {
		return QueryResponse{}, err
	}
	return QueryResponse{Text: text}, nil
}

func buildMockReply(req QueryRequest) string {
	base := strings.TrimSpace(req.Input)
	if base == "" {
		base = "I am listening."
	}

	if len(req.Context) == 0 {
		return fmt.Sprintf("I heard you: %s", base)
	}

	last := strings.TrimSpace(req.Context[len(req.Context)-1])
	if last == "" {
		return fmt.Sprintf("I heard you: %s", base)
	}

	return fmt.Sprintf("I heard you: %s\nI also remember: %s", base, last)
}
