package agent

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPAdapter forwards queries to an agent-compatible HTTP endpoint. The
// endpoint may answer with a streamed step sequence (NDJSON or SSE, one JSON
// object per line) or with a single JSON object carrying the whole text.
type HTTPAdapter struct {
	url    string
	client *http.Client
}

func NewHTTPAdapter(url string) *HTTPAdapter {
	return &HTTPAdapter{
		url: strings.TrimSpace(url),
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// wireStep is the line format of the streamed protocol.
type wireStep struct {
	Type        string `json:"type"`
	Content     string `json:"content,omitempty"`
	Name        string `json:"name,omitempty"`
	Input       string `json:"input,omitempty"`
	Observation string `json:"observation,omitempty"`
	Text        string `json:"text,omitempty"`
}

func (a *HTTPAdapter) StreamQuery(ctx context.Context, req QueryRequest, onStep StepHandler) (QueryResponse, error) {
	if a.url == "" {
		return QueryResponse{}, ErrNotReady
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return QueryResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(payload))
	if err != nil {
		return QueryResponse{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := a.client.Do(httpReq)
	if err != nil {
		return QueryResponse{}, fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return QueryResponse{}, fmt.Errorf("agent http status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	ct := strings.ToLower(res.Header.Get("Content-Type"))
	if strings.Contains(ct, "text/event-stream") || strings.Contains(ct, "application/x-ndjson") {
		return a.consumeStream(res.Body, onStep)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return QueryResponse{}, fmt.Errorf("read response: %w", err)
	}

	var obj wireStep
	if err := json.Unmarshal(body, &obj); err != nil {
		// Plain text fallback.
		text := strings.TrimSpace(string(body))
		if text == "" {
			return QueryResponse{}, nil
		}
		if err := emit(onStep, TextChunk{Content: text}); err != nil {
			return QueryResponse{}, err
		}
		return QueryResponse{Text: text}, nil
	}

	text := strings.TrimSpace(obj.Text)
	if text == "" {
		text = strings.TrimSpace(obj.Content)
	}
	if text != "" {
		if err := emit(onStep, TextChunk{Content: text}); err != nil {
			return QueryResponse{}, err
		}
	}
	return QueryResponse{Text: text}, nil
}

func (a *HTTPAdapter) consumeStream(body io.Reader, onStep StepHandler) (QueryResponse, error) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var chunks []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "data:") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
		if line == "" || line == "[DONE]" {
			continue
		}

		var ws wireStep
		if err := json.Unmarshal([]byte(line), &ws); err != nil {
			// Bare text line from a non-JSON backend.
			chunks = append(chunks, line)
			if err := emit(onStep, TextChunk{Content: line}); err != nil {
				return QueryResponse{}, err
			}
			continue
		}

		step, ok := decodeStep(ws)
		if !ok {
			continue
		}
		switch s := step.(type) {
		case TextChunk:
			chunks = append(chunks, s.Content)
		case ToolInvocation:
			// Not part of the spoken answer.
		}
		if err := emit(onStep, step); err != nil {
			return QueryResponse{}, err
		}
	}
	if err := scanner.Err(); err != nil {
		return QueryResponse{}, fmt.Errorf("stream read: %w", err)
	}

	return QueryResponse{Text: joinText(chunks)}, nil
}

func decodeStep(ws wireStep) (Step, bool) {
	switch ws.Type {
	case "text":
		content := ws.Content
		if content == "" {
			content = ws.Text
		}
		if strings.TrimSpace(content) == "" {
			return nil, false
		}
		return TextChunk{Content: content}, true
	case "tool":
		if strings.TrimSpace(ws.Name) == "" {
			return nil, false
		}
		return ToolInvocation{Name: ws.Name, Input: ws.Input, Observation: ws.Observation}, true
	default:
		// Untyped lines with text still count as assistant output.
		if strings.TrimSpace(ws.Text) != "" {
			return TextChunk{Content: ws.Text}, true
		}
		return nil, false
	}
}

func emit(onStep StepHandler, step Step) error {
	if onStep == nil {
		return nil
	}
	return onStep(step)
}
