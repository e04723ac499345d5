package agent

import (
	"context"
	"strings"
	"testing"
)

func TestNewAdapterModeSelection(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		want    string
		wantErr bool
	}{
		{"auto with url", Config{Mode: "auto", HTTPURL: "http://agent:9000/query"}, "*agent.HTTPAdapter", false},
		{"auto without url", Config{Mode: "auto"}, "*agent.MockAdapter", false},
		{"empty mode", Config{}, "*agent.MockAdapter", false},
		{"http", Config{Mode: "http", HTTPURL: "http://agent:9000/query"}, "*agent.HTTPAdapter", false},
		{"http without url", Config{Mode: "http"}, "*agent.HTTPAdapter", false},
		{"mock", Config{Mode: "mock"}, "*agent.MockAdapter", false},
		{"unknown", Config{Mode: "carrier-pigeon"}, "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a, err := NewAdapter(tc.cfg)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("NewAdapter() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewAdapter() error = %v", err)
			}
			got := typeName(a)
			if got != tc.want {
				t.Fatalf("NewAdapter() = %s, want %s", got, tc.want)
			}
		})
	}
}

func typeName(a Adapter) string {
	switch a.(type) {
	case *HTTPAdapter:
		return "*agent.HTTPAdapter"
	case *MockAdapter:
		return "*agent.MockAdapter"
	default:
		return "unknown"
	}
}

func TestMockAdapterEchoesInput(t *testing.T) {
	a := NewMockAdapter()
	var steps []Step
	res, err := a.StreamQuery(context.Background(), QueryRequest{Input: "what time is it"}, func(s Step) error {
		steps = append(steps, s)
		return nil
	})
	if err != nil {
		t.Fatalf("StreamQuery() error = %v", err)
	}
	if !strings.Contains(res.Text, "what time is it") {
		t.Fatalf("text = %q, want it to echo the input", res.Text)
	}
	if len(steps) != 1 {
		t.Fatalf("steps = %d, want 1", len(steps))
	}
}

func TestMockAdapterUsesLastContextEntry(t *testing.T) {
	a := NewMockAdapter()
	res, err := a.StreamQuery(context.Background(), QueryRequest{
		Input:   "hello",
		Context: []string{"first", "user is near the park"},
	}, nil)
	if err != nil {
		t.Fatalf("StreamQuery() error = %v", err)
	}
	if !strings.Contains(res.Text, "user is near the park") {
		t.Fatalf("text = %q, want last context entry", res.Text)
	}
}

func TestJoinTextSkipsEmptyChunks(t *testing.T) {
	got := joinText([]string{" one ", "", "  ", "two"})
	if got != "one two" {
		t.Fatalf("joinText() = %q, want %q", got, "one two")
	}
}
