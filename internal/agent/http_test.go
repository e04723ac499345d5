package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTTPAdapterConsumesStepStream(t *testing.T) {
	var gotReq QueryRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		lines := []string{
			`{"type":"text","content":"The building ahead"}`,
			`{"type":"tool","name":"web_search","input":"landmark near me","observation":"Flatiron Building, NYC"}`,
			`{"type":"text","content":"is the Flatiron Building."}`,
		}
		for _, line := range lines {
			w.Write([]byte(line + "\n"))
		}
	}))
	defer ts.Close()

	a := NewHTTPAdapter(ts.URL)
	var steps []Step
	res, err := a.StreamQuery(context.Background(), QueryRequest{
		Input:   "what is that building",
		Context: []string{"user likes architecture"},
	}, func(s Step) error {
		steps = append(steps, s)
		return nil
	})
	if err != nil {
		t.Fatalf("StreamQuery() error = %v", err)
	}

	if gotReq.Input != "what is that building" {
		t.Fatalf("request input = %q", gotReq.Input)
	}
	if len(gotReq.Context) != 1 {
		t.Fatalf("request context = %v", gotReq.Context)
	}

	want := "The building ahead is the Flatiron Building."
	if res.Text != want {
		t.Fatalf("text = %q, want %q", res.Text, want)
	}

	if len(steps) != 3 {
		t.Fatalf("steps = %d, want 3", len(steps))
	}
	tool, ok := steps[1].(ToolInvocation)
	if !ok {
		t.Fatalf("steps[1] = %T, want ToolInvocation", steps[1])
	}
	if tool.Name != "web_search" || tool.Observation != "Flatiron Building, NYC" {
		t.Fatalf("tool step = %+v", tool)
	}
	if _, ok := steps[0].(TextChunk); !ok {
		t.Fatalf("steps[0] = %T, want TextChunk", steps[0])
	}
}

func TestHTTPAdapterToolStepsCarryNoSpokenText(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.Write([]byte(`{"type":"tool","name":"calculator","input":"2+2","observation":"4"}` + "\n"))
		w.Write([]byte(`{"type":"text","content":"The answer is four."}` + "\n"))
	}))
	defer ts.Close()

	a := NewHTTPAdapter(ts.URL)
	res, err := a.StreamQuery(context.Background(), QueryRequest{Input: "2+2"}, nil)
	if err != nil {
		t.Fatalf("StreamQuery() error = %v", err)
	}
	if res.Text != "The answer is four." {
		t.Fatalf("text = %q, tool observation leaked into answer", res.Text)
	}
}

func TestHTTPAdapterSSEFraming(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("data: {\"type\":\"text\",\"content\":\"hello\"}\n\n"))
		w.Write([]byte("data: {\"type\":\"text\",\"content\":\"world\"}\n\n"))
		w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer ts.Close()

	a := NewHTTPAdapter(ts.URL)
	res, err := a.StreamQuery(context.Background(), QueryRequest{Input: "hi"}, nil)
	if err != nil {
		t.Fatalf("StreamQuery() error = %v", err)
	}
	if res.Text != "hello world" {
		t.Fatalf("text = %q, want %q", res.Text, "hello world")
	}
}

func TestHTTPAdapterPlainJSONResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":"single shot answer"}`))
	}))
	defer ts.Close()

	a := NewHTTPAdapter(ts.URL)
	var steps []Step
	res, err := a.StreamQuery(context.Background(), QueryRequest{Input: "hi"}, func(s Step) error {
		steps = append(steps, s)
		return nil
	})
	if err != nil {
		t.Fatalf("StreamQuery() error = %v", err)
	}
	if res.Text != "single shot answer" {
		t.Fatalf("text = %q", res.Text)
	}
	if len(steps) != 1 {
		t.Fatalf("steps = %d, want 1", len(steps))
	}
}

func TestHTTPAdapterErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("backend down"))
	}))
	defer ts.Close()

	a := NewHTTPAdapter(ts.URL)
	_, err := a.StreamQuery(context.Background(), QueryRequest{Input: "hi"}, nil)
	if err == nil {
		t.Fatalf("StreamQuery() error = nil, want status error")
	}
	if !strings.Contains(err.Error(), "502") || !strings.Contains(err.Error(), "backend down") {
		t.Fatalf("error = %v, want status and body", err)
	}
}

func TestHTTPAdapterWithoutURLFailsAtFirstUse(t *testing.T) {
	a := NewHTTPAdapter("")
	_, err := a.StreamQuery(context.Background(), QueryRequest{Input: "hi"}, nil)
	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("StreamQuery() error = %v, want ErrNotReady", err)
	}
}

func TestHTTPAdapterStepHandlerErrorAborts(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.Write([]byte(`{"type":"text","content":"one"}` + "\n"))
		w.Write([]byte(`{"type":"text","content":"two"}` + "\n"))
	}))
	defer ts.Close()

	boom := errors.New("handler failed")
	a := NewHTTPAdapter(ts.URL)
	_, err := a.StreamQuery(context.Background(), QueryRequest{Input: "hi"}, func(Step) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("StreamQuery() error = %v, want handler error", err)
	}
}
