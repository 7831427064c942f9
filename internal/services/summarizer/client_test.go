package summarizer_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"signalwatch/internal/services"
	"signalwatch/internal/services/summarizer"
)

func newClient(t *testing.T, handler http.HandlerFunc, opts ...summarizer.Option) *summarizer.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	cfg := summarizer.Config{BaseURL: server.URL, Model: "llama3.1:8b", Temperature: 0.3}
	opts = append(opts, summarizer.WithSleeper(func(time.Duration) {}))
	return summarizer.NewClient(cfg, opts...)
}

func respond(w http.ResponseWriter, modelPayload string) {
	_ = json.NewEncoder(w).Encode(map[string]any{"response": modelPayload, "done": true})
}

func TestSummarizeParsesStructuredPayload(t *testing.T) {
	var gotPrompt string
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
			Format string `json:"format"`
			Stream bool   `json:"stream"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotPrompt = req.Prompt
		if req.Model != "llama3.1:8b" || req.Format != "json" || req.Stream {
			http.Error(w, "bad request shape", http.StatusBadRequest)
			return
		}
		respond(w, `{"summary":"A walkthrough of attention.","key_points":["kv cache"," flash attention "],"category":"research"}`)
	})

	result, err := client.Summarize(context.Background(), summarizer.Input{
		Title:      "Attention explained",
		Channel:    "ML Weekly",
		Transcript: "today we talk about attention",
	})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if result.Summary != "A walkthrough of attention." {
		t.Fatalf("summary = %q", result.Summary)
	}
	if len(result.KeyPoints) != 2 || result.KeyPoints[1] != "flash attention" {
		t.Fatalf("key points = %v", result.KeyPoints)
	}
	if result.Category != "research" {
		t.Fatalf("category = %q", result.Category)
	}
	if !strings.Contains(gotPrompt, "Attention explained") || !strings.Contains(gotPrompt, "ML Weekly") {
		t.Fatalf("prompt missing video context: %q", gotPrompt)
	}
}

func TestSummarizeUnknownCategoryFallsBack(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		respond(w, `{"summary":"s","key_points":["p"],"category":"opinion"}`)
	})

	result, err := client.Summarize(context.Background(), summarizer.Input{Transcript: "text"})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if result.Category != "news" {
		t.Fatalf("category = %q, want news fallback", result.Category)
	}
}

func TestSummarizeStripsCodeFences(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		respond(w, "```json\n{\"summary\":\"s\",\"key_points\":[],\"category\":\"news\"}\n```")
	})

	result, err := client.Summarize(context.Background(), summarizer.Input{Transcript: "text"})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if result.Summary != "s" {
		t.Fatalf("summary = %q", result.Summary)
	}
}

func TestSummarizeMalformedPayloadIsTransient(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		respond(w, "I could not produce JSON today")
	})

	_, err := client.Summarize(context.Background(), summarizer.Input{Transcript: "text"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !services.IsTransient(err) {
		t.Fatalf("expected transient classification, got %v", err)
	}
}

func TestSummarizeRetriesServerErrors(t *testing.T) {
	var calls int
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		respond(w, `{"summary":"s","key_points":[],"category":"analysis"}`)
	}, summarizer.WithRetryBackoff(time.Millisecond, 2*time.Millisecond))

	result, err := client.Summarize(context.Background(), summarizer.Input{Transcript: "text"})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	if result.Category != "analysis" {
		t.Fatalf("category = %q", result.Category)
	}
}

func TestSummarizeDoesNotRetryClientErrors(t *testing.T) {
	var calls int
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "model not found", http.StatusNotFound)
	})

	_, err := client.Summarize(context.Background(), summarizer.Input{Transcript: "text"})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestSummarizeTruncatesLongTranscripts(t *testing.T) {
	var gotPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Prompt string `json:"prompt"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotPrompt = req.Prompt
		respond(w, `{"summary":"s","key_points":[],"category":"news"}`)
	}))
	t.Cleanup(server.Close)

	client := summarizer.NewClient(summarizer.Config{
		BaseURL:            server.URL,
		Model:              "llama3.1:8b",
		MaxTranscriptChars: 100,
	})
	long := strings.Repeat("a", 5000)
	if _, err := client.Summarize(context.Background(), summarizer.Input{Transcript: long}); err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if strings.Count(gotPrompt, "a") > 200 {
		t.Fatalf("transcript not truncated, prompt length %d", len(gotPrompt))
	}
}

func TestSummarizeEmptyTranscriptIsValidationError(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := client.Summarize(context.Background(), summarizer.Input{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !services.IsPermanent(err) {
		t.Fatalf("expected permanent classification, got %v", err)
	}
}

func TestDecodeModelJSONExtractsEmbeddedObject(t *testing.T) {
	var target struct {
		Summary string `json:"summary"`
	}
	payload := `Here is the result: {"summary":"found it"} hope that helps`
	if err := summarizer.DecodeModelJSON(payload, &target); err != nil {
		t.Fatalf("DecodeModelJSON: %v", err)
	}
	if target.Summary != "found it" {
		t.Fatalf("summary = %q", target.Summary)
	}
}
