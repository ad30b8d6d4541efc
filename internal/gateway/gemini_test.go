package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/solace/internal/domain"
)

type capturedRequest struct {
	Contents []struct {
		Role  string `json:"role"`
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
}

type fakeGemini struct {
	mu       sync.Mutex
	requests []capturedRequest
	paths    []string
	status   int
	body     string
	delay    time.Duration
}

func (f *fakeGemini) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var req capturedRequest
	_ = json.Unmarshal(raw, &req)

	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.paths = append(f.paths, r.URL.Path)
	status, body, delay := f.status, f.body, f.delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func newTestClient(t *testing.T, fake *fakeGemini, timeout time.Duration) *GeminiClient {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := NewGeminiClient(context.Background(), Config{
		APIKey:  "test-key",
		BaseURL: srv.URL + "/",
		Timeout: timeout,
	}, nil)
	if err != nil {
		t.Fatalf("NewGeminiClient failed: %v", err)
	}
	return client
}

const okBody = `{"candidates":[{"content":{"role":"model","parts":[{"text":"  I hear you.  "}]}}]}`

func TestGenerateSendsPersonaSummaryAndMessage(t *testing.T) {
	fake := &fakeGemini{body: okBody}
	client := newTestClient(t, fake, time.Second)
	profile := &domain.UserProfile{Name: "A", Age: 30, Gender: "female", Country: "PK"}

	reply, err := client.Generate(context.Background(), "User: hi\nBot: hello", "I feel tired", profile)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if reply != "I hear you." {
		t.Fatalf("unexpected reply %q", reply)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(fake.requests))
	}
	if !strings.Contains(fake.paths[0], DefaultModel+":generateContent") {
		t.Errorf("unexpected request path %q", fake.paths[0])
	}

	contents := fake.requests[0].Contents
	if len(contents) != 3 {
		t.Fatalf("expected 3 contents, got %d", len(contents))
	}
	first := contents[0].Parts[0].Text
	if !strings.Contains(first, "female from PK") || !strings.Contains(first, "Never say you are an AI") {
		t.Errorf("first part is not the persona prompt: %q", first)
	}
	if !strings.Contains(contents[1].Parts[0].Text, "User: hi\nBot: hello") {
		t.Errorf("summary not forwarded: %q", contents[1].Parts[0].Text)
	}
	if contents[2].Parts[0].Text != "I feel tired" || contents[2].Role != "user" {
		t.Errorf("unexpected last content %+v", contents[2])
	}
}

func TestGenerateOmitsEmptySummaryAndPersona(t *testing.T) {
	fake := &fakeGemini{body: okBody}
	client := newTestClient(t, fake, time.Second)

	if _, err := client.Generate(context.Background(), "  ", "2", nil); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	contents := fake.requests[0].Contents
	if len(contents) != 2 {
		t.Fatalf("expected 2 contents without summary, got %d", len(contents))
	}
	if strings.Contains(contents[0].Parts[0].Text, "The user is a") {
		t.Errorf("persona should omit personalization without profile: %q", contents[0].Parts[0].Text)
	}
}

func TestGenerateFailures(t *testing.T) {
	tests := []struct {
		name    string
		fake    *fakeGemini
		timeout time.Duration
		isEmpty bool
	}{
		{
			name:    "rejected request",
			fake:    &fakeGemini{status: http.StatusBadRequest, body: `{"error":{"code":400,"message":"bad key","status":"INVALID_ARGUMENT"}}`},
			timeout: time.Second,
		},
		{
			name:    "no candidates",
			fake:    &fakeGemini{body: `{"candidates":[]}`},
			timeout: time.Second,
			isEmpty: true,
		},
		{
			name:    "blank text",
			fake:    &fakeGemini{body: `{"candidates":[{"content":{"role":"model","parts":[{"text":"   "}]}}]}`},
			timeout: time.Second,
			isEmpty: true,
		},
		{
			name:    "timeout",
			fake:    &fakeGemini{body: okBody, delay: 2 * time.Second},
			timeout: 50 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.fake, tt.timeout)

			start := time.Now()
			_, err := client.Generate(context.Background(), "", "hello", nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if !IsTransient(err) {
				t.Errorf("expected TransientError, got %T: %v", err, err)
			}
			if tt.isEmpty && !errors.Is(err, ErrEmptyReply) {
				t.Errorf("expected ErrEmptyReply, got %v", err)
			}
			if elapsed := time.Since(start); elapsed > time.Second+500*time.Millisecond {
				t.Errorf("call not bounded by timeout: %v", elapsed)
			}
		})
	}
}

func TestNewGeminiClientRequiresAPIKey(t *testing.T) {
	if _, err := NewGeminiClient(context.Background(), Config{}, nil); err == nil {
		t.Fatal("expected error without API key")
	}
}

func TestUnavailableAlwaysFails(t *testing.T) {
	_, err := Unavailable{}.Generate(context.Background(), "", "hi", nil)
	if !IsTransient(err) {
		t.Fatalf("expected TransientError, got %v", err)
	}
}
