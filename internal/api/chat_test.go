package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/copilot-cli/copilot-cli/internal/auth"
	"github.com/tidwall/gjson"
)

func TestChatPrimaryPath(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"hello there"}}]}`))
	}))
	defer srv.Close()

	c := newTestAPIClient(srv.URL)
	reply, err := c.Chat(context.Background(), "gpt-4o", "hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "hello there" {
		t.Errorf("unexpected reply %q", reply)
	}
	if gotPath != "/chat/completions" {
		t.Errorf("expected primary path, got %q", gotPath)
	}

	if got := gjson.GetBytes(gotBody, "model").String(); got != "gpt-4o" {
		t.Errorf("unexpected model %q", got)
	}
	if got := gjson.GetBytes(gotBody, "messages.0.role").String(); got != "user" {
		t.Errorf("unexpected role %q", got)
	}
	if got := gjson.GetBytes(gotBody, "messages.0.content").String(); got != "hi" {
		t.Errorf("unexpected content %q", got)
	}
}

func TestChatOmitsEmptyModel(t *testing.T) {
	t.Parallel()

	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	c := newTestAPIClient(srv.URL)
	if _, err := c.Chat(context.Background(), "", "hi"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gjson.GetBytes(gotBody, "model").Exists() {
		t.Errorf("model field should be omitted, body %s", gotBody)
	}
}

func TestChatFallsBackOn404(t *testing.T) {
	t.Parallel()

	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"hi"}}]}`))
	}))
	defer srv.Close()

	c := newTestAPIClient(srv.URL)
	reply, err := c.Chat(context.Background(), "gpt-4o", "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "hi" {
		t.Errorf("unexpected reply %q", reply)
	}

	want := []string{"/chat/completions", "/v1/chat/completions"}
	if len(paths) != len(want) {
		t.Fatalf("expected %v, got %v", want, paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("request %d: expected %s, got %s", i, want[i], paths[i])
		}
	}
}

func TestChatDoesNotFallBackOnOtherErrors(t *testing.T) {
	t.Parallel()

	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestAPIClient(srv.URL)
	_, err := c.Chat(context.Background(), "gpt-4o", "hello")
	if !auth.IsCode(err, auth.ErrAPI) {
		t.Fatalf("expected api error, got %v", err)
	}
	if requests != 1 {
		t.Errorf("expected a single request, got %d", requests)
	}
}

func TestChatBothPaths404(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(http.NotFound))
	defer srv.Close()

	c := newTestAPIClient(srv.URL)
	_, err := c.Chat(context.Background(), "gpt-4o", "hello")
	if !auth.IsCode(err, auth.ErrAPI) {
		t.Fatalf("expected api error, got %v", err)
	}
}

func TestChatEmptyChoices(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"empty array", `{"choices":[]}`},
		{"missing field", `{"id":"x"}`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := newTestAPIClient(srv.URL)
			_, err := c.Chat(context.Background(), "gpt-4o", "hello")
			if !auth.IsCode(err, auth.ErrEmptyResponse) {
				t.Fatalf("expected empty_response, got %v", err)
			}
		})
	}
}

func TestProbeBody(t *testing.T) {
	t.Parallel()

	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	c := newTestAPIClient(srv.URL)
	if err := c.Probe(context.Background(), "gpt-4o"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := gjson.GetBytes(gotBody, "max_tokens").Int(); got != 5 {
		t.Errorf("expected max_tokens 5, got %d", got)
	}
	if got := gjson.GetBytes(gotBody, "temperature"); !got.Exists() || got.Float() != 0 {
		t.Errorf("expected temperature 0, body %s", gotBody)
	}
	if got := gjson.GetBytes(gotBody, "model").String(); got != "gpt-4o" {
		t.Errorf("unexpected model %q", got)
	}
}
