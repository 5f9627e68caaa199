package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewWithBaseURL("sk-or-test", srv.URL)
}

func TestComplete_Success(t *testing.T) {
	var gotReq chatRequest
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-or-test" {
			t.Errorf("unexpected auth header %q", auth)
		}
		json.NewDecoder(r.Body).Decode(&gotReq)
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"try restarting"}}]}`))
	})

	got, err := c.Complete(context.Background(), "you are a helper", []Message{{Role: "user", Content: "it broke"}})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "try restarting" {
		t.Errorf("content = %q", got)
	}

	if len(gotReq.Messages) != 2 {
		t.Fatalf("sent %d messages, want 2", len(gotReq.Messages))
	}
	if gotReq.Messages[0].Role != "system" || gotReq.Messages[0].Content != "you are a helper" {
		t.Errorf("system message not first: %+v", gotReq.Messages[0])
	}
	if gotReq.Model != openRouterModel {
		t.Errorf("model = %q, want %q", gotReq.Model, openRouterModel)
	}
}

func TestComplete_RateLimitStatus(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.Complete(context.Background(), "sys", nil)
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
	if !IsRateLimited(err) {
		t.Error("IsRateLimited = false")
	}
}

func TestComplete_QuotaErrorBody(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"message":"You exceeded your current quota","type":"insufficient_quota"}}`))
	})

	_, err := c.Complete(context.Background(), "sys", nil)
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("expected ErrRateLimited for quota body, got %v", err)
	}
}

func TestComplete_UpstreamError(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("bad gateway"))
	})

	_, err := c.Complete(context.Background(), "sys", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrRateLimited) {
		t.Error("502 should not be a rate limit")
	}
}

func TestComplete_EmptyChoices(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	})

	if _, err := c.Complete(context.Background(), "sys", nil); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestNew_ProviderSelection(t *testing.T) {
	or := New("sk-or-abc")
	if or.baseURL != openRouterBaseURL || or.model != openRouterModel {
		t.Errorf("OpenRouter key misrouted: %s %s", or.baseURL, or.model)
	}

	oa := New("sk-abc")
	if oa.baseURL != openAIBaseURL || oa.model != openAIModel {
		t.Errorf("OpenAI key misrouted: %s %s", oa.baseURL, oa.model)
	}
	if oa.referer != "" {
		t.Error("attribution headers are OpenRouter-only")
	}
}

func TestIsRateLimited_MessageSniffing(t *testing.T) {
	if !IsRateLimited(errors.New("upstream said: Rate limit reached")) {
		t.Error("message sniffing failed")
	}
	if IsRateLimited(nil) {
		t.Error("nil is not rate limited")
	}
	if IsRateLimited(errors.New("connection refused")) {
		t.Error("network error is not rate limited")
	}
}
