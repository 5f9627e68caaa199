//go:build integration

package llm

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"
)

// Requires a real API key:
//
//	GRIEVD_LLM_API_KEY=sk-... go test -tags integration ./internal/llm/
func TestComplete_Live(t *testing.T) {
	apiKey := os.Getenv("GRIEVD_LLM_API_KEY")
	if apiKey == "" {
		t.Skip("GRIEVD_LLM_API_KEY not set")
	}

	c := New(apiKey)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	out, err := c.Complete(ctx,
		"You are a helpful assistant for a city grievance portal. Answer in one short sentence.",
		[]Message{{Role: "user", Content: "How do I check the status of a complaint?"}},
	)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if strings.TrimSpace(out) == "" {
		t.Fatal("expected non-empty completion")
	}
	t.Logf("completion: %s", out)
}
