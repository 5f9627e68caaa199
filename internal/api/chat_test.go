package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/mkale/grievd/internal/composer"
	"github.com/mkale/grievd/internal/dialog"
	"github.com/mkale/grievd/internal/nlp"
	"github.com/mkale/grievd/internal/session"
	"github.com/mkale/grievd/internal/storage"
	"github.com/mkale/grievd/internal/taxonomy"
)

func newTestDeps(t *testing.T, adminToken string) (Deps, *storage.Store) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	tax := taxonomy.Default()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := dialog.New(session.NewMemoryStore(time.Hour), tax, nil, logger)

	return Deps{
		Engine:     eng,
		Store:      store,
		Analyzer:   nlp.New(tax),
		Taxonomy:   tax,
		Composer:   composer.New(tax),
		AdminToken: adminToken,
		Logger:     logger,
	}, store
}

func postChat(t *testing.T, h http.Handler, sessionID, message string) (int, ChatResponse) {
	t.Helper()
	body, err := json.Marshal(ChatRequest{SessionID: sessionID, Message: message})
	if err != nil {
		t.Fatalf("marshaling request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp ChatResponse
	if rec.Code == http.StatusOK {
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
	}
	return rec.Code, resp
}

func TestHealth(t *testing.T) {
	deps, _ := newTestDeps(t, "")
	h := NewHandler(deps)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("health = %d, want 200", rec.Code)
	}
}

func TestChatRejectsBadInput(t *testing.T) {
	deps, _ := newTestDeps(t, "")
	h := NewHandler(deps)

	if code, _ := postChat(t, h, "", "hello"); code != http.StatusBadRequest {
		t.Errorf("empty session id: code = %d, want 400", code)
	}
	if code, _ := postChat(t, h, "s1", "   "); code != http.StatusBadRequest {
		t.Errorf("blank message: code = %d, want 400", code)
	}
}

func TestChatFilingRoundTrip(t *testing.T) {
	deps, store := newTestDeps(t, "")
	h := NewHandler(deps)

	turns := []string{
		"I want to file a complaint",
		"Jane Doe",
		"jane@example.com",
		"1",
		"1",
		"The streetlights on Oak Avenue have been out for two weeks.",
	}
	var last ChatResponse
	for _, msg := range turns {
		code, resp := postChat(t, h, "s1", msg)
		if code != http.StatusOK {
			t.Fatalf("turn %q: code = %d, want 200", msg, code)
		}
		last = resp
	}
	if !strings.Contains(last.Reply, "Jane Doe") {
		t.Fatalf("confirmation summary missing name: %q", last.Reply)
	}

	code, resp := postChat(t, h, "s1", "confirm")
	if code != http.StatusOK {
		t.Fatalf("confirm: code = %d, want 200", code)
	}
	if !strings.Contains(resp.Reply, "filed successfully") {
		t.Fatalf("reply = %q, want filing confirmation", resp.Reply)
	}

	idPattern := regexp.MustCompile(`GR[0-9]{6}[A-Z]{6}`)
	trackingID := idPattern.FindString(resp.Reply)
	if trackingID == "" {
		t.Fatalf("no tracking id in reply %q", resp.Reply)
	}

	c, err := store.GetComplaintByTrackingID(trackingID)
	if err != nil {
		t.Fatalf("complaint not persisted: %v", err)
	}
	if c.SubmitterName != "Jane Doe" || c.Department != "Education" {
		t.Errorf("persisted complaint = %+v", c)
	}
	if c.Source != "chat" {
		t.Errorf("Source = %q, want chat", c.Source)
	}
	if c.Status != "Pending" {
		t.Errorf("Status = %q, want Pending", c.Status)
	}

	// The filing slots reset after submission, so a fresh filing request
	// starts over instead of resuming.
	_, resp = postChat(t, h, "s1", "I want to file a complaint")
	if !strings.Contains(strings.ToLower(resp.Reply), "full name") {
		t.Errorf("post-submit filing reply = %q, want name prompt", resp.Reply)
	}
}

func TestChatTrackingQuery(t *testing.T) {
	deps, store := newTestDeps(t, "")
	h := NewHandler(deps)

	if err := store.SaveComplaint(storage.Complaint{
		ID:             "c1",
		TrackingID:     "GR518582ZTBEMB",
		SubmitterName:  "Sam Ortiz",
		SubmitterEmail: "sam@example.com",
		Department:     "Transportation",
		Category:       "Infrastructure",
		Description:    "Bus shelter on 5th is damaged.",
	}); err != nil {
		t.Fatalf("seeding complaint: %v", err)
	}

	code, resp := postChat(t, h, "s1", "what is the status of GR518582ZTBEMB")
	if code != http.StatusOK {
		t.Fatalf("code = %d, want 200", code)
	}
	if !strings.Contains(resp.Reply, "GR518582ZTBEMB") || !strings.Contains(resp.Reply, "Pending") {
		t.Errorf("reply = %q, want status report", resp.Reply)
	}

	code, resp = postChat(t, h, "s1", "status of GR000000AAAAAA")
	if code != http.StatusOK {
		t.Fatalf("code = %d, want 200", code)
	}
	if !strings.Contains(resp.Reply, "couldn't find") {
		t.Errorf("reply = %q, want not-found message", resp.Reply)
	}
}

func TestChatStatsQuery(t *testing.T) {
	deps, store := newTestDeps(t, "")
	h := NewHandler(deps)

	for i, status := range []string{"Pending", "Pending", "Resolved"} {
		c := storage.Complaint{
			ID:             fmt.Sprintf("c%d", i+1),
			TrackingID:     fmt.Sprintf("GR10000%dAAAAAA", i),
			SubmitterName:  "Sam Ortiz",
			SubmitterEmail: "sam@example.com",
			Department:     "Transportation",
			Category:       "Infrastructure",
			Description:    "Bus shelter on 5th is damaged.",
			Status:         status,
		}
		if err := store.SaveComplaint(c); err != nil {
			t.Fatalf("seeding complaint: %v", err)
		}
	}

	code, resp := postChat(t, h, "s1", "how many complaints are pending")
	if code != http.StatusOK {
		t.Fatalf("code = %d, want 200", code)
	}
	if !strings.Contains(resp.Reply, "Total complaints: 3") {
		t.Errorf("reply = %q, want total of 3", resp.Reply)
	}
	if !strings.Contains(resp.Reply, "Pending: 2") || !strings.Contains(resp.Reply, "Resolved: 1") {
		t.Errorf("reply = %q, want per-status counts", resp.Reply)
	}
}

func TestChatGeneralFallbackWithoutCompleter(t *testing.T) {
	deps, _ := newTestDeps(t, "")
	h := NewHandler(deps)

	code, resp := postChat(t, h, "s1", "hello there")
	if code != http.StatusOK {
		t.Fatalf("code = %d, want 200", code)
	}
	if resp.Reply == "" {
		t.Fatal("expected a canned reply with no completion backend")
	}
	if resp.SessionID != "s1" {
		t.Errorf("SessionID = %q, want s1", resp.SessionID)
	}
}
