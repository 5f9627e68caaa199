package dialog

import (
	"errors"
	"strings"
	"testing"

	"github.com/mkale/grievd/internal/llm"
	"github.com/mkale/grievd/internal/session"
)

var errFailed = errors.New("upstream unavailable")

func TestTroubleshootingEntryAndCannedAttempt(t *testing.T) {
	e, store := newTestEngine(t, nil)

	res := send(t, e, "s1", "my computer is not working")
	if !strings.Contains(res.Text, "Troubleshooting attempt 1 of 3") {
		t.Errorf("reply = %q, want attempt framing", res.Text)
	}

	sess, _ := store.Get("s1")
	if !sess.InTroubleshooting {
		t.Error("InTroubleshooting not set")
	}
	if sess.TroubleshootCount != 1 {
		t.Errorf("TroubleshootCount = %d, want 1 after the served attempt", sess.TroubleshootCount)
	}
	if sess.TroubleshootTopic != "my computer is not working" {
		t.Errorf("TroubleshootTopic = %q", sess.TroubleshootTopic)
	}
}

// TestTroubleshootingEscalatesAfterRepeatedFailures drives the sub-flow
// through persistence signals and verifies the handoff into the filing flow
// with an inferred department and the department question skipped. A
// persistence signal burns an extra attempt on top of the served one, so the
// budget runs out after two follow-ups.
func TestTroubleshootingEscalatesAfterRepeatedFailures(t *testing.T) {
	mock := &mockCompleter{reply: "Try restarting the machine."}
	e, store := newTestEngine(t, mock)

	res := send(t, e, "s1", "my computer is not working")
	if !strings.Contains(res.Text, "attempt 1 of 3") {
		t.Errorf("first attempt reply = %q", res.Text)
	}

	res = send(t, e, "s1", "it's still not working")
	if !strings.Contains(res.Text, "attempt 3 of 3") {
		t.Errorf("second attempt reply = %q", res.Text)
	}

	res = send(t, e, "s1", "it's still not working")
	if !strings.Contains(res.Text, "escalate") {
		t.Errorf("escalation reply = %q", res.Text)
	}
	if !strings.Contains(res.Text, "IT Support") {
		t.Errorf("escalation reply missing inferred department: %q", res.Text)
	}

	sess, _ := store.Get("s1")
	if sess.InTroubleshooting {
		t.Error("InTroubleshooting still set after escalation")
	}
	if sess.Filing != session.AskName {
		t.Errorf("Filing = %v, want AskName", sess.Filing)
	}
	if sess.Draft.Department != "IT Support" {
		t.Errorf("Department = %q, want IT Support", sess.Draft.Department)
	}
	if !sess.DepartmentPrefilled {
		t.Error("DepartmentPrefilled not set")
	}
}

// TestTroubleshootingBudgetAdvancesWithoutPersistenceSignals verifies the
// attempt counter moves on every served turn, so a user describing new
// symptoms each time still reaches escalation instead of looping on
// attempt 1 forever.
func TestTroubleshootingBudgetAdvancesWithoutPersistenceSignals(t *testing.T) {
	mock := &mockCompleter{reply: "Check the power cable."}
	e, store := newTestEngine(t, mock)

	turns := []struct {
		msg  string
		want string
	}{
		{"my computer is not working", "attempt 1 of 3"},
		{"now the fan is really loud", "attempt 2 of 3"},
		{"the screen just went blank", "attempt 3 of 3"},
	}
	for _, tt := range turns {
		res := send(t, e, "s1", tt.msg)
		if !strings.Contains(res.Text, tt.want) {
			t.Fatalf("reply to %q = %q, want %q", tt.msg, res.Text, tt.want)
		}
	}

	res := send(t, e, "s1", "it rebooted on its own twice")
	if !strings.Contains(res.Text, "escalate") {
		t.Errorf("fourth turn reply = %q, want escalation", res.Text)
	}

	sess, _ := store.Get("s1")
	if sess.InTroubleshooting {
		t.Error("InTroubleshooting still set after escalation")
	}
	if sess.Filing != session.AskName {
		t.Errorf("Filing = %v, want AskName", sess.Filing)
	}
}

// TestEscalatedFilingSkipsDepartment continues past escalation and checks the
// flow jumps from email straight to the category question.
func TestEscalatedFilingSkipsDepartment(t *testing.T) {
	e, store := newTestEngine(t, nil)

	send(t, e, "s1", "my computer is not working")
	send(t, e, "s1", "still not working")
	send(t, e, "s1", "still not working")

	send(t, e, "s1", "Jane Doe")
	res := send(t, e, "s1", "jane@example.com")
	if !strings.Contains(res.Text, "Department selected: IT Support") {
		t.Errorf("reply = %q, want category prompt with inferred department", res.Text)
	}
	sess, _ := store.Get("s1")
	if sess.Filing != session.AskCategory {
		t.Errorf("Filing = %v, want AskCategory", sess.Filing)
	}
}

func TestRateLimitForcesImmediateEscalation(t *testing.T) {
	mock := &mockCompleter{err: llm.ErrRateLimited}
	e, store := newTestEngine(t, mock)

	res := send(t, e, "s1", "my laptop keeps crashing")
	if !strings.Contains(res.Text, "escalate") {
		t.Errorf("reply = %q, want escalation", res.Text)
	}

	sess, _ := store.Get("s1")
	if sess.Filing != session.AskName {
		t.Errorf("Filing = %v, want AskName", sess.Filing)
	}
	if sess.InTroubleshooting {
		t.Error("InTroubleshooting still set")
	}
	if sess.Draft.Department == "" {
		t.Error("no department inferred on rate-limit escalation")
	}
}

func TestTroubleshootingFallsBackOnCompletionError(t *testing.T) {
	mock := &mockCompleter{err: errFailed}
	e, _ := newTestEngine(t, mock)

	res := send(t, e, "s1", "I cannot login to my account")
	if !strings.Contains(res.Text, "Troubleshooting attempt 1 of 3") {
		t.Errorf("reply = %q, want attempt framing", res.Text)
	}
	if !strings.Contains(strings.ToLower(res.Text), "password") {
		t.Errorf("reply = %q, want canned login tips", res.Text)
	}
}

func TestFilingIntentPreemptsTroubleshooting(t *testing.T) {
	e, store := newTestEngine(t, nil)

	send(t, e, "s1", "my computer is not working")
	send(t, e, "s1", "still not working")

	res := send(t, e, "s1", "forget it, I want to file a complaint")
	if !strings.Contains(res.Text, "full name") {
		t.Errorf("reply = %q, want filing intro", res.Text)
	}

	sess, _ := store.Get("s1")
	if sess.InTroubleshooting {
		t.Error("InTroubleshooting still set")
	}
	if sess.TroubleshootCount != 0 {
		t.Errorf("TroubleshootCount = %d, want 0", sess.TroubleshootCount)
	}
	if sess.Filing != session.AskName {
		t.Errorf("Filing = %v, want AskName", sess.Filing)
	}
}

func TestPersistencePhraseDetection(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"it's STILL not working", true},
		{"same issue as before", true},
		{"no luck so far", true},
		{"tried that already", true},
		{"thanks, that fixed it", false},
		{"my printer is jammed", false},
	}
	for _, tt := range tests {
		if got := signalsPersistence(tt.input); got != tt.want {
			t.Errorf("signalsPersistence(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
