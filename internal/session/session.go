// Package session holds per-conversation state for the grievance chatbot:
// the transcript, the complaint draft being collected, and the
// troubleshooting counters.
package session

import (
	"sync"
	"time"
)

// FilingState is the position of a session in the complaint-filing dialogue.
type FilingState int

const (
	Idle FilingState = iota
	AskName
	AskEmail
	AskDepartment
	AskCategory
	AskDescription
	Confirm
	Submitting
)

func (s FilingState) String() string {
	switch s {
	case Idle:
		return "idle"
	case AskName:
		return "ask_name"
	case AskEmail:
		return "ask_email"
	case AskDepartment:
		return "ask_department"
	case AskCategory:
		return "ask_category"
	case AskDescription:
		return "ask_description"
	case Confirm:
		return "confirm"
	case Submitting:
		return "submitting"
	default:
		return "unknown"
	}
}

// Role identifies the author of a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single turn in the transcript.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Draft is the partially filled complaint record attached to a session.
type Draft struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Department  string `json:"department"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// Complete reports whether every slot has been collected.
func (d Draft) Complete() bool {
	return d.Name != "" && d.Email != "" && d.Department != "" &&
		d.Category != "" && d.Description != ""
}

// Session is the state of one conversation. Turns for a session must be
// processed strictly in arrival order: callers hold the session lock for the
// duration of a turn, so concurrent requests with the same session ID
// serialize rather than corrupt the draft.
type Session struct {
	mu sync.Mutex

	ID       string
	Messages []Message

	Filing FilingState
	Draft  Draft

	// Troubleshooting sub-flow state.
	TroubleshootCount int
	InTroubleshooting bool
	TroubleshootTopic string

	// DepartmentPrefilled marks a draft department inferred during
	// troubleshooting escalation; the filing flow skips the department
	// question while it is set.
	DepartmentPrefilled bool

	CreatedAt  time.Time
	LastActive time.Time
}

// Lock acquires the per-session turn lock.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the per-session turn lock.
func (s *Session) Unlock() { s.mu.Unlock() }

// TryLock attempts to acquire the turn lock without blocking. The sweeper
// uses it so a session in the middle of a turn is never evicted.
func (s *Session) TryLock() bool { return s.mu.TryLock() }

// Append records a turn in the transcript and refreshes the activity time.
func (s *Session) Append(role Role, content string, now time.Time) {
	s.Messages = append(s.Messages, Message{Role: role, Content: content, Timestamp: now})
	s.LastActive = now
}

// Tail returns the most recent n transcript messages. The full transcript
// stays in memory; only the tail is sent to the completion service.
func (s *Session) Tail(n int) []Message {
	if n <= 0 || len(s.Messages) <= n {
		return s.Messages
	}
	return s.Messages[len(s.Messages)-n:]
}

// ResetFiling clears the draft and returns the state machine to Idle.
// Called after a submission attempt (successful or not) and on cancellation.
func (s *Session) ResetFiling() {
	s.Filing = Idle
	s.Draft = Draft{}
	s.DepartmentPrefilled = false
}

// ResetTroubleshooting clears the troubleshooting sub-flow state. An explicit
// filing request pre-empts an in-progress troubleshooting loop.
func (s *Session) ResetTroubleshooting() {
	s.TroubleshootCount = 0
	s.InTroubleshooting = false
	s.TroubleshootTopic = ""
}
