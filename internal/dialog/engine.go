// Package dialog implements the conversational engine for the grievance
// portal: intent routing, the complaint-filing state machine, and the
// bounded troubleshooting sub-flow. The engine owns no persistence; when a
// draft is ready it hands control back to the caller through a tagged Result.
package dialog

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/mkale/grievd/internal/composer"
	"github.com/mkale/grievd/internal/intent"
	"github.com/mkale/grievd/internal/llm"
	"github.com/mkale/grievd/internal/session"
	"github.com/mkale/grievd/internal/taxonomy"
)

// ContextWindow is how many recent transcript messages are sent to the
// completion service on free-form turns.
const ContextWindow = 10

var (
	ErrEmptySessionID = errors.New("session id must not be empty")
	ErrEmptyMessage   = errors.New("message must not be empty")
)

// Completer produces a free-text reply from a system prompt and the recent
// transcript. *llm.Client satisfies it; tests substitute a mock.
type Completer interface {
	Complete(ctx context.Context, systemPrompt string, tail []llm.Message) (string, error)
}

// Kind tags a Result with the action the caller must take.
type Kind int

const (
	// ReplyResult carries ordinary reply text; nothing else to do.
	ReplyResult Kind = iota
	// SubmitResult means the draft is complete and the caller must persist
	// it, then reset the session's filing state.
	SubmitResult
	// TrackResult asks the caller to look up a complaint by tracking ID.
	TrackResult
	// StatsResult asks the caller to report complaint statistics.
	StatsResult
)

// Result is what a processed turn yields. Exactly one of the payload fields
// is meaningful, selected by Kind.
type Result struct {
	Kind       Kind
	Text       string        // ReplyResult
	Draft      session.Draft // SubmitResult
	TrackingID string        // TrackResult
}

// Engine routes user turns between the filing state machine, the
// troubleshooting sub-flow, and general completion.
type Engine struct {
	sessions  session.Store
	tax       *taxonomy.Taxonomy
	compose   *composer.Composer
	completer Completer
	logger    *slog.Logger
}

// New builds an engine. completer may be nil, in which case every free-form
// turn degrades to the canned fallback replies.
func New(sessions session.Store, tax *taxonomy.Taxonomy, completer Completer, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		sessions:  sessions,
		tax:       tax,
		compose:   composer.New(tax),
		completer: completer,
		logger:    logger,
	}
}

// Process handles one user turn. Turns for the same session serialize on the
// session lock so the draft and counters are never mutated concurrently.
func (e *Engine) Process(ctx context.Context, sessionID, text string) (Result, error) {
	if strings.TrimSpace(sessionID) == "" {
		return Result{}, ErrEmptySessionID
	}
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrEmptyMessage
	}

	sess := e.sessions.GetOrCreate(sessionID)
	sess.Lock()
	defer sess.Unlock()

	sess.Append(session.RoleUser, text, time.Now())

	res := e.route(ctx, sess, text)
	if res.Kind == ReplyResult {
		sess.Append(session.RoleAssistant, res.Text, time.Now())
	}
	return res, nil
}

// RecordReply appends a caller-composed reply (submission outcome, status
// report, statistics) to the session transcript.
func (e *Engine) RecordReply(sessionID, text string) {
	sess, ok := e.sessions.Get(sessionID)
	if !ok {
		return
	}
	sess.Lock()
	defer sess.Unlock()
	sess.Append(session.RoleAssistant, text, time.Now())
}

// FinishFiling resets the session's filing state after the caller has
// attempted submission, regardless of the outcome.
func (e *Engine) FinishFiling(sessionID string) {
	e.sessions.ResetFiling(sessionID)
}

func (e *Engine) route(ctx context.Context, sess *session.Session, text string) Result {
	// Mid-filing turns belong to the state machine unless the user is
	// explicitly asking to start over.
	if sess.Filing != session.Idle {
		if sess.Filing != session.Submitting && intent.HasFilingIntent(text) {
			return e.startFiling(sess)
		}
		return e.filingTurn(sess, text)
	}

	switch intent.Classify(text) {
	case intent.FileComplaint:
		return e.startFiling(sess)
	case intent.Tracking:
		if id, ok := intent.ExtractTrackingID(text); ok {
			return Result{Kind: TrackResult, TrackingID: id}
		}
		return reply(e.compose.TrackingHelp())
	case intent.Stats:
		return Result{Kind: StatsResult}
	case intent.TechSupport:
		return e.troubleshootTurn(ctx, sess, text)
	default:
		if sess.InTroubleshooting {
			return e.troubleshootTurn(ctx, sess, text)
		}
		return e.generalTurn(ctx, sess, text)
	}
}

func (e *Engine) generalTurn(ctx context.Context, sess *session.Session, text string) Result {
	if e.completer == nil {
		return reply(e.compose.GeneralFallback(text))
	}

	systemPrompt := e.compose.SystemPrompt(text)
	if intent.IsTechRelated(text) {
		systemPrompt = e.compose.TechSystemPrompt()
	}

	out, err := e.completer.Complete(ctx, systemPrompt, toLLMMessages(sess.Tail(ContextWindow)))
	if err != nil || strings.TrimSpace(out) == "" {
		if err != nil {
			e.logger.Warn("completion failed, using fallback", "session", sess.ID, "error", err)
		}
		return reply(e.compose.GeneralFallback(text))
	}
	return reply(out)
}

func toLLMMessages(tail []session.Message) []llm.Message {
	out := make([]llm.Message, len(tail))
	for i, m := range tail {
		out[i] = llm.Message{Role: string(m.Role), Content: m.Content}
	}
	return out
}

func reply(text string) Result {
	return Result{Kind: ReplyResult, Text: text}
}
