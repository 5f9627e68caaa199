package dialog

import (
	"context"
	"fmt"
	"strings"

	"github.com/mkale/grievd/internal/llm"
	"github.com/mkale/grievd/internal/session"
)

// TroubleshootBudget is the number of unresolved attempts tolerated before
// the issue escalates into a formal complaint.
const TroubleshootBudget = 3

// persistencePhrases signal the user's problem survived the previous
// suggestion. Each match counts one attempt against the budget.
var persistencePhrases = []string{
	"still not working",
	"still doesn't work",
	"still broken",
	"still having",
	"same issue",
	"same problem",
	"no luck",
	"didn't work",
	"didnt work",
	"didn't help",
	"not fixed",
	"tried that",
}

func signalsPersistence(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range persistencePhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// troubleshootTurn runs one bounded troubleshooting attempt. Delegation
// failures fall back to canned tips; a rate-limited completion service
// escalates immediately instead of looping against a failing dependency.
func (e *Engine) troubleshootTurn(ctx context.Context, sess *session.Session, text string) Result {
	if !sess.InTroubleshooting {
		sess.InTroubleshooting = true
		sess.TroubleshootCount = 0
		sess.TroubleshootTopic = text
		e.logger.Debug("troubleshooting started", "session", sess.ID)
	}

	if signalsPersistence(text) {
		sess.TroubleshootCount++
	}

	if sess.TroubleshootCount >= TroubleshootBudget {
		return e.escalate(sess, false)
	}

	// Every served attempt consumes the budget, not just turns where the
	// user says the problem persists; otherwise the "attempt N of 3" framing
	// would never advance and the loop would be unbounded.
	sess.TroubleshootCount++
	attempt := sess.TroubleshootCount

	if e.completer == nil {
		return reply(e.compose.TroubleshootAttempt(attempt, TroubleshootBudget, e.compose.TroubleshootFallback(text)))
	}

	systemPrompt := e.compose.TroubleshootSystemPrompt(sess.TroubleshootTopic, attempt, TroubleshootBudget)
	out, err := e.completer.Complete(ctx, systemPrompt, toLLMMessages(sess.Tail(ContextWindow)))
	if err != nil {
		if llm.IsRateLimited(err) {
			e.logger.Warn("completion rate limited, escalating", "session", sess.ID)
			sess.TroubleshootCount = TroubleshootBudget
			return e.escalate(sess, true)
		}
		e.logger.Warn("troubleshooting completion failed, using canned tips", "session", sess.ID, "error", err)
		out = e.compose.TroubleshootFallback(text)
	}
	if strings.TrimSpace(out) == "" {
		out = e.compose.TroubleshootFallback(text)
	}
	return reply(e.compose.TroubleshootAttempt(attempt, TroubleshootBudget, out))
}

// escalate converts an exhausted troubleshooting loop into a filing flow.
// The department is inferred from the captured topic and the department
// question is skipped; name, email, category, and the real description are
// still collected normally.
func (e *Engine) escalate(sess *session.Session, rateLimited bool) Result {
	topic := sess.TroubleshootTopic
	attempts := sess.TroubleshootCount

	dept, ok := e.tax.InferDepartment(topic)
	if !ok {
		dept = "IT Support"
	}

	sess.ResetTroubleshooting()
	sess.ResetFiling()
	sess.Draft.Department = dept
	sess.Draft.Description = fmt.Sprintf("Unresolved technical issue: %s", topic)
	sess.DepartmentPrefilled = true
	sess.Filing = session.AskName

	e.logger.Info("troubleshooting escalated to filing",
		"session", sess.ID, "department", dept, "attempts", attempts, "rate_limited", rateLimited)

	if rateLimited {
		return reply(e.compose.EscalationRateLimited(dept))
	}
	return reply(e.compose.EscalationNotice(attempts, dept))
}
