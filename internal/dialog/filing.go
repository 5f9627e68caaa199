package dialog

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/mkale/grievd/internal/session"
)

// Slot validation bounds, matching the portal's web form.
const (
	minNameLen        = 2
	maxNameLen        = 100
	minDescriptionLen = 10
	maxDescriptionLen = 2000
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// startFiling begins (or restarts) the slot-filling flow. An explicit filing
// request always wins: it pre-empts troubleshooting and discards any
// half-collected draft.
func (e *Engine) startFiling(sess *session.Session) Result {
	sess.ResetTroubleshooting()
	sess.ResetFiling()
	sess.Filing = session.AskName
	e.logger.Debug("filing started", "session", sess.ID)
	return reply(e.compose.FilingIntro())
}

// filingTurn advances the state machine by one slot. Invalid input re-prompts
// without changing state; there is no retry cutoff.
func (e *Engine) filingTurn(sess *session.Session, text string) Result {
	input := strings.TrimSpace(text)

	switch sess.Filing {
	case session.AskName:
		if n := utf8.RuneCountInString(input); n < minNameLen || n > maxNameLen {
			return reply(e.compose.InvalidName())
		}
		sess.Draft.Name = input
		sess.Filing = session.AskEmail
		return reply(e.compose.EmailPrompt(input))

	case session.AskEmail:
		if !emailPattern.MatchString(input) {
			return reply(e.compose.InvalidEmail())
		}
		sess.Draft.Email = input
		// A department inferred during escalation is kept as-is; the flow
		// moves straight to the category question.
		if sess.DepartmentPrefilled && sess.Draft.Department != "" {
			sess.Filing = session.AskCategory
			return reply(e.compose.CategoryPrompt(sess.Draft.Department))
		}
		sess.Filing = session.AskDepartment
		return reply(e.compose.DepartmentPrompt())

	case session.AskDepartment:
		dept, ok := e.tax.MatchDepartment(input)
		if !ok {
			return reply(e.compose.InvalidDepartment())
		}
		sess.Draft.Department = dept
		sess.Filing = session.AskCategory
		return reply(e.compose.CategoryPrompt(dept))

	case session.AskCategory:
		cat, ok := e.tax.MatchCategory(input)
		if !ok {
			return reply(e.compose.InvalidCategory())
		}
		sess.Draft.Category = cat
		sess.Filing = session.AskDescription
		return reply(e.compose.DescriptionPrompt(cat))

	case session.AskDescription:
		if utf8.RuneCountInString(input) < minDescriptionLen {
			return reply(e.compose.DescriptionTooShort())
		}
		if utf8.RuneCountInString(input) > maxDescriptionLen {
			return reply(e.compose.DescriptionTooLong())
		}
		sess.Draft.Description = input
		sess.Filing = session.Confirm
		return reply(e.compose.ConfirmationSummary(sess.Draft))

	case session.Confirm:
		switch strings.ToLower(input) {
		case "cancel":
			sess.ResetFiling()
			e.logger.Debug("filing cancelled", "session", sess.ID)
			return reply(e.compose.CancelAck())
		case "confirm":
			sess.Filing = session.Submitting
			e.logger.Info("draft confirmed", "session", sess.ID, "department", sess.Draft.Department)
			return Result{Kind: SubmitResult, Draft: sess.Draft}
		default:
			return reply(e.compose.ConfirmReprompt())
		}

	case session.Submitting:
		// The caller owns the submission side effect and the reset; a turn
		// arriving in between just gets a holding reply.
		return reply(e.compose.SubmissionInProgress())
	}

	return reply(e.compose.GeneralFallback(text))
}
