// Package composer renders dialogue-engine state into user-facing text:
// slot prompts, numbered reference lists, confirmation summaries, and the
// canned fallbacks used when the completion service is unavailable. Output
// is deterministic given the same state.
package composer

import (
	"fmt"
	"strings"
	"time"

	"github.com/mkale/grievd/internal/session"
	"github.com/mkale/grievd/internal/taxonomy"
)

// Composer formats replies against a fixed taxonomy.
type Composer struct {
	tax *taxonomy.Taxonomy
}

// New creates a Composer bound to the given taxonomy.
func New(tax *taxonomy.Taxonomy) *Composer {
	return &Composer{tax: tax}
}

// --- filing flow prompts ---

func (c *Composer) FilingIntro() string {
	return "I'll help you file a complaint. Let's start by collecting some information.\n\nFirst, what is your full name?"
}

func (c *Composer) InvalidName() string {
	return "Please provide a valid name (2-100 characters)."
}

func (c *Composer) EmailPrompt(name string) string {
	return fmt.Sprintf("Thank you, %s! What is your email address?", name)
}

func (c *Composer) InvalidEmail() string {
	return "Please provide a valid email address (e.g., yourname@example.com)."
}

func (c *Composer) DepartmentPrompt() string {
	return fmt.Sprintf(
		"Great! Now, which department does your complaint relate to?\n\nAvailable departments:\n%s\n\nYou can type the number or the department name.",
		numberedList(c.tax.Departments()))
}

func (c *Composer) InvalidDepartment() string {
	return fmt.Sprintf("Please select a valid department by typing the number (1-%d) or the department name.", len(c.tax.Departments()))
}

// CategoryPrompt acknowledges the selected (or inferred) department and asks
// for a category.
func (c *Composer) CategoryPrompt(department string) string {
	return fmt.Sprintf(
		"Department selected: %s\n\nNow, what category best describes your complaint?\n\nAvailable categories:\n%s\n\nYou can type the number or the category name.",
		department, numberedList(c.tax.Categories()))
}

func (c *Composer) InvalidCategory() string {
	return fmt.Sprintf("Please select a valid category by typing the number (1-%d) or the category name.", len(c.tax.Categories()))
}

func (c *Composer) DescriptionPrompt(category string) string {
	return fmt.Sprintf(
		"Category selected: %s\n\nFinally, please provide a detailed description of your complaint. Be as specific as possible to help us address your issue effectively.",
		category)
}

func (c *Composer) DescriptionTooShort() string {
	return "Please provide a more detailed description (at least 10 characters)."
}

func (c *Composer) DescriptionTooLong() string {
	return "Your description is too long. Please keep it under 2000 characters."
}

// ConfirmationSummary renders the completed draft for review.
func (c *Composer) ConfirmationSummary(d session.Draft) string {
	return fmt.Sprintf(
		"Please review your complaint details:\n\n"+
			"Name: %s\n"+
			"Email: %s\n"+
			"Department: %s\n"+
			"Category: %s\n"+
			"Description: %s\n\n"+
			`Type "CONFIRM" to submit your complaint, or "CANCEL" to start over.`,
		d.Name, d.Email, d.Department, d.Category, d.Description)
}

func (c *Composer) ConfirmReprompt() string {
	return `Please type "CONFIRM" to submit your complaint or "CANCEL" to start over.`
}

func (c *Composer) CancelAck() string {
	return "Complaint filing cancelled. If you need any other assistance, feel free to ask!"
}

// --- submission outcomes ---

// FilingSuccess renders the post-submission confirmation with the tracking ID
// and the triage results.
func (c *Composer) FilingSuccess(trackingID string, d session.Draft, priority, sentiment string) string {
	return fmt.Sprintf(
		"✅ Complaint filed successfully!\n\n"+
			"Your tracking ID is: %s\n\n"+
			"Summary:\n"+
			"• Name: %s\n"+
			"• Email: %s\n"+
			"• Department: %s\n"+
			"• Category: %s\n"+
			"• Priority: %s\n"+
			"• Sentiment: %s\n\n"+
			"You can track your complaint status anytime using your tracking ID. The %s department will review your complaint and respond soon.\n\n"+
			"Is there anything else I can help you with?",
		trackingID, d.Name, d.Email, d.Department, d.Category, priority, sentiment, d.Department)
}

func (c *Composer) FilingFailure() string {
	return "Sorry, I couldn't submit your complaint right now. Please try again in a few minutes."
}

func (c *Composer) SubmissionInProgress() string {
	return "Your complaint is being submitted, one moment please..."
}

// --- troubleshooting ---

// EscalationNotice announces the handoff from troubleshooting to formal
// filing after the retry budget is exhausted.
func (c *Composer) EscalationNotice(attempts int, department string) string {
	return fmt.Sprintf(
		"I've tried to help resolve this issue %d times, but it seems the problem persists. Let me escalate this to our technical team.\n\n"+
			"I'll help you file a formal complaint so our %s team can investigate further.\n\n"+
			"Let's start by collecting some information.\n\nFirst, what is your full name?",
		attempts, department)
}

// EscalationRateLimited is the handoff used when the completion service is
// rate limited mid-troubleshooting.
func (c *Composer) EscalationRateLimited(department string) string {
	return fmt.Sprintf(
		"I'm currently experiencing high demand and unable to troubleshoot right now. Let me escalate this to our technical team instead.\n\n"+
			"I'll help you file a complaint so our %s team can investigate and resolve your issue.\n\n"+
			"First, what is your full name?",
		department)
}

// TroubleshootAttempt frames an AI-generated troubleshooting suggestion with
// the attempt counter.
func (c *Composer) TroubleshootAttempt(attempt, budget int, body string) string {
	followup := "try another solution"
	if attempt >= budget-1 {
		followup = "escalate this to our technical team"
	}
	return fmt.Sprintf(
		"🔧 Troubleshooting attempt %d of %d\n\n%s\n\nIf this doesn't resolve your issue, please let me know and I'll %s.",
		attempt, budget, body, followup)
}

// TroubleshootFallback returns a canned, keyword-matched troubleshooting tip
// for when the completion service is unavailable.
func (c *Composer) TroubleshootFallback(message string) string {
	lower := strings.ToLower(message)

	switch {
	case strings.Contains(lower, "login") || strings.Contains(lower, "password") || strings.Contains(lower, "access"):
		return "Login/access troubleshooting:\n\n" +
			"1. Clear your browser cache and cookies\n" +
			"2. Make sure Caps Lock is off\n" +
			"3. Reset your password using the \"Forgot Password\" link\n" +
			"4. Try a different browser\n\n" +
			"If the issue persists, let me know and I can escalate this."
	case strings.Contains(lower, "network") || strings.Contains(lower, "internet") || strings.Contains(lower, "wifi"):
		return "Network connectivity troubleshooting:\n\n" +
			"1. Check if your WiFi is connected\n" +
			"2. Turn WiFi off and on again\n" +
			"3. Restart your router or modem\n" +
			"4. Check if other devices can connect\n" +
			"5. Try an ethernet cable\n\n" +
			"If the issue persists, let me know and I can escalate this."
	case strings.Contains(lower, "email") || strings.Contains(lower, "outlook") || strings.Contains(lower, "mail"):
		return "Email troubleshooting:\n\n" +
			"1. Check your internet connection\n" +
			"2. Verify your email address and password\n" +
			"3. Check your spam/junk folder\n" +
			"4. Log out and back in\n" +
			"5. Clear your browser cache\n\n" +
			"If the issue persists, let me know and I can escalate this."
	default:
		return "I understand you're experiencing a technical issue. Let me try to help:\n\n" +
			"1. Have you tried restarting the application or device?\n" +
			"2. Is this the first time this issue has occurred?\n" +
			"3. Are you getting any specific error messages?\n\n" +
			"Please provide more details, and if the issue continues, I can escalate it to our technical team."
	}
}

// --- system prompts for the completion service ---

// SystemPrompt selects the completion-service instruction for a general turn
// based on keyword context.
func (c *Composer) SystemPrompt(message string) string {
	lower := strings.ToLower(message)

	switch {
	case strings.Contains(lower, "track") || strings.Contains(lower, "status"):
		return "You are helping users track their complaint status. Explain how to use tracking IDs and what different statuses mean. Be helpful and guide them to the tracking page."
	case strings.Contains(lower, "department") || strings.Contains(lower, "category"):
		return "You are helping users understand which department their complaint belongs to. There are public departments (Education, Healthcare, etc.) and internal departments (IT Support, HR, Finance, etc.). Explain the departments and categories available."
	case strings.Contains(lower, "urgent") || strings.Contains(lower, "emergency"):
		return "You are dealing with an urgent complaint. Provide immediate guidance and emphasize the importance of filing the complaint properly. Be reassuring but professional."
	case strings.Contains(lower, "complaint") || strings.Contains(lower, "grievance"):
		return "You are a helpful AI assistant for a complaint management system. Help users understand how to file complaints for both government services and internal corporate issues (IT, HR, Finance, Facilities). Be polite, professional, and informative. Keep responses concise and helpful."
	default:
		return "You are a helpful AI assistant for a comprehensive complaint management system handling both government grievances and internal corporate issues. Provide friendly, professional assistance with complaint filing, tracking, and general guidance. Keep responses concise and actionable."
	}
}

// TechSystemPrompt is the instruction used for tech-flavored general turns.
func (c *Composer) TechSystemPrompt() string {
	return "You are an expert IT support assistant for a complaint management system. Help users troubleshoot technical issues with computers, networks, software, accounts, and devices. Provide clear, step-by-step solutions. If an issue cannot be resolved, guide users to file a formal complaint for escalation to the technical team."
}

// TroubleshootSystemPrompt is the instruction for a bounded troubleshooting
// attempt.
func (c *Composer) TroubleshootSystemPrompt(topic string, attempt, budget int) string {
	return fmt.Sprintf(
		"You are an expert IT support assistant helping to troubleshoot technical issues.\n\n"+
			"Current issue: %s\nAttempt: %d of %d\n\n"+
			"Provide a helpful, step-by-step troubleshooting response. Focus on quick fixes and common solutions, clear actionable steps, and diagnostic questions when needed. "+
			"Keep your response concise (under 300 words) and avoid technical jargon.",
		topic, attempt, budget)
}

// --- canned general fallbacks ---

// GeneralFallback is the keyword-matched reply used when no completion
// service is configured or it fails.
func (c *Composer) GeneralFallback(message string) string {
	lower := strings.ToLower(message)

	switch {
	case strings.Contains(lower, "hello") || strings.Contains(lower, "hi"):
		return "Hello! I'm here to help you with the grievance portal. I can file a complaint for you right here in the chat, track an existing complaint, or answer questions about the process. How can I assist you today?"
	case strings.Contains(lower, "complaint") || strings.Contains(lower, "file"):
		return "I can help you file a complaint right here in the chat. Just say \"I want to file a complaint\" and I'll guide you through it step by step: your name and email, the department and category, and a description. Once submitted, you'll receive a tracking ID immediately."
	case strings.Contains(lower, "track") || strings.Contains(lower, "status"):
		return "To track your complaint, just send me your tracking ID (it looks like GR518582ZTBEMB). You can find it in the confirmation shown when you filed the complaint."
	case strings.Contains(lower, "department"):
		return "Complaints are routed to departments such as Education, Healthcare, Transportation, Municipal Services, Police, Revenue, Agriculture, and Environment, plus internal departments like IT Support, HR, and Finance. The system suggests the appropriate department based on your complaint."
	case strings.Contains(lower, "time") || strings.Contains(lower, "duration"):
		return "Response times vary by department and complexity. Simple complaints are typically resolved within 3-5 working days; complex issues may take 10-15 working days. You can track progress using your tracking ID."
	default:
		return "I'm here to help with the grievance portal. You can file a complaint directly in this chat, track a complaint with your tracking ID, or ask for complaint statistics. What would you like to do?"
	}
}

// --- lookups ---

// StatusFields is the complaint data rendered in a status report.
type StatusFields struct {
	TrackingID string
	Status     string
	Department string
	Category   string
	Priority   string
	FiledAt    time.Time
	AdminReply string
}

// StatusReport renders a tracking lookup result.
func (c *Composer) StatusReport(f StatusFields) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📋 Complaint status\n\n")
	fmt.Fprintf(&sb, "Tracking ID: %s\n", f.TrackingID)
	fmt.Fprintf(&sb, "Status: %s\n", f.Status)
	fmt.Fprintf(&sb, "Department: %s\n", f.Department)
	fmt.Fprintf(&sb, "Category: %s\n", f.Category)
	fmt.Fprintf(&sb, "Filed on: %s\n", f.FiledAt.Format("2 Jan 2006"))
	fmt.Fprintf(&sb, "Priority: %s\n", f.Priority)
	if f.AdminReply != "" {
		fmt.Fprintf(&sb, "\nAdmin note: %s\n", f.AdminReply)
	}
	fmt.Fprintf(&sb, "\nYour complaint is being processed by the %s department.", f.Department)
	return sb.String()
}

// StatusNotFound renders a failed tracking lookup.
func (c *Composer) StatusNotFound(trackingID string) string {
	return fmt.Sprintf(
		"Sorry, I couldn't find any complaint with tracking ID %q. Please make sure you've entered the correct tracking ID from your filing confirmation.",
		trackingID)
}

// TrackingHelp asks for a tracking ID when a status query carries none.
func (c *Composer) TrackingHelp() string {
	return "To look up a complaint, send me your tracking ID (it looks like GR518582ZTBEMB) and I'll fetch the current status for you."
}

// StatsCounts holds the per-status complaint counts.
type StatsCounts struct {
	Total      int
	Pending    int
	InProgress int
	Resolved   int
	Rejected   int
}

// StatsReport renders portal-wide complaint statistics.
func (c *Composer) StatsReport(s StatsCounts) string {
	return fmt.Sprintf(
		"📊 Complaint statistics\n\n"+
			"Total complaints: %d\n"+
			"Pending: %d\n"+
			"In progress: %d\n"+
			"Resolved: %d\n"+
			"Rejected: %d\n\n"+
			"All complaints are being actively monitored by our team.",
		s.Total, s.Pending, s.InProgress, s.Resolved, s.Rejected)
}

func numberedList(entries []string) string {
	var sb strings.Builder
	for i, e := range entries {
		fmt.Fprintf(&sb, "%d. %s", i+1, e)
		if i < len(entries)-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
