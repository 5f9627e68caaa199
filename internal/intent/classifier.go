// Package intent classifies inbound chat messages into the routing
// categories the dialogue engine acts on. Classification is a fixed,
// ordered rule table of substring tests: no model calls, no fuzzy matching,
// first match wins.
package intent

import (
	"regexp"
	"strings"
)

// Category is the routing decision for a single message.
type Category int

const (
	General Category = iota
	FileComplaint
	Tracking
	Stats
	TechSupport
)

func (c Category) String() string {
	switch c {
	case FileComplaint:
		return "file_complaint"
	case Tracking:
		return "tracking"
	case Stats:
		return "stats"
	case TechSupport:
		return "tech_support"
	default:
		return "general"
	}
}

// filingPhrases signal an explicit request to file a complaint. Matched as
// case-insensitive substrings.
var filingPhrases = []string{
	"file complaint",
	"submit complaint",
	"register complaint",
	"make complaint",
	"lodge complaint",
	"want to complain",
	"need to complain",
	"i have a complaint",
	"file a complaint",
	"log a complaint",
	"submit a complaint",
	"file a grievance",
	"report an issue",
	"raise a complaint",
}

var statsPhrases = []string{
	"how many",
	"total",
	"statistics",
}

// techKeywords flag tech-support–flavored messages eligible for the
// troubleshooting sub-flow.
var techKeywords = []string{
	"computer", "laptop", "pc", "software", "hardware", "system", "network",
	"wifi", "internet", "connection", "login", "password", "email", "account",
	"access", "error", "crash", "freeze", "slow", "bug", "install", "update",
	"printer", "mouse", "keyboard", "screen", "monitor", "browser", "app",
	"application", "server", "database", "not working", "broken", "issue",
	"problem", "help", "cant access", "can't access", "unable to", "failed",
}

var (
	trackingIDPattern = regexp.MustCompile(`(?i)\bGR[A-Z0-9]+\b`)
	longTokenPattern  = regexp.MustCompile(`\b[A-Z0-9]{10,}\b`)
)

// rule pairs a matcher with the category it routes to. Rules are evaluated
// in declaration order.
type rule struct {
	category Category
	match    func(lower string) bool
}

var rules = []rule{
	{FileComplaint, func(m string) bool { return containsAny(m, filingPhrases) }},
	{Tracking, isTrackingQuery},
	{Stats, func(m string) bool { return containsAny(m, statsPhrases) }},
	{TechSupport, func(m string) bool { return containsAny(m, techKeywords) }},
}

// Classify returns the routing category for a message. Only the first
// matching rule governs the turn; everything else falls through to General.
func Classify(message string) Category {
	lower := strings.ToLower(message)
	for _, r := range rules {
		if r.match(lower) {
			return r.category
		}
	}
	return General
}

// HasFilingIntent reports whether the message explicitly asks to file a
// complaint. Filing intent pre-empts every other category, including an
// in-progress troubleshooting flow.
func HasFilingIntent(message string) bool {
	return containsAny(strings.ToLower(message), filingPhrases)
}

// IsTechRelated reports whether the message matches the tech-support
// keyword set.
func IsTechRelated(message string) bool {
	return containsAny(strings.ToLower(message), techKeywords)
}

func isTrackingQuery(lower string) bool {
	if strings.Contains(lower, "track") || strings.Contains(lower, "status") {
		return true
	}
	return trackingIDPattern.MatchString(lower)
}

// ExtractTrackingID pulls a tracking-id-shaped token out of a message:
// either a GR-prefixed token or any long alphanumeric run. The returned ID
// is uppercased.
func ExtractTrackingID(message string) (string, bool) {
	if m := trackingIDPattern.FindString(message); m != "" {
		return strings.ToUpper(m), true
	}
	if m := longTokenPattern.FindString(strings.ToUpper(message)); m != "" {
		return m, true
	}
	return "", false
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
