// Package nlp performs rule-based triage of submitted complaints:
// sentiment, priority, urgency, complexity, and keyword extraction. It is
// deliberately a fixed rule table rather than a model call, so triage is
// deterministic and works offline.
package nlp

import (
	"sort"
	"strings"
	"unicode"

	"github.com/mkale/grievd/internal/taxonomy"
)

// Analysis is the triage result attached to a complaint at submission time.
type Analysis struct {
	Sentiment           string   `json:"sentiment"`
	Priority            string   `json:"priority"`
	Urgency             int      `json:"urgency"`
	Complexity          int      `json:"complexity"`
	Keywords            []string `json:"keywords"`
	Tags                []string `json:"tags"`
	SuggestedDepartment string   `json:"suggestedDepartment"`
}

// Analyzer scores complaint descriptions against fixed word lists.
type Analyzer struct {
	tax *taxonomy.Taxonomy
}

// New creates an Analyzer using the given taxonomy for department
// suggestions.
func New(tax *taxonomy.Taxonomy) *Analyzer {
	return &Analyzer{tax: tax}
}

var urgentWords = []string{
	"urgent", "emergency", "immediately", "asap", "critical", "danger",
	"dangerous", "life-threatening", "severe", "fire", "flood", "accident",
}

var negativeWords = []string{
	"broken", "terrible", "awful", "horrible", "angry", "frustrated",
	"unacceptable", "worst", "disgusting", "failed", "useless", "ignored",
	"rude", "corrupt", "bribe", "harassment", "delay", "delayed",
}

var positiveWords = []string{
	"thanks", "thank", "appreciate", "good", "great", "helpful", "resolved",
}

// stopwords are skipped during keyword extraction.
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "this": true,
	"that": true, "have": true, "has": true, "been": true, "was": true,
	"were": true, "from": true, "they": true, "them": true, "their": true,
	"there": true, "about": true, "would": true, "could": true, "should": true,
	"very": true, "also": true, "when": true, "where": true, "what": true,
	"which": true, "your": true, "please": true, "since": true, "into": true,
	"because": true, "still": true, "days": true, "weeks": true,
}

// Analyze scores a description. An empty or whitespace-only description
// yields the neutral defaults.
func (a *Analyzer) Analyze(description string) Analysis {
	out := Analysis{
		Sentiment:  "neutral",
		Priority:   "Medium",
		Urgency:    5,
		Complexity: 5,
		Keywords:   []string{},
		Tags:       []string{},
	}

	text := strings.TrimSpace(description)
	if text == "" {
		return out
	}
	lower := strings.ToLower(text)

	urgentHits := countHits(lower, urgentWords)
	negativeHits := countHits(lower, negativeWords)
	positiveHits := countHits(lower, positiveWords)

	// Sentiment: negative wins ties with positive; urgency alone does not
	// make a complaint negative.
	switch {
	case negativeHits > 0 && negativeHits >= positiveHits:
		out.Sentiment = "negative"
	case positiveHits > negativeHits:
		out.Sentiment = "positive"
	}

	out.Urgency = clamp(5+2*urgentHits+negativeHits, 1, 10)
	switch {
	case out.Urgency >= 9:
		out.Priority = "Urgent"
	case out.Urgency >= 7:
		out.Priority = "High"
	case out.Urgency <= 3:
		out.Priority = "Low"
	}

	words := tokenize(lower)
	out.Keywords = topKeywords(words, 8)

	// Complexity grows with description size and vocabulary.
	out.Complexity = clamp(2+len(words)/25+len(out.Keywords)/3, 1, 10)

	if dept, ok := a.tax.InferDepartment(lower); ok {
		out.SuggestedDepartment = dept
		out.Tags = append(out.Tags, strings.ToLower(strings.ReplaceAll(dept, " ", "-")))
	}
	if urgentHits > 0 {
		out.Tags = append(out.Tags, "urgent")
	}

	return out
}

func countHits(text string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(text, w) {
			n++
		}
	}
	return n
}

func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// topKeywords returns the most frequent non-stopword tokens of length > 3,
// ties broken alphabetically so output is stable.
func topKeywords(words []string, limit int) []string {
	freq := make(map[string]int)
	for _, w := range words {
		if len(w) > 3 && !stopwords[w] {
			freq[w]++
		}
	}

	keys := make([]string, 0, len(freq))
	for w := range freq {
		keys = append(keys, w)
	}
	sort.Slice(keys, func(i, j int) bool {
		if freq[keys[i]] != freq[keys[j]] {
			return freq[keys[i]] > freq[keys[j]]
		}
		return keys[i] < keys[j]
	})

	if len(keys) > limit {
		keys = keys[:limit]
	}
	return keys
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
