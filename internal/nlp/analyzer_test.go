package nlp

import (
	"reflect"
	"testing"

	"github.com/mkale/grievd/internal/taxonomy"
)

func newAnalyzer() *Analyzer {
	return New(taxonomy.Default())
}

func TestAnalyze_Defaults(t *testing.T) {
	a := newAnalyzer()

	got := a.Analyze("   ")
	if got.Sentiment != "neutral" || got.Priority != "Medium" || got.Urgency != 5 || got.Complexity != 5 {
		t.Errorf("empty description should yield defaults, got %+v", got)
	}
}

func TestAnalyze_NegativeSentiment(t *testing.T) {
	a := newAnalyzer()

	got := a.Analyze("The service was terrible and the staff were rude. Totally unacceptable.")
	if got.Sentiment != "negative" {
		t.Errorf("Sentiment = %q, want negative", got.Sentiment)
	}
	if got.Urgency <= 5 {
		t.Errorf("negative words should raise urgency, got %d", got.Urgency)
	}
}

func TestAnalyze_UrgentPriority(t *testing.T) {
	a := newAnalyzer()

	got := a.Analyze("Emergency! A live wire is dangling over the street, this is dangerous and urgent.")
	if got.Priority != "Urgent" {
		t.Errorf("Priority = %q, want Urgent (urgency %d)", got.Priority, got.Urgency)
	}
	if !contains(got.Tags, "urgent") {
		t.Errorf("Tags missing urgent: %v", got.Tags)
	}
}

func TestAnalyze_SuggestedDepartment(t *testing.T) {
	a := newAnalyzer()

	got := a.Analyze("Garbage has not been collected on our street for two weeks and the sewage smells.")
	if got.SuggestedDepartment != "Municipal Services" {
		t.Errorf("SuggestedDepartment = %q, want Municipal Services", got.SuggestedDepartment)
	}
	if !contains(got.Tags, "municipal-services") {
		t.Errorf("Tags missing department tag: %v", got.Tags)
	}
}

func TestAnalyze_Keywords(t *testing.T) {
	a := newAnalyzer()

	got := a.Analyze("water water water pipe leaking near school school")
	if len(got.Keywords) == 0 {
		t.Fatal("no keywords extracted")
	}
	if got.Keywords[0] != "water" {
		t.Errorf("most frequent keyword should rank first, got %v", got.Keywords)
	}
	for _, kw := range got.Keywords {
		if len(kw) <= 3 {
			t.Errorf("short token %q leaked into keywords", kw)
		}
	}
}

func TestAnalyze_Deterministic(t *testing.T) {
	a := newAnalyzer()
	text := "broken streetlight near the school crossing, dangerous for students at night"

	first := a.Analyze(text)
	second := a.Analyze(text)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Analyze not deterministic:\n%+v\n%+v", first, second)
	}
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
