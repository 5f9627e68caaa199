// Package taxonomy holds the reference data the grievance desk routes
// complaints against: the department and category lists shown to users,
// and the keyword rules used to infer a department from free text.
package taxonomy

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Taxonomy is the resolved reference data set. Lists are treated as
// configuration: the defaults below match the portal's standard deployment
// but a custom set can be loaded from a JSON file at startup.
type Taxonomy struct {
	departments []string
	categories  []string
	internal    map[string]bool
	rules       []inferenceRule
}

// inferenceRule maps a compiled keyword group to a canonical department.
// Rules are evaluated in declaration order; the first match wins.
type inferenceRule struct {
	department string
	pattern    *regexp.Regexp
}

// defaultDepartments lists the 8 public-sector departments followed by the
// 5 internal/corporate ones.
var defaultDepartments = []string{
	"Education",
	"Healthcare",
	"Transportation",
	"Municipal Services",
	"Police",
	"Revenue",
	"Agriculture",
	"Environment",
	"IT Support",
	"Human Resources",
	"Finance",
	"Admin & Facilities",
	"Technical Maintenance",
}

// defaultCategories lists the 8 general categories followed by the 7
// technical ones.
var defaultCategories = []string{
	"Infrastructure",
	"Service Delay",
	"Quality Issue",
	"Staff Behavior",
	"Corruption",
	"Safety Concern",
	"Documentation",
	"Other",
	"System Error",
	"Login / Access Issue",
	"Password Reset",
	"Hardware / Device Problem",
	"Network Connectivity",
	"Software Installation",
	"Email / Account Issue",
}

var internalDepartments = []string{
	"IT Support",
	"Human Resources",
	"Finance",
	"Admin & Facilities",
	"Technical Maintenance",
}

// defaultRules is the fixed-priority keyword→department table. Order matters:
// a message mentioning both "computer" and "salary" routes to IT Support.
var defaultRules = []RuleSpec{
	{Department: "IT Support", Keywords: []string{
		"computer", "laptop", "pc", "software", "hardware", "system", "network",
		"wifi", "internet", "connection", "login", "password", "email", "account",
		"access", "error", "crash", "freeze", "slow", "bug", "install", "update",
		"printer", "mouse", "keyboard",
	}},
	{Department: "Human Resources", Keywords: []string{
		"hr", "human resources", "payroll", "salary", "leave", "vacation",
		"holiday", "employee", "staff", "recruitment", "hiring", "resignation",
		"benefits", "insurance", "policy",
	}},
	{Department: "Finance", Keywords: []string{
		"finance", "accounting", "payment", "invoice", "bill", "budget",
		"expense", "reimbursement", "tax", "financial", "money", "cost",
		"purchase", "vendor",
	}},
	{Department: "Admin & Facilities", Keywords: []string{
		"office", "facility", "facilities", "building", "maintenance",
		"cleaning", "security", "parking", "cafeteria", "reception",
		"supplies", "furniture", "room", "space",
	}},
	{Department: "Technical Maintenance", Keywords: []string{
		"repair", "fix", "broken", "damaged", "electrical", "plumbing", "hvac",
		"air conditioning", "heating", "ventilation", "equipment", "machinery",
		"technical",
	}},
	{Department: "Healthcare", Keywords: []string{
		"health", "medical", "hospital", "doctor", "nurse", "medicine",
		"treatment", "patient", "clinic", "pharmacy",
	}},
	{Department: "Education", Keywords: []string{
		"school", "education", "teacher", "student", "class", "exam", "course",
		"college", "university", "study",
	}},
	{Department: "Transportation", Keywords: []string{
		"transport", "bus", "train", "road", "traffic", "vehicle", "driving",
		"metro", "railway",
	}},
	{Department: "Police", Keywords: []string{
		"police", "crime", "theft", "safety", "law", "legal", "court", "justice",
	}},
	{Department: "Municipal Services", Keywords: []string{
		"water", "sanitation", "waste", "garbage", "sewage", "drainage",
		"street", "light", "municipal",
	}},
}

// RuleSpec is the serializable form of an inference rule.
type RuleSpec struct {
	Department string   `json:"department"`
	Keywords   []string `json:"keywords"`
}

// fileSpec is the on-disk layout for custom taxonomy files. Any empty
// section falls back to the defaults.
type fileSpec struct {
	Departments         []string   `json:"departments"`
	Categories          []string   `json:"categories"`
	InternalDepartments []string   `json:"internal_departments"`
	Rules               []RuleSpec `json:"rules"`
}

// Default returns the built-in taxonomy.
func Default() *Taxonomy {
	t, err := build(defaultDepartments, defaultCategories, internalDepartments, defaultRules)
	if err != nil {
		// Built-in tables are static; a compile failure here is a bug.
		panic(err)
	}
	return t
}

// LoadFile reads a custom taxonomy from a JSON file, filling any omitted
// section with the defaults.
func LoadFile(path string) (*Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading taxonomy file: %w", err)
	}

	var spec fileSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parsing taxonomy file %s: %w", path, err)
	}

	deps := spec.Departments
	if len(deps) == 0 {
		deps = defaultDepartments
	}
	cats := spec.Categories
	if len(cats) == 0 {
		cats = defaultCategories
	}
	internal := spec.InternalDepartments
	if len(internal) == 0 {
		internal = internalDepartments
	}
	rules := spec.Rules
	if len(rules) == 0 {
		rules = defaultRules
	}

	return build(deps, cats, internal, rules)
}

func build(deps, cats, internal []string, rules []RuleSpec) (*Taxonomy, error) {
	t := &Taxonomy{
		departments: deps,
		categories:  cats,
		internal:    make(map[string]bool, len(internal)),
	}
	for _, d := range internal {
		t.internal[strings.ToLower(d)] = true
	}

	for _, r := range rules {
		if r.Department == "" || len(r.Keywords) == 0 {
			return nil, fmt.Errorf("taxonomy rule for %q has no keywords", r.Department)
		}
		escaped := make([]string, len(r.Keywords))
		for i, kw := range r.Keywords {
			escaped[i] = regexp.QuoteMeta(strings.ToLower(kw))
		}
		pat, err := regexp.Compile(`\b(?:` + strings.Join(escaped, "|") + `)\b`)
		if err != nil {
			return nil, fmt.Errorf("compiling keywords for %q: %w", r.Department, err)
		}
		t.rules = append(t.rules, inferenceRule{department: r.Department, pattern: pat})
	}

	return t, nil
}

// Departments returns the canonical department list in display order.
func (t *Taxonomy) Departments() []string { return t.departments }

// Categories returns the canonical category list in display order.
func (t *Taxonomy) Categories() []string { return t.categories }

// IsInternal reports whether a department is an internal/corporate one
// (as opposed to a public-sector department).
func (t *Taxonomy) IsInternal(department string) bool {
	return t.internal[strings.ToLower(department)]
}

// MatchDepartment resolves user input against the department list. Input is
// accepted as a 1-based index or a case-insensitive exact name; the canonical
// list entry is returned. No fuzzy matching.
func (t *Taxonomy) MatchDepartment(input string) (string, bool) {
	return matchList(t.departments, input)
}

// MatchCategory resolves user input against the category list with the same
// scheme as MatchDepartment.
func (t *Taxonomy) MatchCategory(input string) (string, bool) {
	return matchList(t.categories, input)
}

func matchList(list []string, input string) (string, bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", false
	}

	// Integer parse first.
	if n, err := strconv.Atoi(input); err == nil {
		if n >= 1 && n <= len(list) {
			return list[n-1], true
		}
		return "", false
	}

	for _, entry := range list {
		if strings.EqualFold(entry, input) {
			return entry, true
		}
	}
	return "", false
}

// InferDepartment scans free text against the keyword rules in priority
// order and returns the first matching department.
func (t *Taxonomy) InferDepartment(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, r := range t.rules {
		if r.pattern.MatchString(lower) {
			return r.department, true
		}
	}
	return "", false
}
