package detect

import "regexp"

// Rule binds a compiled pattern to the entity type and confidence score
// its matches should carry.
type Rule struct {
	EntityType string
	Pattern    *regexp.Regexp
	Score      float64
}

// RegexDetector is a Detector built from a fixed set of compiled regex
// rules. It is the only built-in Detector this package ships: real
// name/address/ID detectors are external collaborators that satisfy
// the same interface and register alongside it.
type RegexDetector struct {
	name  string
	rules []Rule
}

// NewRegexDetector builds a RegexDetector from rules, under the given
// name (used for logging and metrics).
func NewRegexDetector(name string, rules []Rule) *RegexDetector {
	return &RegexDetector{name: name, rules: rules}
}

func (d *RegexDetector) Name() string { return d.name }

// Detect runs every rule over text and returns one Span per match,
// regardless of lang — regex rules are language-agnostic.
func (d *RegexDetector) Detect(text, _ string) []Span {
	var spans []Span
	for _, rule := range d.rules {
		locs := rule.Pattern.FindAllStringIndex(text, -1)
		for _, loc := range locs {
			start, end := loc[0], loc[1]
			spans = append(spans, Span{
				EntityType:   rule.EntityType,
				Start:        start,
				End:          end,
				Score:        rule.Score,
				OriginalText: text[start:end],
			})
		}
	}
	return spans
}

// BuiltinRules is the default rule set: common, high-precision PII
// formats that don't need a full NLP model to recognize.
func BuiltinRules() []Rule {
	return []Rule{
		{
			EntityType: "EMAIL",
			Pattern:    regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`),
			Score:      0.95,
		},
		{
			EntityType: "PHONE",
			Pattern:    regexp.MustCompile(`(?:\+1[\s.\-]?)?\(?\d{3}\)?[\s.\-]?\d{3}[\s.\-]?\d{4}\b`),
			Score:      0.8,
		},
		{
			EntityType: "SSN",
			Pattern:    regexp.MustCompile(`\b\d{3}[\s\-]\d{2}[\s\-]\d{4}\b`),
			Score:      0.9,
		},
		{
			EntityType: "CREDIT_CARD",
			Pattern:    regexp.MustCompile(`\b\d{4}[\s\-]\d{4}[\s\-]\d{4}[\s\-]\d{4}\b`),
			Score:      0.9,
		},
		{
			EntityType: "IP_ADDRESS",
			Pattern:    regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4]\d|1?\d?\d)\.){3}(?:25[0-5]|2[0-4]\d|1?\d?\d)\b`),
			Score:      0.6,
		},
	}
}

// NewBuiltinDetector returns a RegexDetector preloaded with BuiltinRules.
func NewBuiltinDetector() *RegexDetector {
	return NewRegexDetector("regex", BuiltinRules())
}

func compileRulePattern(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile(pattern)
}
