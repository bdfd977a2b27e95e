package anonymize

import (
	"regexp"
	"strings"
)

// DefaultQuestionFavoringTypes are the entity types preserved verbatim
// when they appear in question context: the upstream model still needs
// to know who/what/where is being asked about.
var DefaultQuestionFavoringTypes = map[string]bool{
	"PERSON":       true,
	"ORGANIZATION": true,
	"LOCATION":     true,
}

var wholeTextQuestionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*(who|what|where|when|why|how|which|whose|whom|is|are|do|does|can|could|would|should|will)\b`),
	regexp.MustCompile(`(?i)(tell me|describe|explain|introduce)`),
	regexp.MustCompile(`(?i)(do you know|have you heard)`),
}

var questionContextPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(what is|who is)`),
	regexp.MustCompile(`(?i)(explain|describe|introduce|tell me about)`),
}

var statementContextPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(call|email|text|send|write|notify)\b`),
	regexp.MustCompile(`(?i)('s phone|'s email|'s address)`),
}

// IntentDetector classifies whether a PII span sits inside a question
// about the entity (preserve it so the model knows what's being asked)
// or a statement using it (anonymize it), using a two-tier heuristic:
// first check whether the whole message reads as a question, then fall
// back to a fixed window of context around the span.
type IntentDetector struct {
	contextWindow int
	favoring      map[string]bool
}

// NewIntentDetector creates an IntentDetector that preserves entities of
// the given types in question context. A nil or empty favoring map
// falls back to DefaultQuestionFavoringTypes.
func NewIntentDetector(favoring map[string]bool) *IntentDetector {
	if len(favoring) == 0 {
		favoring = DefaultQuestionFavoringTypes
	}
	return &IntentDetector{contextWindow: 50, favoring: favoring}
}

// FavorsQuestionContext reports whether entityType is exempt from
// anonymization when found in question context.
func (d *IntentDetector) FavorsQuestionContext(entityType string) bool {
	return d.favoring[strings.ToUpper(entityType)]
}

func isQuestionText(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	if strings.HasSuffix(trimmed, "?") {
		return true
	}
	for _, p := range wholeTextQuestionPatterns {
		if p.MatchString(trimmed) {
			return true
		}
	}
	return false
}

// IsQuestionContext reports whether the span [start,end) in text is
// being asked about rather than stated. It first checks whether the
// whole message is a question, then falls back to a context window
// around the span.
func (d *IntentDetector) IsQuestionContext(text string, start, end int) bool {
	if text == "" || start < 0 || end > len(text) || start > end {
		return false
	}
	if isQuestionText(text) {
		return true
	}

	lo := start - d.contextWindow
	if lo < 0 {
		lo = 0
	}
	hi := end + d.contextWindow
	if hi > len(text) {
		hi = len(text)
	}
	context := text[lo:hi]

	for _, p := range questionContextPatterns {
		if p.MatchString(context) {
			return true
		}
	}
	for _, p := range statementContextPatterns {
		if p.MatchString(context) {
			return false
		}
	}
	return false
}

// ShouldPreserve decides whether the entityType span at [start,end) in
// text should be left untouched rather than anonymized. Allowlisted
// spans never reach this call — the detector registry already drops
// them before the anonymizer sees any spans.
func (d *IntentDetector) ShouldPreserve(entityType, text string, start, end int) bool {
	if !d.FavorsQuestionContext(entityType) {
		return false
	}
	return d.IsQuestionContext(text, start, end)
}
