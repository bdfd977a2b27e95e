package deanonymize

import (
	"regexp"
	"strings"

	"github.com/hfi/llm-secret-interceptor/internal/mapping"
)

// fuzzyVariant is one recognized way an upstream model might mangle a
// placeholder while still clearly meaning it.
type fuzzyVariant struct {
	name       string
	pattern    *regexp.Regexp
	confidence float64
	// gated marks variants whose confidence is compared against the
	// deanonymizer's configurable threshold rather than always accepted.
	gated bool
}

// fuzzyVariants mirrors the variant classes: case, whitespace, brackets,
// separator, and bare. "Trailing punctuation" is not a separate pattern
// here: the bit-exact grammar's angle brackets already isolate a
// placeholder from any punctuation that follows it, so the exact pass
// in Deanonymize handles "<PERSON_1>." without any fuzzy help.
var fuzzyVariants = []fuzzyVariant{
	{
		name:       "case",
		pattern:    regexp.MustCompile(`<([A-Za-z][A-Za-z0-9_]*)_([1-9][0-9]*)>`),
		confidence: 0.95,
	},
	{
		name:       "whitespace",
		pattern:    regexp.MustCompile(`<\s*([A-Za-z][A-Za-z0-9_]*)\s*[_\s]\s*([1-9][0-9]*)\s*>`),
		confidence: 0.90,
	},
	{
		name:       "brackets",
		pattern:    regexp.MustCompile(`\{\{\s*([A-Za-z][A-Za-z0-9_]*)[_\s]([1-9][0-9]*)\s*\}\}|[\[{(]\s*([A-Za-z][A-Za-z0-9_]*)[_\s]([1-9][0-9]*)\s*[\]})]`),
		confidence: 0.85,
	},
	{
		name:       "separator",
		pattern:    regexp.MustCompile(`<([A-Za-z][A-Za-z0-9_]*)[-:#]([1-9][0-9]*)>`),
		confidence: 0.90,
	},
	{
		name:       "bare",
		pattern:    regexp.MustCompile(`\b([A-Za-z][A-Za-z0-9_]*)_([1-9][0-9]*)\b`),
		confidence: 0.85,
		gated:      true,
	},
}

// fuzzyCandidates scans text for every fuzzy variant and returns a
// candidate for each match whose normalized placeholder is known to m
// and, for gated variants, whose confidence clears the threshold.
func (d *Deanonymizer) fuzzyCandidates(text string, m *mapping.Mapping) []candidate {
	var out []candidate

	for _, v := range fuzzyVariants {
		for _, match := range v.pattern.FindAllStringSubmatchIndex(text, -1) {
			entityType, index, ok := extractGroups(text, match)
			if !ok {
				continue
			}
			normalized := "<" + entityType + "_" + index + ">"

			original, found := m.Original(normalized)
			if !found {
				continue
			}

			confidence := v.confidence
			if v.gated && confidence < d.bareConfidenceThreshold {
				continue
			}

			out = append(out, candidate{
				start:       match[0],
				end:         match[1],
				confidence:  confidence,
				replacement: original,
				placeholder: normalized,
			})
		}
	}
	return out
}

// extractGroups pulls the (entityType, index) capture pair out of a
// FindAllStringSubmatchIndex match. Alternation patterns (the
// bracket variant) have more than one (type, index)
// capture-group pair, one per alternative branch; only the branch that
// actually fired has non-negative offsets.
func extractGroups(text string, match []int) (entityType, index string, ok bool) {
	groups := match[2:] // drop the whole-match (start,end) pair
	for i := 0; i+4 <= len(groups); i += 4 {
		ts, te, is, ie := groups[i], groups[i+1], groups[i+2], groups[i+3]
		if ts == -1 || is == -1 {
			continue
		}
		entityType = strings.ToUpper(strings.ReplaceAll(text[ts:te], "-", "_"))
		index = text[is:ie]
		return entityType, index, true
	}
	return "", "", false
}
