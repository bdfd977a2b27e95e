// Package deanonymize implements the deanonymizer (C6): restoring
// original PII values into response text by reversing the placeholders
// (or placeholder-like variants an upstream model may have mangled)
// a mapping knows about.
package deanonymize

import (
	"sort"

	"github.com/hfi/llm-secret-interceptor/internal/mapping"
	"github.com/hfi/llm-secret-interceptor/pkg/placeholder"
)

// DefaultBareConfidenceThreshold is the minimum confidence a "bare"
// (bracket-less) fuzzy match must clear to be restored.
const DefaultBareConfidenceThreshold = 0.85

// Result is the outcome of deanonymizing one piece of text.
type Result struct {
	Text          string
	ReplacedCount int
	// Unresolved lists every bit-exact placeholder found in the text
	// that the mapping has no entry for — e.g. because its TTL expired
	// mid-request. This is reported for observability, never an error.
	Unresolved []string
}

// Deanonymizer restores placeholders to their original values.
type Deanonymizer struct {
	enableFuzzy             bool
	bareConfidenceThreshold float64
}

// New creates a Deanonymizer. bareConfidenceThreshold gates only the
// bracket-less "bare" fuzzy variant; pass DefaultBareConfidenceThreshold
// for the standard behavior.
func New(enableFuzzy bool, bareConfidenceThreshold float64) *Deanonymizer {
	return &Deanonymizer{
		enableFuzzy:             enableFuzzy,
		bareConfidenceThreshold: bareConfidenceThreshold,
	}
}

// candidate is a region of text that is either a resolved restoration
// (replacement is non-empty) or a reserved, unresolved placeholder that
// blocks fuzzy matches from reinterpreting the same bytes.
type candidate struct {
	start, end  int
	confidence  float64
	replacement string // empty if unresolved
	placeholder string
}

// Deanonymize restores every placeholder (exact and, if enabled, fuzzy)
// in text using m.
func (d *Deanonymizer) Deanonymize(text string, m *mapping.Mapping) Result {
	if text == "" {
		return Result{}
	}

	var candidates []candidate
	var unresolved []string

	for _, idx := range placeholder.FindAllIndex(text) {
		start, end := idx[0], idx[1]
		ph := text[start:end]
		if original, ok := m.Original(ph); ok {
			candidates = append(candidates, candidate{
				start: start, end: end, confidence: 1.0,
				replacement: original, placeholder: ph,
			})
		} else {
			unresolved = append(unresolved, ph)
			candidates = append(candidates, candidate{
				start: start, end: end, confidence: 1.0, placeholder: ph,
			})
		}
	}

	if d.enableFuzzy {
		candidates = append(candidates, d.fuzzyCandidates(text, m)...)
	}

	accepted := resolveCandidates(candidates)

	var b []byte
	cursor := 0
	replaced := 0
	for _, c := range accepted {
		b = append(b, text[cursor:c.start]...)
		if c.replacement != "" {
			b = append(b, c.replacement...)
			replaced++
		} else {
			b = append(b, text[c.start:c.end]...)
		}
		cursor = c.end
	}
	b = append(b, text[cursor:]...)

	return Result{
		Text:          string(b),
		ReplacedCount: replaced,
		Unresolved:    unresolved,
	}
}

// resolveCandidates applies the same overlap-resolution shape as the
// detector registry: sort by (-confidence, -length, start), greedily
// accept non-overlapping candidates, then re-sort by start.
func resolveCandidates(candidates []candidate) []candidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.confidence != b.confidence {
			return a.confidence > b.confidence
		}
		lenA, lenB := a.end-a.start, b.end-b.start
		if lenA != lenB {
			return lenA > lenB
		}
		return a.start < b.start
	})

	var accepted []candidate
	for _, c := range candidates {
		conflict := false
		for _, a := range accepted {
			if c.start < a.end && a.start < c.end {
				conflict = true
				break
			}
		}
		if !conflict {
			accepted = append(accepted, c)
		}
	}

	sort.SliceStable(accepted, func(i, j int) bool {
		return accepted[i].start < accepted[j].start
	})
	return accepted
}
