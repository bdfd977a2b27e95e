// Package placeholder implements the wire-level grammar for PII
// placeholders shared by the anonymizer, deanonymizer, and stream buffer:
//
//	placeholder := "<" TYPE "_" INTEGER ">"
//	TYPE        := [A-Z][A-Z0-9_]*
//	INTEGER     := [1-9][0-9]*
//
// Neither "<" nor ">" may appear inside a placeholder, and the total
// length is bounded (DefaultMaxLength unless configured otherwise).
// Parse, IsValid, FindAll and FindAllIndex check the grammar only; they
// do not enforce the length bound.
package placeholder

import (
	"fmt"
	"regexp"
	"strconv"
)

// DefaultMaxLength is the default upper bound on a placeholder's total
// length, e.g. "<CREDIT_CARD_999>". Individual deployments may configure
// a different value; components that need the bound take it explicitly
// rather than reading this constant, so it is only the default.
const DefaultMaxLength = 25

// pattern matches a single bit-exact placeholder and captures TYPE and N.
var pattern = regexp.MustCompile(`^<([A-Z][A-Z0-9_]*)_([1-9][0-9]*)>$`)

// findPattern is the same grammar, usable with FindAllStringIndex over
// arbitrary text rather than requiring a full-string match.
var findPattern = regexp.MustCompile(`<[A-Z][A-Z0-9_]*_[1-9][0-9]*>`)

// Format renders a placeholder for the given entity type and index.
// entityType must already be uppercase; callers normalize before calling.
func Format(entityType string, index int) string {
	return fmt.Sprintf("<%s_%d>", entityType, index)
}

// Parse splits a bit-exact placeholder into its entity type and index.
// ok is false if s is not a well-formed placeholder per the grammar.
func Parse(s string) (entityType string, index int, ok bool) {
	m := pattern.FindStringSubmatch(s)
	if m == nil {
		return "", 0, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return m[1], n, true
}

// IsValid reports whether s is a bit-exact placeholder.
func IsValid(s string) bool {
	return pattern.MatchString(s)
}

// FindAll returns every bit-exact placeholder occurrence in text, in
// left-to-right order.
func FindAll(text string) []string {
	return findPattern.FindAllString(text, -1)
}

// FindAllIndex returns the byte-offset ranges of every bit-exact
// placeholder occurrence in text, in left-to-right order.
func FindAllIndex(text string) [][]int {
	return findPattern.FindAllStringIndex(text, -1)
}
