// Package strategy implements the strategy engine (C4): the per-entity
// -type dispatch that decides how a detected PII value is rewritten —
// as a numbered placeholder, a realistic synthetic value, a one-way
// hash, a partial mask, or a fixed redaction token.
package strategy

import "strings"

// Strategy renders the wire-level replacement for one detected value.
// Render must be a pure function of its arguments: the same
// (entityType, original, index) triple always produces the same text,
// which is what lets the engine guarantee repeat occurrences collapse
// to one wire value.
type Strategy interface {
	// Name identifies the strategy (e.g. "placeholder", "hash").
	Name() string
	// Reversible reports whether values rewritten by this strategy may
	// be restored from the mapping. Only reversible strategies are
	// inserted into the mapping by the anonymizer.
	Reversible() bool
	// Render produces the wire-level text for original. index is the
	// 1-based per-(mapping, entityType) counter value; strategies that
	// don't need it (hash, mask, redact) ignore it.
	Render(entityType, original string, index int) string
}

// DefaultStrategies is the out-of-the-box entity-type → strategy-name
// table. Deployments may override individual entries via configuration;
// any entity type absent from the table falls back to "placeholder".
var DefaultStrategies = map[string]string{
	"PERSON":       "placeholder",
	"EMAIL":        "placeholder",
	"PHONE":        "placeholder",
	"PHONE_NUMBER": "placeholder",
	"CREDIT_CARD":  "mask",
	"ID_CARD":      "mask",
	"IP":           "mask",
	"IP_ADDRESS":   "mask",
	"ORGANIZATION": "placeholder",
	"ADDRESS":      "placeholder",
}

// Engine dispatches to one of the five built-in strategies (or any
// registered custom strategy) per entity type.
type Engine struct {
	strategies map[string]Strategy
	assignment map[string]string // entityType -> strategy name
	fallback   string
}

// NewEngine builds an Engine from the standard five strategies plus an
// entity-type→strategy-name assignment. A nil or empty assignment map
// falls back to DefaultStrategies. redactMarker configures the redact
// strategy's token (empty uses its default). syntheticSeed seeds the
// synthetic strategy's fake-value generator; callers pass a per-mapping
// value (the mapping id) so the same original value maps to different
// synthetic stand-ins across unrelated requests.
func NewEngine(assignment map[string]string, redactMarker, syntheticSeed string) *Engine {
	if len(assignment) == 0 {
		assignment = DefaultStrategies
	}

	e := &Engine{
		strategies: map[string]Strategy{},
		assignment: assignment,
		fallback:   "placeholder",
	}
	e.Register(PlaceholderStrategy{})
	e.Register(NewSyntheticStrategy(syntheticSeed))
	e.Register(HashStrategy{})
	e.Register(MaskStrategy{})
	e.Register(NewRedactStrategy(redactMarker))
	return e
}

// Register adds or replaces a strategy by name, letting callers plug in
// custom strategies beyond the five built-ins.
func (e *Engine) Register(s Strategy) {
	e.strategies[s.Name()] = s
}

// Select returns the strategy assigned to entityType, falling back to
// the engine's default ("placeholder") if entityType has no explicit
// assignment or the assigned name is unknown.
func (e *Engine) Select(entityType string) Strategy {
	name, ok := e.assignment[strings.ToUpper(entityType)]
	if !ok {
		name = e.fallback
	}
	s, ok := e.strategies[name]
	if !ok {
		return e.strategies[e.fallback]
	}
	return s
}
