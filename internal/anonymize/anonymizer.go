// Package anonymize implements the anonymizer (C5): the orchestration
// step that turns detector spans into a rewritten request body and the
// mapping that can later restore it.
package anonymize

import (
	"fmt"
	"strings"

	"github.com/hfi/llm-secret-interceptor/internal/detect"
	"github.com/hfi/llm-secret-interceptor/internal/mapping"
	"github.com/hfi/llm-secret-interceptor/internal/strategy"
)

// InjectionNoticeFormat is the fixed system message prepended to a
// request's message list when prompt injection is enabled. %s is the
// placeholder grammar description; InjectionNotice fills it in.
const InjectionNoticeFormat = "The text below contains placeholders of the form %s. " +
	"These placeholders stand in for information that has been removed. " +
	"You must preserve every placeholder exactly as written, verbatim, in your response. " +
	"Do not alter, translate, explain, or omit a placeholder."

// DefaultPlaceholderGrammarHint is substituted into InjectionNoticeFormat
// when the caller has no more specific description to offer.
const DefaultPlaceholderGrammarHint = "<TYPE_N> (e.g. <PERSON_1>, <EMAIL_2>)"

// Result is the outcome of anonymizing one piece of text: the rewritten
// text plus the mapping created (or added to) along the way.
type Result struct {
	Text    string
	Mapping *mapping.Mapping
}

// Anonymizer orchestrates the detector registry, strategy engine, and
// mapping to rewrite PII out of request text.
type Anonymizer struct {
	registry *detect.HotSwap
	engines  func(seed string) *strategy.Engine
	intent   *IntentDetector
}

// New creates an Anonymizer over a hot-swappable detector registry.
// newEngine builds a fresh strategy engine per mapping, seeded so the
// synthetic strategy varies its output across unrelated requests; pass
// a function that closes over the deployment's entity-type assignment
// and redact marker. intent, if non-nil, exempts question-context spans
// of its favored entity types from anonymization; pass nil to disable
// the exemption entirely.
func New(registry *detect.HotSwap, newEngine func(seed string) *strategy.Engine, intent *IntentDetector) *Anonymizer {
	return &Anonymizer{registry: registry, engines: newEngine, intent: intent}
}

// Anonymize detects PII in text and rewrites it, recording reversible
// substitutions into m. lang is a language hint passed through to
// detectors.
func (a *Anonymizer) Anonymize(text, lang string, m *mapping.Mapping) Result {
	spans := a.registry.Current().Resolve(text, lang)
	if len(spans) == 0 {
		return Result{Text: text, Mapping: m}
	}

	engine := a.engines(m.ID())

	var b strings.Builder
	cursor := 0
	for _, span := range spans {
		b.WriteString(text[cursor:span.Start])

		original := text[span.Start:span.End]

		if a.intent != nil && a.intent.ShouldPreserve(span.EntityType, text, span.Start, span.End) {
			b.WriteString(original)
			cursor = span.End
			continue
		}

		s := engine.Select(span.EntityType)

		var wire string
		if s.Reversible() {
			wire = m.GetOrAssign(span.EntityType, original, func(index int) string {
				return s.Render(span.EntityType, original, index)
			})
			if s.Name() == "hash" {
				m.PutHash(wire, span.EntityType, original)
			}
		} else {
			wire = s.Render(span.EntityType, original, 0)
		}

		b.WriteString(wire)
		cursor = span.End
	}
	b.WriteString(text[cursor:])

	return Result{Text: b.String(), Mapping: m}
}

// InjectionNotice renders the anti-hallucination system message for the
// given grammar hint, or DefaultPlaceholderGrammarHint if hint is empty.
func InjectionNotice(hint string) string {
	if hint == "" {
		hint = DefaultPlaceholderGrammarHint
	}
	return fmt.Sprintf(InjectionNoticeFormat, hint)
}
