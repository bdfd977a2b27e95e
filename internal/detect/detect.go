// Package detect implements the detector registry (C3): composition of
// independently-authored PII detectors into one canonical, non-overlapping
// list of spans per request.
package detect

import (
	"sort"
	"strings"
	"sync/atomic"
)

// Span is a single detection result: a half-open character range
// carrying the entity type a detector assigned it, the detector's
// confidence, and the literal text it matched.
type Span struct {
	EntityType   string
	Start        int
	End          int
	Score        float64
	OriginalText string
}

// Length returns the span's character length.
func (s Span) Length() int { return s.End - s.Start }

// overlaps reports whether s and other share any character position.
func (s Span) overlaps(other Span) bool {
	return s.Start < other.End && other.Start < s.End
}

// Detector is the black-box seam every concrete PII detector (name,
// phone, email, credit card, IP, custom regex, ...) implements. The
// registry never inspects how a detector works, only what it returns.
type Detector interface {
	// Name identifies the detector for logging and metrics.
	Name() string
	// Detect returns every candidate span it finds in text. lang is a
	// BCP-47-ish language hint; detectors that are language-agnostic may
	// ignore it.
	Detect(text, lang string) []Span
}

// Registry composes a fixed set of detectors and an allowlist into the
// five-step resolution algorithm. A Registry is stateless across
// requests: Resolve has no side effects and is safe for concurrent use.
type Registry struct {
	detectors []Detector
	allowlist map[string]struct{}
}

// New creates a Registry from a fixed set of detectors and an allowlist
// of terms that must never be treated as PII, matched case-insensitively.
func New(detectors []Detector, allowlist []string) *Registry {
	set := make(map[string]struct{}, len(allowlist))
	for _, term := range allowlist {
		set[strings.ToLower(term)] = struct{}{}
	}
	return &Registry{detectors: detectors, allowlist: set}
}

// Detectors returns the registry's configured detectors, in registration
// order.
func (r *Registry) Detectors() []Detector {
	return r.detectors
}

// Resolve runs every detector over text, then applies the composition
// algorithm:
//  1. collect all candidate spans from every detector,
//  2. drop spans whose text matches the allowlist (case-insensitive),
//  3. sort by (-score, -length, start),
//  4. greedily accept non-overlapping spans in that order,
//  5. re-sort accepted spans by start.
func (r *Registry) Resolve(text, lang string) []Span {
	var candidates []Span
	for _, d := range r.detectors {
		candidates = append(candidates, d.Detect(text, lang)...)
	}
	return resolveSpans(candidates, r.allowlist)
}

func resolveSpans(candidates []Span, allowlist map[string]struct{}) []Span {
	filtered := candidates[:0:0]
	for _, s := range candidates {
		if _, blocked := allowlist[strings.ToLower(s.OriginalText)]; blocked {
			continue
		}
		filtered = append(filtered, s)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		a, b := filtered[i], filtered[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Length() != b.Length() {
			return a.Length() > b.Length()
		}
		return a.Start < b.Start
	})

	var accepted []Span
	for _, s := range filtered {
		conflict := false
		for _, a := range accepted {
			if s.overlaps(a) {
				conflict = true
				break
			}
		}
		if !conflict {
			accepted = append(accepted, s)
		}
	}

	sort.SliceStable(accepted, func(i, j int) bool {
		return accepted[i].Start < accepted[j].Start
	})
	return accepted
}

// HotSwap is a concurrency-safe holder for a *Registry that supports
// zero-downtime reconfiguration: a new Registry (rebuilt detector set or
// allowlist) atomically replaces the old one, and in-flight calls to
// Current keep using whichever snapshot they already loaded.
type HotSwap struct {
	ptr atomic.Pointer[Registry]
}

// NewHotSwap wraps an initial Registry for hot-reload.
func NewHotSwap(initial *Registry) *HotSwap {
	h := &HotSwap{}
	h.ptr.Store(initial)
	return h
}

// Current returns the currently active Registry snapshot.
func (h *HotSwap) Current() *Registry {
	return h.ptr.Load()
}

// Replace atomically swaps in a new Registry snapshot.
func (h *HotSwap) Replace(r *Registry) {
	h.ptr.Store(r)
}
