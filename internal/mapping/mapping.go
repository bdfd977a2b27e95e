// Package mapping implements the bidirectional association between
// original PII values and the placeholders that replace them in an
// anonymized request, plus the per-mapping numbering that keeps those
// placeholders dense and stable within one request/response cycle.
package mapping

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hfi/llm-secret-interceptor/pkg/placeholder"
)

// Entry is a single original-value/placeholder pairing, recording the
// entity type so the same literal under two different entity types does
// not collide.
type Entry struct {
	EntityType    string    `json:"entity_type"`
	OriginalValue string    `json:"original_value"`
	Placeholder   string    `json:"placeholder"`
	CreatedAt     time.Time `json:"created_at"`
}

// Mapping is a thread-safe, append-only bidirectional index between
// original PII values and their placeholders, scoped to one request.
// The zero value is not usable; construct with New.
type Mapping struct {
	mu sync.RWMutex

	id        string
	tenantID  string
	createdAt time.Time
	ttl       time.Duration

	counter *Counter

	// forward[entityType][original] = placeholder
	forward map[string]map[string]string
	// reverse[placeholder] = entry
	reverse map[string]Entry
	// hashIndex[digest] = {original, entity type}, populated by the hash
	// strategy so a stable digest can be reversed back to the literal it
	// was derived from without storing the digest inside the placeholder
	// itself.
	hashIndex map[string]HashEntry

	entries []Entry
}

// HashEntry is one entry in the hash-strategy shadow index: the original
// value a digest was derived from, and the entity type it was detected
// as (digests are computed over entityType+original, so both are needed
// to reproduce or audit the pairing).
type HashEntry struct {
	Original   string `json:"original"`
	EntityType string `json:"entity_type"`
}

// New creates an empty mapping with a fresh, cryptographically random ID.
func New(tenantID string, ttl time.Duration) *Mapping {
	return &Mapping{
		id:        uuid.NewString(),
		tenantID:  tenantID,
		createdAt: time.Now(),
		ttl:       ttl,
		counter:   NewCounter(),
		forward:   make(map[string]map[string]string),
		reverse:   make(map[string]Entry),
		hashIndex: make(map[string]HashEntry),
	}
}

// ID returns the mapping's unique identifier.
func (m *Mapping) ID() string { return m.id }

// TenantID returns the tenant this mapping was created for.
func (m *Mapping) TenantID() string { return m.tenantID }

// CreatedAt returns the mapping's creation time.
func (m *Mapping) CreatedAt() time.Time { return m.createdAt }

// TTL returns the mapping's configured time-to-live.
func (m *Mapping) TTL() time.Duration { return m.ttl }

// Add records original as an instance of entityType under the bit-exact
// `<TYPE_N>` placeholder grammar and returns the placeholder assigned to
// it. Add is idempotent on (entityType, original): a second call with
// the same pair returns the placeholder already assigned, without
// consuming a new counter slot. It is a convenience wrapper over
// GetOrAssign for the common placeholder-strategy case.
func (m *Mapping) Add(entityType, original string) string {
	return m.GetOrAssign(entityType, original, func(index int) string {
		return placeholder.Format(entityType, index)
	})
}

// GetOrAssign is the general entry point reversible strategies use: it
// looks up an existing wire value for (entityType, original), or, on
// first sight of the pair, allocates the next counter index for
// entityType, calls render to produce the wire value, and records it.
// render is never called for a pair that already has an assignment, so
// strategies may do work in render without worrying about double
// invocation.
func (m *Mapping) GetOrAssign(entityType, original string, render func(index int) string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if byOriginal, ok := m.forward[entityType]; ok {
		if wire, ok := byOriginal[original]; ok {
			return wire
		}
	} else {
		m.forward[entityType] = make(map[string]string)
	}

	wire := render(m.counter.Next(entityType))
	m.forward[entityType][original] = wire

	entry := Entry{
		EntityType:    entityType,
		OriginalValue: original,
		Placeholder:   wire,
		CreatedAt:     time.Now(),
	}
	m.reverse[wire] = entry
	m.entries = append(m.entries, entry)
	return wire
}

// Placeholder returns the placeholder already assigned to original under
// entityType, and whether one exists.
func (m *Mapping) Placeholder(entityType, original string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byOriginal, ok := m.forward[entityType]
	if !ok {
		return "", false
	}
	ph, ok := byOriginal[original]
	return ph, ok
}

// Original returns the original value a placeholder was created from,
// and whether that placeholder is known to this mapping.
func (m *Mapping) Original(ph string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.reverse[ph]
	if !ok {
		return "", false
	}
	return entry.OriginalValue, true
}

// Entry returns the full entry a placeholder was created from.
func (m *Mapping) Entry(ph string) (Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.reverse[ph]
	return entry, ok
}

// AllPlaceholders returns every placeholder this mapping has assigned,
// in assignment order.
func (m *Mapping) AllPlaceholders() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Placeholder
	}
	return out
}

// Entries returns every entry this mapping has assigned, in assignment
// order, across all entity types.
func (m *Mapping) Entries() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// EntriesByType returns every entry recorded for entityType, in
// assignment order.
func (m *Mapping) EntriesByType(entityType string) []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Entry
	for _, e := range m.entries {
		if e.EntityType == entityType {
			out = append(out, e)
		}
	}
	return out
}

// PutHash records digest as the reversible hash of (entityType, original),
// for use by the hash strategy. PutHash is idempotent: the first writer
// for a given digest wins, matching Add's treatment of hash collisions
// as a single shared identity.
func (m *Mapping) PutHash(digest, entityType, original string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.hashIndex[digest]; !exists {
		m.hashIndex[digest] = HashEntry{Original: original, EntityType: entityType}
	}
}

// OriginalFromHash reverses a digest produced by PutHash.
func (m *Mapping) OriginalFromHash(digest string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.hashIndex[digest]
	return entry.Original, ok
}

// Len returns the number of distinct placeholders in the mapping.
func (m *Mapping) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.reverse)
}

// Contains reports whether ph is a placeholder known to this mapping.
func (m *Mapping) Contains(ph string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.reverse[ph]
	return ok
}

// record is the JSON wire representation of a Mapping: a flat envelope,
// an ordered entry list, and the hash-strategy shadow index, matching
// the persisted-state layout.
type record struct {
	MappingID string               `json:"mapping_id"`
	TenantID  string               `json:"tenant_id"`
	CreatedAt time.Time            `json:"created_at"`
	TTL       string               `json:"ttl"`
	Entries   []Entry              `json:"entries"`
	HashIndex map[string]HashEntry `json:"hash_index,omitempty"`
}

// MarshalJSON serializes the mapping to its wire record.
func (m *Mapping) MarshalJSON() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]Entry, len(m.entries))
	copy(entries, m.entries)

	var hashIndex map[string]HashEntry
	if len(m.hashIndex) > 0 {
		hashIndex = make(map[string]HashEntry, len(m.hashIndex))
		for digest, entry := range m.hashIndex {
			hashIndex[digest] = entry
		}
	}

	return json.Marshal(record{
		MappingID: m.id,
		TenantID:  m.tenantID,
		CreatedAt: m.createdAt,
		TTL:       m.ttl.String(),
		Entries:   entries,
		HashIndex: hashIndex,
	})
}

// UnmarshalJSON reconstructs a mapping from its wire record. Each entry
// restores its actual persisted Placeholder value directly into
// forward/reverse rather than re-deriving a fresh one through Add, so
// non-placeholder reversible strategies (hash, synthetic) round-trip
// their real wire value instead of losing it to a regenerated
// `<TYPE_N>` grammar placeholder. The per-entity-type counter is
// advanced to the number of entries already on file for that type, so
// it stays dense and picks up exactly where the live mapping left off.
func (m *Mapping) UnmarshalJSON(data []byte) error {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}

	ttl, err := time.ParseDuration(r.TTL)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.id = r.MappingID
	m.tenantID = r.TenantID
	m.createdAt = r.CreatedAt
	m.ttl = ttl
	m.counter = NewCounter()
	m.forward = make(map[string]map[string]string)
	m.reverse = make(map[string]Entry)
	m.hashIndex = make(map[string]HashEntry)
	m.entries = make([]Entry, len(r.Entries))

	counts := make(map[string]int)
	for i, e := range r.Entries {
		byOriginal, ok := m.forward[e.EntityType]
		if !ok {
			byOriginal = make(map[string]string)
			m.forward[e.EntityType] = byOriginal
		}
		byOriginal[e.OriginalValue] = e.Placeholder
		m.reverse[e.Placeholder] = e
		m.entries[i] = e
		counts[e.EntityType]++
	}
	for entityType, n := range counts {
		m.counter.advanceTo(entityType, n)
	}
	for digest, entry := range r.HashIndex {
		m.hashIndex[digest] = entry
	}
	return nil
}
