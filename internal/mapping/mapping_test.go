package mapping

import (
	"encoding/json"
	"testing"
	"time"
)

func TestMappingAddIdempotent(t *testing.T) {
	m := New("tenant-1", time.Hour)

	ph1 := m.Add("PERSON", "Alice")
	ph2 := m.Add("PERSON", "Alice")
	if ph1 != ph2 {
		t.Fatalf("Add called twice with same (type, original) returned different placeholders: %q vs %q", ph1, ph2)
	}
	if ph1 != "<PERSON_1>" {
		t.Errorf("Add(PERSON, Alice) = %q, want <PERSON_1>", ph1)
	}

	ph3 := m.Add("PERSON", "Bob")
	if ph3 != "<PERSON_2>" {
		t.Errorf("Add(PERSON, Bob) = %q, want <PERSON_2> (dense numbering)", ph3)
	}

	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}
}

func TestMappingGetOrAssignDoesNotDoubleInvokeRender(t *testing.T) {
	m := New("tenant-1", time.Hour)
	calls := 0
	render := func(index int) string {
		calls++
		return "SYNTH_" + string(rune('a'+index))
	}

	first := m.GetOrAssign("PERSON", "Alice", render)
	second := m.GetOrAssign("PERSON", "Alice", render)

	if first != second {
		t.Fatalf("GetOrAssign returned different wire values: %q vs %q", first, second)
	}
	if calls != 1 {
		t.Errorf("render called %d times, want 1 (idempotent on repeat)", calls)
	}
}

func TestMappingSameLiteralDifferentType(t *testing.T) {
	m := New("tenant-1", time.Hour)

	phPerson := m.Add("PERSON", "Jordan")
	phCompany := m.Add("ORGANIZATION", "Jordan")

	if phPerson == phCompany {
		t.Fatalf("same literal under two entity types collapsed to one placeholder: %q", phPerson)
	}
}

func TestMappingBidirectionalLookup(t *testing.T) {
	m := New("tenant-1", time.Hour)
	ph := m.Add("EMAIL", "alice@example.com")

	got, ok := m.Placeholder("EMAIL", "alice@example.com")
	if !ok || got != ph {
		t.Errorf("Placeholder() = (%q, %v), want (%q, true)", got, ok, ph)
	}

	original, ok := m.Original(ph)
	if !ok || original != "alice@example.com" {
		t.Errorf("Original(%q) = (%q, %v), want (alice@example.com, true)", ph, original, ok)
	}

	if _, ok := m.Original("<EMAIL_99>"); ok {
		t.Error("Original() on unknown placeholder returned ok=true")
	}
}

func TestMappingEntriesByType(t *testing.T) {
	m := New("tenant-1", time.Hour)
	m.Add("PERSON", "Alice")
	m.Add("EMAIL", "alice@example.com")
	m.Add("PERSON", "Bob")

	entries := m.EntriesByType("PERSON")
	if len(entries) != 2 {
		t.Fatalf("EntriesByType(PERSON) len = %d, want 2", len(entries))
	}
	if entries[0].OriginalValue != "Alice" || entries[1].OriginalValue != "Bob" {
		t.Errorf("EntriesByType(PERSON) order = %v", entries)
	}
}

func TestMappingHashIndex(t *testing.T) {
	m := New("tenant-1", time.Hour)

	m.PutHash("digest-abc", "CREDIT_CARD", "4111111111111111")
	m.PutHash("digest-abc", "CREDIT_CARD", "should-not-overwrite")

	original, ok := m.OriginalFromHash("digest-abc")
	if !ok || original != "4111111111111111" {
		t.Errorf("OriginalFromHash() = (%q, %v), want (4111111111111111, true)", original, ok)
	}
}

func TestMappingJSONRoundTrip(t *testing.T) {
	m := New("tenant-1", 30*time.Minute)
	m.Add("PERSON", "Alice")
	m.Add("EMAIL", "alice@example.com")
	m.Add("PERSON", "Bob")

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	restored := &Mapping{}
	if err := json.Unmarshal(data, restored); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if restored.ID() != m.ID() || restored.TenantID() != m.TenantID() || restored.TTL() != m.TTL() {
		t.Errorf("restored envelope = (%q, %q, %v), want (%q, %q, %v)",
			restored.ID(), restored.TenantID(), restored.TTL(), m.ID(), m.TenantID(), m.TTL())
	}
	if restored.Len() != m.Len() {
		t.Fatalf("restored.Len() = %d, want %d", restored.Len(), m.Len())
	}

	for _, ph := range m.AllPlaceholders() {
		want, _ := m.Original(ph)
		got, ok := restored.Original(ph)
		if !ok || got != want {
			t.Errorf("restored.Original(%q) = (%q, %v), want (%q, true)", ph, got, ok, want)
		}
	}
}

func TestMappingJSONRoundTripPreservesNonPlaceholderWireValues(t *testing.T) {
	m := New("tenant-1", 30*time.Minute)
	m.Add("PERSON", "Alice") // placeholder strategy: wire value is <PERSON_1>

	digest := "a1b2c3d4e5f6"
	hashWire := m.GetOrAssign("SSN", "123-45-6789", func(int) string { return digest })
	m.PutHash(hashWire, "SSN", "123-45-6789")

	syntheticWire := m.GetOrAssign("PERSON", "Bob Jones", func(int) string { return "Jordan Avery" })

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	restored := &Mapping{}
	if err := json.Unmarshal(data, restored); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if got, ok := restored.Original(digest); !ok || got != "123-45-6789" {
		t.Errorf("restored.Original(%q) = (%q, %v), want (123-45-6789, true); UnmarshalJSON must not re-derive a fresh placeholder for non-placeholder wire values", digest, got, ok)
	}
	if got, ok := restored.OriginalFromHash(digest); !ok || got != "123-45-6789" {
		t.Errorf("restored.OriginalFromHash(%q) = (%q, %v), want (123-45-6789, true); hash shadow index must survive a round trip", digest, got, ok)
	}
	if got, ok := restored.Original(syntheticWire); !ok || got != "Bob Jones" {
		t.Errorf("restored.Original(%q) = (%q, %v), want (Bob Jones, true)", syntheticWire, got, ok)
	}

	// A PERSON entry was already restored; the counter must continue
	// from 2 (Alice=1, Bob Jones=2), not collide by restarting at 1.
	next := restored.Add("PERSON", "Carol Diaz")
	if next != "<PERSON_3>" {
		t.Errorf("restored.Add(PERSON, Carol Diaz) = %q, want <PERSON_3> (counter must resume after restore)", next)
	}
}
