package deanonymize

import (
	"reflect"
	"testing"
	"time"

	"github.com/hfi/llm-secret-interceptor/internal/mapping"
)

func newTestMapping() *mapping.Mapping {
	m := mapping.New("tenant-1", time.Hour)
	m.Add("PERSON", "Alice Smith")
	m.Add("PERSON", "Bob Jones")
	m.Add("EMAIL", "alice@example.com")
	for i := 0; i < 9; i++ {
		m.Add("PHONE", "555-000"+string(rune('0'+i)))
	}
	m.Add("PHONE", "555-0099") // <PHONE_10>
	return m
}

func TestDeanonymizeExactPass(t *testing.T) {
	m := newTestMapping()
	d := New(false, DefaultBareConfidenceThreshold)

	result := d.Deanonymize("Hi <PERSON_1>, cc <PERSON_2>.", m)
	if result.Text != "Hi Alice Smith, cc Bob Jones." {
		t.Fatalf("Deanonymize() text = %q", result.Text)
	}
	if result.ReplacedCount != 2 {
		t.Errorf("ReplacedCount = %d, want 2", result.ReplacedCount)
	}
	if len(result.Unresolved) != 0 {
		t.Errorf("Unresolved = %v, want empty", result.Unresolved)
	}
}

func TestDeanonymizeLongestPlaceholderFirst(t *testing.T) {
	m := newTestMapping()
	d := New(false, DefaultBareConfidenceThreshold)

	result := d.Deanonymize("Call <PHONE_10> not <PHONE_1>.", m)
	if result.Text != "Call 555-0099 not 555-0000." {
		t.Fatalf("Deanonymize() text = %q", result.Text)
	}
}

func TestDeanonymizeUnresolvedReported(t *testing.T) {
	m := mapping.New("tenant-1", time.Hour)
	d := New(false, DefaultBareConfidenceThreshold)

	result := d.Deanonymize("Hi <PERSON_1>.", m)
	if result.Text != "Hi <PERSON_1>." {
		t.Fatalf("Deanonymize() text = %q, want placeholder left in place", result.Text)
	}
	if !reflect.DeepEqual(result.Unresolved, []string{"<PERSON_1>"}) {
		t.Errorf("Unresolved = %v, want [<PERSON_1>]", result.Unresolved)
	}
}

func TestDeanonymizeFuzzyCaseVariant(t *testing.T) {
	m := newTestMapping()
	d := New(true, DefaultBareConfidenceThreshold)

	result := d.Deanonymize("Hi <person_1>.", m)
	if result.Text != "Hi Alice Smith." {
		t.Fatalf("Deanonymize() text = %q", result.Text)
	}
}

func TestDeanonymizeFuzzyWhitespaceVariant(t *testing.T) {
	m := newTestMapping()
	d := New(true, DefaultBareConfidenceThreshold)

	tests := []string{"< PERSON_1 >", "<PERSON _1>", "<PERSON_1 >"}
	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			result := d.Deanonymize("Hi "+in+".", m)
			if result.Text != "Hi Alice Smith." {
				t.Errorf("Deanonymize(%q) text = %q", in, result.Text)
			}
		})
	}
}

func TestDeanonymizeFuzzyBracketVariants(t *testing.T) {
	m := newTestMapping()
	d := New(true, DefaultBareConfidenceThreshold)

	tests := []string{"[PERSON_1]", "{PERSON_1}", "(PERSON_1)", "{{PERSON_1}}"}
	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			result := d.Deanonymize("Hi "+in+".", m)
			if result.Text != "Hi Alice Smith." {
				t.Errorf("Deanonymize(%q) text = %q", in, result.Text)
			}
		})
	}
}

func TestDeanonymizeFuzzySeparatorVariants(t *testing.T) {
	m := newTestMapping()
	d := New(true, DefaultBareConfidenceThreshold)

	tests := []string{"<PERSON-1>", "<PERSON:1>", "<PERSON#1>"}
	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			result := d.Deanonymize("Hi "+in+".", m)
			if result.Text != "Hi Alice Smith." {
				t.Errorf("Deanonymize(%q) text = %q", in, result.Text)
			}
		})
	}
}

func TestDeanonymizeFuzzyBareVariant(t *testing.T) {
	m := newTestMapping()
	d := New(true, DefaultBareConfidenceThreshold)

	result := d.Deanonymize("Hi PERSON_1, how are you.", m)
	if result.Text != "Hi Alice Smith, how are you." {
		t.Fatalf("Deanonymize() text = %q", result.Text)
	}
}

func TestDeanonymizeFuzzyBareGatedByThreshold(t *testing.T) {
	m := newTestMapping()
	d := New(true, 0.99) // bare's confidence (0.85) never clears this

	result := d.Deanonymize("Hi PERSON_1.", m)
	if result.Text != "Hi PERSON_1." {
		t.Fatalf("Deanonymize() text = %q, want bare match suppressed by high threshold", result.Text)
	}
}

func TestDeanonymizeTrailingPunctuationHandledByExactPass(t *testing.T) {
	m := newTestMapping()
	d := New(false, DefaultBareConfidenceThreshold)

	result := d.Deanonymize("Hi <PERSON_1>, and <PERSON_2>!", m)
	if result.Text != "Hi Alice Smith, and Bob Jones!" {
		t.Fatalf("Deanonymize() text = %q", result.Text)
	}
}

func TestDeanonymizeFuzzyMultiWordEntityType(t *testing.T) {
	m := mapping.New("tenant-1", time.Hour)
	m.Add("CREDIT_CARD", "4111111111111111")
	d := New(true, DefaultBareConfidenceThreshold)

	tests := map[string]string{
		"case":      "Card on file: <credit_card_1>.",
		"whitespace": "Card on file: < CREDIT_CARD_1 >.",
		"brackets":   "Card on file: [CREDIT_CARD_1].",
		"separator":  "Card on file: <CREDIT_CARD-1>.",
		"bare":       "Card on file: CREDIT_CARD_1.",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			result := d.Deanonymize(in, m)
			if result.Text != "Card on file: 4111111111111111." {
				t.Errorf("Deanonymize(%q) text = %q", in, result.Text)
			}
		})
	}
}

func TestDeanonymizeFuzzyDisabledLeavesVariantsAlone(t *testing.T) {
	m := newTestMapping()
	d := New(false, DefaultBareConfidenceThreshold)

	result := d.Deanonymize("Hi <person_1>.", m)
	if result.Text != "Hi <person_1>." {
		t.Fatalf("Deanonymize() text = %q, want fuzzy variant untouched when disabled", result.Text)
	}
}

func TestDeanonymizeEmptyText(t *testing.T) {
	d := New(true, DefaultBareConfidenceThreshold)
	result := d.Deanonymize("", mapping.New("t", time.Hour))
	if result.Text != "" || result.ReplacedCount != 0 {
		t.Errorf("Deanonymize(\"\") = %+v, want zero value", result)
	}
}
