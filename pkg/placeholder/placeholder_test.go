package placeholder

import "testing"

func TestFormatParseRoundTrip(t *testing.T) {
	testCases := []struct {
		entityType string
		index      int
	}{
		{"PERSON", 1},
		{"EMAIL", 42},
		{"CREDIT_CARD", 999},
	}

	for _, tc := range testCases {
		t.Run(tc.entityType, func(t *testing.T) {
			s := Format(tc.entityType, tc.index)
			entityType, index, ok := Parse(s)
			if !ok {
				t.Fatalf("Parse(%q) ok = false", s)
			}
			if entityType != tc.entityType || index != tc.index {
				t.Errorf("Parse(%q) = (%q, %d), want (%q, %d)", s, entityType, index, tc.entityType, tc.index)
			}
		})
	}
}

func TestIsValid(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  bool
	}{
		{"valid", "<PERSON_1>", true},
		{"lowercase type", "<person_1>", false},
		{"zero index", "<PERSON_0>", false},
		{"leading zero", "<PERSON_01>", false},
		{"no angle brackets", "PERSON_1", false},
		{"whitespace inside", "<PERSON _1>", false},
		{"square brackets", "[PERSON_1]", false},
		{"trailing punctuation", "<PERSON_1>.", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsValid(tc.input); got != tc.want {
				t.Errorf("IsValid(%q) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestFindAll(t *testing.T) {
	text := "Email <PERSON_1> at <EMAIL_1>, cc <PERSON_1>."
	got := FindAll(text)
	want := []string{"<PERSON_1>", "<EMAIL_1>", "<PERSON_1>"}

	if len(got) != len(want) {
		t.Fatalf("FindAll() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("FindAll()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFindAllIndex(t *testing.T) {
	text := "Hi <PERSON_1>!"
	idx := FindAllIndex(text)
	if len(idx) != 1 {
		t.Fatalf("FindAllIndex() len = %d, want 1", len(idx))
	}
	start, end := idx[0][0], idx[0][1]
	if text[start:end] != "<PERSON_1>" {
		t.Errorf("FindAllIndex() slice = %q, want %q", text[start:end], "<PERSON_1>")
	}
}
