package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegexDetectorMatchesEmail(t *testing.T) {
	d := NewBuiltinDetector()

	spans := d.Detect("contact me at jane.doe@example.com today", "en")
	require.Len(t, spans, 1)
	assert.Equal(t, "EMAIL", spans[0].EntityType)
	assert.Equal(t, "jane.doe@example.com", spans[0].OriginalText)
}

func TestRegexDetectorMatchesMultipleTypes(t *testing.T) {
	d := NewBuiltinDetector()

	spans := d.Detect("call 415-555-0132 or email me at a@b.com", "en")
	types := make(map[string]bool)
	for _, s := range spans {
		types[s.EntityType] = true
	}
	assert.True(t, types["PHONE"], "expected a PHONE span")
	assert.True(t, types["EMAIL"], "expected an EMAIL span")
}

func TestRegexDetectorName(t *testing.T) {
	d := NewRegexDetector("custom", nil)
	assert.Equal(t, "custom", d.Name())
}

func TestRegexDetectorNoMatches(t *testing.T) {
	d := NewBuiltinDetector()
	assert.Empty(t, d.Detect("nothing sensitive here", "en"))
}
