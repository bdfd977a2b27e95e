// Package streambuf implements the stream buffer (C7): chunk-safe
// placeholder substitution over a server-sent-event token stream, where
// a placeholder may be split across two or more chunks at an arbitrary
// byte offset.
package streambuf

import (
	"bytes"

	"github.com/hfi/llm-secret-interceptor/internal/deanonymize"
	"github.com/hfi/llm-secret-interceptor/internal/mapping"
)

// DefaultMaxPlaceholderLength bounds how long an unclosed "<...” run may
// grow before the buffer gives up on it being a placeholder and emits
// it verbatim, matching the wire grammar's own length bound.
const DefaultMaxPlaceholderLength = 25

// Buffer restores exact placeholders across chunk boundaries using the
// sliding-suffix-carry algorithm: it holds back only the minimal
// trailing run of bytes that could still become the start of a
// placeholder, and emits everything else immediately.
//
// Fuzzy placeholder variants are deliberately not recognized here —
// brackets other than "<>" are common in ordinary prose, and
// gatekeeping every chunk on them would stall streaming for no benefit.
// Fuzzy recovery happens only in the non-streaming path, where the full
// response is available at once.
type Buffer struct {
	carry   []byte
	mapping *mapping.Mapping
	exact   *deanonymize.Deanonymizer
	maxLen  int
}

// New creates a Buffer that restores placeholders from m. maxLen bounds
// how long an unterminated run may grow before it's treated as plain
// text; pass DefaultMaxPlaceholderLength for the standard behavior.
func New(m *mapping.Mapping, maxLen int) *Buffer {
	if maxLen <= 0 {
		maxLen = DefaultMaxPlaceholderLength
	}
	return &Buffer{
		mapping: m,
		exact:   deanonymize.New(false, 0),
		maxLen:  maxLen,
	}
}

// Push appends chunk to the buffer and returns the portion of the
// accumulated text that is now safe to emit — with every placeholder
// that closed within it already restored to its original value.
func (b *Buffer) Push(chunk string) string {
	if chunk == "" {
		return ""
	}
	b.carry = append(b.carry, chunk...)

	split := findSafeSplit(b.carry, b.maxLen)
	safe := string(b.carry[:split])
	b.carry = b.carry[split:]

	if safe == "" {
		return ""
	}
	return b.exact.Deanonymize(safe, b.mapping).Text
}

// Flush emits and restores whatever remains in the buffer, for use when
// the stream ends. After Flush the buffer is empty.
func (b *Buffer) Flush() string {
	if len(b.carry) == 0 {
		return ""
	}
	out := b.exact.Deanonymize(string(b.carry), b.mapping).Text
	b.carry = b.carry[:0]
	return out
}

// Pending reports how many bytes are currently held back awaiting more
// input.
func (b *Buffer) Pending() int {
	return len(b.carry)
}

// findSafeSplit scans buf left to right for '<' runs and returns the
// length of the prefix that is safe to emit now: every "<...>" run in
// it is either a closed bracket pair (placeholder or not — deanonymize
// will sort out which) or was long enough without closing to rule out
// ever becoming a placeholder. Anything past the returned index is an
// unclosed run still short enough that the next chunk could complete it.
func findSafeSplit(buf []byte, maxLen int) int {
	i := 0
	for i < len(buf) {
		rel := bytes.IndexByte(buf[i:], '<')
		if rel == -1 {
			return len(buf)
		}
		openPos := i + rel

		closeRel := bytes.IndexByte(buf[openPos:], '>')
		if closeRel == -1 {
			// No closing bracket yet. If the open run is still short
			// enough to possibly be a placeholder, stop here — hold it
			// and everything after it back for the next chunk.
			if len(buf)-openPos <= maxLen {
				return openPos
			}
			// Too long to ever be a placeholder now; it's ordinary
			// text. Keep scanning past this '<'.
			i = openPos + 1
			continue
		}

		// The bracket pair is closed, whether or not its contents are a
		// well-formed placeholder — deanonymize resolves that once the
		// safe prefix is handed to it. Either way, it's no longer
		// ambiguous, so scanning continues past it.
		i = openPos + closeRel + 1
	}
	return len(buf)
}
