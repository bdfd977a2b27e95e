package strategy

import (
	"fmt"
	"hash/fnv"
	"strings"
)

// syntheticNames, syntheticDomains, and the other tables below are
// small fixed pools of realistic-looking stand-in values. There is no
// claim of statistical realism beyond "looks like a name/phone/email
// to a casual reader" — good enough to keep an LLM's downstream
// reasoning coherent without leaking the original value.
var syntheticNames = []string{
	"Jordan Avery", "Morgan Ellis", "Taylor Brooks", "Casey Monroe",
	"Riley Dawson", "Devon Shaw", "Quinn Harper", "Avery Lane",
	"Sawyer Reed", "Blake Carter",
}

var syntheticDomains = []string{
	"example.com", "mailbox.test", "inbox.example", "relay.test",
}

var syntheticOrgs = []string{
	"Brightwell Logistics", "Caldera Systems", "Northgate Partners",
	"Vantage Coop", "Wrenfield Group",
}

var syntheticStreets = []string{
	"Maple Street", "Birchwood Avenue", "Harbor Lane", "Cedar Court",
	"Fulton Road",
}

// SyntheticStrategy rewrites a value to a realistic fake value of the
// same entity type. The generated value is a pure function of
// (seed, entityType, original), so repeat occurrences of the same value
// within one mapping collapse to the same synthetic stand-in, while
// varying the seed (the anonymizer passes the mapping id) keeps the
// same real value from mapping to the same fake across unrelated
// requests.
type SyntheticStrategy struct {
	seed string
}

// NewSyntheticStrategy creates a SyntheticStrategy seeded by seed.
func NewSyntheticStrategy(seed string) SyntheticStrategy {
	return SyntheticStrategy{seed: seed}
}

func (SyntheticStrategy) Name() string     { return "synthetic" }
func (SyntheticStrategy) Reversible() bool { return true }

func (s SyntheticStrategy) Render(entityType, original string, index int) string {
	entityUpper := strings.ToUpper(entityType)
	h := s.pick(entityType, original)

	switch {
	case strings.Contains(entityUpper, "PERSON") || strings.Contains(entityUpper, "NAME"):
		return syntheticNames[h%uint64(len(syntheticNames))]
	case strings.Contains(entityUpper, "EMAIL"):
		name := syntheticNames[h%uint64(len(syntheticNames))]
		local := strings.ToLower(strings.ReplaceAll(name, " ", "."))
		domain := syntheticDomains[(h/7)%uint64(len(syntheticDomains))]
		return fmt.Sprintf("%s@%s", local, domain)
	case strings.Contains(entityUpper, "PHONE"):
		return fmt.Sprintf("555-%04d", h%10000)
	case strings.Contains(entityUpper, "ORGANIZATION") || strings.Contains(entityUpper, "COMPANY"):
		return syntheticOrgs[h%uint64(len(syntheticOrgs))]
	case strings.Contains(entityUpper, "ADDRESS"):
		return fmt.Sprintf("%d %s", 100+(h%900), syntheticStreets[h%uint64(len(syntheticStreets))])
	default:
		return fmt.Sprintf("%s_SYNTH_%d", entityUpper, index)
	}
}

// pick derives a deterministic pseudo-random index from the strategy's
// seed plus the value being replaced.
func (s SyntheticStrategy) pick(entityType, original string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s.seed))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(entityType))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(original))
	return h.Sum64()
}
