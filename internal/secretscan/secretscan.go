// Package secretscan looks for credential-shaped secrets (API keys,
// tokens, connection strings) in outbound text before it ever reaches
// the anonymizer. This is a distinct concern from PII detection: a
// leaked AWS key is not "personal data" to placeholder-substitute and
// restore, it's a live credential the request should never carry.
package secretscan

import (
	"sort"
	"strings"
)

// Action is the scanner's verdict, replacing exception-driven
// should-block control flow with an explicit result the pipeline can
// switch on.
type Action string

const (
	ActionAllow  Action = "allow"
	ActionWarn   Action = "warn"
	ActionRedact Action = "redact"
	ActionBlock  Action = "block"
)

// Finding is one matched secret.
type Finding struct {
	Type      string
	Pattern   string
	RiskLevel RiskLevel
	Start, End int
	MatchedText string
}

// Redacted returns a display-safe preview of the match, never the
// secret itself.
func (f Finding) Redacted() string {
	if len(f.MatchedText) <= 8 {
		return strings.Repeat("*", len(f.MatchedText))
	}
	return f.MatchedText[:4] + "****" + f.MatchedText[len(f.MatchedText)-4:]
}

// Result is the outcome of one scan.
type Result struct {
	Action   Action
	Findings []Finding
}

// actionTable maps (compliance preset, worst risk level found) to an
// action. This resolves the open question of medium-risk handling by
// making the policy an explicit, per-preset lookup rather than one
// global default — presets that need to warn on medium risk say so;
// presets that need to redact say so instead.
type actionTable map[string]map[RiskLevel]Action

func defaultActionTable() actionTable {
	strict := map[RiskLevel]Action{
		RiskCritical: ActionBlock,
		RiskHigh:     ActionBlock,
		RiskMedium:   ActionRedact,
		RiskLow:      ActionWarn,
	}
	standard := map[RiskLevel]Action{
		RiskCritical: ActionBlock,
		RiskHigh:     ActionBlock,
		RiskMedium:   ActionWarn,
		RiskLow:      ActionAllow,
	}
	return actionTable{
		"":         standard, // no compliance preset configured
		"gdpr":     strict,
		"pipl":     strict,
		"pci-dss":  strict,
		"ccpa":     standard,
		"hipaa":    strict,
		"standard": standard,
	}
}

// Scanner detects credential-shaped secrets and turns findings into an
// action according to the active compliance preset.
type Scanner struct {
	patterns []Pattern
	actions  actionTable
	preset   string
}

// New creates a Scanner. preset selects the row of the action table;
// an unrecognized preset falls back to the standard row.
func New(preset string) *Scanner {
	return &Scanner{
		patterns: DefaultPatterns,
		actions:  defaultActionTable(),
		preset:   strings.ToLower(preset),
	}
}

// Scan looks for every pattern in text and resolves the combined
// findings to a single Action: the most severe finding's action wins.
func (s *Scanner) Scan(text string) Result {
	var findings []Finding
	for _, p := range s.patterns {
		for _, loc := range p.Regexp.FindAllStringIndex(text, -1) {
			findings = append(findings, Finding{
				Type:        p.Type,
				Pattern:     p.Name,
				RiskLevel:   p.RiskLevel,
				Start:       loc[0],
				End:         loc[1],
				MatchedText: text[loc[0]:loc[1]],
			})
		}
	}
	if len(findings) == 0 {
		return Result{Action: ActionAllow}
	}

	sort.SliceStable(findings, func(i, j int) bool { return findings[i].Start < findings[j].Start })

	row, ok := s.actions[s.preset]
	if !ok {
		row = s.actions[""]
	}

	worst := ActionAllow
	for _, f := range findings {
		if a, ok := row[f.RiskLevel]; ok && severity(a) > severity(worst) {
			worst = a
		}
	}

	return Result{Action: worst, Findings: findings}
}

func severity(a Action) int {
	switch a {
	case ActionBlock:
		return 3
	case ActionRedact:
		return 2
	case ActionWarn:
		return 1
	default:
		return 0
	}
}
