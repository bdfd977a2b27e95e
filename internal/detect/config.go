package detect

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadAllowlist reads every file directly under dir, one term per line
// (blank lines and #-prefixed comments ignored), and returns the
// combined term list. An empty dir is not an error: it returns nil,
// matching the "no allowlist configured" default.
func LoadAllowlist(dir string) ([]string, error) {
	if dir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("detect: read allowlist dir: %w", err)
	}

	var terms []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name()) //#nosec G304 -- operator-supplied config directory
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("detect: open allowlist file %s: %w", path, err)
		}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			terms = append(terms, line)
		}
		_ = f.Close()
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("detect: scan allowlist file %s: %w", path, err)
		}
	}
	return terms, nil
}

// customRule is the on-disk shape of one custom pattern entry.
type customRule struct {
	EntityType string  `yaml:"entity_type"`
	Pattern    string  `yaml:"pattern"`
	Score      float64 `yaml:"score"`
}

type customRuleFile struct {
	Rules []customRule `yaml:"rules"`
}

// LoadCustomRules reads a YAML file of custom regex detection rules and
// compiles them into Rules a RegexDetector can use, letting deployments
// extend the built-in set without a code change. A missing path
// returns nil, nil.
func LoadCustomRules(path string) ([]Rule, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path) //#nosec G304 -- operator-supplied config path
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("detect: read custom pattern file: %w", err)
	}

	var parsed customRuleFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("detect: parse custom pattern file: %w", err)
	}

	rules := make([]Rule, 0, len(parsed.Rules))
	for _, r := range parsed.Rules {
		compiled, err := compileRulePattern(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("detect: compile custom pattern %q: %w", r.EntityType, err)
		}
		score := r.Score
		if score == 0 {
			score = 0.75
		}
		rules = append(rules, Rule{EntityType: r.EntityType, Pattern: compiled, Score: score})
	}
	return rules, nil
}
