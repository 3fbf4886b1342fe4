package category

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Other is the fallback code returned when no rule matches.
const Other = "OTHER"

//go:embed rules.yaml
var defaultRulesYAML []byte

var defaultRules = mustParseRules(defaultRulesYAML)

// Rule maps one category code to the keywords that trigger it.
type Rule struct {
	Code     string   `yaml:"code"`
	Keywords []string `yaml:"keywords"`
}

type ruleFile struct {
	Version    int    `yaml:"version"`
	Categories []Rule `yaml:"categories"`
}

// DefaultRules returns a copy of the built-in table in precedence order.
func DefaultRules() []Rule {
	return cloneRules(defaultRules)
}

// LoadRules reads a YAML rule table from path.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadRules: read %q: %w", path, err)
	}
	rules, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("LoadRules: %q: %w", path, err)
	}
	return rules, nil
}

// ParseRules decodes a YAML rule table. The order of the categories sequence
// is the classification precedence.
func ParseRules(data []byte) ([]Rule, error) {
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("ParseRules: decode yaml: %w", err)
	}
	if f.Version != 1 {
		return nil, fmt.Errorf("ParseRules: unsupported version %d", f.Version)
	}
	if len(f.Categories) == 0 {
		return nil, fmt.Errorf("ParseRules: no categories defined")
	}

	seen := make(map[string]bool, len(f.Categories))
	rules := make([]Rule, 0, len(f.Categories))
	for i, r := range f.Categories {
		code := strings.ToUpper(strings.TrimSpace(r.Code))
		switch {
		case code == "":
			return nil, fmt.Errorf("ParseRules: category %d has no code", i)
		case code == Other:
			return nil, fmt.Errorf("ParseRules: %s is reserved for the fallback", Other)
		case seen[code]:
			return nil, fmt.Errorf("ParseRules: duplicate category %s", code)
		}
		seen[code] = true

		keywords := make([]string, 0, len(r.Keywords))
		for _, k := range r.Keywords {
			k = strings.ToUpper(strings.TrimSpace(k))
			if k == "" {
				return nil, fmt.Errorf("ParseRules: category %s has an empty keyword", code)
			}
			keywords = append(keywords, k)
		}
		if len(keywords) == 0 {
			return nil, fmt.Errorf("ParseRules: category %s has no keywords", code)
		}
		rules = append(rules, Rule{Code: code, Keywords: keywords})
	}
	return rules, nil
}

func mustParseRules(data []byte) []Rule {
	rules, err := ParseRules(data)
	if err != nil {
		panic(fmt.Sprintf("category: built-in rules: %v", err))
	}
	return rules
}

func cloneRules(rules []Rule) []Rule {
	out := make([]Rule, len(rules))
	for i, r := range rules {
		out[i] = Rule{Code: r.Code, Keywords: append([]string(nil), r.Keywords...)}
	}
	return out
}
