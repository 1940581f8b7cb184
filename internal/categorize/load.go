package categorize

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/invoice-tracker/constants"
)

// RulesFile is the on-disk shape of a custom rule set.
//
//	replace_defaults: false
//	rules:
//	  - category: office
//	    keywords: [lanyard, "label maker"]
type RulesFile struct {
	ReplaceDefaults bool   `yaml:"replace_defaults"`
	Rules           []Rule `yaml:"rules"`
}

// LoadFile reads a YAML rule file. File rules are evaluated before the
// defaults unless replace_defaults is set.
func LoadFile(path string) (*Categorizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Categorizer, error) {
	var f RulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if len(f.Rules) == 0 {
		return nil, fmt.Errorf("parse rules: no rules defined")
	}

	rules := make([]Rule, 0, len(f.Rules)+len(DefaultRules))
	for i, r := range f.Rules {
		cat, ok := constants.Canonicalize(string(r.Category))
		if !ok && r.Category != constants.Other {
			return nil, fmt.Errorf("rule %d: unknown category %q", i, r.Category)
		}
		r.Category = cat
		rules = append(rules, r)
	}
	if !f.ReplaceDefaults {
		rules = append(rules, DefaultRules...)
	}
	return New(rules)
}
