package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Rules is the set of validation rules known to a deployment, usually loaded
// from a rules file.
type Rules []ValidationRule

type rulesDocument struct {
	Rules []ValidationRule `json:"rules"`
}

// LoadRules reads a rules file. The format is picked from the extension:
// .toml, .yaml/.yml or .json. Every format holds a top level `rules` list;
// rule keys may be written in snake_case or kebab-case.
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}
	rules, err := ParseRules(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("parsing rules file %s: %w", path, err)
	}
	return rules, nil
}

// ParseRules decodes a rules document in the format named by ext.
func ParseRules(data []byte, ext string) (Rules, error) {
	var raw any
	switch strings.ToLower(ext) {
	case ".toml":
		var doc map[string]any
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("unmarshaling toml: %w", err)
		}
		raw = doc
	case ".yaml", ".yml":
		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("unmarshaling yaml: %w", err)
		}
		raw = doc
	case ".json":
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("unmarshaling json: %w", err)
		}
		if list, ok := raw.([]any); ok {
			raw = map[string]any{"rules": list}
		}
	default:
		return nil, fmt.Errorf("unsupported rules file extension %q", ext)
	}

	canonical, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("re-encoding rules: %w", err)
	}
	var doc rulesDocument
	if err := json.Unmarshal(canonical, &doc); err != nil {
		return nil, fmt.Errorf("decoding rules: %w", err)
	}
	return Rules(doc.Rules), nil
}

// Find returns the rule for a field. When ruleName is empty the first rule
// of the field wins. Names are compared case-insensitively.
func (rs Rules) Find(fieldName, ruleName string) (ValidationRule, bool) {
	for _, r := range rs {
		if !strings.EqualFold(r.FieldName, fieldName) {
			continue
		}
		if ruleName == "" || strings.EqualFold(r.RuleName, ruleName) {
			return r, true
		}
	}
	return ValidationRule{}, false
}

// Fields lists the distinct field names in file order.
func (rs Rules) Fields() []string {
	var fields []string
	seen := make(map[string]struct{})
	for _, r := range rs {
		key := strings.ToLower(r.FieldName)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		fields = append(fields, r.FieldName)
	}
	return fields
}
