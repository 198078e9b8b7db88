package core

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// ValidationType selects how a field's value must resolve against ontologies.
type ValidationType string

const (
	AnyOntologyTerm      ValidationType = "any-ontology-term"
	SelectedOntology     ValidationType = "selected-ontology"
	ChildOntologyTerm    ValidationType = "child-ontology-term"
	SelectedOntologyTerm ValidationType = "selected-ontology-term"
)

var validationTypes = []ValidationType{
	AnyOntologyTerm,
	SelectedOntology,
	ChildOntologyTerm,
	SelectedOntologyTerm,
}

// ParseValidationType accepts the canonical kebab-case names as well as the
// upper snake case spelling (ANY_ONTOLOGY_TERM).
func ParseValidationType(s string) (ValidationType, bool) {
	canonical := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	for _, vt := range validationTypes {
		if string(vt) == canonical {
			return vt, true
		}
	}
	return ValidationType(canonical), false
}

// Valid reports whether t is one of the known validation types.
func (t ValidationType) Valid() bool {
	_, ok := ParseValidationType(string(t))
	return ok
}

func (t *ValidationType) UnmarshalText(text []byte) error {
	vt, _ := ParseValidationType(string(text))
	*t = vt
	return nil
}

// OntologyList is an ordered list of ontology prefixes. In JSON it may be
// given as an array, as a comma separated string, or as null.
type OntologyList []string

func (l *OntologyList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*l = ParseOntologies(single)
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("ontologies must be a string or a list of strings: %w", err)
	}
	*l = cleanOntologies(many)
	return nil
}

// ParseOntologies splits a comma separated ontology list. Blank entries are
// dropped; order is kept.
func ParseOntologies(s string) OntologyList {
	return cleanOntologies(strings.Split(s, ","))
}

func cleanOntologies(values []string) OntologyList {
	out := make(OntologyList, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// ParentOntologyTerms constrains child-term searches to the descendants of
// Parents, minus the excluded terms.
type ParentOntologyTerms struct {
	Parents               []OntologyTerm `json:"parents"`
	ExcludeByLabelPattern []string       `json:"exclude_by_label_pattern"`
	ExcludeByAccession    []string       `json:"exclude_by_accession"`

	patterns []*regexp.Regexp
}

// LabelPatterns returns the compiled label exclusion patterns. It is only
// populated on rules returned by ValidationRule.Normalize.
func (p ParentOntologyTerms) LabelPatterns() []*regexp.Regexp {
	return p.patterns
}

// HasExclusions reports whether any exclusion is configured.
func (p ParentOntologyTerms) HasExclusions() bool {
	return len(p.ExcludeByAccession) > 0 || len(p.ExcludeByLabelPattern) > 0
}

// ValidationRule is the ontology constraint attached to a metadata field.
type ValidationRule struct {
	FieldName                  string              `json:"field_name"`
	RuleName                   string              `json:"rule_name"`
	ValidationType             ValidationType      `json:"validation_type"`
	Ontologies                 OntologyList        `json:"ontologies"`
	AllowedParentOntologyTerms ParentOntologyTerms `json:"allowed_parent_ontology_terms"`
}

// UnmarshalJSON accepts loosely keyed rule documents: keys are matched
// case-insensitively and kebab-case keys (validation-type,
// allowed-parent-ontology-terms, ...) are treated as their snake_case form.
func (r *ValidationRule) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	canonical, err := json.Marshal(canonicalKeys(raw))
	if err != nil {
		return err
	}
	type plain ValidationRule
	var p plain
	if err := json.Unmarshal(canonical, &p); err != nil {
		return err
	}
	*r = ValidationRule(p)
	return nil
}

// DecodeValidationRule builds a rule from a JSON document.
func DecodeValidationRule(data []byte) (ValidationRule, error) {
	var r ValidationRule
	if err := json.Unmarshal(data, &r); err != nil {
		return ValidationRule{}, fmt.Errorf("%w: decoding validation rule: %v", ErrConfiguration, err)
	}
	return r, nil
}

// Normalize returns a copy of the rule with every collection allocated and
// the label exclusion patterns compiled. Patterns use match semantics: they
// must match at the start of the label.
func (r ValidationRule) Normalize() (ValidationRule, error) {
	out := r
	out.Ontologies = cleanOntologies(r.Ontologies)

	parents := r.AllowedParentOntologyTerms
	out.AllowedParentOntologyTerms = ParentOntologyTerms{
		Parents:               append(make([]OntologyTerm, 0, len(parents.Parents)), parents.Parents...),
		ExcludeByLabelPattern: append(make([]string, 0, len(parents.ExcludeByLabelPattern)), parents.ExcludeByLabelPattern...),
		ExcludeByAccession:    append(make([]string, 0, len(parents.ExcludeByAccession)), parents.ExcludeByAccession...),
		patterns:              make([]*regexp.Regexp, 0, len(parents.ExcludeByLabelPattern)),
	}

	for _, p := range parents.ExcludeByLabelPattern {
		re, err := regexp.Compile("^(?:" + p + ")")
		if err != nil {
			return ValidationRule{}, fmt.Errorf("%w: invalid label exclusion pattern %q in rule %s: %v",
				ErrConfiguration, p, r.Describe(), err)
		}
		out.AllowedParentOntologyTerms.patterns = append(out.AllowedParentOntologyTerms.patterns, re)
	}

	return out, nil
}

// Describe returns a short human readable identifier for log and error
// messages.
func (r ValidationRule) Describe() string {
	switch {
	case r.FieldName != "" && r.RuleName != "":
		return r.FieldName + "/" + r.RuleName
	case r.FieldName != "":
		return r.FieldName
	case r.RuleName != "":
		return r.RuleName
	}
	return "<unnamed>"
}

func canonicalKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(k)), "-", "_")
			out[key] = canonicalKeys(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = canonicalKeys(val)
		}
		return out
	}
	return v
}
