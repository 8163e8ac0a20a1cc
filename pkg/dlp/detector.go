// Package dlp masks personal identifiers in audit payloads before they
// leave the process.
package dlp

import (
	"regexp"
	"sort"
	"strings"
)

type compiledRule struct {
	rule Rule
	re   *regexp.Regexp
}

type Detector struct {
	rules []compiledRule
}

func NewDetector(cfg RulesConfig) (*Detector, error) {
	var compiled []compiledRule
	for _, rule := range cfg.Rules {
		if !rule.Enabled {
			continue
		}
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, compiledRule{rule: rule, re: re})
	}
	return &Detector{rules: compiled}, nil
}

// Detect returns the sorted identifier types present in the string values
// of data. Keys ending in "_id" are internal identifiers and are skipped.
func (d *Detector) Detect(data map[string]interface{}) []string {
	if d == nil {
		return nil
	}

	found := make(map[string]struct{})
	var walk func(key string, value interface{})
	walk = func(key string, value interface{}) {
		if isIdentifierKey(key) {
			return
		}
		switch v := value.(type) {
		case string:
			for _, rule := range d.rules {
				if rule.re.MatchString(v) {
					found[rule.rule.Type] = struct{}{}
				}
			}
		case map[string]interface{}:
			for nestedKey, nested := range v {
				walk(nestedKey, nested)
			}
		case []interface{}:
			for _, nested := range v {
				walk(key, nested)
			}
		}
	}
	for key, value := range data {
		walk(key, value)
	}

	types := make([]string, 0, len(found))
	for t := range found {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Sanitize returns a masked copy of data; the input is not modified.
func (d *Detector) Sanitize(data map[string]interface{}) map[string]interface{} {
	if d == nil {
		return data
	}

	out := make(map[string]interface{}, len(data))
	for key, value := range data {
		out[key] = d.sanitizeValue(key, value)
	}
	return out
}

func (d *Detector) MaskText(text string) string {
	if d == nil {
		return text
	}
	for _, rule := range d.rules {
		text = rule.re.ReplaceAllString(text, rule.rule.Mask)
	}
	return text
}

func (d *Detector) sanitizeValue(key string, value interface{}) interface{} {
	if isIdentifierKey(key) {
		return value
	}
	switch v := value.(type) {
	case string:
		return d.MaskText(v)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, nested := range v {
			out[k] = d.sanitizeValue(k, nested)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, nested := range v {
			out[i] = d.sanitizeValue(key, nested)
		}
		return out
	default:
		return value
	}
}

func isIdentifierKey(key string) bool {
	return key == "id" || strings.HasSuffix(key, "_id")
}
