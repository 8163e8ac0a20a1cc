package dlp

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Rule masks every match of Pattern with Mask. Rules run in file order, so
// a broader pattern placed later only sees what earlier rules left behind.
type Rule struct {
	Name    string `yaml:"name" json:"name"`
	Type    string `yaml:"type" json:"type"`
	Pattern string `yaml:"pattern" json:"pattern"`
	Mask    string `yaml:"mask" json:"mask"`
	Enabled bool   `yaml:"enabled" json:"enabled"`
}

type RulesConfig struct {
	Rules []Rule `yaml:"rules" json:"rules"`
}

func LoadRules(path string) (RulesConfig, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultRules(), err
	}

	var cfg RulesConfig
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return RulesConfig{}, err
	}

	if len(cfg.Rules) == 0 {
		return RulesConfig{}, errors.New("no redaction rules configured")
	}

	return cfg, nil
}

func DefaultRules() RulesConfig {
	return RulesConfig{Rules: []Rule{
		{Name: "Email", Type: "email", Pattern: `\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`, Mask: "[EMAIL]", Enabled: true},
		{Name: "Mobile", Type: "phone", Pattern: `\+57\s?3\d{2}[\s-]?\d{3}[\s-]?\d{4}\b|\b3\d{2}[\s-]\d{3}[\s-]\d{4}\b`, Mask: "[TELEFONO]", Enabled: true},
		{Name: "Cedula", Type: "cedula", Pattern: `\b\d{1,3}(?:\.\d{3}){2,3}\b|\b\d{6,10}\b`, Mask: "[CEDULA]", Enabled: true},
	}}
}
