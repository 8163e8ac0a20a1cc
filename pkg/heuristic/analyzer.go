// Package heuristic is the deterministic, network-free responder used when no
// language-model backend is configured or a live call fails. It also hosts
// the result simulator that backs every admin query answer.
package heuristic

import (
	"encoding/json"
	"strings"

	"github.com/AndresDavidVV/ClinicaIA/pkg/common/models"
)

// TranslationFallbackMessage is returned in place of a generated query.
const TranslationFallbackMessage = "Modo Simulación: No se detectó API Key o hubo error. SQL Simulado: `SELECT count(*) FROM patients` -> Resultado: 42"

type Analyzer struct {
	rules RuleSet
}

func NewAnalyzer(rules RuleSet) *Analyzer {
	if len(rules.Rules) == 0 && rules.Default == "" {
		rules = DefaultRules()
	}
	return &Analyzer{rules: rules}
}

// Opinion classifies arbitrary serialized text.
func (a *Analyzer) Opinion(text string) string {
	if rule, ok := a.rules.Match(strings.ToLower(text)); ok {
		return rule.Template
	}
	return a.rules.Default
}

// OpinionFor serializes the request the same way it is sent to the live
// backend and classifies it.
func (a *Analyzer) OpinionFor(req models.AnalysisRequest) string {
	raw, err := json.Marshal(req)
	if err != nil {
		return a.rules.Default
	}
	return a.Opinion(string(raw))
}

func (a *Analyzer) TranslationFallback() string {
	return TranslationFallbackMessage
}
