package heuristic

import (
	"strings"

	"github.com/AndresDavidVV/ClinicaIA/pkg/common/models"
)

// SimulateResult stands in for query execution. It depends only on the
// question text, never on the generated query or the provider in use.
func SimulateResult(question string) models.SimulatedResult {
	q := strings.ToLower(question)
	switch {
	case containsAny(q, "cuantos", "total"):
		return models.NewScalarResult("Total", 42)
	case containsAny(q, "cama", "ocupacion"):
		return models.NewScalarResult("Ocupación", "85%")
	case containsAny(q, "diabetes", "diagnostico"):
		return models.NewTableResult(
			[]string{"Diagnóstico", "Total"},
			[][]interface{}{
				{"Hipertensión", 150},
				{"Diabetes T2", 89},
				{"EPOC", 45},
				{"Gastritis", 120},
			},
		)
	default:
		return models.NewScalarResult("Estado", "Datos actualizados al 03/12/2025")
	}
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
