package llm

import (
	"encoding/json"
	"fmt"

	"github.com/AndresDavidVV/ClinicaIA/pkg/common/models"
)

const (
	opinionDirective = "Eres un asistente médico experto (MD). Tu objetivo es analizar el historial clínico del paciente y proporcionar una 'Segunda Opinión' crítica. Busca riesgos ocultos, discrepancias en diagnósticos previos y sugiere acciones. Sé directo y profesional. Formato Markdown."

	queryDirectiveFormat = `Eres un experto en SQL y bases de datos médicas. Tu tarea es convertir preguntas en lenguaje natural a SQL Postgres válido.
El esquema es: %s.
Solo devuelve el SQL puro, sin markdown ni explicaciones.
Si no puedes generar SQL, devuelve '%s'.`

	// RefusalSentinel is what the backend answers when it cannot translate.
	RefusalSentinel = "ERROR"
)

// SchemaDescription is handed verbatim to every translation request.
const SchemaDescription = `
Table: patients
- id (uuid)
- full_name (text)
- cedula (text)
- birth_date (date)
- gender (text)

Table: medical_records
- id (uuid)
- patient_id (uuid ref patients)
- doctor_id (uuid ref staff)
- record_date (timestamp)
- type (text: 'consulta', 'examen', 'cirugia', 'urgencia')
- diagnosis (text)
`

func opinionMessages(req models.AnalysisRequest) ([]ChatMessage, error) {
	payload, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding analysis request: %w", err)
	}
	return []ChatMessage{
		{Role: "system", Content: opinionDirective},
		{Role: "user", Content: "Analiza este historial clínico y dame tu opinión:\n\n" + string(payload)},
	}, nil
}

func queryMessages(question, schema string) []ChatMessage {
	return []ChatMessage{
		{Role: "system", Content: fmt.Sprintf(queryDirectiveFormat, schema, RefusalSentinel)},
		{Role: "user", Content: question},
	}
}
