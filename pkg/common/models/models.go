package models

import (
	"time"
)

// Record store models
type Patient struct {
	ID        string    `json:"id" gorm:"primaryKey;column:id"`
	Cedula    string    `json:"cedula" gorm:"column:cedula;uniqueIndex"`
	FullName  string    `json:"full_name" gorm:"column:full_name"`
	BirthDate time.Time `json:"birth_date" gorm:"column:birth_date;type:date"`
	Gender    string    `json:"gender" gorm:"column:gender"`
}

func (Patient) TableName() string {
	return "patients"
}

// AgeAt returns the patient's age in whole years at the given instant.
func (p Patient) AgeAt(now time.Time) int {
	if p.BirthDate.IsZero() {
		return 0
	}
	birth := p.BirthDate
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

type RecordCategory string

const (
	CategoryConsultation RecordCategory = "consulta"
	CategoryExam         RecordCategory = "examen"
	CategorySurgery      RecordCategory = "cirugia"
	CategoryEmergency    RecordCategory = "urgencia"
)

func (c RecordCategory) Valid() bool {
	switch c {
	case CategoryConsultation, CategoryExam, CategorySurgery, CategoryEmergency:
		return true
	}
	return false
}

type MedicalRecord struct {
	ID          string         `json:"id" gorm:"primaryKey;column:id"`
	PatientID   string         `json:"patient_id" gorm:"column:patient_id;index"`
	DoctorID    *string        `json:"doctor_id,omitempty" gorm:"column:doctor_id"`
	RecordDate  time.Time      `json:"record_date" gorm:"column:record_date"`
	Type        RecordCategory `json:"type" gorm:"column:type"`
	Diagnosis   string         `json:"diagnosis" gorm:"column:diagnosis"`
	Description string         `json:"description" gorm:"column:description"`
	Treatment   *string        `json:"treatment,omitempty" gorm:"column:treatment"`
	Notes       *string        `json:"notes,omitempty" gorm:"column:notes"`
}

func (MedicalRecord) TableName() string {
	return "medical_records"
}

// AnalysisRequest is the unit of input to the opinion generator: a patient
// together with its whole history, most recent record first.
type AnalysisRequest struct {
	Patient Patient         `json:"patient"`
	History []MedicalRecord `json:"history"`
}

// Conversation models
type TurnRole string

const (
	RoleRequester TurnRole = "user"
	RoleResponder TurnRole = "assistant"
)

type ConversationTurn struct {
	ID        string           `json:"id"`
	Seq       int64            `json:"seq"`
	Role      TurnRole         `json:"role"`
	Content   string           `json:"content"`
	SQL       string           `json:"sql,omitempty"`
	Data      *SimulatedResult `json:"data,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

type ResultKind string

const (
	ResultScalar ResultKind = "scalar"
	ResultTable  ResultKind = "table"
)

// SimulatedResult carries exactly one of Scalar or Table, selected by Kind.
type SimulatedResult struct {
	Kind   ResultKind    `json:"type"`
	Scalar *ScalarResult `json:"scalar,omitempty"`
	Table  *TableResult  `json:"table,omitempty"`
}

type ScalarResult struct {
	Label string      `json:"label"`
	Value interface{} `json:"value"`
}

type TableResult struct {
	Columns []string        `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
}

func NewScalarResult(label string, value interface{}) SimulatedResult {
	return SimulatedResult{Kind: ResultScalar, Scalar: &ScalarResult{Label: label, Value: value}}
}

func NewTableResult(columns []string, rows [][]interface{}) SimulatedResult {
	return SimulatedResult{Kind: ResultTable, Table: &TableResult{Columns: columns, Rows: rows}}
}

// Principal is the caller identity handed explicitly to each flow.
type UserRole string

const (
	RoleDoctor UserRole = "doctor"
	RoleAdmin  UserRole = "admin"
)

type Principal struct {
	Name        string   `json:"name"`
	Role        UserRole `json:"role"`
	PhoneNumber string   `json:"phone_number,omitempty"`
}

func DefaultPrincipal(role UserRole, phone string) Principal {
	name := "Usuario Simulado"
	switch role {
	case RoleDoctor:
		name = "Dr. Alejandro Vega"
	case RoleAdmin:
		name = "Carlos Ruiz"
	}
	return Principal{Name: name, Role: role, PhoneNumber: phone}
}

// Event Bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // opinion.generated, query.answered
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}
