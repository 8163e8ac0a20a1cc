package records

import (
	"context"

	"github.com/AndresDavidVV/ClinicaIA/pkg/common/models"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&models.Patient{}, &models.MedicalRecord{})
}

// FindPatientsByCedula fetches at most two rows, enough to tell a unique
// match from an ambiguous one.
func (r *Repository) FindPatientsByCedula(ctx context.Context, cedula string) ([]models.Patient, error) {
	var patients []models.Patient
	result := r.db.WithContext(ctx).
		Where("cedula = ?", cedula).
		Limit(2).
		Find(&patients)
	if result.Error != nil {
		return nil, storeError("find patient", result.Error)
	}
	return patients, nil
}

func (r *Repository) ListRecordsByPatient(ctx context.Context, patientID string) ([]models.MedicalRecord, error) {
	var recs []models.MedicalRecord
	result := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("record_date DESC").
		Find(&recs)
	if result.Error != nil {
		return nil, storeError("list records", result.Error)
	}
	return recs, nil
}
