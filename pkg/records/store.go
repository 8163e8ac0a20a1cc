package records

import (
	"context"
	"errors"
	"sync"

	"github.com/AndresDavidVV/ClinicaIA/pkg/common/config"
	"github.com/AndresDavidVV/ClinicaIA/pkg/common/database"
	"github.com/AndresDavidVV/ClinicaIA/pkg/common/logger"
	"github.com/AndresDavidVV/ClinicaIA/pkg/common/models"
)

// Store is the read side of the patient-record store.
type Store interface {
	// FindPatientsByCedula returns every patient whose cedula matches exactly.
	FindPatientsByCedula(ctx context.Context, cedula string) ([]models.Patient, error)
	// ListRecordsByPatient returns the patient's records, most recent first.
	ListRecordsByPatient(ctx context.Context, patientID string) ([]models.MedicalRecord, error)
}

var ErrStoreNotConfigured = errors.New("record store endpoint is missing or invalid")

// UnavailableStore fails every call. It stands in for the real store when
// the endpoint configuration is unusable so the process keeps serving.
type UnavailableStore struct {
	Reason error
}

func (s UnavailableStore) FindPatientsByCedula(ctx context.Context, cedula string) ([]models.Patient, error) {
	return nil, &StoreError{Op: "find patient", Err: s.reason()}
}

func (s UnavailableStore) ListRecordsByPatient(ctx context.Context, patientID string) ([]models.MedicalRecord, error) {
	return nil, &StoreError{Op: "list records", Err: s.reason()}
}

func (s UnavailableStore) reason() error {
	if s.Reason == nil {
		return ErrStoreNotConfigured
	}
	return s.Reason
}

var diagnosticOnce sync.Once

// OpenStore connects the gorm repository, degrading to UnavailableStore
// with a single startup diagnostic when that is not possible.
func OpenStore(cfg *config.Config) Store {
	if cfg.PostgresDSN() == "" {
		return degrade(ErrStoreNotConfigured)
	}
	db, err := database.GetPostgres(cfg.PostgresDSN())
	if err != nil {
		return degrade(err)
	}
	return NewRepository(db)
}

func degrade(reason error) Store {
	diagnosticOnce.Do(func() {
		logger.Log.WithError(reason).Error("CRITICAL: record store unavailable, every patient lookup will fail until DATABASE_URL or POSTGRES_HOST is fixed")
	})
	return UnavailableStore{Reason: reason}
}
