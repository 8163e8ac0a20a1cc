// Package records assembles the analysis payload for the doctor flow: one
// patient located by cedula plus its complete record history.
package records

import (
	"context"
	"sort"

	"github.com/AndresDavidVV/ClinicaIA/pkg/common/logger"
	"github.com/AndresDavidVV/ClinicaIA/pkg/common/models"
	"github.com/AndresDavidVV/ClinicaIA/pkg/observability/metrics"
)

type Aggregator struct {
	store Store
}

func NewAggregator(store Store) *Aggregator {
	return &Aggregator{store: store}
}

// Lookup returns ErrNotFound when zero or several patients share the cedula
// and a *StoreError for any store failure. Records come back sorted by
// record date, most recent first, whatever order the store used.
func (a *Aggregator) Lookup(ctx context.Context, cedula string) (models.AnalysisRequest, error) {
	if cedula == "" {
		metrics.ObserveLookup("not_found")
		return models.AnalysisRequest{}, ErrNotFound
	}

	patients, err := a.store.FindPatientsByCedula(ctx, cedula)
	if err != nil {
		return models.AnalysisRequest{}, a.fail("find patient", "", err)
	}
	if len(patients) != 1 {
		logger.Log.WithField("matches", len(patients)).Warn("patient lookup did not resolve to a single patient")
		metrics.ObserveLookup("not_found")
		return models.AnalysisRequest{}, ErrNotFound
	}
	patient := patients[0]

	history, err := a.store.ListRecordsByPatient(ctx, patient.ID)
	if err != nil {
		return models.AnalysisRequest{}, a.fail("list records", patient.ID, err)
	}
	if history == nil {
		history = []models.MedicalRecord{}
	}
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].RecordDate.After(history[j].RecordDate)
	})

	metrics.ObserveLookup("found")
	return models.AnalysisRequest{Patient: patient, History: history}, nil
}

// fail never logs the cedula; patientID is empty until a patient resolved.
func (a *Aggregator) fail(op, patientID string, err error) error {
	err = storeError(op, err)
	entry := logger.Log.WithError(err).WithField("op", op)
	if patientID != "" {
		entry = entry.WithField("patient_id", patientID)
	}
	entry.Error("record store lookup failed")
	metrics.ObserveLookup("store_error")
	return err
}
