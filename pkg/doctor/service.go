// Package doctor runs the second-opinion flow: locate the patient, hand the
// complete history to the response provider, report the outcome.
package doctor

import (
	"context"
	"time"

	"github.com/AndresDavidVV/ClinicaIA/pkg/common/logger"
	"github.com/AndresDavidVV/ClinicaIA/pkg/common/models"
	"github.com/AndresDavidVV/ClinicaIA/pkg/llm"
)

type Publisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

type Lookup interface {
	Lookup(ctx context.Context, cedula string) (models.AnalysisRequest, error)
}

type SecondOpinion struct {
	Patient models.Patient         `json:"patient"`
	Age     int                    `json:"age"`
	History []models.MedicalRecord `json:"history"`
	Opinion string                 `json:"opinion"`
	Source  llm.Source             `json:"source"`
}

// DefaultPublishTimeout bounds how long an audit event may hold up a review.
const DefaultPublishTimeout = 3 * time.Second

type Service struct {
	records        Lookup
	provider       llm.ResponseProvider
	publisher      Publisher
	publishTimeout time.Duration
	now            func() time.Time
}

func NewService(records Lookup, provider llm.ResponseProvider, publisher Publisher) *Service {
	return &Service{
		records:        records,
		provider:       provider,
		publisher:      publisher,
		publishTimeout: DefaultPublishTimeout,
		now:            time.Now,
	}
}

// Review returns records.ErrNotFound or a records store error untouched so
// callers can present them differently. Provider failures never surface.
func (s *Service) Review(ctx context.Context, principal models.Principal, cedula string) (*SecondOpinion, error) {
	req, err := s.records.Lookup(ctx, cedula)
	if err != nil {
		return nil, err
	}

	opinion := s.provider.SynthesizeOpinion(ctx, req)

	logger.Log.WithFields(map[string]interface{}{
		"patient_id": req.Patient.ID,
		"records":    len(req.History),
		"source":     opinion.Source,
		"requested":  principal.Name,
	}).Info("second opinion generated")

	s.publish(ctx, principal, req, opinion)

	return &SecondOpinion{
		Patient: req.Patient,
		Age:     req.Patient.AgeAt(s.now()),
		History: req.History,
		Opinion: opinion.Text,
		Source:  opinion.Source,
	}, nil
}

func (s *Service) publish(ctx context.Context, principal models.Principal, req models.AnalysisRequest, opinion llm.Opinion) {
	if s.publisher == nil {
		return
	}
	payload := map[string]interface{}{
		"patient_id":   req.Patient.ID,
		"record_count": len(req.History),
		"source":       string(opinion.Source),
		"requested_by": principal.Name,
		"role":         string(principal.Role),
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()
	if err := s.publisher.PublishEvent(ctx, "opinion.generated", "doctor-flow", payload); err != nil {
		logger.Log.WithError(err).Warn("failed to publish opinion event")
	}
}
