package dlp

import (
	"context"

	"github.com/AndresDavidVV/ClinicaIA/pkg/common/logger"
)

type Publisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

// RedactingPublisher masks event payloads before handing them to next.
type RedactingPublisher struct {
	detector *Detector
	next     Publisher
}

func NewRedactingPublisher(detector *Detector, next Publisher) *RedactingPublisher {
	return &RedactingPublisher{detector: detector, next: next}
}

func (p *RedactingPublisher) PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error {
	if types := p.detector.Detect(data); len(types) > 0 {
		logger.Log.WithFields(map[string]interface{}{
			"event_type": eventType,
			"masked":     types,
		}).Debug("redacted event payload")
		data = p.detector.Sanitize(data)
	}
	return p.next.PublishEvent(ctx, eventType, source, data)
}
