package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/AndresDavidVV/ClinicaIA/pkg/common/logger"
	"github.com/AndresDavidVV/ClinicaIA/pkg/common/models"
	"github.com/AndresDavidVV/ClinicaIA/pkg/heuristic"
	"github.com/AndresDavidVV/ClinicaIA/pkg/observability/metrics"
)

// LiveProvider makes a single backend attempt per call.
type LiveProvider struct {
	backend      Backend
	analyzer     *heuristic.Analyzer
	opinionModel string
	queryModel   string
	cache        OpinionCache
}

func NewLiveProvider(backend Backend, analyzer *heuristic.Analyzer, opinionModel, queryModel string) *LiveProvider {
	return &LiveProvider{
		backend:      backend,
		analyzer:     analyzer,
		opinionModel: opinionModel,
		queryModel:   queryModel,
	}
}

// WithCache enables the opinion cache. Only live answers are stored.
func (p *LiveProvider) WithCache(cache OpinionCache) *LiveProvider {
	p.cache = cache
	return p
}

func (p *LiveProvider) SynthesizeOpinion(ctx context.Context, req models.AnalysisRequest) Opinion {
	text, source, err := p.opinion(ctx, req)
	if err != nil {
		logger.Log.WithError(err).WithField("patient_id", req.Patient.ID).Warn("live opinion failed, using heuristic fallback")
		metrics.ObserveOpinion(string(SourceFallback))
		return Opinion{Text: p.analyzer.OpinionFor(req), Source: SourceFallback}
	}
	metrics.ObserveOpinion(string(source))
	return Opinion{Text: text, Source: source}
}

func (p *LiveProvider) opinion(ctx context.Context, req models.AnalysisRequest) (string, Source, error) {
	messages, err := opinionMessages(req)
	if err != nil {
		return "", "", err
	}

	key := opinionCacheKey(p.opinionModel, messages)
	if p.cache != nil {
		cached, ok, err := p.cache.Get(ctx, key)
		if err != nil {
			logger.Log.WithError(err).Debug("opinion cache read failed")
		} else if ok {
			return cached, SourceCache, nil
		}
	}

	text, err := p.backend.Complete(ctx, ChatRequest{
		Model:       p.opinionModel,
		Messages:    messages,
		Temperature: 0.3,
	})
	if err != nil {
		return "", "", err
	}

	if p.cache != nil {
		if err := p.cache.Set(ctx, key, text); err != nil {
			logger.Log.WithError(err).Debug("opinion cache write failed")
		}
	}
	return text, SourceLive, nil
}

func (p *LiveProvider) TranslateToQuery(ctx context.Context, question, schema string) Translation {
	query, err := p.translate(ctx, question, schema)
	if err != nil {
		refused := errors.Is(err, ErrTranslationRefused)
		logger.Log.WithError(err).WithField("refused", refused).Warn("live translation failed, using simulation mode")
		metrics.ObserveTranslation(string(SourceFallback), refused)
		return Translation{Message: p.analyzer.TranslationFallback(), Source: SourceFallback, Refused: refused}
	}
	metrics.ObserveTranslation(string(SourceLive), false)
	return Translation{Query: query, Source: SourceLive}
}

func (p *LiveProvider) translate(ctx context.Context, question, schema string) (string, error) {
	text, err := p.backend.Complete(ctx, ChatRequest{
		Model:       p.queryModel,
		Messages:    queryMessages(question, schema),
		Temperature: 0,
	})
	if err != nil {
		return "", err
	}
	query := strings.TrimSpace(text)
	if strings.Trim(query, "'\"`.") == RefusalSentinel {
		return "", fmt.Errorf("%w: %q", ErrTranslationRefused, question)
	}
	return query, nil
}

func opinionCacheKey(model string, messages []ChatMessage) string {
	h := sha256.New()
	h.Write([]byte(model))
	for _, m := range messages {
		h.Write([]byte{0})
		h.Write([]byte(m.Role))
		h.Write([]byte{0})
		h.Write([]byte(m.Content))
	}
	return "opinion:" + hex.EncodeToString(h.Sum(nil))
}
