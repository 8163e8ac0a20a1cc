package llm

import (
	"context"

	"github.com/AndresDavidVV/ClinicaIA/pkg/common/models"
	"github.com/AndresDavidVV/ClinicaIA/pkg/heuristic"
	"github.com/AndresDavidVV/ClinicaIA/pkg/observability/metrics"
)

// MockProvider answers everything from the heuristic analyzer.
type MockProvider struct {
	analyzer *heuristic.Analyzer
}

func NewMockProvider(analyzer *heuristic.Analyzer) *MockProvider {
	return &MockProvider{analyzer: analyzer}
}

func (p *MockProvider) SynthesizeOpinion(ctx context.Context, req models.AnalysisRequest) Opinion {
	metrics.ObserveOpinion(string(SourceFallback))
	return Opinion{Text: p.analyzer.OpinionFor(req), Source: SourceFallback}
}

func (p *MockProvider) TranslateToQuery(ctx context.Context, question, schema string) Translation {
	metrics.ObserveTranslation(string(SourceFallback), false)
	return Translation{Message: p.analyzer.TranslationFallback(), Source: SourceFallback}
}
