package llm

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/AndresDavidVV/ClinicaIA/pkg/common/config"
	"github.com/AndresDavidVV/ClinicaIA/pkg/common/models"
	"github.com/AndresDavidVV/ClinicaIA/pkg/heuristic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ ResponseProvider = (*LiveProvider)(nil)
	_ ResponseProvider = (*MockProvider)(nil)
	_ Backend          = (*ChatClient)(nil)
	_ OpinionCache     = (*RedisOpinionCache)(nil)
)

type fakeBackend struct {
	reply string
	err   error
	calls []ChatRequest
}

func (f *fakeBackend) Complete(ctx context.Context, req ChatRequest) (string, error) {
	f.calls = append(f.calls, req)
	return f.reply, f.err
}

type memoryCache struct {
	mu     sync.Mutex
	values map[string]string
}

func (c *memoryCache) Get(ctx context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	return v, ok, nil
}

func (c *memoryCache) Set(ctx context.Context, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.values == nil {
		c.values = map[string]string{}
	}
	c.values[key] = value
	return nil
}

func ductalRequest() models.AnalysisRequest {
	return models.AnalysisRequest{
		Patient: models.Patient{ID: "p1", Cedula: "1002", FullName: "Ana"},
		History: []models.MedicalRecord{{ID: "r1", PatientID: "p1", Type: models.CategoryExam, Diagnosis: "Carcinoma Ductal Infiltrante"}},
	}
}

func analyzer() *heuristic.Analyzer {
	return heuristic.NewAnalyzer(heuristic.DefaultRules())
}

func TestLiveOpinionSendsDirectiveAndPayload(t *testing.T) {
	backend := &fakeBackend{reply: "## Opinión"}
	p := NewLiveProvider(backend, analyzer(), "gpt-4o", "gpt-3.5-turbo")

	op := p.SynthesizeOpinion(context.Background(), ductalRequest())
	assert.Equal(t, Opinion{Text: "## Opinión", Source: SourceLive}, op)

	require.Len(t, backend.calls, 1)
	call := backend.calls[0]
	assert.Equal(t, "gpt-4o", call.Model)
	require.Len(t, call.Messages, 2)
	assert.Equal(t, "system", call.Messages[0].Role)
	assert.Contains(t, call.Messages[0].Content, "Segunda Opinión")
	assert.Contains(t, call.Messages[0].Content, "Markdown")
	assert.Contains(t, call.Messages[1].Content, `"history"`)
	assert.Contains(t, call.Messages[1].Content, "Carcinoma Ductal Infiltrante")
}

func TestLiveOpinionFallsBackOnFailure(t *testing.T) {
	for _, err := range []error{ErrBackendUnavailable, ErrMalformedResponse, errors.New("dial tcp: refused")} {
		backend := &fakeBackend{err: err}
		p := NewLiveProvider(backend, analyzer(), "gpt-4o", "gpt-3.5-turbo")

		op := p.SynthesizeOpinion(context.Background(), ductalRequest())
		assert.Equal(t, SourceFallback, op.Source)
		assert.Equal(t, heuristic.CriticalAlertTemplate, op.Text)
		assert.Len(t, backend.calls, 1, "no retries")
	}
}

func TestLiveOpinionCachesOnlyLiveAnswers(t *testing.T) {
	cache := &memoryCache{}
	failing := &fakeBackend{err: ErrBackendUnavailable}
	p := NewLiveProvider(failing, analyzer(), "gpt-4o", "q").WithCache(cache)

	p.SynthesizeOpinion(context.Background(), ductalRequest())
	assert.Empty(t, cache.values)

	backend := &fakeBackend{reply: "live answer"}
	p = NewLiveProvider(backend, analyzer(), "gpt-4o", "q").WithCache(cache)

	first := p.SynthesizeOpinion(context.Background(), ductalRequest())
	second := p.SynthesizeOpinion(context.Background(), ductalRequest())
	assert.Equal(t, SourceLive, first.Source)
	assert.Equal(t, Opinion{Text: "live answer", Source: SourceCache}, second)
	assert.Len(t, backend.calls, 1)
}

func TestLiveTranslationReturnsQuery(t *testing.T) {
	backend := &fakeBackend{reply: "SELECT count(*) FROM patients;"}
	p := NewLiveProvider(backend, analyzer(), "gpt-4o", "gpt-3.5-turbo")

	tr := p.TranslateToQuery(context.Background(), "cuantos pacientes hay", SchemaDescription)
	assert.Equal(t, Translation{Query: "SELECT count(*) FROM patients;", Source: SourceLive}, tr)

	require.Len(t, backend.calls, 1)
	call := backend.calls[0]
	assert.Equal(t, "gpt-3.5-turbo", call.Model)
	assert.Contains(t, call.Messages[0].Content, "Table: medical_records")
	assert.Contains(t, call.Messages[0].Content, "'ERROR'")
	assert.Equal(t, "cuantos pacientes hay", call.Messages[1].Content)
}

func TestLiveTranslationSentinelFallsBack(t *testing.T) {
	for _, reply := range []string{"ERROR", " 'ERROR' ", "ERROR."} {
		p := NewLiveProvider(&fakeBackend{reply: reply}, analyzer(), "a", "b")

		tr := p.TranslateToQuery(context.Background(), "¿clima?", SchemaDescription)
		assert.Equal(t, SourceFallback, tr.Source)
		assert.True(t, tr.Refused)
		assert.Empty(t, tr.Query)
		assert.Equal(t, heuristic.TranslationFallbackMessage, tr.Message)
	}
}

func TestLiveTranslationTransportFailureFallsBack(t *testing.T) {
	p := NewLiveProvider(&fakeBackend{err: ErrBackendUnavailable}, analyzer(), "a", "b")

	tr := p.TranslateToQuery(context.Background(), "total", SchemaDescription)
	assert.Equal(t, SourceFallback, tr.Source)
	assert.False(t, tr.Refused)
	assert.True(t, strings.HasPrefix(tr.Message, "Modo Simulación"))
}

func TestMockProvider(t *testing.T) {
	p := NewMockProvider(analyzer())

	op := p.SynthesizeOpinion(context.Background(), ductalRequest())
	assert.Equal(t, Opinion{Text: heuristic.CriticalAlertTemplate, Source: SourceFallback}, op)

	tr := p.TranslateToQuery(context.Background(), "x", SchemaDescription)
	assert.Equal(t, SourceFallback, tr.Source)
	assert.Empty(t, tr.Query)
}

func TestNewProviderSelectsVariant(t *testing.T) {
	_, isMock := NewProvider(&config.Config{}, analyzer()).(*MockProvider)
	assert.True(t, isMock)

	_, isMock = NewProvider(&config.Config{LLMAPIKey: "  "}, analyzer()).(*MockProvider)
	assert.True(t, isMock)

	live, isLive := NewProvider(&config.Config{LLMAPIKey: "sk-live", LLMBaseURL: "http://127.0.0.1:1"}, analyzer()).(*LiveProvider)
	require.True(t, isLive)
	assert.Nil(t, live.cache)
}
