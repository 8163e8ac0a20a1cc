package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/AndresDavidVV/ClinicaIA/pkg/common/models"
	"github.com/AndresDavidVV/ClinicaIA/pkg/heuristic"
	"github.com/AndresDavidVV/ClinicaIA/pkg/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingProvider struct {
	started chan struct{}
	release chan struct{}
}

func (p *blockingProvider) SynthesizeOpinion(ctx context.Context, req models.AnalysisRequest) llm.Opinion {
	return llm.Opinion{}
}

func (p *blockingProvider) TranslateToQuery(ctx context.Context, question, schema string) llm.Translation {
	close(p.started)
	<-p.release
	return llm.Translation{Message: "simulado", Source: llm.SourceFallback}
}

type liveProvider struct {
	schema string
}

func (p *liveProvider) SynthesizeOpinion(ctx context.Context, req models.AnalysisRequest) llm.Opinion {
	return llm.Opinion{}
}

func (p *liveProvider) TranslateToQuery(ctx context.Context, question, schema string) llm.Translation {
	p.schema = schema
	return llm.Translation{Query: "SELECT count(*) FROM patients", Source: llm.SourceLive}
}

type panickingProvider struct{}

func (panickingProvider) SynthesizeOpinion(ctx context.Context, req models.AnalysisRequest) llm.Opinion {
	return llm.Opinion{}
}

func (panickingProvider) TranslateToQuery(ctx context.Context, question, schema string) llm.Translation {
	panic("backend exploded")
}

type memoryRecorder struct {
	mu    sync.Mutex
	turns []models.ConversationTurn
	err   error
}

func (r *memoryRecorder) RecordTurn(ctx context.Context, sessionID string, turn models.ConversationTurn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.turns = append(r.turns, turn)
	return r.err
}

type recordingPublisher struct {
	types []string
	data  []map[string]interface{}
}

func (p *recordingPublisher) PublishEvent(ctx context.Context, eventType, source string, data map[string]interface{}) error {
	p.types = append(p.types, eventType)
	p.data = append(p.data, data)
	return nil
}

func mockProvider() llm.ResponseProvider {
	return llm.NewMockProvider(heuristic.NewAnalyzer(heuristic.DefaultRules()))
}

func adminSession(provider llm.ResponseProvider, opts Options) *Session {
	return NewSession(models.DefaultPrincipal(models.RoleAdmin, ""), provider, opts)
}

func TestNewSessionStartsWithGreeting(t *testing.T) {
	s := adminSession(mockProvider(), Options{})

	turns := s.Turns()
	require.Len(t, turns, 1)
	assert.Equal(t, models.RoleResponder, turns[0].Role)
	assert.Equal(t, GreetingMessage, turns[0].Content)
	assert.Equal(t, StateIdle, s.State())
	assert.NotEmpty(t, s.ID())
	assert.Equal(t, "Carlos Ruiz", s.Principal().Name)
}

func TestSubmitFallbackDiagnosisTable(t *testing.T) {
	s := adminSession(mockProvider(), Options{})

	answer, err := s.Submit(context.Background(), "¿Cuántos pacientes con diabetes tenemos?")
	require.NoError(t, err)

	assert.Equal(t, models.RoleResponder, answer.Role)
	assert.Equal(t, heuristic.TranslationFallbackMessage, answer.Content)
	assert.Empty(t, answer.SQL)
	require.NotNil(t, answer.Data)
	assert.Equal(t, models.ResultTable, answer.Data.Kind)
	assert.Contains(t, answer.Data.Table.Rows, []interface{}{"Diabetes T2", 89})

	turns := s.Turns()
	require.Len(t, turns, 3)
	assert.Equal(t, models.RoleRequester, turns[1].Role)
	assert.Equal(t, "¿Cuántos pacientes con diabetes tenemos?", turns[1].Content)
	assert.Equal(t, answer.ID, turns[2].ID)
	assert.Equal(t, StateIdle, s.State())
}

func TestSubmitFallbackScalarTotal(t *testing.T) {
	s := adminSession(mockProvider(), Options{})

	answer, err := s.Submit(context.Background(), "cuantos pacientes hay")
	require.NoError(t, err)
	require.NotNil(t, answer.Data)
	assert.Equal(t, models.ResultScalar, answer.Data.Kind)
	assert.Equal(t, 42, answer.Data.Scalar.Value)
}

func TestSubmitLiveTranslationCarriesQuery(t *testing.T) {
	provider := &liveProvider{}
	s := adminSession(provider, Options{})

	answer, err := s.Submit(context.Background(), "ocupacion de camas")
	require.NoError(t, err)
	assert.Equal(t, ResolvedMessage, answer.Content)
	assert.Equal(t, "SELECT count(*) FROM patients", answer.SQL)
	require.NotNil(t, answer.Data)
	assert.Equal(t, "85%", answer.Data.Scalar.Value)
	assert.Equal(t, llm.SchemaDescription, provider.schema)
}

func TestSubmitUsesConfiguredSchema(t *testing.T) {
	provider := &liveProvider{}
	s := adminSession(provider, Options{Schema: "Table: beds (id, ward)"})

	_, err := s.Submit(context.Background(), "camas")
	require.NoError(t, err)
	assert.Equal(t, "Table: beds (id, ward)", provider.schema)
}

func TestSubmitWhileAwaitingIsDropped(t *testing.T) {
	provider := &blockingProvider{started: make(chan struct{}), release: make(chan struct{})}
	s := adminSession(provider, Options{})

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background(), "primera")
		done <- err
	}()

	select {
	case <-provider.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first submit never reached the provider")
	}
	assert.Equal(t, StateAwaitingResponse, s.State())

	_, err := s.Submit(context.Background(), "segunda")
	assert.ErrorIs(t, err, ErrBusy)

	close(provider.release)
	require.NoError(t, <-done)

	turns := s.Turns()
	require.Len(t, turns, 3)
	assert.Equal(t, "primera", turns[1].Content)
	assert.Equal(t, models.RoleResponder, turns[2].Role)
	assert.Equal(t, StateIdle, s.State())
}

func TestSubmitRejectsBlankInput(t *testing.T) {
	s := adminSession(mockProvider(), Options{})

	_, err := s.Submit(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Len(t, s.Turns(), 1)
	assert.Equal(t, StateIdle, s.State())
}

func TestSubmitPanicBecomesFailureTurn(t *testing.T) {
	s := adminSession(panickingProvider{}, Options{})

	answer, err := s.Submit(context.Background(), "total de pacientes")
	require.NoError(t, err)
	assert.Equal(t, FailureMessage, answer.Content)
	assert.Nil(t, answer.Data)
	assert.Equal(t, StateIdle, s.State())

	_, err = s.Submit(context.Background(), "otra vez")
	assert.NoError(t, err)
	assert.Len(t, s.Turns(), 5)
}

func TestSubmitCancelledContextBecomesFailureTurn(t *testing.T) {
	s := adminSession(mockProvider(), Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	answer, err := s.Submit(ctx, "cuantos pacientes hay")
	require.NoError(t, err)
	assert.Equal(t, FailureMessage, answer.Content)
	assert.Len(t, s.Turns(), 3)
}

func TestSubmitRecordsAndPublishes(t *testing.T) {
	rec := &memoryRecorder{}
	pub := &recordingPublisher{}
	fixed := time.Date(2025, 12, 3, 9, 0, 0, 0, time.UTC)
	s := adminSession(mockProvider(), Options{Recorder: rec, Publisher: pub, Now: func() time.Time { return fixed }})

	_, err := s.Submit(context.Background(), "cuantos pacientes hay")
	require.NoError(t, err)

	require.Len(t, rec.turns, 3)
	assert.Equal(t, GreetingMessage, rec.turns[0].Content)
	assert.Equal(t, fixed, rec.turns[1].CreatedAt)

	require.Equal(t, []string{"query.answered"}, pub.types)
	assert.Equal(t, false, pub.data[0]["generated"])
	assert.Equal(t, "scalar", pub.data[0]["result_type"])
	assert.Equal(t, "Carlos Ruiz", pub.data[0]["requested_by"])
}

func TestSubmitSurvivesRecorderFailure(t *testing.T) {
	rec := &memoryRecorder{err: errors.New("db down")}
	s := adminSession(mockProvider(), Options{Recorder: rec})

	_, err := s.Submit(context.Background(), "total")
	assert.NoError(t, err)
	assert.Len(t, s.Turns(), 3)
}

func TestRegistryCreateGetClose(t *testing.T) {
	reg := NewRegistry(mockProvider(), Options{})

	s := reg.Create(models.DefaultPrincipal(models.RoleAdmin, ""))
	got, err := reg.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Equal(t, 1, reg.Len())

	assert.True(t, reg.Close(s.ID()))
	assert.False(t, reg.Close(s.ID()))
	_, err = reg.Get(s.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestTurnRecordRoundTripKeepsResult(t *testing.T) {
	result := models.NewScalarResult("Total", 42)
	turn := models.ConversationTurn{
		ID:        "t1",
		Seq:       4,
		Role:      models.RoleResponder,
		Content:   ResolvedMessage,
		SQL:       "SELECT 1",
		Data:      &result,
		CreatedAt: time.Date(2025, 12, 3, 0, 0, 0, 0, time.UTC),
	}

	row, err := toRecord("s1", turn)
	require.NoError(t, err)
	assert.Equal(t, "s1", row.SessionID)
	assert.Equal(t, "assistant", row.Role)
	assert.EqualValues(t, 4, row.Seq)

	back, err := fromRecord(row)
	require.NoError(t, err)
	require.NotNil(t, back.Data)
	assert.Equal(t, models.ResultScalar, back.Data.Kind)
	assert.Equal(t, "Total", back.Data.Scalar.Label)
	assert.EqualValues(t, 42, back.Data.Scalar.Value)
	assert.Equal(t, "SELECT 1", back.SQL)
	assert.EqualValues(t, 4, back.Seq)
}

func TestTurnsKeepOrderUnderFrozenClock(t *testing.T) {
	rec := &memoryRecorder{}
	fixed := time.Date(2025, 12, 3, 9, 0, 0, 0, time.UTC)
	s := adminSession(mockProvider(), Options{Recorder: rec, Now: func() time.Time { return fixed }})

	_, err := s.Submit(context.Background(), "total")
	require.NoError(t, err)
	_, err = s.Submit(context.Background(), "diabetes")
	require.NoError(t, err)

	turns := s.Turns()
	require.Len(t, turns, 5)
	require.Len(t, rec.turns, 5)
	for i := range turns {
		assert.Equal(t, fixed, turns[i].CreatedAt)
		assert.EqualValues(t, i, turns[i].Seq)
		assert.Equal(t, turns[i].ID, rec.turns[i].ID)
		assert.EqualValues(t, i, rec.turns[i].Seq)

		row, err := toRecord(s.ID(), rec.turns[i])
		require.NoError(t, err)
		assert.EqualValues(t, i, row.Seq)
	}
}

type stalledPublisher struct {
	exitErr error
}

func (p *stalledPublisher) PublishEvent(ctx context.Context, eventType, source string, data map[string]interface{}) error {
	<-ctx.Done()
	p.exitErr = ctx.Err()
	return p.exitErr
}

func TestSubmitBoundsStalledPublisher(t *testing.T) {
	pub := &stalledPublisher{}
	s := adminSession(mockProvider(), Options{Publisher: pub, PublishTimeout: 20 * time.Millisecond})

	start := time.Now()
	answer, err := s.Submit(context.Background(), "total")
	require.NoError(t, err)
	assert.Equal(t, models.RoleResponder, answer.Role)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.ErrorIs(t, pub.exitErr, context.DeadlineExceeded)
	assert.Equal(t, StateIdle, s.State())
}
