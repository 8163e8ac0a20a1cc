// Package conversation holds the admin question/answer transcript. A
// session accepts one request at a time and always closes it with exactly
// one responder turn.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/AndresDavidVV/ClinicaIA/pkg/common/logger"
	"github.com/AndresDavidVV/ClinicaIA/pkg/common/models"
	"github.com/AndresDavidVV/ClinicaIA/pkg/heuristic"
	"github.com/AndresDavidVV/ClinicaIA/pkg/llm"
	"github.com/AndresDavidVV/ClinicaIA/pkg/observability/metrics"
	"github.com/google/uuid"
)

type State string

const (
	StateIdle             State = "idle"
	StateAwaitingResponse State = "awaitingResponse"
)

const (
	GreetingMessage = "Hola. Soy tu analista de datos clínica. Puedo consultar nuestra base de datos operativa por ti. ¿Qué necesitas saber hoy?"
	ResolvedMessage = "He generado la consulta para esto. Aquí están los resultados:"
	FailureMessage  = "Lo siento, hubo un error procesando tu consulta."
)

var (
	ErrBusy       = errors.New("a request is already in flight for this session")
	ErrEmptyInput = errors.New("question is empty")
)

// Recorder persists turns as they are appended.
type Recorder interface {
	RecordTurn(ctx context.Context, sessionID string, turn models.ConversationTurn) error
}

type Publisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

// DefaultPublishTimeout bounds how long a query event may hold up an answer.
const DefaultPublishTimeout = 3 * time.Second

type Options struct {
	Schema         string
	Recorder       Recorder
	Publisher      Publisher
	PublishTimeout time.Duration
	Simulate       func(question string) models.SimulatedResult
	Now            func() time.Time
}

type Session struct {
	id        string
	principal models.Principal
	provider  llm.ResponseProvider
	schema    string
	recorder  Recorder
	publisher Publisher
	timeout   time.Duration
	simulate  func(string) models.SimulatedResult
	now       func() time.Time

	mu    sync.Mutex
	state State
	turns []models.ConversationTurn
}

func NewSession(principal models.Principal, provider llm.ResponseProvider, opts Options) *Session {
	s := &Session{
		id:        uuid.New().String(),
		principal: principal,
		provider:  provider,
		schema:    opts.Schema,
		recorder:  opts.Recorder,
		publisher: opts.Publisher,
		timeout:   opts.PublishTimeout,
		simulate:  opts.Simulate,
		now:       opts.Now,
		state:     StateIdle,
	}
	if s.schema == "" {
		s.schema = llm.SchemaDescription
	}
	if s.simulate == nil {
		s.simulate = heuristic.SimulateResult
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.timeout <= 0 {
		s.timeout = DefaultPublishTimeout
	}

	greeting := s.appendTurn(s.newTurn(models.RoleResponder, GreetingMessage))
	s.record(context.Background(), greeting)
	return s
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Principal() models.Principal {
	return s.principal
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Turns returns a copy of the transcript in display order.
func (s *Session) Turns() []models.ConversationTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ConversationTurn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Submit appends the requester turn, resolves the question and returns the
// responder turn. While a request is in flight, or for blank input, it
// returns ErrBusy or ErrEmptyInput and leaves the transcript untouched.
func (s *Session) Submit(ctx context.Context, text string) (models.ConversationTurn, error) {
	s.mu.Lock()
	if s.state == StateAwaitingResponse {
		s.mu.Unlock()
		metrics.ObserveSubmit(false)
		return models.ConversationTurn{}, ErrBusy
	}
	if strings.TrimSpace(text) == "" {
		s.mu.Unlock()
		metrics.ObserveSubmit(false)
		return models.ConversationTurn{}, ErrEmptyInput
	}
	question := s.appendTurn(s.newTurn(models.RoleRequester, text))
	s.state = StateAwaitingResponse
	s.mu.Unlock()

	metrics.ObserveSubmit(true)
	s.record(ctx, question)

	answer := s.resolve(ctx, text)

	s.mu.Lock()
	answer = s.appendTurn(answer)
	s.state = StateIdle
	s.mu.Unlock()

	s.record(ctx, answer)
	s.publish(ctx, text, answer)
	return answer, nil
}

// resolve never fails outward: a panic or a context cancelled before the
// answer is ready becomes the generic failure turn.
func (s *Session) resolve(ctx context.Context, question string) (answer models.ConversationTurn) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.WithFields(map[string]interface{}{
				"session_id": s.id,
				"panic":      fmt.Sprint(r),
			}).Error("conversation request failed")
			answer = s.newTurn(models.RoleResponder, FailureMessage)
		}
	}()

	translation := s.provider.TranslateToQuery(ctx, question, s.schema)
	if err := ctx.Err(); err != nil {
		logger.Log.WithError(err).WithField("session_id", s.id).Warn("conversation request abandoned")
		return s.newTurn(models.RoleResponder, FailureMessage)
	}
	result := s.simulate(question)

	if translation.Source == llm.SourceLive {
		answer = s.newTurn(models.RoleResponder, ResolvedMessage)
		answer.SQL = translation.Query
	} else {
		answer = s.newTurn(models.RoleResponder, translation.Message)
	}
	answer.Data = &result
	return answer
}

func (s *Session) newTurn(role models.TurnRole, content string) models.ConversationTurn {
	return models.ConversationTurn{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		CreatedAt: s.now().UTC(),
	}
}

// appendTurn stamps the turn with its transcript position. Callers hold mu,
// except NewSession before the session is shared.
func (s *Session) appendTurn(turn models.ConversationTurn) models.ConversationTurn {
	turn.Seq = int64(len(s.turns))
	s.turns = append(s.turns, turn)
	return turn
}

func (s *Session) record(ctx context.Context, turn models.ConversationTurn) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordTurn(context.WithoutCancel(ctx), s.id, turn); err != nil {
		logger.Log.WithError(err).WithField("session_id", s.id).Warn("failed to persist conversation turn")
	}
}

func (s *Session) publish(ctx context.Context, question string, answer models.ConversationTurn) {
	if s.publisher == nil {
		return
	}
	payload := map[string]interface{}{
		"session_id":   s.id,
		"question":     question,
		"generated":    answer.SQL != "",
		"failed":       answer.Content == FailureMessage,
		"requested_by": s.principal.Name,
	}
	if answer.Data != nil {
		payload["result_type"] = string(answer.Data.Kind)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	if err := s.publisher.PublishEvent(ctx, "query.answered", "admin-flow", payload); err != nil {
		logger.Log.WithError(err).Warn("failed to publish query event")
	}
}
