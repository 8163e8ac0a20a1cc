package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/AndresDavidVV/ClinicaIA/pkg/common/models"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedReader struct {
	mu        sync.Mutex
	script    []func() (kafka.Message, error)
	fallback  error
	fetches   int
	committed []kafka.Message
}

func (r *scriptedReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetches++
	if len(r.script) > 0 {
		next := r.script[0]
		r.script = r.script[1:]
		return next()
	}
	return kafka.Message{}, r.fallback
}

func (r *scriptedReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *scriptedReader) Close() error { return nil }

func TestConsumeBacksOffWhileBrokerIsDown(t *testing.T) {
	reader := &scriptedReader{fallback: errors.New("dial tcp: connection refused")}
	c := newConsumer(reader)
	c.backoff = 10 * time.Millisecond
	c.maxBackoff = 40 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := c.Consume(ctx, func(ctx context.Context, event models.Event) error {
		t.Fatal("handler must not run")
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, reader.fetches, 2)
	assert.LessOrEqual(t, reader.fetches, 7)
}

func TestConsumeResumesAfterFetchErrors(t *testing.T) {
	raw, err := json.Marshal(NewEvent("query.answered", "admin-flow", map[string]interface{}{"failed": false}))
	require.NoError(t, err)

	fail := func() (kafka.Message, error) { return kafka.Message{}, errors.New("leader not available") }
	reader := &scriptedReader{
		script: []func() (kafka.Message, error){
			fail,
			fail,
			func() (kafka.Message, error) { return kafka.Message{Value: []byte("{not json")}, nil },
			func() (kafka.Message, error) { return kafka.Message{Value: raw}, nil },
		},
		fallback: io.EOF,
	}
	c := newConsumer(reader)
	c.backoff = time.Millisecond
	c.maxBackoff = time.Millisecond

	var seen []string
	err = c.Consume(context.Background(), func(ctx context.Context, event models.Event) error {
		seen = append(seen, event.Type)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"query.answered"}, seen)
	assert.Len(t, reader.committed, 2)
	assert.Equal(t, 5, reader.fetches)
}

func TestConsumeStopsOnHandlerError(t *testing.T) {
	raw, err := json.Marshal(NewEvent("opinion.generated", "doctor-flow", nil))
	require.NoError(t, err)

	reader := &scriptedReader{
		script:   []func() (kafka.Message, error){func() (kafka.Message, error) { return kafka.Message{Value: raw}, nil }},
		fallback: io.EOF,
	}
	boom := errors.New("stdout closed")
	err = newConsumer(reader).Consume(context.Background(), func(ctx context.Context, event models.Event) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, reader.committed)
}
