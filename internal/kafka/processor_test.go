package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/leancoach/coach-backend/events/modules/activity"
	"github.com/leancoach/coach-backend/internal/config"
	"github.com/leancoach/coach-backend/model"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewDialerPlaintext(t *testing.T) {
	d := NewDialer(config.KafkaConfig{Brokers: "localhost:9092"})
	assert.Nil(t, d.SASLMechanism)
	assert.Nil(t, d.TLS)
}

func TestNewDialerSASL(t *testing.T) {
	d := NewDialer(config.KafkaConfig{APIKey: "key", APISecret: "secret"})
	require.NotNil(t, d.SASLMechanism)
	assert.Equal(t, "PLAIN", d.SASLMechanism.Name())
	assert.NotNil(t, d.TLS)

	tr, ok := NewTransport(config.KafkaConfig{APIKey: "key", APISecret: "secret"}).(*kafka.Transport)
	require.True(t, ok)
	assert.NotNil(t, tr.SASL)
	assert.NotNil(t, tr.TLS)
}

func TestRunEventProcessorRequiresBrokers(t *testing.T) {
	err := RunEventProcessor(context.Background(), config.KafkaConfig{Brokers: " , "}, nil, zap.NewNop())
	assert.Error(t, err)
}

type countingStore struct{ n int }

func (c *countingStore) AppendActivity(context.Context, *model.ActivityLog) error {
	c.n++
	return nil
}

func TestPersistSkipsInvalidEvents(t *testing.T) {
	st := &countingStore{}
	err := persist(context.Background(), kafka.Message{Value: []byte("{}")}, st, zap.NewNop())
	require.NoError(t, err)
	assert.Zero(t, st.n)

	event := activity.NewActivityRecordedEvent(model.NewActivity("o", "d", "u", model.ActionDocumentCreated, nil))
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	require.NoError(t, persist(context.Background(), kafka.Message{Value: payload}, st, zap.NewNop()))
	assert.Equal(t, 1, st.n)
}

type flakyStore struct {
	failures int
	calls    int
	stored   int
}

func (f *flakyStore) AppendActivity(context.Context, *model.ActivityLog) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("database is locked")
	}
	f.stored++
	return nil
}

func fastRetries(t *testing.T) {
	t.Helper()
	initial, ceiling := persistInitialInterval, persistMaxInterval
	persistInitialInterval, persistMaxInterval = time.Millisecond, 5*time.Millisecond
	t.Cleanup(func() { persistInitialInterval, persistMaxInterval = initial, ceiling })
}

func activityPayload(t *testing.T) []byte {
	t.Helper()
	event := activity.NewActivityRecordedEvent(model.NewActivity("o", "d", "u", model.ActionSectionUpdated, nil))
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	return payload
}

func TestPersistRetriesUntilStored(t *testing.T) {
	fastRetries(t)
	st := &flakyStore{failures: 5}

	err := persist(context.Background(), kafka.Message{Value: activityPayload(t)}, st, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 6, st.calls)
	assert.Equal(t, 1, st.stored)
}

func TestPersistStopsOnlyWhenContextEnds(t *testing.T) {
	fastRetries(t)
	st := &flakyStore{failures: 1 << 30}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := persist(ctx, kafka.Message{Value: activityPayload(t)}, st, zap.NewNop())
	assert.Error(t, err)
	assert.Greater(t, st.calls, 1)
	assert.Zero(t, st.stored)
}
