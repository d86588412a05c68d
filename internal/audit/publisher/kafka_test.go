package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/fekuna/vialtrack-service/internal/model"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w}
	entityID := "vial-1"

	err := p.Publish(context.Background(), &model.AuditLog{
		ID:         "audit-1",
		AccountID:  "acct-1",
		Action:     model.AuditUsageLogged,
		EntityType: model.EntityVial,
		EntityID:   &entityID,
		ActorType:  model.ActorUser,
		Metadata:   model.Metadata{"quantityUsed": "20"},
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "acct-1", string(msg.Key))

	var event AuditEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, EventTypeAuditRecorded, event.EventType)
	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, "audit-1", event.Payload.ID)
	assert.Equal(t, model.AuditUsageLogged, event.Payload.Action)
	assert.Equal(t, "20", event.Payload.Metadata["quantityUsed"])

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	p := &KafkaPublisher{writer: &fakeWriter{err: errors.New("broker down")}}
	err := p.Publish(context.Background(), &model.AuditLog{ID: "audit-1", AccountID: "acct-1"})
	assert.ErrorContains(t, err, "broker down")
}
