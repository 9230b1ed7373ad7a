package gateway

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/rinklog/go/internal/models"
	"github.com/mcdev12/rinklog/go/internal/session/events"
)

type fakeRemoteHandler struct {
	instance string
	seen     []events.Envelope
}

func (f *fakeRemoteHandler) InstanceID() string { return f.instance }

func (f *fakeRemoteHandler) HandleRemoteEvent(_ context.Context, e events.Envelope) bool {
	f.seen = append(f.seen, e)
	return e.Type.ChangesOwnership()
}

func encode(t *testing.T, instance string) []byte {
	t.Helper()
	env, err := events.NewEnvelope(events.EventTypeViewClaimed, "g1", instance, "x", events.ViewPayload{View: models.ViewGoals})
	require.NoError(t, err)
	data, err := json.Marshal(env)
	require.NoError(t, err)
	return data
}

func TestProcessMessageSkipsOwnEvents(t *testing.T) {
	h := &fakeRemoteHandler{instance: "me"}
	ec := newEventConsumer(nil, h, DefaultJetStreamConsumerConfig())

	require.NoError(t, ec.processMessage(context.Background(), encode(t, "me")))
	assert.Empty(t, h.seen)

	require.NoError(t, ec.processMessage(context.Background(), encode(t, "them")))
	require.Len(t, h.seen, 1)
	assert.Equal(t, events.EventTypeViewClaimed, h.seen[0].Type)
}

func TestProcessMessageRejectsGarbage(t *testing.T) {
	ec := newEventConsumer(nil, &fakeRemoteHandler{instance: "me"}, DefaultJetStreamConsumerConfig())
	assert.Error(t, ec.processMessage(context.Background(), []byte("not json")))
}

func TestConsumerNameIsPerInstance(t *testing.T) {
	ec := newEventConsumer(nil, &fakeRemoteHandler{instance: "abc"}, DefaultJetStreamConsumerConfig())
	assert.Equal(t, "session-gateway-abc", ec.ConsumerName())
}
