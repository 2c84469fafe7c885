package push

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resqlink/resqlink/core/model"
	corepush "github.com/resqlink/resqlink/core/push"
)

type fakeToken struct{ err error }

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type fakePahoClient struct {
	published  map[string][]byte
	publishErr error
	ackHandler paho.MessageHandler
}

func (f *fakePahoClient) IsConnected() bool       { return true }
func (f *fakePahoClient) Connect() paho.Token     { return &fakeToken{} }
func (f *fakePahoClient) Disconnect(uint)         {}
func (f *fakePahoClient) Publish(topic string, _ byte, _ bool, payload interface{}) paho.Token {
	if f.published == nil {
		f.published = make(map[string][]byte)
	}
	f.published[topic] = payload.([]byte)
	return &fakeToken{err: f.publishErr}
}
func (f *fakePahoClient) Subscribe(_ string, _ byte, cb paho.MessageHandler) paho.Token {
	f.ackHandler = cb
	return &fakeToken{}
}

type fakeMessage struct{ payload []byte }

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 0 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return "helper/ack" }
func (m *fakeMessage) MessageID() uint16 { return 0 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

func withFakeClient(t *testing.T) *fakePahoClient {
	t.Helper()
	fake := &fakePahoClient{}
	orig := newMQTTClient
	newMQTTClient = func(*paho.ClientOptions) pahoClient { return fake }
	t.Cleanup(func() { newMQTTClient = orig })
	return fake
}

func testAlert() model.Alert {
	return model.Alert{
		ID:       "alert-1",
		Type:     model.AlertMedical,
		Location: model.Location{Latitude: 28.6139, Longitude: 77.2090},
	}
}

func TestPahoChannel_PingPublishesToHelperTopic(t *testing.T) {
	fake := withFakeClient(t)
	ch, err := NewPahoChannel(Config{Broker: "tcp://localhost:1883", ClientID: "test"})
	require.NoError(t, err)

	msgID, err := ch.Ping("h1", testAlert())
	require.NoError(t, err)
	assert.NotEmpty(t, msgID)

	payload, ok := fake.published["helper/h1/alert"]
	require.True(t, ok, "ping must publish on the helper's alert topic")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, msgID, decoded["message_id"])
	assert.Equal(t, "alert-1", decoded["alert_id"])
	assert.Equal(t, "MEDICAL", decoded["alert_type"])
}

func TestPahoChannel_AckBeforeWaitIsNotLost(t *testing.T) {
	fake := withFakeClient(t)
	ch, err := NewPahoChannel(Config{Broker: "tcp://localhost:1883"})
	require.NoError(t, err)

	msgID, err := ch.Ping("h1", testAlert())
	require.NoError(t, err)

	// Device acks immediately, before WaitForAck is even called.
	ack, _ := json.Marshal(map[string]string{"message_id": msgID})
	fake.ackHandler(nil, &fakeMessage{payload: ack})

	ok, err := ch.WaitForAck(msgID, 100*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, ok)
}

type fakeFleet struct {
	mu   sync.Mutex
	locs map[string]model.Location
}

func (f *fakeFleet) SetLocation(id string, loc model.Location) {
	f.mu.Lock()
	if f.locs == nil {
		f.locs = map[string]model.Location{}
	}
	f.locs[id] = loc
	f.mu.Unlock()
}

func TestPahoChannel_AckLocationRefreshesFleet(t *testing.T) {
	fake := withFakeClient(t)
	ch, err := NewPahoChannel(Config{Broker: "tcp://localhost:1883"})
	require.NoError(t, err)
	fleet := &fakeFleet{}
	ch.BindFleet(fleet)

	msgID, err := ch.Ping("h1", testAlert())
	require.NoError(t, err)

	ack, _ := json.Marshal(map[string]any{
		"message_id": msgID,
		"helper_id":  "h1",
		"latitude":   28.62,
		"longitude":  77.21,
	})
	fake.ackHandler(nil, &fakeMessage{payload: ack})

	fleet.mu.Lock()
	loc, ok := fleet.locs["h1"]
	fleet.mu.Unlock()
	require.True(t, ok, "ack with a fix must refresh the helper's location")
	assert.InDelta(t, 28.62, loc.Latitude, 1e-9)
	assert.InDelta(t, 77.21, loc.Longitude, 1e-9)
	assert.False(t, loc.CapturedAt.IsZero())

	acked, err := ch.WaitForAck(msgID, 100*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, acked)
}

func TestPahoChannel_WaitForAckTimeout(t *testing.T) {
	withFakeClient(t)
	ch, err := NewPahoChannel(Config{Broker: "tcp://localhost:1883"})
	require.NoError(t, err)

	msgID, err := ch.Ping("h1", testAlert())
	require.NoError(t, err)

	ok, err := ch.WaitForAck(msgID, 20*time.Millisecond)
	assert.False(t, ok)
	assert.ErrorIs(t, err, corepush.ErrAckTimeout)
}

func TestPahoChannel_PublishFailureAfterRetries(t *testing.T) {
	fake := withFakeClient(t)
	fake.publishErr = errors.New("broker gone")
	ch, err := NewPahoChannel(Config{Broker: "tcp://localhost:1883", MaxRetries: 1, BackoffMS: 1})
	require.NoError(t, err)

	_, err = ch.Ping("h1", testAlert())
	assert.Error(t, err)
}

func TestPahoChannel_UnknownMessageID(t *testing.T) {
	withFakeClient(t)
	ch, err := NewPahoChannel(Config{Broker: "tcp://localhost:1883"})
	require.NoError(t, err)

	_, err = ch.WaitForAck("never-sent", 10*time.Millisecond)
	assert.Error(t, err)
}
