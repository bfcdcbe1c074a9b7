package dispatch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ashesh3/teleicu-middleware/internal/models"
)

type fakeSubscriber struct {
	target   string
	received [][]byte
	fail     bool
}

func (f *fakeSubscriber) Target() string { return f.target }

func (f *fakeSubscriber) Send(data []byte) error {
	if f.fail {
		return errors.New("connection gone")
	}
	f.received = append(f.received, data)
	return nil
}

type fakeSource struct {
	subs []Subscriber
}

func (f *fakeSource) Subscribers() []Subscriber { return f.subs }

func TestBroadcast_FiltersByTargetDevice(t *testing.T) {
	subA := &fakeSubscriber{target: "dev-A"}
	subB := &fakeSubscriber{target: "dev-B"}
	d := NewDispatcher(&fakeSource{subs: []Subscriber{subA, subB}}, zap.NewNop())

	d.Broadcast([]models.Observation{
		{DeviceID: "dev-A", ObservationID: "heart-rate"},
	})

	require.Len(t, subA.received, 1)
	assert.Contains(t, string(subA.received[0]), `"dev-A"`)
	// subscriber with no matching observations receives no message
	assert.Empty(t, subB.received)
}

func TestBroadcast_SubscriberFailureIsIsolated(t *testing.T) {
	bad := &fakeSubscriber{target: "dev-A", fail: true}
	good := &fakeSubscriber{target: "dev-A"}
	d := NewDispatcher(&fakeSource{subs: []Subscriber{bad, good}}, zap.NewNop())

	d.Broadcast([]models.Observation{{DeviceID: "dev-A", ObservationID: "SpO2"}})

	assert.Len(t, good.received, 1)
}

func TestBroadcast_EmptyBatchSendsNothing(t *testing.T) {
	sub := &fakeSubscriber{target: "dev-A"}
	d := NewDispatcher(&fakeSource{subs: []Subscriber{sub}}, zap.NewNop())

	d.Broadcast(nil)

	assert.Empty(t, sub.received)
}
