package notifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// fakeNotifier is a minimal Notifier used to drive the composite in tests.
type fakeNotifier struct {
	recv bool
	send bool
	ch   chan *Event
	err  error

	notified []*Event
}

func (f *fakeNotifier) Watch(ctx context.Context) (<-chan *Event, error) {
	if !f.recv {
		return nil, errors.New("not a receiver")
	}
	out := make(chan *Event, 4)
	go func() {
		defer close(out)
		for {
			select {
			case event, ok := <-f.ch:
				if !ok {
					return
				}
				out <- event
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (f *fakeNotifier) Notify(_ context.Context, event *Event) error {
	if !f.send {
		return errors.New("not a sender")
	}
	f.notified = append(f.notified, event)
	return f.err
}

func (f *fakeNotifier) CanReceive() bool { return f.recv }
func (f *fakeNotifier) CanSend() bool    { return f.send }

func TestCompositeNotifier_CanSendReceive(t *testing.T) {
	ctx := context.Background()

	n := NewCompositeNotifier(ctx, zap.NewNop(),
		&fakeNotifier{recv: true},
		&fakeNotifier{send: true},
	)
	assert.True(t, n.CanReceive())
	assert.True(t, n.CanSend())

	none := NewCompositeNotifier(ctx, zap.NewNop(), &fakeNotifier{})
	assert.False(t, none.CanReceive())
	assert.False(t, none.CanSend())
}

func TestCompositeNotifier_WatchForwards(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := &fakeNotifier{recv: true, ch: make(chan *Event, 1)}
	n := NewCompositeNotifier(ctx, zap.NewNop(), source, &fakeNotifier{send: true})

	ch, err := n.Watch(ctx)
	assert.NoError(t, err)
	assert.NotNil(t, ch)

	sent := NewEvent(EventMoveCommitted, "sess-1", 3)
	source.ch <- sent

	select {
	case got := <-ch:
		assert.Equal(t, sent.ID, got.ID)
		assert.Equal(t, EventMoveCommitted, got.Type)
		assert.Equal(t, "sess-1", got.SessionID)
		assert.Equal(t, int64(3), got.Version)
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timed out waiting for forwarded event")
	}
}

func TestCompositeNotifier_NotifyFansOutToSenders(t *testing.T) {
	ctx := context.Background()

	a := &fakeNotifier{send: true}
	b := &fakeNotifier{send: true}
	receiver := &fakeNotifier{recv: true, ch: make(chan *Event)}
	n := NewCompositeNotifier(ctx, zap.NewNop(), a, receiver, b)

	event := NewEvent(EventSessionCreated, "sess-2", 0)
	assert.NoError(t, n.Notify(ctx, event))

	assert.Len(t, a.notified, 1)
	assert.Len(t, b.notified, 1)
	assert.Empty(t, receiver.notified)
}

func TestCompositeNotifier_NotifyAggregatesLastError(t *testing.T) {
	ctx := context.Background()

	n := NewCompositeNotifier(ctx, zap.NewNop(),
		&fakeNotifier{send: true, err: errors.New("e1")},
		&fakeNotifier{send: true},
		&fakeNotifier{send: true, err: errors.New("e3")},
	)

	err := n.Notify(ctx, NewEvent(EventSessionExpired, "sess-3", 7))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "e3")
}
