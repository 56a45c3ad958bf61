package notifier

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gloamlab/gloam/internal/common/cnst"
	"github.com/gloamlab/gloam/internal/common/config"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestRedisNotifier(t *testing.T, mr *miniredis.Miniredis, topic string, role config.NotifierRole) *RedisNotifier {
	t.Helper()

	cfg := config.RedisConfig{
		ClusterType: cnst.RedisClusterTypeSingle,
		Addr:        mr.Addr(),
		Topic:       topic,
	}
	n, err := NewRedisNotifier(zap.NewNop(), cfg, role)
	if err != nil {
		t.Fatalf("failed to create redis notifier: %v", err)
	}
	t.Cleanup(func() { _ = n.Close() })
	return n
}

func TestRedisNotifier_CanSendReceiveByRole(t *testing.T) {
	nRecv := &RedisNotifier{role: config.RoleReceiver}
	assert.True(t, nRecv.CanReceive())
	assert.False(t, nRecv.CanSend())

	nSend := &RedisNotifier{role: config.RoleSender}
	assert.False(t, nSend.CanReceive())
	assert.True(t, nSend.CanSend())

	nBoth := &RedisNotifier{role: config.RoleBoth}
	assert.True(t, nBoth.CanReceive())
	assert.True(t, nBoth.CanSend())
}

func TestRedisNotifier_WatchAndNotify(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	recv := newTestRedisNotifier(t, mr, "testevents", config.RoleReceiver)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := recv.Watch(ctx)
	assert.NoError(t, err)
	assert.NotNil(t, ch)

	send := newTestRedisNotifier(t, mr, "testevents", config.RoleSender)
	sent := NewEvent(EventMoveCommitted, "sess-42", 5)
	assert.NoError(t, send.Notify(context.Background(), sent))
	assert.True(t, mr.Exists("testevents"))

	select {
	case got := <-ch:
		if assert.NotNil(t, got) {
			assert.Equal(t, sent.ID, got.ID)
			assert.Equal(t, EventMoveCommitted, got.Type)
			assert.Equal(t, "sess-42", got.SessionID)
			assert.Equal(t, int64(5), got.Version)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for redis stream event")
	}

	// Cancel and ensure the channel closes soon after (allow up to 2s due to XREAD block)
	cancel()
	select {
	case _, ok := <-ch:
		_ = ok
	case <-time.After(2 * time.Second):
		t.Fatal("watch channel did not close in time")
	}
}

func TestRedisNotifier_DeliversInPublishOrder(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	n := newTestRedisNotifier(t, mr, "testevents", config.RoleBoth)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := n.Watch(ctx)
	assert.NoError(t, err)

	first := NewEvent(EventSessionCreated, "sess-7", 0)
	second := NewEvent(EventMoveCommitted, "sess-7", 1)
	assert.NoError(t, n.Notify(ctx, first))
	assert.NoError(t, n.Notify(ctx, second))

	for _, want := range []*Event{first, second} {
		select {
		case got := <-ch:
			if assert.NotNil(t, got) {
				assert.Equal(t, want.ID, got.ID)
				assert.Equal(t, want.Type, got.Type)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %s", want.Type)
		}
	}
}

func TestRedisNotifier_Watch_NotReceiver(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	n := newTestRedisNotifier(t, mr, "testevents", config.RoleSender)
	ch, werr := n.Watch(context.Background())
	assert.Nil(t, ch)
	assert.ErrorIs(t, werr, cnst.ErrNotReceiver)
}

func TestRedisNotifier_Notify_NotSender(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	n := newTestRedisNotifier(t, mr, "testevents", config.RoleReceiver)
	err = n.Notify(context.Background(), NewEvent(EventSessionCreated, "sess-1", 0))
	assert.ErrorIs(t, err, cnst.ErrNotSender)
}

func TestRedisNotifier_DefaultStreamName(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	n := newTestRedisNotifier(t, mr, "", config.RoleSender)
	assert.NoError(t, n.Notify(context.Background(), NewEvent(EventSweepRequested, "", 0)))
	assert.True(t, mr.Exists("gloam:events"))
}

func TestNewRedisNotifier_ConnectionError(t *testing.T) {
	cfg := config.RedisConfig{
		ClusterType: cnst.RedisClusterTypeSingle,
		Addr:        "127.0.0.1:0",
	}
	n, err := NewRedisNotifier(zap.NewNop(), cfg, config.RoleBoth)
	assert.Nil(t, n)
	assert.Error(t, err)
}
