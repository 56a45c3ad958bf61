package notifier

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/gloamlab/gloam/internal/common/cnst"
	"github.com/gloamlab/gloam/internal/common/config"
	"github.com/gloamlab/gloam/pkg/utils"
)

// SignalNotifier implements Notifier using system signals. A receiver
// turns the configured signal into a sweep.requested event; a sender
// delivers that signal to the process behind the configured PID file.
type SignalNotifier struct {
	logger   *zap.Logger
	pidFile  string
	sig      syscall.Signal
	role     config.NotifierRole
	watchers map[chan<- *Event]struct{}
	mu       sync.RWMutex
}

var _ Notifier = (*SignalNotifier)(nil)

// NewSignalNotifier creates a new signal-based notifier
func NewSignalNotifier(ctx context.Context, logger *zap.Logger, cfg config.SignalConfig, role config.NotifierRole) *SignalNotifier {
	n := &SignalNotifier{
		logger:   logger.Named("notifier.signal"),
		pidFile:  cfg.PID,
		sig:      parseSignal(cfg.Signal),
		role:     role,
		watchers: make(map[chan<- *Event]struct{}),
	}

	if n.CanReceive() {
		go n.handleSignals(ctx)
	}

	return n
}

func parseSignal(name string) syscall.Signal {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "SIGHUP", "HUP":
		return syscall.SIGHUP
	case "SIGUSR1", "USR1":
		return syscall.SIGUSR1
	case "SIGUSR2", "USR2":
		return syscall.SIGUSR2
	default:
		return syscall.SIGHUP
	}
}

func (n *SignalNotifier) handleSignals(ctx context.Context) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, n.sig)
	defer signal.Stop(sigChan)

	for {
		select {
		case sig := <-sigChan:
			n.logger.Info("received sweep signal", zap.String("signal", sig.String()))
			n.broadcast(NewEvent(EventSweepRequested, "", 0))
		case <-ctx.Done():
			return
		}
	}
}

func (n *SignalNotifier) broadcast(event *Event) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for ch := range n.watchers {
		select {
		case ch <- event:
		default:
			n.logger.Warn("watcher channel is full, skipping notification",
				zap.String("type", string(event.Type)))
		}
	}
}

// Watch implements Notifier.Watch
func (n *SignalNotifier) Watch(ctx context.Context) (<-chan *Event, error) {
	if !n.CanReceive() {
		return nil, cnst.ErrNotReceiver
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	ch := make(chan *Event, 16)
	n.watchers[ch] = struct{}{}

	go func() {
		<-ctx.Done()
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.watchers, ch)
		close(ch)
	}()

	return ch, nil
}

// Notify implements Notifier.Notify. Only sweep requests cross the
// process boundary as signals; other event types are dropped.
func (n *SignalNotifier) Notify(_ context.Context, event *Event) error {
	if !n.CanSend() {
		return cnst.ErrNotSender
	}
	if event == nil || event.Type != EventSweepRequested {
		return nil
	}

	if n.pidFile != "" {
		return utils.SendSignalToPIDFile(n.pidFile, n.sig)
	}

	// Without a PID file the request stays in-process.
	n.broadcast(event)
	return nil
}

// CanReceive returns true if the notifier can receive events
func (n *SignalNotifier) CanReceive() bool {
	return n.role == config.RoleReceiver || n.role == config.RoleBoth
}

// CanSend returns true if the notifier can send events
func (n *SignalNotifier) CanSend() bool {
	return n.role == config.RoleSender || n.role == config.RoleBoth
}
