package notifier

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// CompositeNotifier implements Notifier by combining multiple notifiers:
// Notify fans out to every sender, Watch merges every receiver.
type CompositeNotifier struct {
	logger    *zap.Logger
	notifiers []Notifier
	mu        sync.RWMutex
	watchers  map[chan<- *Event]struct{}
}

var _ Notifier = (*CompositeNotifier)(nil)

// NewCompositeNotifier creates a new composite notifier
func NewCompositeNotifier(ctx context.Context, logger *zap.Logger, notifiers ...Notifier) *CompositeNotifier {
	n := &CompositeNotifier{
		logger:    logger.Named("notifier.composite"),
		notifiers: notifiers,
		watchers:  make(map[chan<- *Event]struct{}),
	}

	if n.CanReceive() {
		go n.watch(ctx)
	}

	return n
}

func (n *CompositeNotifier) watch(ctx context.Context) {
	for _, notifier := range n.notifiers {
		if !notifier.CanReceive() {
			continue
		}

		notifierCh, err := notifier.Watch(ctx)
		if err != nil {
			n.logger.Error("failed to watch underlying notifier",
				zap.Error(err))
			continue
		}

		// Forward events from underlying notifiers
		go func(notifierCh <-chan *Event) {
			for {
				select {
				case event, ok := <-notifierCh:
					if !ok {
						return
					}
					n.notifyWatchers(event)
				case <-ctx.Done():
					return
				}
			}
		}(notifierCh)
	}
}

// notifyWatchers sends the event to all registered watchers
func (n *CompositeNotifier) notifyWatchers(event *Event) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for watcher := range n.watchers {
		select {
		case watcher <- event:
		default:
			n.logger.Warn("watcher channel is full, skipping notification",
				zap.String("type", string(event.Type)))
		}
	}
}

// Watch implements Notifier.Watch
func (n *CompositeNotifier) Watch(ctx context.Context) (<-chan *Event, error) {
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

// Notify implements Notifier.Notify
func (n *CompositeNotifier) Notify(ctx context.Context, event *Event) error {
	var lastErr error
	for _, notifier := range n.notifiers {
		if !notifier.CanSend() {
			continue
		}
		if err := notifier.Notify(ctx, event); err != nil {
			lastErr = err
			n.logger.Error("failed to deliver event",
				zap.String("type", string(event.Type)),
				zap.Error(err))
		}
	}
	return lastErr
}

// CanReceive returns true if any underlying notifier can receive
func (n *CompositeNotifier) CanReceive() bool {
	for _, notifier := range n.notifiers {
		if notifier.CanReceive() {
			return true
		}
	}
	return false
}

// CanSend returns true if any underlying notifier can send
func (n *CompositeNotifier) CanSend() bool {
	for _, notifier := range n.notifiers {
		if notifier.CanSend() {
			return true
		}
	}
	return false
}
