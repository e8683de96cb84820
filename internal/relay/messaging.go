package relay

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/arko-chat/flurrybridge/internal/decision"
	"github.com/arko-chat/flurrybridge/internal/flurry"
	"github.com/arko-chat/flurrybridge/internal/storage"
)

// DefaultDecisionTimeout bounds how long a notification callback waits
// for the host's decision.
const DefaultDecisionTimeout = 300 * time.Millisecond

var _ flurry.MessagingListener = (*MessagingRelay)(nil)

type HandshakeOutcome string

const (
	HandshakeNoListener HandshakeOutcome = "no_listener"
	HandshakeDecided    HandshakeOutcome = "decided"
	HandshakeTimedOut   HandshakeOutcome = "timed_out"
	HandshakeDropped    HandshakeOutcome = "dropped"
)

type MessagingOption func(*MessagingRelay)

func WithDecisionTimeout(d time.Duration) MessagingOption {
	return func(r *MessagingRelay) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithTokenStore(s storage.TokenStore) MessagingOption {
	return func(r *MessagingRelay) {
		if s != nil {
			r.tokens = s
		}
	}
}

// WithHandshakeObserver is called once per received/clicked callback
// with how the handshake ended.
func WithHandshakeObserver(fn func(MessagingEventType, HandshakeOutcome)) MessagingOption {
	return func(r *MessagingRelay) {
		r.observe = fn
	}
}

// MessagingRelay forwards push lifecycle events. Received and clicked
// notifications block the delivering goroutine until the host decides
// whether it handles the message itself, or the timeout elapses.
type MessagingRelay struct {
	poster  Poster
	logger  *slog.Logger
	tokens  storage.TokenStore
	timeout time.Duration
	observe func(MessagingEventType, HandshakeOutcome)

	slot sinkSlot

	// one handshake in flight at a time
	handshakeMu sync.Mutex

	mu      sync.Mutex
	pending *decision.Future
}

func NewMessagingRelay(
	poster Poster,
	logger *slog.Logger,
	opts ...MessagingOption,
) *MessagingRelay {
	r := &MessagingRelay{
		poster:  poster,
		logger:  logger,
		tokens:  storage.NewMemoryTokenStore(),
		timeout: DefaultDecisionTimeout,
		observe: func(MessagingEventType, HandshakeOutcome) {},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Listen attaches sink and replays the last known push token, if any.
func (r *MessagingRelay) Listen(sink Sink) {
	r.slot.set(sink)
	r.replay(func(payload any) bool {
		return deliver(r.poster, &r.slot, payload)
	})
}

// Replay sends the last known push token to sink alone, through the
// main loop. Hosts that share one attached sink use it to catch up a
// consumer that joined after Listen.
func (r *MessagingRelay) Replay(sink Sink) {
	r.replay(func(payload any) bool {
		return r.poster.Post(func() { sink.Success(payload) })
	})
}

func (r *MessagingRelay) replay(send func(payload any) bool) {
	token, err := r.tokens.LoadToken()
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			r.logger.Error("load push token", "err", err)
		}
		return
	}
	r.logger.Debug("replaying push token")
	ev := MessagingEvent{Type: TokenRefresh, Token: token}
	if !send(ev.Payload()) {
		r.logger.Warn("messaging event dropped, main loop stopped", "type", ev.Type)
	}
}

func (r *MessagingRelay) Cancel() {
	r.slot.set(nil)
}

// NotifyDecision resolves the pending handshake. It reports whether a
// handshake was waiting.
func (r *MessagingRelay) NotifyDecision(willHandle bool) bool {
	r.mu.Lock()
	f := r.pending
	r.mu.Unlock()

	if f == nil {
		r.logger.Debug("decision with no pending notification", "willHandle", willHandle)
		return false
	}
	return f.Resolve(willHandle)
}

func (r *MessagingRelay) OnNotificationReceived(msg flurry.Message) bool {
	return r.handshake(NotificationReceived, msg)
}

func (r *MessagingRelay) OnNotificationClicked(msg flurry.Message) bool {
	return r.handshake(NotificationClicked, msg)
}

func (r *MessagingRelay) OnNotificationCancelled(msg flurry.Message) {
	if r.slot.get() == nil {
		return
	}
	ev := MessagingEvent{Type: NotificationCancelled, Message: msg.Clone()}
	if !deliver(r.poster, &r.slot, ev.Payload()) {
		r.logger.Warn("messaging event dropped, main loop stopped", "type", ev.Type)
	}
}

func (r *MessagingRelay) OnTokenRefresh(token string) {
	if err := r.tokens.StoreToken(token); err != nil {
		r.logger.Error("store push token", "err", err)
	}
	if r.slot.get() == nil {
		return
	}
	r.sendToken(token)
}

func (r *MessagingRelay) OnNonFlurryNotificationReceived(any) {}

func (r *MessagingRelay) sendToken(token string) {
	ev := MessagingEvent{Type: TokenRefresh, Token: token}
	if !deliver(r.poster, &r.slot, ev.Payload()) {
		r.logger.Warn("messaging event dropped, main loop stopped", "type", ev.Type)
	}
}

func (r *MessagingRelay) handshake(typ MessagingEventType, msg flurry.Message) bool {
	// no host listening: default handling proceeds, nothing forwarded
	if r.slot.get() == nil {
		r.observe(typ, HandshakeNoListener)
		return false
	}

	r.handshakeMu.Lock()
	defer r.handshakeMu.Unlock()

	f := decision.New()
	r.mu.Lock()
	r.pending = f
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		if r.pending == f {
			r.pending = nil
		}
		r.mu.Unlock()
	}()

	payload := MessagingEvent{Type: typ, Message: msg.Clone()}.Payload()
	posted := r.poster.Post(func() {
		sink := r.slot.get()
		if sink == nil {
			// detached before delivery; nobody can answer
			f.Resolve(false)
			return
		}
		sink.Success(payload)
	})
	if !posted {
		r.logger.Warn("messaging event dropped, main loop stopped", "type", typ)
		r.observe(typ, HandshakeDropped)
		return false
	}

	willHandle, ok := f.Await(r.timeout)
	if !ok {
		r.logger.Debug("notification decision timed out", "type", typ, "id", f.ID(), "timeout", r.timeout)
		r.observe(typ, HandshakeTimedOut)
		return false
	}

	r.logger.Debug("notification decision", "type", typ, "id", f.ID(), "willHandle", willHandle)
	r.observe(typ, HandshakeDecided)
	return willHandle
}
