// Package bridge owns the lifecycle of one host attachment: the main
// loop, the call dispatcher and the three event relays.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/arko-chat/flurrybridge/internal/dispatcher"
	"github.com/arko-chat/flurrybridge/internal/flurry"
	"github.com/arko-chat/flurrybridge/internal/mainloop"
	"github.com/arko-chat/flurrybridge/internal/metrics"
	"github.com/arko-chat/flurrybridge/internal/relay"
	"github.com/arko-chat/flurrybridge/internal/storage"
)

// MethodChannel carries method calls. Event channels are the relay
// channel names.
const MethodChannel = "flurry_flutter_plugin"

var (
	ErrUnknownChannel = errors.New("bridge: unknown channel")
	ErrDetached       = errors.New("bridge: detached")
)

type options struct {
	logger       *slog.Logger
	poster       relay.Poster
	tokens       storage.TokenStore
	timeout      time.Duration
	appContext   any
	preconfigMsg bool
	metrics      *metrics.Metrics
}

type Option func(*options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithPoster delivers events through p instead of an owned main loop.
// The desktop host passes the webview's UI thread here.
func WithPoster(p relay.Poster) Option {
	return func(o *options) { o.poster = p }
}

func WithTokenStore(s storage.TokenStore) Option {
	return func(o *options) { o.tokens = s }
}

func WithDecisionTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

func WithApplicationContext(appContext any) Option {
	return func(o *options) { o.appContext = appContext }
}

// WithMessagingPreconfigured is set when the native app enabled
// messaging itself, using MessagingListener as the listener.
func WithMessagingPreconfigured() Option {
	return func(o *options) { o.preconfigMsg = true }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

type Plugin struct {
	logger  *slog.Logger
	metrics *metrics.Metrics

	loop *mainloop.Loop
	stop context.CancelFunc

	dispatcher *dispatcher.Dispatcher
	config     *relay.ConfigRelay
	messaging  *relay.MessagingRelay
	segments   *relay.SegmentationRelay

	mu       sync.RWMutex
	detached bool
}

// Attach wires a plugin to sdk and starts its main loop.
func Attach(sdk flurry.SDK, opts ...Option) (*Plugin, error) {
	o := options{
		logger:  slog.New(slog.DiscardHandler),
		tokens:  storage.NewMemoryTokenStore(),
		timeout: relay.DefaultDecisionTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if o.timeout <= 0 {
		return nil, fmt.Errorf("decision timeout must be positive, got %s", o.timeout)
	}

	p := &Plugin{
		logger:  o.logger,
		metrics: o.metrics,
	}

	poster := o.poster
	if poster == nil {
		ctx, cancel := context.WithCancel(context.Background())
		p.loop = mainloop.New(o.logger.With("component", "mainloop"))
		p.stop = cancel
		go p.loop.Run(ctx)
		poster = p.loop
	}

	p.config = relay.NewConfigRelay(sdk.Config(), poster, o.logger.With("channel", relay.ChannelConfig))
	p.config.OnEvent(func(ev relay.ConfigEvent) {
		if ev.Type == relay.ConfigActivateComplete {
			o.logger.Info("remote config activated", "isCache", ev.Flag)
		}
	})

	p.segments = relay.NewSegmentationRelay(sdk.Segmentation(), poster, o.logger.With("channel", relay.ChannelSegmentation))
	p.segments.OnEvent(func(data map[string]string) {
		o.logger.Info("publisher data fetched", "segments", len(data))
	})

	p.messaging = relay.NewMessagingRelay(poster, o.logger.With("channel", relay.ChannelMessaging),
		relay.WithDecisionTimeout(o.timeout),
		relay.WithTokenStore(o.tokens),
		relay.WithHandshakeObserver(func(t relay.MessagingEventType, out relay.HandshakeOutcome) {
			p.metrics.ObserveHandshake(string(t), string(out))
		}),
	)

	dopts := []dispatcher.Option{
		dispatcher.WithLogger(o.logger.With("channel", MethodChannel)),
		dispatcher.WithMessaging(p.messaging, p.messaging.NotifyDecision),
	}
	if o.appContext != nil {
		dopts = append(dopts, dispatcher.WithApplicationContext(o.appContext))
	}
	if o.preconfigMsg {
		dopts = append(dopts, dispatcher.WithMessagingPreconfigured())
	}
	p.dispatcher = dispatcher.New(sdk, dopts...)

	o.logger.Info("bridge attached", "methods", len(p.dispatcher.Methods()))
	return p, nil
}

// MessagingListener is the listener a natively configured messaging
// setup must hand to the SDK.
func (p *Plugin) MessagingListener() flurry.MessagingListener {
	return p.messaging
}

func (p *Plugin) Methods() []string {
	return p.dispatcher.Methods()
}

func (p *Plugin) isDetached() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.detached
}

// Call dispatches one method call.
func (p *Plugin) Call(ctx context.Context, method string, args dispatcher.Args) (any, error) {
	if p.isDetached() {
		return nil, ErrDetached
	}

	start := time.Now()
	res, err := p.dispatcher.Call(ctx, method, args)
	p.metrics.ObserveCall(method, outcome(err), time.Since(start))
	if err != nil && !errors.Is(err, dispatcher.ErrNotImplemented) {
		p.logger.Warn("call failed", "method", method, "err", err)
	}
	return res, err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, dispatcher.ErrNotImplemented):
		return "not_implemented"
	case errors.Is(err, dispatcher.ErrInvalidArgument):
		return "invalid_argument"
	}
	return "error"
}

// Listen attaches sink to an event channel.
func (p *Plugin) Listen(channel string, sink relay.Sink) error {
	if p.isDetached() {
		return ErrDetached
	}
	counted := countingSink{sink: sink, channel: channel, metrics: p.metrics}
	switch channel {
	case relay.ChannelConfig:
		p.config.Listen(counted)
	case relay.ChannelMessaging:
		p.messaging.Listen(counted)
	case relay.ChannelSegmentation:
		p.segments.Listen(counted)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownChannel, channel)
	}
	p.logger.Debug("listener attached", "channel", channel)
	return nil
}

// Replay catches sink up on a channel's replayable state without
// attaching it. Only the messaging channel has any: the last push token.
func (p *Plugin) Replay(channel string, sink relay.Sink) error {
	if p.isDetached() {
		return ErrDetached
	}
	switch channel {
	case relay.ChannelMessaging:
		p.messaging.Replay(countingSink{sink: sink, channel: channel, metrics: p.metrics})
	case relay.ChannelConfig, relay.ChannelSegmentation:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownChannel, channel)
	}
	return nil
}

// Cancel detaches the sink of an event channel.
func (p *Plugin) Cancel(channel string) error {
	switch channel {
	case relay.ChannelConfig:
		p.config.Cancel()
	case relay.ChannelMessaging:
		p.messaging.Cancel()
	case relay.ChannelSegmentation:
		p.segments.Cancel()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownChannel, channel)
	}
	p.logger.Debug("listener cancelled", "channel", channel)
	return nil
}

// NotifyDecision completes a pending notification handshake. It
// reports whether one was waiting.
func (p *Plugin) NotifyDecision(willHandle bool) bool {
	return p.messaging.NotifyDecision(willHandle)
}

// Flush waits until every event queued so far has been delivered. It
// returns immediately when events go through an external poster.
func (p *Plugin) Flush(ctx context.Context) error {
	if p.loop == nil {
		return nil
	}
	return p.loop.Flush(ctx)
}

// Detach cancels all sinks, unregisters from the SDK and stops the
// main loop. It is safe to call more than once.
func (p *Plugin) Detach() {
	p.mu.Lock()
	if p.detached {
		p.mu.Unlock()
		return
	}
	p.detached = true
	p.mu.Unlock()

	p.config.Close()
	p.segments.Close()
	p.messaging.Cancel()

	if p.loop != nil {
		p.loop.Stop()
		p.stop()
		<-p.loop.Done()
	}
	p.logger.Info("bridge detached")
}

type countingSink struct {
	sink    relay.Sink
	channel string
	metrics *metrics.Metrics
}

func (s countingSink) Success(payload any) {
	s.metrics.ObserveEvent(s.channel)
	s.sink.Success(payload)
}
