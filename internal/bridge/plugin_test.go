package bridge

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arko-chat/flurrybridge/internal/dispatcher"
	"github.com/arko-chat/flurrybridge/internal/flurry"
	"github.com/arko-chat/flurrybridge/internal/metrics"
	"github.com/arko-chat/flurrybridge/internal/relay"
	"github.com/arko-chat/flurrybridge/internal/simulator"
)

type eventLog struct {
	mu     sync.Mutex
	events []any
}

func (l *eventLog) Success(payload any) {
	l.mu.Lock()
	l.events = append(l.events, payload)
	l.mu.Unlock()
}

func (l *eventLog) all() []any {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]any(nil), l.events...)
}

func attach(t *testing.T, sdk flurry.SDK, opts ...Option) *Plugin {
	t.Helper()
	opts = append([]Option{WithLogger(slog.New(slog.DiscardHandler))}, opts...)
	p, err := Attach(sdk, opts...)
	require.NoError(t, err)
	t.Cleanup(p.Detach)
	return p
}

func newSim() *simulator.SDK {
	return simulator.New(slog.New(slog.DiscardHandler))
}

func mustCall(t *testing.T, p *Plugin, method string, args dispatcher.Args) any {
	t.Helper()
	res, err := p.Call(context.Background(), method, args)
	require.NoError(t, err, method)
	return res
}

func build(t *testing.T, p *Plugin, messaging bool) {
	t.Helper()
	mustCall(t, p, "initializeFlurryBuilder", nil)
	if messaging {
		mustCall(t, p, "withMessaging", nil)
	}
	mustCall(t, p, "buildFlurryBuilder", dispatcher.Args{"apiKey": "KEY"})
}

func TestPlugin_UnknownChannel(t *testing.T) {
	t.Parallel()

	p := attach(t, newSim())
	assert.ErrorIs(t, p.Listen("nope", &eventLog{}), ErrUnknownChannel)
	assert.ErrorIs(t, p.Cancel("nope"), ErrUnknownChannel)
}

func TestPlugin_NotImplemented(t *testing.T) {
	t.Parallel()

	p := attach(t, newSim())
	_, err := p.Call(context.Background(), "doesNotExist", nil)
	assert.ErrorIs(t, err, dispatcher.ErrNotImplemented)
}

func TestPlugin_ConfigEvents(t *testing.T) {
	t.Parallel()

	sdk := simulator.New(slog.New(slog.DiscardHandler),
		simulator.WithConfigValues(map[string]string{"color": "blue"}))
	p := attach(t, sdk)

	events := &eventLog{}
	require.NoError(t, p.Listen(relay.ChannelConfig, events))
	require.NoError(t, p.Listen(relay.ChannelConfig, events))
	assert.Equal(t, 1, sdk.Count("Config.RegisterListener"))

	args := dispatcher.Args{"key": "color", "defaultValue": ""}
	assert.Equal(t, "blue", mustCall(t, p, "getConfigString", args))

	sdk.StageConfig(map[string]string{"color": "red"})
	mustCall(t, p, "fetchConfig", nil)
	mustCall(t, p, "activateConfig", nil)
	require.NoError(t, p.Flush(context.Background()))

	assert.Equal(t, []any{
		map[string]string{"type": "FetchSuccess"},
		map[string]string{"type": "ActivateComplete", "isCache": "false"},
	}, events.all())
	assert.Equal(t, "red", mustCall(t, p, "getConfigString", args))
}

func TestPlugin_GettersWithoutListeners(t *testing.T) {
	t.Parallel()

	sdk := newSim()
	p := attach(t, sdk)

	args := dispatcher.Args{"key": "color", "defaultValue": "none"}
	assert.Equal(t, "none", mustCall(t, p, "getConfigString", args))
	assert.Nil(t, mustCall(t, p, "getPublisherData", nil))

	sdk.StageConfig(map[string]string{"color": "blue"})
	mustCall(t, p, "fetchConfig", nil)
	mustCall(t, p, "activateConfig", nil)
	assert.Equal(t, "blue", mustCall(t, p, "getConfigString", args))

	sdk.SetPublisherData(map[string]string{"segment": "gold"})
	mustCall(t, p, "fetchPublisherData", nil)
	assert.Equal(t, map[string]string{"segment": "gold"}, mustCall(t, p, "getPublisherData", nil))

	assert.Zero(t, sdk.Count("Config.RegisterListener"))
	assert.Zero(t, sdk.Count("Segmentation.RegisterFetchListener"))
}

func TestPlugin_Replay(t *testing.T) {
	t.Parallel()

	sdk := newSim()
	p := attach(t, sdk)
	build(t, p, true)
	sdk.RefreshToken("tok-1")

	events := &eventLog{}
	require.NoError(t, p.Replay(relay.ChannelMessaging, events))
	require.NoError(t, p.Replay(relay.ChannelConfig, events))
	assert.ErrorIs(t, p.Replay("nope", events), ErrUnknownChannel)
	require.NoError(t, p.Flush(context.Background()))

	assert.Equal(t, []any{map[string]any{"type": "TokenRefresh", "token": "tok-1"}}, events.all())
}

func TestAttach_RejectsNonPositiveTimeout(t *testing.T) {
	t.Parallel()

	_, err := Attach(newSim(), WithDecisionTimeout(-time.Second))
	assert.ErrorContains(t, err, "decision timeout")
}

func TestPlugin_SegmentationEvents(t *testing.T) {
	t.Parallel()

	sdk := simulator.New(slog.New(slog.DiscardHandler),
		simulator.WithPublisherData(map[string]string{"tier": "gold"}))
	p := attach(t, sdk)

	events := &eventLog{}
	require.NoError(t, p.Listen(relay.ChannelSegmentation, events))

	assert.Nil(t, mustCall(t, p, "getPublisherData", nil))
	mustCall(t, p, "fetchPublisherData", nil)
	require.NoError(t, p.Flush(context.Background()))

	assert.Equal(t, []any{map[string]string{"tier": "gold"}}, events.all())
	assert.Equal(t, map[string]string{"tier": "gold"}, mustCall(t, p, "getPublisherData", nil))
	assert.Equal(t, true, mustCall(t, p, "isPublisherDataFetched", nil))
}

// answeringSink answers every notification through the call channel,
// the way a host would.
type answeringSink struct {
	eventLog
	p      *Plugin
	answer bool
}

func (s *answeringSink) Success(payload any) {
	s.eventLog.Success(payload)
	ev, err := relay.ParseMessagingEvent(payload)
	if err != nil || (ev.Type != relay.NotificationReceived && ev.Type != relay.NotificationClicked) {
		return
	}
	go func() {
		_, _ = s.p.Call(context.Background(), "willHandleMessage", dispatcher.Args{"willHandle": s.answer})
	}()
}

func TestPlugin_NotificationHandshake(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	sdk := newSim()
	p := attach(t, sdk, WithMetrics(m))
	build(t, p, true)

	msg := flurry.Message{Title: "Sale", Body: "50% off", AppData: map[string]string{"sku": "1"}}

	// nobody listening yet
	start := time.Now()
	assert.False(t, sdk.ReceiveNotification(msg))
	assert.Less(t, time.Since(start), 50*time.Millisecond)

	sink := &answeringSink{p: p, answer: true}
	require.NoError(t, p.Listen(relay.ChannelMessaging, sink))

	assert.True(t, sdk.ReceiveNotification(msg))
	sink.answer = false
	assert.False(t, sdk.ClickNotification(msg))

	require.NoError(t, p.Flush(context.Background()))
	got := sink.all()
	require.Len(t, got, 2)
	first, err := relay.ParseMessagingEvent(got[0])
	require.NoError(t, err)
	assert.Equal(t, relay.NotificationReceived, first.Type)
	assert.Equal(t, msg, first.Message)
}

func TestPlugin_HandshakeTimesOut(t *testing.T) {
	t.Parallel()

	sdk := newSim()
	p := attach(t, sdk, WithDecisionTimeout(30*time.Millisecond))
	build(t, p, true)

	require.NoError(t, p.Listen(relay.ChannelMessaging, &eventLog{}))

	start := time.Now()
	assert.False(t, sdk.ReceiveNotification(flurry.Message{Title: "t"}))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	assert.False(t, p.NotifyDecision(true))
}

func TestPlugin_TokenAndCancel(t *testing.T) {
	t.Parallel()

	sdk := newSim()
	p := attach(t, sdk)
	build(t, p, true)

	sdk.RefreshToken("tok-1")

	events := &eventLog{}
	require.NoError(t, p.Listen(relay.ChannelMessaging, events))
	require.NoError(t, p.Flush(context.Background()))
	require.Len(t, events.all(), 1)
	ev, err := relay.ParseMessagingEvent(events.all()[0])
	require.NoError(t, err)
	assert.Equal(t, relay.TokenRefresh, ev.Type)
	assert.Equal(t, "tok-1", ev.Token)

	require.NoError(t, p.Cancel(relay.ChannelMessaging))
	sdk.CancelNotification(flurry.Message{Title: "gone"})
	require.NoError(t, p.Flush(context.Background()))
	assert.Len(t, events.all(), 1)
}

func TestPlugin_Detach(t *testing.T) {
	t.Parallel()

	sdk := newSim()
	p, err := Attach(sdk, WithLogger(slog.New(slog.DiscardHandler)))
	require.NoError(t, err)

	require.NoError(t, p.Listen(relay.ChannelConfig, &eventLog{}))
	require.NoError(t, p.Listen(relay.ChannelSegmentation, &eventLog{}))
	p.Detach()
	p.Detach()

	assert.Equal(t, 1, sdk.Count("Config.UnregisterListener"))
	assert.Equal(t, 1, sdk.Count("Segmentation.UnregisterFetchListener"))

	_, err = p.Call(context.Background(), "getSessionId", nil)
	assert.ErrorIs(t, err, ErrDetached)
	assert.ErrorIs(t, p.Listen(relay.ChannelConfig, &eventLog{}), ErrDetached)
}

type syncPoster struct{}

func (syncPoster) Post(fn func()) bool { fn(); return true }

func TestPlugin_ExternalPoster(t *testing.T) {
	t.Parallel()

	sdk := newSim()
	p := attach(t, sdk, WithPoster(syncPoster{}))

	events := &eventLog{}
	require.NoError(t, p.Listen(relay.ChannelConfig, events))
	mustCall(t, p, "fetchConfig", nil)

	require.NoError(t, p.Flush(context.Background()))
	assert.Equal(t, []any{map[string]string{"type": "FetchNoChange"}}, events.all())
}
