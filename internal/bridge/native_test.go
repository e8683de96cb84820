package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arko-chat/flurrybridge/internal/dispatcher"
	"github.com/arko-chat/flurrybridge/internal/flurry"
	"github.com/arko-chat/flurrybridge/internal/relay"
)

// fakeNative implements the handful of NativeSDK methods the tests
// touch. Anything else panics through the nil embedded interface.
type fakeNative struct {
	NativeSDK

	mu          sync.Mutex
	optionsJSON string
	events      []string
	removed     []string
	privacy     bool
}

func (f *fakeNative) Build(apiKey, optionsJSON string) error {
	f.mu.Lock()
	f.optionsJSON = optionsJSON
	f.mu.Unlock()
	return nil
}

func (f *fakeNative) AddOrigin(string, string, string) {}

func (f *fakeNative) LogEvent(id, paramsJSON string, timed bool) int {
	f.mu.Lock()
	f.events = append(f.events, id+" "+paramsJSON)
	f.mu.Unlock()
	return int(flurry.EventRecorded)
}

func (f *fakeNative) RemoveUserProperty(name, valuesJSON string) {
	f.mu.Lock()
	f.removed = append(f.removed, name+"="+valuesJSON)
	f.mu.Unlock()
}

func (f *fakeNative) OpenPrivacyDashboard(cb *PrivacyCallback) error {
	f.privacy = true
	cb.Success()
	cb.Failure()
	return nil
}

func (f *fakeNative) PublisherData() string { return `{"tier":"gold"}` }

func (f *fakeNative) FetchConfig() {}

func TestFromNative_EncodesArguments(t *testing.T) {
	t.Parallel()

	native := &fakeNative{}
	sdk, _ := FromNative(native, slog.New(slog.DiscardHandler))

	assert.Equal(t, flurry.EventRecorded, sdk.LogEvent("a", nil, false))
	sdk.LogEvent("b", map[string]string{"k": "v"}, false)
	sdk.RemoveUserProperty("tags", nil)
	sdk.RemoveUserProperty("tags", []string{"x"})

	assert.Equal(t, []string{"a ", `b {"k":"v"}`}, native.events)
	assert.Equal(t, []string{"tags=", `tags=["x"]`}, native.removed)
	assert.Equal(t, map[string]string{"tier": "gold"}, sdk.Segmentation().PublisherData())
}

func TestFromNative_BuildOptions(t *testing.T) {
	t.Parallel()

	native := &fakeNative{}
	sdk, _ := FromNative(native, slog.New(slog.DiscardHandler))
	p := attach(t, sdk)
	build(t, p, true)

	var opts NativeOptions
	require.NoError(t, json.Unmarshal([]byte(native.optionsJSON), &opts))
	assert.True(t, opts.SessionForceStart)
	assert.True(t, opts.Messaging)
}

type privacyRecorder struct {
	success, failure int
}

func (p *privacyRecorder) Success() { p.success++ }
func (p *privacyRecorder) Failure() { p.failure++ }

func TestFromNative_PrivacyCallbackOnce(t *testing.T) {
	t.Parallel()

	native := &fakeNative{}
	sdk, _ := FromNative(native, slog.New(slog.DiscardHandler))

	assert.ErrorIs(t, sdk.OpenPrivacyDashboard(nil, &privacyRecorder{}), flurry.ErrNoApplicationContext)

	rec := &privacyRecorder{}
	require.NoError(t, sdk.OpenPrivacyDashboard(native, rec))
	assert.Equal(t, 1, rec.success)
	assert.Zero(t, rec.failure)
}

func TestNativeCallbacks_RouteToRelays(t *testing.T) {
	t.Parallel()

	native := &fakeNative{}
	sdk, callbacks := FromNative(native, slog.New(slog.DiscardHandler))
	p := attach(t, sdk, WithDecisionTimeout(time.Second))
	build(t, p, true)

	configEvents := &eventLog{}
	segmentEvents := &eventLog{}
	require.NoError(t, p.Listen(relay.ChannelConfig, configEvents))
	require.NoError(t, p.Listen(relay.ChannelSegmentation, segmentEvents))

	callbacks.ConfigFetchError(true)
	require.NoError(t, callbacks.PublisherDataFetched(`{"tier":"gold"}`))
	assert.Error(t, callbacks.PublisherDataFetched(`not json`))

	messages := &answeringSink{p: p, answer: true}
	require.NoError(t, p.Listen(relay.ChannelMessaging, messages))

	handled, err := callbacks.NotificationReceived(`{"title":"hi","body":"there"}`)
	require.NoError(t, err)
	assert.True(t, handled)

	_, err = callbacks.NotificationClicked(`{`)
	assert.Error(t, err)

	require.NoError(t, p.Flush(context.Background()))
	assert.Equal(t, []any{map[string]string{"type": "FetchError", "isRetrying": "true"}}, configEvents.all())
	assert.Equal(t, []any{map[string]string{"tier": "gold"}}, segmentEvents.all())
}

func TestNativeCallbacks_AttachMessaging(t *testing.T) {
	t.Parallel()

	native := &fakeNative{}
	sdk, callbacks := FromNative(native, slog.New(slog.DiscardHandler))
	p := attach(t, sdk, WithMessagingPreconfigured())
	callbacks.AttachMessaging(p.MessagingListener())

	handled, err := callbacks.NotificationReceived(`{"title":"t"}`)
	require.NoError(t, err)
	assert.False(t, handled)

	callbacks.TokenRefreshed("tok")
	events := &eventLog{}
	require.NoError(t, p.Listen(relay.ChannelMessaging, events))
	require.NoError(t, p.Flush(context.Background()))
	assert.Equal(t, []any{map[string]any{"type": "TokenRefresh", "token": "tok"}}, events.all())

	_, err = p.Call(context.Background(), "willHandleMessage", dispatcher.Args{"willHandle": true})
	assert.NoError(t, err)
}
