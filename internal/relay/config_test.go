package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestConfigRelay_RegistersOnce(t *testing.T) {
	t.Parallel()

	cfg := &remoteConfigMock{}
	cfg.On("RegisterListener", mock.Anything).Return()

	r := NewConfigRelay(cfg, startLoop(t), testLogger())
	r.Listen(&recordingSink{})
	r.Listen(&recordingSink{})

	cfg.AssertNumberOfCalls(t, "RegisterListener", 1)
	cfg.AssertCalled(t, "RegisterListener", r)
}

func TestConfigRelay_ForwardsAllEventsInOrderOnLoop(t *testing.T) {
	t.Parallel()

	cfg := &remoteConfigMock{}
	cfg.On("RegisterListener", mock.Anything).Return()

	loop := startLoop(t)
	sink := &recordingSink{onLoop: loop.onLoop}
	r := NewConfigRelay(cfg, loop, testLogger())
	r.Listen(sink)

	r.OnFetchSuccess()
	r.OnFetchNoChange()
	r.OnFetchError(true)
	r.OnActivateComplete(false)
	flush(t, loop)

	got := sink.all()
	require.Len(t, got, 4)
	assert.Equal(t, map[string]string{"type": "FetchSuccess"}, got[0])
	assert.Equal(t, map[string]string{"type": "FetchNoChange"}, got[1])
	assert.Equal(t, map[string]string{"type": "FetchError", "isRetrying": "true"}, got[2])
	assert.Equal(t, map[string]string{"type": "ActivateComplete", "isCache": "false"}, got[3])
	assert.Zero(t, sink.offLoop)
}

func TestConfigRelay_LaterListenReplacesSink(t *testing.T) {
	t.Parallel()

	cfg := &remoteConfigMock{}
	cfg.On("RegisterListener", mock.Anything).Return()

	loop := startLoop(t)
	first, second := &recordingSink{}, &recordingSink{}
	r := NewConfigRelay(cfg, loop, testLogger())
	r.Listen(first)
	r.Listen(second)

	r.OnFetchSuccess()
	flush(t, loop)

	assert.Empty(t, first.all())
	assert.Len(t, second.all(), 1)
}

func TestConfigRelay_CancelAndClose(t *testing.T) {
	t.Parallel()

	cfg := &remoteConfigMock{}
	cfg.On("RegisterListener", mock.Anything).Return()
	cfg.On("UnregisterListener", mock.Anything).Return()

	loop := startLoop(t)
	sink := &recordingSink{}
	r := NewConfigRelay(cfg, loop, testLogger())
	r.Listen(sink)
	r.Cancel()

	r.OnFetchSuccess()
	flush(t, loop)
	assert.Empty(t, sink.all())

	r.Close()
	r.Close()
	cfg.AssertNumberOfCalls(t, "UnregisterListener", 1)

	// a fresh listen after close registers again
	r.Listen(sink)
	cfg.AssertNumberOfCalls(t, "RegisterListener", 2)
}

func TestConfigRelay_ObserversSeeEventsWithoutSink(t *testing.T) {
	t.Parallel()

	r := NewConfigRelay(&remoteConfigMock{}, startLoop(t), testLogger())

	var seen []ConfigEvent
	r.OnEvent(func(ev ConfigEvent) { seen = append(seen, ev) })
	r.OnActivateComplete(true)

	assert.Equal(t, []ConfigEvent{{Type: ConfigActivateComplete, Flag: true}}, seen)
}

func TestConfigEvent_RoundTrip(t *testing.T) {
	t.Parallel()

	events := []ConfigEvent{
		{Type: ConfigFetchSuccess},
		{Type: ConfigFetchNoChange},
		{Type: ConfigFetchError, Flag: true},
		{Type: ConfigFetchError, Flag: false},
		{Type: ConfigActivateComplete, Flag: true},
		{Type: ConfigActivateComplete, Flag: false},
	}
	for _, ev := range events {
		got, err := ParseConfigEvent(ev.Payload())
		require.NoError(t, err)
		assert.Equal(t, ev, got)

		got, err = ParseConfigEvent(jsonRoundTrip(t, ev.Payload()))
		require.NoError(t, err)
		assert.Equal(t, ev, got)
	}
}

func TestParseConfigEvent_Rejects(t *testing.T) {
	t.Parallel()

	for _, payload := range []any{
		"nope",
		map[string]string{"type": "Other"},
		map[string]string{"type": "FetchError"},
		map[string]string{"type": "ActivateComplete", "isCache": "maybe"},
		map[string]any{"type": 3},
	} {
		_, err := ParseConfigEvent(payload)
		assert.Error(t, err, "%v", payload)
	}
}
