package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/arko-chat/flurrybridge/internal/flurry"
	"github.com/arko-chat/flurrybridge/internal/mainloop"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type remoteConfigMock struct{ mock.Mock }

func (m *remoteConfigMock) RegisterListener(l flurry.ConfigListener)   { m.Called(l) }
func (m *remoteConfigMock) UnregisterListener(l flurry.ConfigListener) { m.Called(l) }
func (m *remoteConfigMock) FetchConfig()                               { m.Called() }
func (m *remoteConfigMock) ActivateConfig()                            { m.Called() }
func (m *remoteConfigMock) GetString(key, defaultValue string) string {
	return m.Called(key, defaultValue).String(0)
}

type segmentationMock struct{ mock.Mock }

func (m *segmentationMock) RegisterFetchListener(l flurry.FetchListener)   { m.Called(l) }
func (m *segmentationMock) UnregisterFetchListener(l flurry.FetchListener) { m.Called(l) }
func (m *segmentationMock) IsFetchFinished() bool                          { return m.Called().Bool(0) }
func (m *segmentationMock) PublisherData() map[string]string {
	return m.Called().Get(0).(map[string]string)
}
func (m *segmentationMock) Fetch() { m.Called() }

// recordingSink keeps every payload and checks it ran on the loop.
type recordingSink struct {
	mu       sync.Mutex
	payloads []any
	onLoop   func() bool
	offLoop  int
}

func (s *recordingSink) Success(payload any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.onLoop != nil && !s.onLoop() {
		s.offLoop++
	}
	s.payloads = append(s.payloads, payload)
}

func (s *recordingSink) all() []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]any(nil), s.payloads...)
}

// trackingLoop wraps a mainloop.Loop and records whether a task is
// currently executing on it.
type trackingLoop struct {
	*mainloop.Loop
	mu     sync.Mutex
	inTask bool
}

func (l *trackingLoop) Post(fn func()) bool {
	return l.Loop.Post(func() {
		l.mu.Lock()
		l.inTask = true
		l.mu.Unlock()
		defer func() {
			l.mu.Lock()
			l.inTask = false
			l.mu.Unlock()
		}()
		fn()
	})
}

func (l *trackingLoop) onLoop() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inTask
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func startLoop(t *testing.T) *trackingLoop {
	t.Helper()

	l := &trackingLoop{Loop: mainloop.New(testLogger())}
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-l.Done()
	})
	return l
}

func flush(t *testing.T, l *trackingLoop) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, l.Flush(ctx))
}

// jsonRoundTrip mimics what a host transport does to a payload.
func jsonRoundTrip(t *testing.T, v any) any {
	t.Helper()

	raw, err := json.Marshal(v)
	require.NoError(t, err)
	var out any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}
