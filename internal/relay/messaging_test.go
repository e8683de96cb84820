package relay

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/arko-chat/flurrybridge/internal/flurry"
	"github.com/arko-chat/flurrybridge/internal/mainloop"
	"github.com/arko-chat/flurrybridge/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMessage = flurry.Message{
	Title:       "Sale",
	Body:        "50% off today",
	ClickAction: "OPEN_STORE",
	AppData:     map[string]string{"sku": "A-1"},
}

// decidingSink records payloads and answers every handshake through
// the relay after delay.
type decidingSink struct {
	recordingSink
	relay  func() *MessagingRelay
	answer bool
	delay  time.Duration
}

func (s *decidingSink) Success(payload any) {
	s.recordingSink.Success(payload)
	go func() {
		time.Sleep(s.delay)
		s.relay().NotifyDecision(s.answer)
	}()
}

func TestMessaging_NoSinkReturnsFalseWithoutBlocking(t *testing.T) {
	t.Parallel()

	var outcomes []HandshakeOutcome
	r := NewMessagingRelay(startLoop(t), testLogger(),
		WithHandshakeObserver(func(_ MessagingEventType, o HandshakeOutcome) {
			outcomes = append(outcomes, o)
		}),
	)

	start := time.Now()
	assert.False(t, r.OnNotificationReceived(testMessage))
	assert.False(t, r.OnNotificationClicked(testMessage))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	assert.Equal(t, []HandshakeOutcome{HandshakeNoListener, HandshakeNoListener}, outcomes)
}

func TestMessaging_HostDecisionIsReturned(t *testing.T) {
	t.Parallel()

	for _, answer := range []bool{true, false} {
		loop := startLoop(t)
		r := NewMessagingRelay(loop, testLogger())
		sink := &decidingSink{
			relay:  func() *MessagingRelay { return r },
			answer: answer,
			delay:  10 * time.Millisecond,
		}
		r.Listen(sink)

		assert.Equal(t, answer, r.OnNotificationReceived(testMessage))
		assert.Equal(t, answer, r.OnNotificationClicked(testMessage))

		flush(t, loop)
		got := sink.all()
		require.Len(t, got, 2)

		ev, err := ParseMessagingEvent(got[0])
		require.NoError(t, err)
		assert.Equal(t, NotificationReceived, ev.Type)
		assert.Equal(t, testMessage, ev.Message)

		ev, err = ParseMessagingEvent(got[1])
		require.NoError(t, err)
		assert.Equal(t, NotificationClicked, ev.Type)
	}
}

func TestMessaging_TimeoutDefaultsToFalse(t *testing.T) {
	t.Parallel()

	var outcome HandshakeOutcome
	loop := startLoop(t)
	r := NewMessagingRelay(loop, testLogger(),
		WithDecisionTimeout(50*time.Millisecond),
		WithHandshakeObserver(func(_ MessagingEventType, o HandshakeOutcome) { outcome = o }),
	)
	sink := &recordingSink{}
	r.Listen(sink)

	start := time.Now()
	assert.False(t, r.OnNotificationReceived(testMessage))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.Equal(t, HandshakeTimedOut, outcome)

	flush(t, loop)
	assert.Len(t, sink.all(), 1)
}

func TestMessaging_DefaultTimeoutIs300ms(t *testing.T) {
	t.Parallel()

	r := NewMessagingRelay(startLoop(t), testLogger())
	r.Listen(&recordingSink{})

	start := time.Now()
	assert.False(t, r.OnNotificationClicked(testMessage))
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 300*time.Millisecond)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestMessaging_LateDecisionIsIgnored(t *testing.T) {
	t.Parallel()

	r := NewMessagingRelay(startLoop(t), testLogger(), WithDecisionTimeout(20*time.Millisecond))
	r.Listen(&recordingSink{})

	assert.False(t, r.OnNotificationReceived(testMessage))
	assert.False(t, r.NotifyDecision(true), "no handshake should be pending")
}

func TestMessaging_DecisionWithoutPending(t *testing.T) {
	t.Parallel()

	r := NewMessagingRelay(startLoop(t), testLogger())
	assert.False(t, r.NotifyDecision(true))
}

func TestMessaging_OverlappingDeliveriesAreSerialized(t *testing.T) {
	t.Parallel()

	loop := startLoop(t)
	var r *MessagingRelay

	var mu sync.Mutex
	var answered []bool
	sink := SinkFunc(func(payload any) {
		ev, err := ParseMessagingEvent(payload)
		if err != nil {
			return
		}
		answer := ev.Type == NotificationClicked
		go func() {
			time.Sleep(5 * time.Millisecond)
			mu.Lock()
			answered = append(answered, answer)
			mu.Unlock()
			r.NotifyDecision(answer)
		}()
	})
	r = NewMessagingRelay(loop, testLogger(), WithDecisionTimeout(time.Second))
	r.Listen(sink)

	var wg sync.WaitGroup
	var received, clicked bool
	wg.Add(2)
	go func() { defer wg.Done(); received = r.OnNotificationReceived(testMessage) }()
	go func() { defer wg.Done(); clicked = r.OnNotificationClicked(testMessage) }()
	wg.Wait()

	// each callback gets the answer meant for it
	assert.False(t, received)
	assert.True(t, clicked)
	mu.Lock()
	assert.Len(t, answered, 2)
	mu.Unlock()
}

func TestMessaging_CancelledDoesNotBlock(t *testing.T) {
	t.Parallel()

	loop := startLoop(t)
	r := NewMessagingRelay(loop, testLogger())
	sink := &recordingSink{}
	r.Listen(sink)

	start := time.Now()
	r.OnNotificationCancelled(testMessage)
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	flush(t, loop)
	got := sink.all()
	require.Len(t, got, 1)
	ev, err := ParseMessagingEvent(got[0])
	require.NoError(t, err)
	assert.Equal(t, NotificationCancelled, ev.Type)
}

func TestMessaging_TokenRefreshForwarded(t *testing.T) {
	t.Parallel()

	loop := startLoop(t)
	r := NewMessagingRelay(loop, testLogger())
	sink := &recordingSink{}
	r.Listen(sink)

	r.OnTokenRefresh("tok-1")
	flush(t, loop)

	assert.Equal(t, []any{map[string]any{"type": "TokenRefresh", "token": "tok-1"}}, sink.all())
}

func TestMessaging_TokenReplayedOnAttach(t *testing.T) {
	t.Parallel()

	loop := startLoop(t)
	r := NewMessagingRelay(loop, testLogger())

	r.OnTokenRefresh("tok-early")
	r.OnTokenRefresh("tok-latest")

	sink := &recordingSink{}
	r.Listen(sink)
	flush(t, loop)

	got := sink.all()
	require.Len(t, got, 1)
	ev, err := ParseMessagingEvent(got[0])
	require.NoError(t, err)
	assert.Equal(t, MessagingEvent{Type: TokenRefresh, Token: "tok-latest"}, ev)
}

func TestMessaging_TokenReplayFromStore(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryTokenStore()
	require.NoError(t, store.StoreToken("from-last-run"))

	loop := startLoop(t)
	r := NewMessagingRelay(loop, testLogger(), WithTokenStore(store))
	sink := &recordingSink{}
	r.Listen(sink)
	flush(t, loop)

	assert.Equal(t, []any{map[string]any{"type": "TokenRefresh", "token": "from-last-run"}}, sink.all())
}

func TestMessaging_ReplayReachesOnlyGivenSink(t *testing.T) {
	t.Parallel()

	loop := startLoop(t)
	r := NewMessagingRelay(loop, testLogger())
	attached := &recordingSink{}
	r.Listen(attached)
	r.OnTokenRefresh("tok-1")
	flush(t, loop)

	late := &recordingSink{}
	r.Replay(late)
	flush(t, loop)

	want := map[string]any{"type": "TokenRefresh", "token": "tok-1"}
	assert.Equal(t, []any{want}, late.all())
	assert.Equal(t, []any{want}, attached.all())
}

func TestMessaging_ReplayWithoutToken(t *testing.T) {
	t.Parallel()

	loop := startLoop(t)
	r := NewMessagingRelay(loop, testLogger())
	sink := &recordingSink{}
	r.Replay(sink)
	flush(t, loop)

	assert.Empty(t, sink.all())
}

func TestMessaging_DetachBeforeDeliveryResolvesFalse(t *testing.T) {
	t.Parallel()

	// a loop that is not running yet holds the delivery
	loop := mainloop.New(testLogger())
	r := NewMessagingRelay(loop, testLogger(), WithDecisionTimeout(5*time.Second))
	r.Listen(&recordingSink{})

	done := make(chan bool)
	go func() { done <- r.OnNotificationReceived(testMessage) }()

	time.Sleep(20 * time.Millisecond)
	r.Cancel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	select {
	case got := <-done:
		assert.False(t, got)
	case <-time.After(time.Second):
		t.Fatal("handshake did not resolve after detach")
	}
}

func TestMessaging_StoppedLoopDrops(t *testing.T) {
	t.Parallel()

	loop := mainloop.New(testLogger())
	loop.Stop()

	var outcome HandshakeOutcome
	r := NewMessagingRelay(loop, testLogger(),
		WithHandshakeObserver(func(_ MessagingEventType, o HandshakeOutcome) { outcome = o }),
	)
	r.Listen(&recordingSink{})

	assert.False(t, r.OnNotificationReceived(testMessage))
	assert.Equal(t, HandshakeDropped, outcome)
}

func TestMessagingEvent_RoundTrip(t *testing.T) {
	t.Parallel()

	events := []MessagingEvent{
		{Type: NotificationReceived, Message: testMessage},
		{Type: NotificationClicked, Message: flurry.Message{Title: "t", Body: "b"}},
		{Type: NotificationCancelled, Message: flurry.Message{AppData: map[string]string{}}},
		{Type: TokenRefresh, Token: "abc"},
	}
	for _, ev := range events {
		got, err := ParseMessagingEvent(ev.Payload())
		require.NoError(t, err)
		assert.Equal(t, ev, got)

		got, err = ParseMessagingEvent(jsonRoundTrip(t, ev.Payload()))
		require.NoError(t, err)
		assert.Equal(t, ev, got)
	}
}
