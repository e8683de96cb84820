package relay

import (
	"log/slog"
	"sync"

	"github.com/arko-chat/flurrybridge/internal/flurry"
)

var _ flurry.ConfigListener = (*ConfigRelay)(nil)

// ConfigRelay forwards remote config fetch/activate results. It
// registers itself with the SDK on the first Listen only.
type ConfigRelay struct {
	cfg    flurry.RemoteConfig
	poster Poster
	logger *slog.Logger

	slot sinkSlot

	mu         sync.Mutex
	registered bool
	observers  []func(ConfigEvent)
}

func NewConfigRelay(
	cfg flurry.RemoteConfig,
	poster Poster,
	logger *slog.Logger,
) *ConfigRelay {
	return &ConfigRelay{
		cfg:    cfg,
		poster: poster,
		logger: logger,
	}
}

// Listen attaches sink, replacing any earlier one.
func (r *ConfigRelay) Listen(sink Sink) {
	r.slot.set(sink)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.registered {
		r.logger.Debug("config listener already registered")
		return
	}
	r.cfg.RegisterListener(r)
	r.registered = true
	r.logger.Debug("config listener registered")
}

// Cancel detaches the sink. The SDK registration stays in place.
func (r *ConfigRelay) Cancel() {
	r.slot.set(nil)
}

// Close detaches the sink and unregisters from the SDK.
func (r *ConfigRelay) Close() {
	r.slot.set(nil)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.registered {
		r.cfg.UnregisterListener(r)
		r.registered = false
	}
}

// OnEvent adds an observer called on the SDK's thread for every event,
// whether or not a sink is attached.
func (r *ConfigRelay) OnEvent(fn func(ConfigEvent)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, fn)
}

func (r *ConfigRelay) OnFetchSuccess() {
	r.send(ConfigEvent{Type: ConfigFetchSuccess})
}

func (r *ConfigRelay) OnFetchNoChange() {
	r.send(ConfigEvent{Type: ConfigFetchNoChange})
}

func (r *ConfigRelay) OnFetchError(isRetrying bool) {
	r.send(ConfigEvent{Type: ConfigFetchError, Flag: isRetrying})
}

func (r *ConfigRelay) OnActivateComplete(isCache bool) {
	r.send(ConfigEvent{Type: ConfigActivateComplete, Flag: isCache})
}

func (r *ConfigRelay) send(ev ConfigEvent) {
	r.mu.Lock()
	observers := r.observers
	r.mu.Unlock()
	for _, fn := range observers {
		fn(ev)
	}

	if !deliver(r.poster, &r.slot, ev.Payload()) {
		r.logger.Warn("config event dropped, main loop stopped", "type", ev.Type)
	}
}
