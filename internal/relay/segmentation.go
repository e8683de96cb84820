package relay

import (
	"log/slog"
	"maps"
	"sync"

	"github.com/arko-chat/flurrybridge/internal/flurry"
)

var _ flurry.FetchListener = (*SegmentationRelay)(nil)

// SegmentationRelay forwards publisher segmentation data as a bare map.
type SegmentationRelay struct {
	seg    flurry.Segmentation
	poster Poster
	logger *slog.Logger

	slot sinkSlot

	mu         sync.Mutex
	registered bool
	observers  []func(map[string]string)
}

func NewSegmentationRelay(
	seg flurry.Segmentation,
	poster Poster,
	logger *slog.Logger,
) *SegmentationRelay {
	return &SegmentationRelay{
		seg:    seg,
		poster: poster,
		logger: logger,
	}
}

func (r *SegmentationRelay) Listen(sink Sink) {
	r.slot.set(sink)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.registered {
		return
	}
	r.seg.RegisterFetchListener(r)
	r.registered = true
	r.logger.Debug("segmentation listener registered")
}

func (r *SegmentationRelay) Cancel() {
	r.slot.set(nil)
}

func (r *SegmentationRelay) Close() {
	r.slot.set(nil)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.registered {
		r.seg.UnregisterFetchListener(r)
		r.registered = false
	}
}

func (r *SegmentationRelay) OnEvent(fn func(map[string]string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, fn)
}

func (r *SegmentationRelay) OnFetched(data map[string]string) {
	r.mu.Lock()
	observers := r.observers
	r.mu.Unlock()
	for _, fn := range observers {
		fn(data)
	}

	if !deliver(r.poster, &r.slot, maps.Clone(data)) {
		r.logger.Warn("segmentation event dropped, main loop stopped")
	}
}
