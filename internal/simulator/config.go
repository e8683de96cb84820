package simulator

import (
	"maps"
	"slices"
	"sync"

	"github.com/arko-chat/flurrybridge/internal/flurry"
)

// remoteConfig serves values in two layers. Fetched values become
// visible only after ActivateConfig.
type remoteConfig struct {
	sdk *SDK

	mu        sync.Mutex
	listeners []flurry.ConfigListener
	values    map[string]string
	staged    map[string]string
	failNext  *bool
}

func (c *remoteConfig) RegisterListener(l flurry.ConfigListener) {
	c.sdk.record("Config.RegisterListener")
	c.mu.Lock()
	c.listeners = append(c.listeners, l)
	c.mu.Unlock()
}

func (c *remoteConfig) UnregisterListener(l flurry.ConfigListener) {
	c.sdk.record("Config.UnregisterListener")
	c.mu.Lock()
	c.listeners = slices.DeleteFunc(c.listeners, func(x flurry.ConfigListener) bool { return x == l })
	c.mu.Unlock()
}

func (c *remoteConfig) snapshot() []flurry.ConfigListener {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.listeners)
}

func (c *remoteConfig) FetchConfig() {
	c.sdk.record("Config.FetchConfig")

	c.mu.Lock()
	fail := c.failNext
	c.failNext = nil
	changed := c.staged != nil && !maps.Equal(c.staged, c.values)
	c.mu.Unlock()

	for _, l := range c.snapshot() {
		switch {
		case fail != nil:
			l.OnFetchError(*fail)
		case changed:
			l.OnFetchSuccess()
		default:
			l.OnFetchNoChange()
		}
	}
}

func (c *remoteConfig) ActivateConfig() {
	c.sdk.record("Config.ActivateConfig")

	c.mu.Lock()
	fromCache := c.staged == nil
	if !fromCache {
		c.values = c.staged
		c.staged = nil
	}
	c.mu.Unlock()

	for _, l := range c.snapshot() {
		l.OnActivateComplete(fromCache)
	}
}

func (c *remoteConfig) GetString(key, defaultValue string) string {
	c.sdk.record("Config.GetString", key, defaultValue)
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.values[key]; ok {
		return v
	}
	return defaultValue
}

// StageConfig sets the values the next fetch will download.
func (s *SDK) StageConfig(values map[string]string) {
	s.config.mu.Lock()
	s.config.staged = maps.Clone(values)
	s.config.mu.Unlock()
}

// FailNextFetch makes the next FetchConfig report an error.
func (s *SDK) FailNextFetch(isRetrying bool) {
	s.config.mu.Lock()
	s.config.failNext = &isRetrying
	s.config.mu.Unlock()
}

type segmentation struct {
	sdk *SDK

	mu        sync.Mutex
	listeners []flurry.FetchListener
	data      map[string]string
	fetched   bool
}

func (g *segmentation) RegisterFetchListener(l flurry.FetchListener) {
	g.sdk.record("Segmentation.RegisterFetchListener")
	g.mu.Lock()
	g.listeners = append(g.listeners, l)
	g.mu.Unlock()
}

func (g *segmentation) UnregisterFetchListener(l flurry.FetchListener) {
	g.sdk.record("Segmentation.UnregisterFetchListener")
	g.mu.Lock()
	g.listeners = slices.DeleteFunc(g.listeners, func(x flurry.FetchListener) bool { return x == l })
	g.mu.Unlock()
}

func (g *segmentation) IsFetchFinished() bool {
	g.sdk.record("Segmentation.IsFetchFinished")
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fetched
}

func (g *segmentation) PublisherData() map[string]string {
	g.sdk.record("Segmentation.PublisherData")
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.fetched {
		return nil
	}
	return maps.Clone(g.data)
}

func (g *segmentation) Fetch() {
	g.sdk.record("Segmentation.Fetch")
	g.mu.Lock()
	g.fetched = true
	data := maps.Clone(g.data)
	listeners := slices.Clone(g.listeners)
	g.mu.Unlock()

	for _, l := range listeners {
		l.OnFetched(maps.Clone(data))
	}
}

// SetPublisherData replaces the segments the next fetch returns.
func (s *SDK) SetPublisherData(data map[string]string) {
	s.segments.mu.Lock()
	s.segments.data = maps.Clone(data)
	s.segments.mu.Unlock()
}
