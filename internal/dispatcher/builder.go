package dispatcher

import (
	"context"
	"fmt"

	"github.com/arko-chat/flurrybridge/internal/flurry"
)

func (d *Dispatcher) initializeFlurryBuilder(context.Context, Args) (any, error) {
	d.mu.Lock()
	d.builder = &flurry.Options{
		SessionForceStart: true,
		ReportLocation:    true,
	}
	d.mu.Unlock()
	return nil, nil
}

// withBuilder runs fn against the pending options. Without a prior
// initializeFlurryBuilder the call is logged and skipped.
func (d *Dispatcher) withBuilder(method string, fn func(o *flurry.Options)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.builder == nil {
		d.logger.Warn("builder not initialized, call initializeFlurryBuilder first", "method", method)
		return
	}
	fn(d.builder)
}

func (d *Dispatcher) buildFlurryBuilder(_ context.Context, args Args) (any, error) {
	apiKey, err := args.String("apiKey")
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	if d.builder == nil {
		d.mu.Unlock()
		d.logger.Warn("builder not initialized, call initializeFlurryBuilder first", "method", "buildFlurryBuilder")
		return nil, nil
	}
	opts := *d.builder
	d.mu.Unlock()

	d.sdk.AddOrigin(OriginName, OriginVersion, nil)
	if err := d.sdk.Build(apiKey, opts); err != nil {
		return nil, fmt.Errorf("build agent: %w", err)
	}
	d.logger.Info("flurry agent built", "messaging", opts.Messaging != nil)
	return nil, nil
}

func (d *Dispatcher) withAppVersion(context.Context, Args) (any, error) {
	d.logger.Warn("withAppVersion is only supported on iOS, use setVersionName")
	return nil, nil
}

func (d *Dispatcher) withContinueSessionMillis(_ context.Context, args Args) (any, error) {
	millis, err := args.IntString("sessionMillisStr")
	if err != nil {
		return nil, err
	}
	d.withBuilder("withContinueSessionMillis", func(o *flurry.Options) {
		o.ContinueSessionMillis = millis
	})
	return nil, nil
}

func (d *Dispatcher) withBool(key string, set func(o *flurry.Options, v bool)) handlerFunc {
	return func(_ context.Context, args Args) (any, error) {
		v, err := args.Bool(key)
		if err != nil {
			return nil, err
		}
		d.withBuilder(key, func(o *flurry.Options) { set(o, v) })
		return nil, nil
	}
}

func (d *Dispatcher) withGppConsent(_ context.Context, args Args) (any, error) {
	gpp, err := args.String("gppString")
	if err != nil {
		return nil, err
	}
	ids, err := args.Ints("gppSectionIds")
	if err != nil {
		return nil, err
	}
	d.withBuilder("withGppConsent", func(o *flurry.Options) {
		o.GppString = gpp
		o.GppSectionIDs = dedupe(ids)
	})
	return nil, nil
}

func (d *Dispatcher) withLogLevel(_ context.Context, args Args) (any, error) {
	level, err := args.Int32String("logLevelStr")
	if err != nil {
		return nil, err
	}
	d.withBuilder("withLogLevel", func(o *flurry.Options) {
		o.LogLevel = level
	})
	return nil, nil
}

func (d *Dispatcher) withPerformanceMetrics(_ context.Context, args Args) (any, error) {
	metrics, err := args.Int("performanceMetrics")
	if err != nil {
		return nil, err
	}
	d.withBuilder("withPerformanceMetrics", func(o *flurry.Options) {
		o.PerformanceMetrics = metrics
	})
	return nil, nil
}

func (d *Dispatcher) withMessaging(context.Context, Args) (any, error) {
	if d.messagingInitialized {
		d.logger.Debug("messaging configured natively, skipping withMessaging")
		return nil, nil
	}
	if d.messaging == nil {
		d.logger.Warn("withMessaging called without a messaging listener")
		return nil, nil
	}
	d.withBuilder("withMessaging", func(o *flurry.Options) {
		o.Messaging = d.messaging
	})
	return nil, nil
}

// dedupe keeps the first occurrence of each id. Section ids are a set.
func dedupe(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
