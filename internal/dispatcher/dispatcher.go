// Package dispatcher routes named host calls to the Flurry SDK.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/arko-chat/flurrybridge/internal/flurry"
)

var (
	// ErrNotImplemented is returned for method names with no handler.
	ErrNotImplemented  = errors.New("not implemented")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Origin reported to the SDK when the agent is built through the bridge.
const (
	OriginName    = "flurrybridge"
	OriginVersion = "1.0.0"
)

type handlerFunc func(ctx context.Context, args Args) (any, error)

type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithMessaging sets the listener handed to the SDK by withMessaging and
// the function that completes a pending notification handshake.
func WithMessaging(listener flurry.MessagingListener, decide func(willHandle bool) bool) Option {
	return func(d *Dispatcher) {
		d.messaging = listener
		d.decide = decide
	}
}

// WithMessagingPreconfigured marks messaging as already set up by the
// native application, which turns withMessaging into a no-op.
func WithMessagingPreconfigured() Option {
	return func(d *Dispatcher) {
		d.messagingInitialized = true
	}
}

func WithApplicationContext(appContext any) Option {
	return func(d *Dispatcher) {
		d.appContext = appContext
	}
}

type Dispatcher struct {
	sdk    flurry.SDK
	logger *slog.Logger

	messaging            flurry.MessagingListener
	decide               func(bool) bool
	messagingInitialized bool
	appContext           any

	mu             sync.Mutex
	builder        *flurry.Options
	resourceLogger flurry.ResourceLogger

	handlers map[string]handlerFunc
}

func New(sdk flurry.SDK, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sdk:    sdk,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.handlers = d.table()
	return d
}

// Call runs method. Void operations return a nil result.
func (d *Dispatcher) Call(ctx context.Context, method string, args Args) (any, error) {
	h, ok := d.handlers[method]
	if !ok {
		d.logger.Debug("method not implemented", "method", method)
		return nil, fmt.Errorf("%w: %s", ErrNotImplemented, method)
	}
	if args == nil {
		args = Args{}
	}
	return h(ctx, args)
}

// Methods lists every method name the dispatcher handles.
func (d *Dispatcher) Methods() []string {
	out := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (d *Dispatcher) table() map[string]handlerFunc {
	return map[string]handlerFunc{
		// builder
		"initializeFlurryBuilder":                d.initializeFlurryBuilder,
		"buildFlurryBuilder":                     d.buildFlurryBuilder,
		"withAppVersion":                         d.withAppVersion,
		"withContinueSessionMillis":              d.withContinueSessionMillis,
		"withCrashReporting":                     d.withBool("crashReporting", func(o *flurry.Options, v bool) { o.CaptureUncaughtExceptions = v }),
		"withGppConsent":                         d.withGppConsent,
		"withDataSaleOptOut":                     d.withBool("isOptOut", func(o *flurry.Options, v bool) { o.DataSaleOptOut = v }),
		"withIncludeBackgroundSessionsInMetrics": d.withBool("includeBackgroundSessionsInMetrics", func(o *flurry.Options, v bool) { o.IncludeBackgroundSessionsInMetrics = v }),
		"withLogEnabled":                         d.withBool("enableLog", func(o *flurry.Options, v bool) { o.LogEnabled = v }),
		"withLogLevel":                           d.withLogLevel,
		"withReportLocation":                     d.withBool("reportLocation", func(o *flurry.Options, v bool) { o.ReportLocation = v }),
		"withPerformanceMetrics":                 d.withPerformanceMetrics,
		"withSslPinningEnabled":                  d.withBool("sslPinningEnabled", func(o *flurry.Options, v bool) { o.SslPinningEnabled = v }),
		"withMessaging":                          d.withMessaging,

		// runtime settings
		"setContinueSessionMillis":              d.setContinueSessionMillis,
		"setCrashReporting":                     d.setBool("crashReporting", d.sdk.SetCaptureUncaughtExceptions),
		"setIncludeBackgroundSessionsInMetrics": d.setBool("includeBackgroundSessionsInMetrics", d.sdk.SetIncludeBackgroundSessionsInMetrics),
		"setLogEnabled":                         d.setBool("enableLog", d.sdk.SetLogEnabled),
		"setLogLevel":                           d.setLogLevel,
		"setSslPinningEnabled":                  d.setBool("sslPinningEnabled", d.sdk.SetSslPinningEnabled),
		"setAge":                                d.setAge,
		"setGender":                             d.setGender,
		"setReportLocation":                     d.setBool("reportLocation", d.sdk.SetReportLocation),
		"setSessionOrigin":                      d.setSessionOrigin,
		"setUserId":                             d.setString("userId", d.sdk.SetUserID),
		"setVersionName":                        d.setString("versionName", d.sdk.SetVersionName),
		"addOrigin":                             d.addOrigin,
		"addOriginWithParameters":               d.addOriginWithParameters,
		"addSessionProperty":                    d.addSessionProperty,
		"setIAPReportingEnabled":                d.setIAPReportingEnabled,
		"setGppConsent":                         d.setGppConsent,
		"setDataSaleOptOut":                     d.setBool("isOptOut", d.sdk.SetDataSaleOptOut),
		"deleteData":                            d.void(d.sdk.DeleteData),
		"openPrivacyDashboard":                  d.openPrivacyDashboard,

		// user properties
		"addUserPropertyValue":     d.userPropertyValue(d.sdk.AddUserProperty),
		"addUserPropertyValues":    d.userPropertyValues(d.sdk.AddUserProperty),
		"flagUserProperty":         d.setString("propertyName", d.sdk.FlagUserProperty),
		"removeUserProperty":       d.removeUserProperty,
		"removeUserPropertyValue":  d.userPropertyValue(d.sdk.RemoveUserProperty),
		"removeUserPropertyValues": d.userPropertyValues(d.sdk.RemoveUserProperty),
		"setUserPropertyValue":     d.userPropertyValue(d.sdk.SetUserProperty),
		"setUserPropertyValues":    d.userPropertyValues(d.sdk.SetUserProperty),

		// performance
		"reportFullyDrawn":    d.void(d.sdk.ReportFullyDrawn),
		"startResourceLogger": d.startResourceLogger,
		"logResourceLogger":   d.logResourceLogger,

		// queries
		"getPlatformVersion": func(context.Context, Args) (any, error) { return d.sdk.PlatformVersion(), nil },
		"getAgentVersion":    func(context.Context, Args) (any, error) { return d.sdk.AgentVersion(), nil },
		"getReleaseVersion":  func(context.Context, Args) (any, error) { return d.sdk.ReleaseVersion(), nil },
		"getSessionId":       func(context.Context, Args) (any, error) { return d.sdk.SessionID(), nil },

		// events
		"logEvent":                    d.logEvent,
		"logEventWithParameters":      d.logEventWithParameters,
		"logTimedEvent":               d.logTimedEvent,
		"logTimedEventWithParameters": d.logTimedEventWithParameters,
		"endTimedEvent":               d.endTimedEvent,
		"endTimedEventWithParameters": d.endTimedEventWithParameters,
		"logStandardEvent":            d.logStandardEvent,
		"onError":                     d.onError,
		"onErrorWithParameters":       d.onErrorWithParameters,
		"logBreadcrumb":               d.setString("crashBreadcrumb", d.sdk.LogBreadcrumb),
		"logPayment":                  d.logPayment,

		// remote config
		"registerConfigListener": noop,
		"fetchConfig":            d.void(d.sdk.Config().FetchConfig),
		"activateConfig":         d.void(d.sdk.Config().ActivateConfig),
		"getConfigString":        d.getConfigString,

		// messaging
		"setMessagingListener": noop,
		"willHandleMessage":    d.willHandleMessage,

		// publisher segmentation
		"isPublisherDataFetched":        func(context.Context, Args) (any, error) { return d.sdk.Segmentation().IsFetchFinished(), nil },
		"getPublisherData":              d.getPublisherData,
		"fetchPublisherData":            d.void(d.sdk.Segmentation().Fetch),
		"registerPublisherDataListener": noop,
	}
}

func noop(context.Context, Args) (any, error) {
	return nil, nil
}

func (d *Dispatcher) void(fn func()) handlerFunc {
	return func(context.Context, Args) (any, error) {
		fn()
		return nil, nil
	}
}

func (d *Dispatcher) setBool(key string, fn func(bool)) handlerFunc {
	return func(_ context.Context, args Args) (any, error) {
		v, err := args.Bool(key)
		if err != nil {
			return nil, err
		}
		fn(v)
		return nil, nil
	}
}

func (d *Dispatcher) setString(key string, fn func(string)) handlerFunc {
	return func(_ context.Context, args Args) (any, error) {
		v, err := args.String(key)
		if err != nil {
			return nil, err
		}
		fn(v)
		return nil, nil
	}
}
