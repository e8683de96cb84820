// Package simulator provides an in-process stand-in for the vendor SDK.
// It records every call and lets tests and the headless host trigger the
// callbacks a real device would produce.
package simulator

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"
	"github.com/tidwall/btree"

	"github.com/arko-chat/flurrybridge/internal/flurry"
)

const (
	PlatformVersion = "Simulator 1.0"
	AgentVersion    = 14_100
	ReleaseVersion  = "14.1.0"

	// maxEventParams matches the SDK's per-event parameter limit.
	maxEventParams = 10
)

type Call struct {
	Method string
	Args   []any
	At     time.Time
}

type Option func(*SDK)

func WithConfigValues(values map[string]string) Option {
	return func(s *SDK) {
		s.config.values = maps.Clone(values)
	}
}

func WithPublisherData(data map[string]string) Option {
	return func(s *SDK) {
		s.segments.data = maps.Clone(data)
	}
}

// WithPrivacyDashboard sets what opening the privacy dashboard does.
func WithPrivacyDashboard(open func() error) Option {
	return func(s *SDK) {
		s.openPrivacy = open
	}
}

// SDK implements flurry.SDK in memory.
type SDK struct {
	logger *slog.Logger

	callsMu sync.Mutex
	calls   []Call
	counts  *xsync.Map[string, int]

	mu          sync.Mutex
	built       bool
	apiKey      string
	options     flurry.Options
	sessionID   string
	userProps   map[string]*btree.Set[string]
	sessionKV   map[string]string
	timed       map[string]struct{}
	openPrivacy func() error

	config   *remoteConfig
	segments *segmentation
}

var _ flurry.SDK = (*SDK)(nil)

func New(logger *slog.Logger, opts ...Option) *SDK {
	s := &SDK{
		logger:      logger,
		counts:      xsync.NewMap[string, int](),
		userProps:   make(map[string]*btree.Set[string]),
		sessionKV:   make(map[string]string),
		timed:       make(map[string]struct{}),
		openPrivacy: func() error { return nil },
	}
	s.config = &remoteConfig{sdk: s, values: map[string]string{}}
	s.segments = &segmentation{sdk: s, data: map[string]string{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SDK) record(method string, args ...any) {
	s.callsMu.Lock()
	s.calls = append(s.calls, Call{Method: method, Args: args, At: time.Now()})
	s.callsMu.Unlock()

	s.counts.Compute(method, func(n int, _ bool) (int, xsync.ComputeOp) {
		return n + 1, xsync.UpdateOp
	})
	s.logger.Debug("sdk call", "method", method, "args", args)
}

// Calls returns a copy of the call log in order.
func (s *SDK) Calls() []Call {
	s.callsMu.Lock()
	defer s.callsMu.Unlock()
	return slices.Clone(s.calls)
}

// CallsTo returns the recorded calls of one method.
func (s *SDK) CallsTo(method string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (s *SDK) Count(method string) int {
	n, _ := s.counts.Load(method)
	return n
}

func (s *SDK) Built() (apiKey string, opts flurry.Options, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apiKey, s.options, s.built
}

// UserProperty returns the values of a user property in sorted order.
// Values are a set, as the agent keeps them.
func (s *SDK) UserProperty(name string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.userProps[name]
	if !ok {
		return nil
	}
	return set.Keys()
}

func (s *SDK) Build(apiKey string, opts flurry.Options) error {
	s.record("Build", apiKey, opts)
	if apiKey == "" {
		return fmt.Errorf("simulator: empty api key")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.built {
		s.logger.Warn("agent already built, ignoring rebuild")
		return nil
	}
	s.built = true
	s.apiKey = apiKey
	s.options = opts
	s.sessionID = uuid.NewString()
	return nil
}

func (s *SDK) PlatformVersion() string { s.record("PlatformVersion"); return PlatformVersion }
func (s *SDK) AgentVersion() int       { s.record("AgentVersion"); return AgentVersion }
func (s *SDK) ReleaseVersion() string  { s.record("ReleaseVersion"); return ReleaseVersion }

func (s *SDK) SessionID() string {
	s.record("SessionID")
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

func (s *SDK) SetContinueSessionMillis(millis int64) { s.record("SetContinueSessionMillis", millis) }
func (s *SDK) SetCaptureUncaughtExceptions(enabled bool) {
	s.record("SetCaptureUncaughtExceptions", enabled)
}
func (s *SDK) SetIncludeBackgroundSessionsInMetrics(enabled bool) {
	s.record("SetIncludeBackgroundSessionsInMetrics", enabled)
}
func (s *SDK) SetLogEnabled(enabled bool)           { s.record("SetLogEnabled", enabled) }
func (s *SDK) SetLogLevel(level int)                { s.record("SetLogLevel", level) }
func (s *SDK) SetSslPinningEnabled(enabled bool)    { s.record("SetSslPinningEnabled", enabled) }
func (s *SDK) SetAge(age int)                       { s.record("SetAge", age) }
func (s *SDK) SetGender(gender flurry.Gender)       { s.record("SetGender", gender) }
func (s *SDK) SetReportLocation(enabled bool)       { s.record("SetReportLocation", enabled) }
func (s *SDK) SetSessionOrigin(name, link string)   { s.record("SetSessionOrigin", name, link) }
func (s *SDK) SetUserID(userID string)              { s.record("SetUserID", userID) }
func (s *SDK) SetVersionName(versionName string)    { s.record("SetVersionName", versionName) }
func (s *SDK) SetGppConsent(gpp string, ids []int)  { s.record("SetGppConsent", gpp, ids) }
func (s *SDK) SetDataSaleOptOut(optOut bool)        { s.record("SetDataSaleOptOut", optOut) }
func (s *SDK) LogBreadcrumb(crumb string)           { s.record("LogBreadcrumb", crumb) }
func (s *SDK) ReportFullyDrawn()                    { s.record("ReportFullyDrawn") }
func (s *SDK) FlagUserProperty(name string)         { s.record("FlagUserProperty", name) }
func (s *SDK) Config() flurry.RemoteConfig          { return s.config }
func (s *SDK) Segmentation() flurry.Segmentation    { return s.segments }
func (s *SDK) AddOrigin(name, version string, params map[string]string) {
	s.record("AddOrigin", name, version, params)
}

func (s *SDK) AddSessionProperty(name, value string) {
	s.record("AddSessionProperty", name, value)
	s.mu.Lock()
	s.sessionKV[name] = value
	s.mu.Unlock()
}

func (s *SDK) DeleteData() {
	s.record("DeleteData")
	s.mu.Lock()
	clear(s.userProps)
	clear(s.sessionKV)
	s.mu.Unlock()
}

func (s *SDK) OpenPrivacyDashboard(appContext any, cb flurry.PrivacyCallback) error {
	s.record("OpenPrivacyDashboard", appContext)
	if appContext == nil {
		return flurry.ErrNoApplicationContext
	}
	if err := s.openPrivacy(); err != nil {
		s.logger.Warn("open privacy dashboard", "err", err)
		cb.Failure()
		return nil
	}
	cb.Success()
	return nil
}

func (s *SDK) LogEvent(eventID string, params map[string]string, timed bool) flurry.EventRecordStatus {
	s.record("LogEvent", eventID, params, timed)
	st := s.status(params)
	if st == flurry.EventRecorded && timed {
		s.mu.Lock()
		s.timed[eventID] = struct{}{}
		s.mu.Unlock()
	}
	return st
}

func (s *SDK) LogStandardEvent(event flurry.StandardEvent, params map[string]string) flurry.EventRecordStatus {
	s.record("LogStandardEvent", event, params)
	return s.status(params)
}

func (s *SDK) EndTimedEvent(eventID string, params map[string]string) {
	s.record("EndTimedEvent", eventID, params)
	s.mu.Lock()
	delete(s.timed, eventID)
	s.mu.Unlock()
}

func (s *SDK) LogPayment(p flurry.Payment) flurry.EventRecordStatus {
	s.record("LogPayment", p)
	if p.Quantity <= 0 || p.Currency == "" {
		return flurry.EventParamsMismatched
	}
	return s.status(p.Parameters)
}

func (s *SDK) OnError(errorID, message, errorClass string, params map[string]string) {
	s.record("OnError", errorID, message, errorClass, params)
}

func (s *SDK) status(params map[string]string) flurry.EventRecordStatus {
	s.mu.Lock()
	built := s.built
	s.mu.Unlock()
	switch {
	case !built:
		return flurry.EventLoggingDelayed
	case len(params) > maxEventParams:
		return flurry.EventParamsCountExceeded
	}
	return flurry.EventRecorded
}

func (s *SDK) AddUserProperty(name string, values []string) {
	s.record("AddUserProperty", name, values)
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.userProps[name]
	if !ok {
		set = &btree.Set[string]{}
		s.userProps[name] = set
	}
	for _, v := range values {
		set.Insert(v)
	}
}

func (s *SDK) SetUserProperty(name string, values []string) {
	s.record("SetUserProperty", name, values)
	set := &btree.Set[string]{}
	for _, v := range values {
		set.Insert(v)
	}
	s.mu.Lock()
	s.userProps[name] = set
	s.mu.Unlock()
}

func (s *SDK) RemoveUserProperty(name string, values []string) {
	s.record("RemoveUserProperty", name, values)
	s.mu.Lock()
	defer s.mu.Unlock()
	if values == nil {
		delete(s.userProps, name)
		return
	}
	if set, ok := s.userProps[name]; ok {
		for _, v := range values {
			set.Delete(v)
		}
	}
}

type resourceLogger struct {
	sdk *SDK
}

func (r resourceLogger) LogEvent(id string) { r.sdk.record("ResourceLogger.LogEvent", id) }

func (s *SDK) NewResourceLogger() flurry.ResourceLogger {
	s.record("NewResourceLogger")
	return resourceLogger{sdk: s}
}

// Messaging returns the listener the agent was built with, or nil.
func (s *SDK) Messaging() flurry.MessagingListener {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.built {
		return nil
	}
	return s.options.Messaging
}

// ReceiveNotification plays an incoming push. It reports whether the
// listener claimed the notification. With no listener it is false.
func (s *SDK) ReceiveNotification(msg flurry.Message) bool {
	l := s.Messaging()
	if l == nil {
		return false
	}
	return l.OnNotificationReceived(msg)
}

func (s *SDK) ClickNotification(msg flurry.Message) bool {
	l := s.Messaging()
	if l == nil {
		return false
	}
	return l.OnNotificationClicked(msg)
}

func (s *SDK) CancelNotification(msg flurry.Message) {
	if l := s.Messaging(); l != nil {
		l.OnNotificationCancelled(msg)
	}
}

func (s *SDK) RefreshToken(token string) {
	if l := s.Messaging(); l != nil {
		l.OnTokenRefresh(token)
	}
}
