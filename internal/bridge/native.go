package bridge

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/arko-chat/flurrybridge/internal/flurry"
)

// NativeSDK is implemented by the native side (Swift/Kotlin) on top of
// the vendor SDK. gomobile exposes it as an interface native code can
// satisfy.
//
// Rules for gomobile compatibility:
//   - methods may only use primitive types, strings, []byte, or other
//     gomobile-bound types as parameters and return values
//   - maps and lists cross as JSON strings; "" means absent
//   - errors are returned as a second return value
type NativeSDK interface {
	// Build starts the agent. optionsJSON is a NativeOptions document.
	Build(apiKey string, optionsJSON string) error

	PlatformVersion() string
	AgentVersion() int
	ReleaseVersion() string
	SessionID() string

	SetContinueSessionMillis(millis int64)
	SetCaptureUncaughtExceptions(enabled bool)
	SetIncludeBackgroundSessionsInMetrics(enabled bool)
	SetLogEnabled(enabled bool)
	SetLogLevel(level int)
	SetSslPinningEnabled(enabled bool)
	SetAge(age int)
	// SetGender takes 0 for female and 1 for male.
	SetGender(gender int)
	SetReportLocation(enabled bool)
	SetSessionOrigin(originName string, deepLink string)
	SetUserID(userID string)
	SetVersionName(versionName string)
	AddOrigin(originName string, originVersion string, paramsJSON string)
	AddSessionProperty(name string, value string)
	SetGppConsent(gppString string, sectionIDsJSON string)
	SetDataSaleOptOut(optOut bool)
	DeleteData()
	OpenPrivacyDashboard(cb *PrivacyCallback) error

	// Event methods return the record status ordinal.
	LogEvent(eventID string, paramsJSON string, timed bool) int
	LogStandardEvent(event string, paramsJSON string) int
	EndTimedEvent(eventID string, paramsJSON string)
	LogPayment(paymentJSON string) int
	OnError(errorID string, message string, errorClass string, paramsJSON string)
	LogBreadcrumb(crumb string)

	AddUserProperty(name string, valuesJSON string)
	SetUserProperty(name string, valuesJSON string)
	// RemoveUserProperty removes the whole property when valuesJSON is "".
	RemoveUserProperty(name string, valuesJSON string)
	FlagUserProperty(name string)

	ReportFullyDrawn()
	NewResourceLogger() NativeResourceLogger

	FetchConfig()
	ActivateConfig()
	GetConfigString(key string, defaultValue string) string

	IsPublisherDataFetched() bool
	// PublisherData returns the segments as a JSON object, or "".
	PublisherData() string
	FetchPublisherData()
}

type NativeResourceLogger interface {
	LogEvent(id string)
}

// NativeOptions is the JSON document passed to NativeSDK.Build.
type NativeOptions struct {
	SessionForceStart                  bool   `json:"sessionForceStart"`
	ReportLocation                     bool   `json:"reportLocation"`
	ContinueSessionMillis              int64  `json:"continueSessionMillis"`
	CaptureUncaughtExceptions          bool   `json:"captureUncaughtExceptions"`
	GppString                          string `json:"gppString,omitempty"`
	GppSectionIDs                      []int  `json:"gppSectionIds,omitempty"`
	DataSaleOptOut                     bool   `json:"dataSaleOptOut"`
	IncludeBackgroundSessionsInMetrics bool   `json:"includeBackgroundSessionsInMetrics"`
	LogEnabled                         bool   `json:"logEnabled"`
	LogLevel                           int    `json:"logLevel"`
	PerformanceMetrics                 int    `json:"performanceMetrics"`
	SslPinningEnabled                  bool   `json:"sslPinningEnabled"`
	// Messaging asks the native side to enable push and report through
	// NativeCallbacks.
	Messaging bool `json:"messaging"`
}

// PaymentJSON is the document passed to NativeSDK.LogPayment.
type PaymentJSON struct {
	ProductName   string            `json:"productName"`
	ProductID     string            `json:"productId"`
	Quantity      int               `json:"quantity"`
	Price         float64           `json:"price"`
	Currency      string            `json:"currency"`
	TransactionID string            `json:"transactionId"`
	Parameters    map[string]string `json:"parameters,omitempty"`
}

// PrivacyCallback is handed to native code, which calls exactly one of
// its methods once the dashboard opened or failed.
type PrivacyCallback struct {
	cb   flurry.PrivacyCallback
	once sync.Once
}

func (c *PrivacyCallback) Success() { c.once.Do(c.cb.Success) }
func (c *PrivacyCallback) Failure() { c.once.Do(c.cb.Failure) }

// FromNative adapts n to flurry.SDK. Native code reports SDK callbacks
// through the returned NativeCallbacks.
func FromNative(n NativeSDK, logger *slog.Logger) (flurry.SDK, *NativeCallbacks) {
	a := &nativeSDK{n: n, logger: logger}
	return a, &NativeCallbacks{sdk: a}
}

type nativeSDK struct {
	n      NativeSDK
	logger *slog.Logger

	mu         sync.Mutex
	configL    []flurry.ConfigListener
	fetchL     []flurry.FetchListener
	messagingL flurry.MessagingListener
}

var (
	_ flurry.SDK          = (*nativeSDK)(nil)
	_ flurry.RemoteConfig = nativeConfig{}
	_ flurry.Segmentation = nativeSegmentation{}
)

// encode marshals v, or returns "" for nil maps and slices.
func (a *nativeSDK) encode(v any) string {
	switch x := v.(type) {
	case map[string]string:
		if x == nil {
			return ""
		}
	case []string:
		if x == nil {
			return ""
		}
	case []int:
		if x == nil {
			return ""
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		a.logger.Error("encode native argument", "err", err)
		return ""
	}
	return string(b)
}

func (a *nativeSDK) Build(apiKey string, opts flurry.Options) error {
	no := NativeOptions{
		SessionForceStart:                  opts.SessionForceStart,
		ReportLocation:                     opts.ReportLocation,
		ContinueSessionMillis:              opts.ContinueSessionMillis,
		CaptureUncaughtExceptions:          opts.CaptureUncaughtExceptions,
		GppString:                          opts.GppString,
		GppSectionIDs:                      opts.GppSectionIDs,
		DataSaleOptOut:                     opts.DataSaleOptOut,
		IncludeBackgroundSessionsInMetrics: opts.IncludeBackgroundSessionsInMetrics,
		LogEnabled:                         opts.LogEnabled,
		LogLevel:                           opts.LogLevel,
		PerformanceMetrics:                 opts.PerformanceMetrics,
		SslPinningEnabled:                  opts.SslPinningEnabled,
		Messaging:                          opts.Messaging != nil,
	}
	if opts.Messaging != nil {
		a.setMessaging(opts.Messaging)
	}
	if err := a.n.Build(apiKey, a.encode(no)); err != nil {
		return fmt.Errorf("native build: %w", err)
	}
	return nil
}

func (a *nativeSDK) setMessaging(l flurry.MessagingListener) {
	a.mu.Lock()
	a.messagingL = l
	a.mu.Unlock()
}

func (a *nativeSDK) messaging() flurry.MessagingListener {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.messagingL
}

func (a *nativeSDK) PlatformVersion() string { return a.n.PlatformVersion() }
func (a *nativeSDK) AgentVersion() int       { return a.n.AgentVersion() }
func (a *nativeSDK) ReleaseVersion() string  { return a.n.ReleaseVersion() }
func (a *nativeSDK) SessionID() string       { return a.n.SessionID() }

func (a *nativeSDK) SetContinueSessionMillis(millis int64) { a.n.SetContinueSessionMillis(millis) }
func (a *nativeSDK) SetCaptureUncaughtExceptions(enabled bool) {
	a.n.SetCaptureUncaughtExceptions(enabled)
}
func (a *nativeSDK) SetIncludeBackgroundSessionsInMetrics(enabled bool) {
	a.n.SetIncludeBackgroundSessionsInMetrics(enabled)
}
func (a *nativeSDK) SetLogEnabled(enabled bool)         { a.n.SetLogEnabled(enabled) }
func (a *nativeSDK) SetLogLevel(level int)              { a.n.SetLogLevel(level) }
func (a *nativeSDK) SetSslPinningEnabled(enabled bool)  { a.n.SetSslPinningEnabled(enabled) }
func (a *nativeSDK) SetAge(age int)                     { a.n.SetAge(age) }
func (a *nativeSDK) SetGender(g flurry.Gender)          { a.n.SetGender(int(g)) }
func (a *nativeSDK) SetReportLocation(enabled bool)     { a.n.SetReportLocation(enabled) }
func (a *nativeSDK) SetSessionOrigin(name, link string) { a.n.SetSessionOrigin(name, link) }
func (a *nativeSDK) SetUserID(userID string)            { a.n.SetUserID(userID) }
func (a *nativeSDK) SetVersionName(name string)         { a.n.SetVersionName(name) }
func (a *nativeSDK) AddSessionProperty(name, value string) {
	a.n.AddSessionProperty(name, value)
}
func (a *nativeSDK) SetDataSaleOptOut(optOut bool) { a.n.SetDataSaleOptOut(optOut) }
func (a *nativeSDK) DeleteData()                   { a.n.DeleteData() }
func (a *nativeSDK) LogBreadcrumb(crumb string)    { a.n.LogBreadcrumb(crumb) }
func (a *nativeSDK) ReportFullyDrawn()             { a.n.ReportFullyDrawn() }
func (a *nativeSDK) FlagUserProperty(name string)  { a.n.FlagUserProperty(name) }

func (a *nativeSDK) AddOrigin(name, version string, params map[string]string) {
	a.n.AddOrigin(name, version, a.encode(params))
}

func (a *nativeSDK) SetGppConsent(gpp string, ids []int) {
	a.n.SetGppConsent(gpp, a.encode(ids))
}

func (a *nativeSDK) OpenPrivacyDashboard(appContext any, cb flurry.PrivacyCallback) error {
	if appContext == nil {
		return flurry.ErrNoApplicationContext
	}
	return a.n.OpenPrivacyDashboard(&PrivacyCallback{cb: cb})
}

func (a *nativeSDK) LogEvent(id string, params map[string]string, timed bool) flurry.EventRecordStatus {
	return flurry.EventRecordStatus(a.n.LogEvent(id, a.encode(params), timed))
}

func (a *nativeSDK) LogStandardEvent(event flurry.StandardEvent, params map[string]string) flurry.EventRecordStatus {
	return flurry.EventRecordStatus(a.n.LogStandardEvent(string(event), a.encode(params)))
}

func (a *nativeSDK) EndTimedEvent(id string, params map[string]string) {
	a.n.EndTimedEvent(id, a.encode(params))
}

func (a *nativeSDK) LogPayment(p flurry.Payment) flurry.EventRecordStatus {
	return flurry.EventRecordStatus(a.n.LogPayment(a.encode(PaymentJSON(p))))
}

func (a *nativeSDK) OnError(id, message, class string, params map[string]string) {
	a.n.OnError(id, message, class, a.encode(params))
}

func (a *nativeSDK) AddUserProperty(name string, values []string) {
	a.n.AddUserProperty(name, a.encode(values))
}

func (a *nativeSDK) SetUserProperty(name string, values []string) {
	a.n.SetUserProperty(name, a.encode(values))
}

func (a *nativeSDK) RemoveUserProperty(name string, values []string) {
	a.n.RemoveUserProperty(name, a.encode(values))
}

func (a *nativeSDK) NewResourceLogger() flurry.ResourceLogger {
	return a.n.NewResourceLogger()
}

func (a *nativeSDK) Config() flurry.RemoteConfig        { return nativeConfig{a} }
func (a *nativeSDK) Segmentation() flurry.Segmentation { return nativeSegmentation{a} }

type nativeConfig struct{ a *nativeSDK }

func (c nativeConfig) RegisterListener(l flurry.ConfigListener) {
	c.a.mu.Lock()
	c.a.configL = append(c.a.configL, l)
	c.a.mu.Unlock()
}

func (c nativeConfig) UnregisterListener(l flurry.ConfigListener) {
	c.a.mu.Lock()
	c.a.configL = slices.DeleteFunc(c.a.configL, func(x flurry.ConfigListener) bool { return x == l })
	c.a.mu.Unlock()
}

func (c nativeConfig) FetchConfig()    { c.a.n.FetchConfig() }
func (c nativeConfig) ActivateConfig() { c.a.n.ActivateConfig() }
func (c nativeConfig) GetString(key, def string) string {
	return c.a.n.GetConfigString(key, def)
}

type nativeSegmentation struct{ a *nativeSDK }

func (s nativeSegmentation) RegisterFetchListener(l flurry.FetchListener) {
	s.a.mu.Lock()
	s.a.fetchL = append(s.a.fetchL, l)
	s.a.mu.Unlock()
}

func (s nativeSegmentation) UnregisterFetchListener(l flurry.FetchListener) {
	s.a.mu.Lock()
	s.a.fetchL = slices.DeleteFunc(s.a.fetchL, func(x flurry.FetchListener) bool { return x == l })
	s.a.mu.Unlock()
}

func (s nativeSegmentation) IsFetchFinished() bool { return s.a.n.IsPublisherDataFetched() }
func (s nativeSegmentation) Fetch()                { s.a.n.FetchPublisherData() }

func (s nativeSegmentation) PublisherData() map[string]string {
	raw := s.a.n.PublisherData()
	if raw == "" {
		return nil
	}
	var data map[string]string
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		s.a.logger.Error("decode publisher data", "err", err)
		return nil
	}
	return data
}

// NativeCallbacks is how native code reports vendor SDK callbacks. Each
// method may be called from any native thread.
type NativeCallbacks struct {
	sdk *nativeSDK
}

// AttachMessaging routes notification callbacks to l when messaging was
// set up natively before the agent was built through the bridge.
func (c *NativeCallbacks) AttachMessaging(l flurry.MessagingListener) {
	c.sdk.setMessaging(l)
}

func (c *NativeCallbacks) configListeners() []flurry.ConfigListener {
	c.sdk.mu.Lock()
	defer c.sdk.mu.Unlock()
	return slices.Clone(c.sdk.configL)
}

func (c *NativeCallbacks) ConfigFetchSuccess() {
	for _, l := range c.configListeners() {
		l.OnFetchSuccess()
	}
}

func (c *NativeCallbacks) ConfigFetchNoChange() {
	for _, l := range c.configListeners() {
		l.OnFetchNoChange()
	}
}

func (c *NativeCallbacks) ConfigFetchError(isRetrying bool) {
	for _, l := range c.configListeners() {
		l.OnFetchError(isRetrying)
	}
}

func (c *NativeCallbacks) ConfigActivateComplete(isCache bool) {
	for _, l := range c.configListeners() {
		l.OnActivateComplete(isCache)
	}
}

// PublisherDataFetched takes the fetched segments as a JSON object.
func (c *NativeCallbacks) PublisherDataFetched(dataJSON string) error {
	data := map[string]string{}
	if dataJSON != "" {
		if err := json.Unmarshal([]byte(dataJSON), &data); err != nil {
			return fmt.Errorf("decode publisher data: %w", err)
		}
	}

	c.sdk.mu.Lock()
	listeners := slices.Clone(c.sdk.fetchL)
	c.sdk.mu.Unlock()
	for _, l := range listeners {
		l.OnFetched(data)
	}
	return nil
}

func decodeMessage(messageJSON string) (flurry.Message, error) {
	var msg flurry.Message
	if err := json.Unmarshal([]byte(messageJSON), &msg); err != nil {
		return msg, fmt.Errorf("decode message: %w", err)
	}
	return msg, nil
}

// NotificationReceived blocks while the host decides. A true result
// means the app handles the notification and the SDK must not.
func (c *NativeCallbacks) NotificationReceived(messageJSON string) (bool, error) {
	msg, err := decodeMessage(messageJSON)
	if err != nil {
		return false, err
	}
	l := c.sdk.messaging()
	if l == nil {
		return false, nil
	}
	return l.OnNotificationReceived(msg), nil
}

func (c *NativeCallbacks) NotificationClicked(messageJSON string) (bool, error) {
	msg, err := decodeMessage(messageJSON)
	if err != nil {
		return false, err
	}
	l := c.sdk.messaging()
	if l == nil {
		return false, nil
	}
	return l.OnNotificationClicked(msg), nil
}

func (c *NativeCallbacks) NotificationCancelled(messageJSON string) error {
	msg, err := decodeMessage(messageJSON)
	if err != nil {
		return err
	}
	if l := c.sdk.messaging(); l != nil {
		l.OnNotificationCancelled(msg)
	}
	return nil
}

func (c *NativeCallbacks) TokenRefreshed(token string) {
	if l := c.sdk.messaging(); l != nil {
		l.OnTokenRefresh(token)
	}
}
