package flurry

import "errors"

// ErrNoApplicationContext is returned by operations that need a host
// application context the bridge was never given.
var ErrNoApplicationContext = errors.New("flurry: application context not available")

type Gender byte

const (
	GenderFemale Gender = 0
	GenderMale   Gender = 1
)

// EventRecordStatus mirrors the SDK's record status. The integer value
// is what crosses the bridge.
type EventRecordStatus int

const (
	EventFailed EventRecordStatus = iota
	EventRecorded
	EventUniqueCountExceeded
	EventParamsCountExceeded
	EventLogCountExceeded
	EventLoggingDelayed
	EventAnalyticsDisabled
	EventParamsMismatched
)

func (s EventRecordStatus) String() string {
	switch s {
	case EventFailed:
		return "failed"
	case EventRecorded:
		return "recorded"
	case EventUniqueCountExceeded:
		return "unique_count_exceeded"
	case EventParamsCountExceeded:
		return "params_count_exceeded"
	case EventLogCountExceeded:
		return "log_count_exceeded"
	case EventLoggingDelayed:
		return "logging_delayed"
	case EventAnalyticsDisabled:
		return "analytics_disabled"
	case EventParamsMismatched:
		return "params_mismatched"
	}
	return "unknown"
}

// Options collects builder settings until the agent is built.
type Options struct {
	SessionForceStart                  bool
	ReportLocation                     bool
	ContinueSessionMillis              int64
	CaptureUncaughtExceptions          bool
	GppString                          string
	GppSectionIDs                      []int
	DataSaleOptOut                     bool
	IncludeBackgroundSessionsInMetrics bool
	LogEnabled                         bool
	LogLevel                           int
	PerformanceMetrics                 int
	SslPinningEnabled                  bool

	// Messaging enables push messaging with the given listener.
	Messaging MessagingListener
}

// Payment describes a logPayment call.
type Payment struct {
	ProductName   string
	ProductID     string
	Quantity      int
	Price         float64
	Currency      string
	TransactionID string
	Parameters    map[string]string
}

// PrivacyCallback receives the outcome of opening the privacy dashboard.
type PrivacyCallback interface {
	Success()
	Failure()
}

// Agent covers the analytics agent surface.
type Agent interface {
	Build(apiKey string, opts Options) error
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
	SetGender(gender Gender)
	SetReportLocation(enabled bool)
	SetSessionOrigin(originName, deepLink string)
	SetUserID(userID string)
	SetVersionName(versionName string)
	AddOrigin(originName, originVersion string, params map[string]string)
	AddSessionProperty(name, value string)
	SetGppConsent(gppString string, sectionIDs []int)
	SetDataSaleOptOut(optOut bool)
	DeleteData()
	OpenPrivacyDashboard(appContext any, cb PrivacyCallback) error

	LogEvent(eventID string, params map[string]string, timed bool) EventRecordStatus
	LogStandardEvent(event StandardEvent, params map[string]string) EventRecordStatus
	EndTimedEvent(eventID string, params map[string]string)
	LogPayment(p Payment) EventRecordStatus
	OnError(errorID, message, errorClass string, params map[string]string)
	LogBreadcrumb(crumb string)
}

// UserProperties is the user property store. A nil values slice on
// RemoveUserProperty removes the whole property.
type UserProperties interface {
	AddUserProperty(name string, values []string)
	SetUserProperty(name string, values []string)
	RemoveUserProperty(name string, values []string)
	FlagUserProperty(name string)
}

type ResourceLogger interface {
	LogEvent(id string)
}

type Performance interface {
	ReportFullyDrawn()
	NewResourceLogger() ResourceLogger
}

type ConfigListener interface {
	OnFetchSuccess()
	OnFetchNoChange()
	OnFetchError(isRetrying bool)
	OnActivateComplete(isCache bool)
}

type RemoteConfig interface {
	RegisterListener(l ConfigListener)
	UnregisterListener(l ConfigListener)
	FetchConfig()
	ActivateConfig()
	GetString(key, defaultValue string) string
}

type FetchListener interface {
	OnFetched(data map[string]string)
}

type Segmentation interface {
	RegisterFetchListener(l FetchListener)
	UnregisterFetchListener(l FetchListener)
	IsFetchFinished() bool
	PublisherData() map[string]string
	Fetch()
}

// MessagingListener receives push lifecycle callbacks. A true return
// from OnNotificationReceived or OnNotificationClicked suppresses the
// SDK's default handling.
type MessagingListener interface {
	OnNotificationReceived(msg Message) bool
	OnNotificationClicked(msg Message) bool
	OnNotificationCancelled(msg Message)
	OnTokenRefresh(token string)
	OnNonFlurryNotificationReceived(raw any)
}

// SDK is everything the bridge needs from the vendor.
type SDK interface {
	Agent
	UserProperties
	Performance
	Config() RemoteConfig
	Segmentation() Segmentation
}
