package relay

import (
	"fmt"
	"maps"
	"strconv"

	"github.com/arko-chat/flurrybridge/internal/flurry"
)

// Stream names as seen by the host.
const (
	ChannelConfig       = "flurry_flutter_plugin_event_config"
	ChannelMessaging    = "flurry_flutter_plugin_event_messaging"
	ChannelSegmentation = "flurry_flutter_plugin_event_ps"
)

type ConfigEventType string

const (
	ConfigFetchSuccess     ConfigEventType = "FetchSuccess"
	ConfigFetchNoChange    ConfigEventType = "FetchNoChange"
	ConfigFetchError       ConfigEventType = "FetchError"
	ConfigActivateComplete ConfigEventType = "ActivateComplete"
)

// ConfigEvent is one remote config lifecycle event. Flag is only
// meaningful for FetchError (isRetrying) and ActivateComplete (isCache).
type ConfigEvent struct {
	Type ConfigEventType
	Flag bool
}

func (e ConfigEvent) flagKey() string {
	switch e.Type {
	case ConfigFetchError:
		return "isRetrying"
	case ConfigActivateComplete:
		return "isCache"
	}
	return ""
}

// Payload is the wire form: {"type": ..., ["isRetrying"|"isCache": "true"|"false"]}.
func (e ConfigEvent) Payload() map[string]string {
	out := map[string]string{"type": string(e.Type)}
	if key := e.flagKey(); key != "" {
		out[key] = strconv.FormatBool(e.Flag)
	}
	return out
}

// ParseConfigEvent rebuilds a ConfigEvent from a delivered payload,
// either as sent or after a JSON round trip.
func ParseConfigEvent(payload any) (ConfigEvent, error) {
	m, err := stringMap(payload)
	if err != nil {
		return ConfigEvent{}, err
	}

	ev := ConfigEvent{Type: ConfigEventType(m["type"])}
	switch ev.Type {
	case ConfigFetchSuccess, ConfigFetchNoChange:
	case ConfigFetchError, ConfigActivateComplete:
		raw, ok := m[ev.flagKey()]
		if !ok {
			return ConfigEvent{}, fmt.Errorf("config event %s: missing %s", ev.Type, ev.flagKey())
		}
		if ev.Flag, err = strconv.ParseBool(raw); err != nil {
			return ConfigEvent{}, fmt.Errorf("config event %s: %w", ev.Type, err)
		}
	default:
		return ConfigEvent{}, fmt.Errorf("unknown config event type %q", m["type"])
	}
	return ev, nil
}

type MessagingEventType string

const (
	NotificationReceived  MessagingEventType = "NotificationReceived"
	NotificationClicked   MessagingEventType = "NotificationClicked"
	NotificationCancelled MessagingEventType = "NotificationCancelled"
	TokenRefresh          MessagingEventType = "TokenRefresh"
)

// MessagingEvent carries either a Message or, for TokenRefresh, a Token.
type MessagingEvent struct {
	Type    MessagingEventType
	Message flurry.Message
	Token   string
}

func (e MessagingEvent) Payload() map[string]any {
	out := map[string]any{"type": string(e.Type)}
	if e.Type == TokenRefresh {
		out["token"] = e.Token
		return out
	}

	out["title"] = e.Message.Title
	out["body"] = e.Message.Body
	out["clickAction"] = e.Message.ClickAction
	if e.Message.AppData != nil {
		out["appData"] = maps.Clone(e.Message.AppData)
	}
	return out
}

func ParseMessagingEvent(payload any) (MessagingEvent, error) {
	m, ok := payload.(map[string]any)
	if !ok {
		return MessagingEvent{}, fmt.Errorf("messaging payload: unexpected %T", payload)
	}

	typ, _ := m["type"].(string)
	ev := MessagingEvent{Type: MessagingEventType(typ)}
	switch ev.Type {
	case TokenRefresh:
		ev.Token, _ = m["token"].(string)
		return ev, nil
	case NotificationReceived, NotificationClicked, NotificationCancelled:
	default:
		return MessagingEvent{}, fmt.Errorf("unknown messaging event type %q", typ)
	}

	ev.Message.Title, _ = m["title"].(string)
	ev.Message.Body, _ = m["body"].(string)
	ev.Message.ClickAction, _ = m["clickAction"].(string)
	if raw, ok := m["appData"]; ok && raw != nil {
		data, err := stringMap(raw)
		if err != nil {
			return MessagingEvent{}, fmt.Errorf("messaging appData: %w", err)
		}
		ev.Message.AppData = data
	}
	return ev, nil
}

// ParseSegmentationData rebuilds the fetched publisher data.
func ParseSegmentationData(payload any) (map[string]string, error) {
	return stringMap(payload)
}

func stringMap(v any) (map[string]string, error) {
	switch m := v.(type) {
	case map[string]string:
		return maps.Clone(m), nil
	case map[string]any:
		out := make(map[string]string, len(m))
		for k, raw := range m {
			s, ok := raw.(string)
			if !ok {
				return nil, fmt.Errorf("key %q: expected string, got %T", k, raw)
			}
			out[k] = s
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected string map, got %T", v)
}
