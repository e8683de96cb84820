package flurry

import "maps"

// Message is a received, clicked or cancelled push notification.
type Message struct {
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	ClickAction string            `json:"clickAction,omitempty"`
	AppData     map[string]string `json:"appData,omitempty"`
}

// Clone returns a copy that does not share AppData with m.
func (m Message) Clone() Message {
	out := m
	if m.AppData != nil {
		out.AppData = maps.Clone(m.AppData)
	}
	return out
}
