package bridge

import (
	"errors"
	"net/http"

	"github.com/arko-chat/flurrybridge/internal/dispatcher"
)

// Envelope is the transport-neutral result of one call.
type Envelope struct {
	Code int    `json:"code"`
	Msg  string `json:"msg,omitempty"`
	Data any    `json:"data,omitempty"`
}

// Result wraps a call's return values. Not implemented maps to 404,
// bad arguments to 400 and anything else to 500.
func Result(data any, err error) Envelope {
	switch {
	case err == nil:
		return Envelope{Code: http.StatusOK, Data: data}
	case errors.Is(err, dispatcher.ErrNotImplemented):
		return Envelope{Code: http.StatusNotFound, Msg: err.Error()}
	case errors.Is(err, dispatcher.ErrInvalidArgument):
		return Envelope{Code: http.StatusBadRequest, Msg: err.Error()}
	}
	return Envelope{Code: http.StatusInternalServerError, Msg: err.Error()}
}
