package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/arko-chat/flurrybridge/internal/bridge"
	"github.com/arko-chat/flurrybridge/internal/dispatcher"
)

const maxArgsBytes = 1 << 20

// HandleCall runs POST /api/call/{method}. The body is the JSON argument
// object and may be empty.
func (h *Handler) HandleCall(w http.ResponseWriter, r *http.Request) {
	method := chi.URLParam(r, "method")

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxArgsBytes))
	if err != nil {
		h.writeJSON(w, http.StatusRequestEntityTooLarge, bridge.Envelope{
			Code: http.StatusRequestEntityTooLarge,
			Msg:  err.Error(),
		})
		return
	}

	args, err := dispatcher.ParseArgs(raw)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, bridge.Result(nil, err))
		return
	}

	res, err := h.bridge.Call(r.Context(), method, args)
	env := bridge.Result(res, err)
	h.writeJSON(w, httpStatus(env, err), env)
}

func httpStatus(env bridge.Envelope, err error) int {
	switch {
	case errors.Is(err, bridge.ErrDetached):
		return http.StatusServiceUnavailable
	case env.Code == http.StatusNotFound:
		return http.StatusNotImplemented
	}
	return env.Code
}

type decisionRequest struct {
	WillHandle *bool `json:"willHandle"`
}

type decisionResponse struct {
	Pending bool `json:"pending"`
}

// HandleDecision answers the notification handshake that is waiting, if
// any.
func (h *Handler) HandleDecision(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxArgsBytes)).Decode(&req); err != nil || req.WillHandle == nil {
		h.writeJSON(w, http.StatusBadRequest, bridge.Envelope{
			Code: http.StatusBadRequest,
			Msg:  "body must be {\"willHandle\": bool}",
		})
		return
	}

	pending := h.bridge.NotifyDecision(*req.WillHandle)
	h.writeJSON(w, http.StatusOK, bridge.Envelope{
		Code: http.StatusOK,
		Data: decisionResponse{Pending: pending},
	})
}
