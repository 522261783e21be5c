package handlers

import (
	"errors"
	"io"
	"net/http"

	"watchsync/services/player"
)

// PlayerHandler exposes the embedded-player progress bridge: a websocket for
// live connections and a relay endpoint for pages that forward postMessage
// events over plain HTTP.
type PlayerHandler struct {
	Bridge *player.Bridge
}

func NewPlayerHandler(bridge *player.Bridge) *PlayerHandler {
	return &PlayerHandler{Bridge: bridge}
}

func (h *PlayerHandler) Events(w http.ResponseWriter, r *http.Request) {
	h.Bridge.Serve(w, r)
}

// Relay accepts a single MEDIA_DATA message. The Origin header is validated
// the same way the websocket upgrade is.
func (h *PlayerHandler) Relay(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Bridge.HandleMessage(r.Header.Get("Origin"), payload); err != nil {
		if errors.Is(err, player.ErrOriginNotAllowed) {
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *PlayerHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
