package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"watchsync/services/remote"
	"watchsync/services/syncer"
)

type syncService interface {
	Status() syncer.Status
	SyncNow(ctx context.Context) error
}

var _ syncService = (*syncer.Service)(nil)

type SyncHandler struct {
	Service syncService
}

func NewSyncHandler(service syncService) *SyncHandler {
	return &SyncHandler{Service: service}
}

func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.Service.Status())
}

// SyncNow triggers an immediate push of the local snapshot.
func (h *SyncHandler) SyncNow(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.SyncNow(r.Context()); err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, remote.ErrUnauthenticated) {
			status = http.StatusUnauthorized
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

func (h *SyncHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
