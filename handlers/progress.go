package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"watchsync/models"
	"watchsync/services/library"
)

type progressService interface {
	Progress() map[string]models.ProgressRecord
	ContinueWatching() []models.ProgressRecord
	RecordProgress(models.ProgressRecord) (models.ProgressRecord, error)
	DeleteProgress(key string) (bool, error)
}

var _ progressService = (*library.Service)(nil)

type ProgressHandler struct {
	Service progressService
}

func NewProgressHandler(service progressService) *ProgressHandler {
	return &ProgressHandler{Service: service}
}

func (h *ProgressHandler) List(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.Service.Progress())
}

// ListContinueWatching returns progress records ordered by recency for the
// resume shelf.
func (h *ProgressHandler) ListContinueWatching(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.Service.ContinueWatching())
}

// Record upserts a progress record. Older updates than the stored record are
// ignored and the stored record is returned instead.
func (h *ProgressHandler) Record(w http.ResponseWriter, r *http.Request) {
	var rec models.ProgressRecord
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&rec); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	stored, err := h.Service.RecordProgress(rec)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, library.ErrIDRequired),
			errors.Is(err, library.ErrMediaTypeRequired),
			errors.Is(err, library.ErrMediaTypeInvalid):
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stored)
}

func (h *ProgressHandler) Get(w http.ResponseWriter, r *http.Request) {
	key := progressKey(r)
	if key == "" {
		http.Error(w, "media type and id are required", http.StatusBadRequest)
		return
	}

	rec, ok := h.Service.Progress()[key]
	if !ok {
		http.Error(w, "progress not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rec)
}

func (h *ProgressHandler) Delete(w http.ResponseWriter, r *http.Request) {
	key := progressKey(r)
	if key == "" {
		http.Error(w, "media type and id are required", http.StatusBadRequest)
		return
	}

	removed, err := h.Service.DeleteProgress(key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !removed {
		http.Error(w, "progress not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ProgressHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func progressKey(r *http.Request) string {
	vars := mux.Vars(r)
	mediaType := strings.ToLower(strings.TrimSpace(vars["mediaType"]))
	id := strings.TrimSpace(vars["id"])
	if mediaType == "" || id == "" {
		return ""
	}
	return mediaType + ":" + id
}
