package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"watchsync/models"
	"watchsync/services/library"
)

type favoritesService interface {
	Favorites() []models.FavoriteItem
	ToggleFavorite(models.FavoriteItem) (bool, error)
	RemoveFavorite(mediaType string, id int64) (bool, error)
}

var _ favoritesService = (*library.Service)(nil)

type FavoritesHandler struct {
	Service favoritesService
}

func NewFavoritesHandler(service favoritesService) *FavoritesHandler {
	return &FavoritesHandler{Service: service}
}

func (h *FavoritesHandler) List(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.Service.Favorites())
}

// Toggle adds the posted item when absent and removes it when present.
func (h *FavoritesHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	var item models.FavoriteItem
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&item); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	favorite, err := h.Service.ToggleFavorite(item)
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
	json.NewEncoder(w).Encode(map[string]any{
		"favorite": favorite,
		"item":     item,
	})
}

// Remove deletes the favorite addressed by media type and id. Removing an
// absent item is a 404.
func (h *FavoritesHandler) Remove(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	mediaType := strings.ToLower(strings.TrimSpace(vars["mediaType"]))
	id, err := strconv.ParseInt(strings.TrimSpace(vars["id"]), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "id must be a positive integer", http.StatusBadRequest)
		return
	}

	removed, err := h.Service.RemoveFavorite(mediaType, id)
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
	if !removed {
		http.Error(w, "favorite not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *FavoritesHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
