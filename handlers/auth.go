package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"watchsync/models"
	"watchsync/services/remote"
	"watchsync/services/syncer"
)

type authService interface {
	Login(ctx context.Context, email, password string) error
	Register(ctx context.Context, name, email, password string) error
	Logout(ctx context.Context) error
	Status() syncer.Status
}

var _ authService = (*syncer.Service)(nil)

type sessionReader interface {
	SessionMarkers() models.SessionMarkers
}

// AuthHandler fronts the login/register/logout transitions. The heavy
// lifting (pull, seed, snapshot) happens inside the sync service; these
// handlers only translate HTTP.
type AuthHandler struct {
	Sync    authService
	Library sessionReader
}

func NewAuthHandler(sync authService, lib sessionReader) *AuthHandler {
	return &AuthHandler{Sync: sync, Library: lib}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	body.Email = strings.TrimSpace(body.Email)
	if body.Email == "" || body.Password == "" {
		http.Error(w, "email and password are required", http.StatusBadRequest)
		return
	}

	if err := h.Sync.Login(r.Context(), body.Email, body.Password); err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, remote.ErrInvalidCredentials) {
			status = http.StatusUnauthorized
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	body.Name = strings.TrimSpace(body.Name)
	body.Email = strings.TrimSpace(body.Email)
	if body.Name == "" || body.Email == "" || body.Password == "" {
		http.Error(w, "name, email and password are required", http.StatusBadRequest)
		return
	}

	if err := h.Sync.Register(r.Context(), body.Name, body.Email, body.Password); err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, remote.ErrUserExists) {
			status = http.StatusConflict
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Sync.Logout(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

// Session reports the observed session plus the persisted local mirror, so
// clients can render account state even while the account service is down.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	status := h.Sync.Status()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"session": status.Session,
		"markers": h.Library.SessionMarkers(),
	})
}

func (h *AuthHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
