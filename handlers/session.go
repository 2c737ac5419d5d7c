package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"dramastream/models"
	"dramastream/services/progress"
)

type sessionService interface {
	Login(profile models.UserProfile)
	Logout()
	CurrentUser() *models.UserProfile
	Platform() models.Platform
	SetPlatform(platform models.Platform)
}

var _ sessionService = (*progress.Service)(nil)

// SessionHandler manages the active profile and platform selection.
// Identity itself is provisioned elsewhere; profiles arrive here
// already authenticated.
type SessionHandler struct {
	Service sessionService
}

func NewSessionHandler(service sessionService) *SessionHandler {
	return &SessionHandler{Service: service}
}

func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var profile models.UserProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(profile.Email) == "" {
		http.Error(w, "email is required", http.StatusBadRequest)
		return
	}

	h.Service.Login(profile)
	writeJSON(w, r, profile)
}

func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.Service.Logout()
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) Current(w http.ResponseWriter, r *http.Request) {
	user := h.Service.CurrentUser()
	writeJSON(w, r, map[string]any{
		"user":     user,
		"platform": h.Service.Platform(),
	})
}

type platformRequest struct {
	Platform string `json:"platform"`
}

func (h *SessionHandler) SetPlatform(w http.ResponseWriter, r *http.Request) {
	var payload platformRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	platform := models.Platform(strings.ToLower(strings.TrimSpace(payload.Platform)))
	if !platform.Valid() {
		http.Error(w, "unknown platform", http.StatusBadRequest)
		return
	}

	h.Service.SetPlatform(platform)
	writeJSON(w, r, map[string]models.Platform{"platform": platform})
}
