package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"dramastream/models"
	"dramastream/services/progress"
	syncsvc "dramastream/services/sync"
)

type progressService interface {
	UpdateProgress(drama models.Drama, episodeID string, progressSeconds int, platform models.Platform, episodeNo int)
	ContinueWatchingForCurrentUser() []models.ContinueWatchingEntry
	ClearContinueWatchingForCurrentUser()
	ReplaceContinueWatchingForCurrentUser(entries []models.ContinueWatchingEntry)
	CurrentUserKey() string
}

var _ progressService = (*progress.Service)(nil)

// ProgressHandler serves the continue-watching ledger.
type ProgressHandler struct {
	Service progressService
	Bridge  syncsvc.Bridge
	Outbox  *syncsvc.Outbox
}

func NewProgressHandler(service progressService, bridge syncsvc.Bridge, outbox *syncsvc.Outbox) *ProgressHandler {
	return &ProgressHandler{Service: service, Bridge: bridge, Outbox: outbox}
}

type progressUpdateRequest struct {
	Drama     models.Drama `json:"drama"`
	EpisodeID string       `json:"episodeId"`
	EpisodeNo int          `json:"episodeNo,omitempty"`
	Progress  int          `json:"progress"`
	Platform  string       `json:"platform,omitempty"`
}

// Update records a progress tick. Invalid updates (below threshold,
// missing drama id) are dropped by the service, not rejected here, so
// the player never sees an error for a tick.
func (h *ProgressHandler) Update(w http.ResponseWriter, r *http.Request) {
	var payload progressUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var platform models.Platform
	if payload.Platform != "" {
		platform = models.ParsePlatform(payload.Platform)
	}

	h.Service.UpdateProgress(payload.Drama, payload.EpisodeID, payload.Progress, platform, payload.EpisodeNo)
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProgressHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, h.Service.ContinueWatchingForCurrentUser())
}

func (h *ProgressHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.Service.ClearContinueWatchingForCurrentUser()
	w.WriteHeader(http.StatusNoContent)
}

// SyncPull fetches the remote ledger for the active user and installs it
// locally, pull-wins. A failing remote degrades to the local ledger.
func (h *ProgressHandler) SyncPull(w http.ResponseWriter, r *http.Request) {
	userKey := h.Service.CurrentUserKey()

	entries, err := h.Bridge.Pull(r.Context(), userKey)
	if err != nil {
		log.Printf("[sync] pull for %s failed: %v", userKey, err)
		writeJSON(w, r, h.Service.ContinueWatchingForCurrentUser())
		return
	}

	h.Service.ReplaceContinueWatchingForCurrentUser(entries)
	writeJSON(w, r, h.Service.ContinueWatchingForCurrentUser())
}

// SyncStats exposes the outbox delivery counters.
func (h *ProgressHandler) SyncStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, h.Outbox.Stats())
}
