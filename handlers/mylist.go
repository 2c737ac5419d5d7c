package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"dramastream/models"
	"dramastream/services/progress"
)

type myListService interface {
	AddToList(drama models.Drama)
	RemoveFromList(dramaID string)
	IsInList(dramaID string) bool
	MyListForCurrentPlatform() []models.Drama
	ClearMyListForCurrentPlatform()
	ClearAllMyList()
}

var _ myListService = (*progress.Service)(nil)

// MyListHandler serves the per-platform favorites list.
type MyListHandler struct {
	Service myListService
}

func NewMyListHandler(service myListService) *MyListHandler {
	return &MyListHandler{Service: service}
}

func (h *MyListHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, h.Service.MyListForCurrentPlatform())
}

func (h *MyListHandler) Add(w http.ResponseWriter, r *http.Request) {
	var drama models.Drama
	if err := json.NewDecoder(r.Body).Decode(&drama); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(drama.ID) == "" {
		http.Error(w, "drama id is required", http.StatusBadRequest)
		return
	}

	h.Service.AddToList(drama)
	w.WriteHeader(http.StatusNoContent)
}

func (h *MyListHandler) Remove(w http.ResponseWriter, r *http.Request) {
	dramaID := strings.TrimSpace(mux.Vars(r)["dramaID"])
	if dramaID == "" {
		http.Error(w, "drama id is required", http.StatusBadRequest)
		return
	}

	h.Service.RemoveFromList(dramaID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *MyListHandler) Contains(w http.ResponseWriter, r *http.Request) {
	dramaID := strings.TrimSpace(mux.Vars(r)["dramaID"])
	if dramaID == "" {
		http.Error(w, "drama id is required", http.StatusBadRequest)
		return
	}
	writeJSON(w, r, map[string]bool{"inList": h.Service.IsInList(dramaID)})
}

// Clear removes the active platform's list; with ?all=1 it removes the
// list for every platform.
func (h *MyListHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("all") == "1" {
		h.Service.ClearAllMyList()
	} else {
		h.Service.ClearMyListForCurrentPlatform()
	}
	w.WriteHeader(http.StatusNoContent)
}
