package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"dramastream/models"
	"dramastream/services/providers"
)

// CatalogHandler serves normalized catalog rows, search, detail, episode
// lists, and playback URL resolution for every platform.
type CatalogHandler struct {
	Registry *providers.Registry
	Search   *providers.MultiSearch
}

func NewCatalogHandler(registry *providers.Registry, search *providers.MultiSearch) *CatalogHandler {
	return &CatalogHandler{Registry: registry, Search: search}
}

func (h *CatalogHandler) adapter(w http.ResponseWriter, r *http.Request) (providers.Adapter, bool) {
	raw := strings.TrimSpace(mux.Vars(r)["platform"])
	platform := models.Platform(strings.ToLower(raw))
	if !platform.Valid() {
		http.Error(w, "unknown platform", http.StatusBadRequest)
		return nil, false
	}
	adapter, err := h.Registry.Get(platform)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	return adapter, true
}

func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// writeJSON encodes the response unless the client has already gone
// away; a response for an abandoned request must not be written.
func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	if r.Context().Err() != nil {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// writeRow degrades an unavailable provider to an empty row: the caller
// renders nothing rather than an error page.
func writeRow(w http.ResponseWriter, r *http.Request, list []models.Drama, err error) {
	if err != nil {
		log.Printf("[catalog] %v", err)
		list = []models.Drama{}
	}
	if list == nil {
		list = []models.Drama{}
	}
	writeJSON(w, r, list)
}

func (h *CatalogHandler) Homepage(w http.ResponseWriter, r *http.Request) {
	adapter, ok := h.adapter(w, r)
	if !ok {
		return
	}
	list, err := adapter.FetchHomepage(r.Context(), pageParam(r))
	writeRow(w, r, list, err)
}

func (h *CatalogHandler) Trending(w http.ResponseWriter, r *http.Request) {
	adapter, ok := h.adapter(w, r)
	if !ok {
		return
	}
	list, err := adapter.FetchTrending(r.Context())
	writeRow(w, r, list, err)
}

func (h *CatalogHandler) Latest(w http.ResponseWriter, r *http.Request) {
	adapter, ok := h.adapter(w, r)
	if !ok {
		return
	}
	list, err := adapter.FetchLatest(r.Context())
	writeRow(w, r, list, err)
}

func (h *CatalogHandler) ForYou(w http.ResponseWriter, r *http.Request) {
	adapter, ok := h.adapter(w, r)
	if !ok {
		return
	}
	list, err := adapter.FetchForYou(r.Context())
	writeRow(w, r, list, err)
}

func (h *CatalogHandler) VIP(w http.ResponseWriter, r *http.Request) {
	adapter, ok := h.adapter(w, r)
	if !ok {
		return
	}
	list, err := adapter.FetchVIP(r.Context())
	writeRow(w, r, list, err)
}

func (h *CatalogHandler) Dubbed(w http.ResponseWriter, r *http.Request) {
	adapter, ok := h.adapter(w, r)
	if !ok {
		return
	}
	classifier := strings.TrimSpace(r.URL.Query().Get("classify"))
	list, err := adapter.FetchDubbed(r.Context(), pageParam(r), classifier)
	writeRow(w, r, list, err)
}

func (h *CatalogHandler) Random(w http.ResponseWriter, r *http.Request) {
	adapter, ok := h.adapter(w, r)
	if !ok {
		return
	}
	list, err := adapter.FetchRandom(r.Context())
	writeRow(w, r, list, err)
}

func (h *CatalogHandler) SearchPlatform(w http.ResponseWriter, r *http.Request) {
	adapter, ok := h.adapter(w, r)
	if !ok {
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}
	list, err := adapter.Search(r.Context(), query)
	writeRow(w, r, list, err)
}

// SearchAll queries every platform at once. Provider failures only thin
// the result; the merged list always comes back.
func (h *CatalogHandler) SearchAll(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}
	writeJSON(w, r, h.Search.Search(r.Context(), query))
}

func (h *CatalogHandler) Detail(w http.ResponseWriter, r *http.Request) {
	adapter, ok := h.adapter(w, r)
	if !ok {
		return
	}
	dramaID := strings.TrimSpace(mux.Vars(r)["dramaID"])
	if dramaID == "" {
		http.Error(w, "drama id is required", http.StatusBadRequest)
		return
	}

	drama, err := adapter.FetchDetail(r.Context(), dramaID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, providers.ErrUnavailable) {
			status = http.StatusBadGateway
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, r, drama)
}

func (h *CatalogHandler) Episodes(w http.ResponseWriter, r *http.Request) {
	adapter, ok := h.adapter(w, r)
	if !ok {
		return
	}
	dramaID := strings.TrimSpace(mux.Vars(r)["dramaID"])
	if dramaID == "" {
		http.Error(w, "drama id is required", http.StatusBadRequest)
		return
	}

	episodes, err := adapter.FetchEpisodes(r.Context(), dramaID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, providers.ErrUnavailable) {
			status = http.StatusBadGateway
		}
		http.Error(w, err.Error(), status)
		return
	}
	if episodes == nil {
		episodes = []models.Episode{}
	}
	writeJSON(w, r, episodes)
}

func (h *CatalogHandler) VideoURL(w http.ResponseWriter, r *http.Request) {
	adapter, ok := h.adapter(w, r)
	if !ok {
		return
	}
	episodeID := strings.TrimSpace(mux.Vars(r)["episodeID"])
	if episodeID == "" {
		http.Error(w, "episode id is required", http.StatusBadRequest)
		return
	}

	resolved, err := adapter.FetchVideoURL(r.Context(), episodeID, r.URL.Query().Get("dramaId"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, providers.ErrUnavailable) {
			status = http.StatusBadGateway
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, r, map[string]string{"url": resolved})
}
