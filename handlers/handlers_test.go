package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"dramastream/api"
	"dramastream/handlers"
	"dramastream/models"
	"dramastream/services/progress"
	"dramastream/services/providers"
	syncsvc "dramastream/services/sync"
)

type fakeAdapter struct {
	platform models.Platform
	dramas   []models.Drama
	episodes []models.Episode
	videoURL string
	err      error
}

func (f *fakeAdapter) Platform() models.Platform { return f.platform }

func (f *fakeAdapter) FetchHomepage(context.Context, int) ([]models.Drama, error) {
	return f.dramas, f.err
}
func (f *fakeAdapter) FetchTrending(context.Context) ([]models.Drama, error) {
	return f.dramas, f.err
}
func (f *fakeAdapter) FetchLatest(context.Context) ([]models.Drama, error) { return f.dramas, f.err }
func (f *fakeAdapter) FetchForYou(context.Context) ([]models.Drama, error) { return f.dramas, f.err }
func (f *fakeAdapter) FetchVIP(context.Context) ([]models.Drama, error)    { return f.dramas, f.err }
func (f *fakeAdapter) FetchDubbed(context.Context, int, string) ([]models.Drama, error) {
	return f.dramas, f.err
}
func (f *fakeAdapter) FetchRandom(context.Context) ([]models.Drama, error) { return f.dramas, f.err }
func (f *fakeAdapter) Search(context.Context, string) ([]models.Drama, error) {
	return f.dramas, f.err
}
func (f *fakeAdapter) FetchDetail(context.Context, string) (*models.Drama, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.dramas) == 0 {
		return &models.Drama{}, nil
	}
	return &f.dramas[0], nil
}
func (f *fakeAdapter) FetchEpisodes(context.Context, string) ([]models.Episode, error) {
	return f.episodes, f.err
}
func (f *fakeAdapter) FetchVideoURL(context.Context, string, string) (string, error) {
	return f.videoURL, f.err
}

type fakeBridge struct {
	entries []models.ContinueWatchingEntry
	err     error
}

func (f *fakeBridge) Push(context.Context, string, models.ContinueWatchingEntry) error { return f.err }
func (f *fakeBridge) Pull(context.Context, string) ([]models.ContinueWatchingEntry, error) {
	return f.entries, f.err
}
func (f *fakeBridge) Clear(context.Context, string) error                       { return f.err }
func (f *fakeBridge) SaveProfile(context.Context, string, models.UserProfile) error { return f.err }

func newTestRouter(t *testing.T, adapter providers.Adapter, bridge syncsvc.Bridge) (*mux.Router, *progress.Service) {
	t.Helper()

	svc, err := progress.NewService(t.TempDir())
	if err != nil {
		t.Fatalf("progress service: %v", err)
	}

	registry := providers.NewRegistry(adapter)
	outbox := syncsvc.NewOutbox(bridge)
	t.Cleanup(outbox.Close)

	r := mux.NewRouter()
	api.Register(r,
		handlers.NewCatalogHandler(registry, providers.NewMultiSearch(registry)),
		handlers.NewProgressHandler(svc, bridge, outbox),
		handlers.NewMyListHandler(svc),
		handlers.NewSessionHandler(svc),
	)
	return r, svc
}

func doJSON(t *testing.T, router *mux.Router, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode request: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCatalogRowDegradesToEmptyList(t *testing.T) {
	adapter := &fakeAdapter{platform: models.PlatformDramabox, err: providers.ErrUnavailable}
	router, _ := newTestRouter(t, adapter, &fakeBridge{})

	rec := doJSON(t, router, http.MethodGet, "/api/catalog/dramabox/trending", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for degraded row, got %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Fatalf("expected empty list, got %q", got)
	}
}

func TestCatalogRowServesDramas(t *testing.T) {
	adapter := &fakeAdapter{
		platform: models.PlatformDramabox,
		dramas:   []models.Drama{{ID: "d1", Title: "Jodoh", Platform: models.PlatformDramabox}},
	}
	router, _ := newTestRouter(t, adapter, &fakeBridge{})

	rec := doJSON(t, router, http.MethodGet, "/api/catalog/dramabox/home", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}

	var got []models.Drama
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got) != 1 || got[0].ID != "d1" {
		t.Fatalf("unexpected body: %+v", got)
	}
}

func TestCatalogUnknownPlatformRejected(t *testing.T) {
	router, _ := newTestRouter(t, &fakeAdapter{platform: models.PlatformDramabox}, &fakeBridge{})

	rec := doJSON(t, router, http.MethodGet, "/api/catalog/vhs/home", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown platform, got %d", rec.Code)
	}
}

func TestDetailUnavailableMapsToBadGateway(t *testing.T) {
	adapter := &fakeAdapter{platform: models.PlatformDramabox, err: providers.ErrUnavailable}
	router, _ := newTestRouter(t, adapter, &fakeBridge{})

	rec := doJSON(t, router, http.MethodGet, "/api/catalog/dramabox/drama/d1", nil)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestVideoURLResponse(t *testing.T) {
	adapter := &fakeAdapter{platform: models.PlatformDramabox, videoURL: "https://cdn/ep1.m3u8"}
	router, _ := newTestRouter(t, adapter, &fakeBridge{})

	rec := doJSON(t, router, http.MethodGet, "/api/catalog/dramabox/video/ep1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}

	var got map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got["url"] != "https://cdn/ep1.m3u8" {
		t.Fatalf("unexpected url: %q", got["url"])
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	router, _ := newTestRouter(t, &fakeAdapter{platform: models.PlatformDramabox}, &fakeBridge{})

	if rec := doJSON(t, router, http.MethodGet, "/api/search", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without query, got %d", rec.Code)
	}
	if rec := doJSON(t, router, http.MethodGet, "/api/search?q=jodoh", nil); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with query, got %d", rec.Code)
	}
}

func TestProgressUpdateAndList(t *testing.T) {
	router, _ := newTestRouter(t, &fakeAdapter{platform: models.PlatformDramabox}, &fakeBridge{})

	rec := doJSON(t, router, http.MethodPost, "/api/progress", map[string]any{
		"drama":     map[string]any{"id": "d1", "title": "Jodoh"},
		"episodeId": "ep1",
		"episodeNo": 1,
		"progress":  30,
		"platform":  "dramabox",
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/progress", nil)
	var entries []models.ContinueWatchingEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode entries: %v", err)
	}
	if len(entries) != 1 || entries[0].DramaID != "d1" || entries[0].Progress != 30 {
		t.Fatalf("unexpected entries: %+v", entries)
	}

	// Sub-threshold ticks are absorbed, not rejected.
	rec = doJSON(t, router, http.MethodPost, "/api/progress", map[string]any{
		"drama":    map[string]any{"id": "d2", "title": "Other"},
		"progress": 0,
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for dropped tick, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/progress", nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("dropped tick must not create an entry: %+v", entries)
	}
}

func TestProgressSyncPullWins(t *testing.T) {
	bridge := &fakeBridge{
		entries: []models.ContinueWatchingEntry{
			{Platform: models.PlatformDramabox, DramaID: "cloud", DramaTitle: "Cloud Drama", DramaPoster: "https://cdn/c.jpg", EpisodeID: "ep7", Progress: 70, Timestamp: 7},
		},
	}
	router, svc := newTestRouter(t, &fakeAdapter{platform: models.PlatformDramabox}, bridge)

	svc.UpdateProgress(models.Drama{ID: "local", Title: "Local"}, "ep1", 30, models.PlatformDramabox, 1)

	rec := doJSON(t, router, http.MethodPost, "/api/progress/sync", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}

	var entries []models.ContinueWatchingEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode entries: %v", err)
	}
	if len(entries) != 1 || entries[0].DramaID != "cloud" {
		t.Fatalf("pull must replace the local ledger: %+v", entries)
	}
}

func TestProgressSyncPullFailureKeepsLocal(t *testing.T) {
	bridge := &fakeBridge{err: errors.New("remote down")}
	router, svc := newTestRouter(t, &fakeAdapter{platform: models.PlatformDramabox}, bridge)

	svc.UpdateProgress(models.Drama{ID: "local", Title: "Local"}, "ep1", 30, models.PlatformDramabox, 1)

	rec := doJSON(t, router, http.MethodPost, "/api/progress/sync", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}

	var entries []models.ContinueWatchingEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode entries: %v", err)
	}
	if len(entries) != 1 || entries[0].DramaID != "local" {
		t.Fatalf("failed pull must keep the local ledger: %+v", entries)
	}
}

func TestMyListEndpoints(t *testing.T) {
	router, _ := newTestRouter(t, &fakeAdapter{platform: models.PlatformDramabox}, &fakeBridge{})

	rec := doJSON(t, router, http.MethodPost, "/api/mylist", models.Drama{ID: "d1", Title: "Jodoh", Platform: models.PlatformDramabox})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/mylist/d1", nil)
	var contains map[string]bool
	if err := json.Unmarshal(rec.Body.Bytes(), &contains); err != nil {
		t.Fatalf("decode contains: %v", err)
	}
	if !contains["inList"] {
		t.Fatalf("expected d1 in list")
	}

	if rec := doJSON(t, router, http.MethodDelete, "/api/mylist/d1", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 on remove, got %d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodGet, "/api/mylist", nil)
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Fatalf("expected empty list after remove, got %q", got)
	}

	if rec := doJSON(t, router, http.MethodPost, "/api/mylist", models.Drama{ID: "  "}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank id, got %d", rec.Code)
	}
}

func TestSessionLifecycle(t *testing.T) {
	router, _ := newTestRouter(t, &fakeAdapter{platform: models.PlatformDramabox}, &fakeBridge{})

	if rec := doJSON(t, router, http.MethodPost, "/api/session/login", models.UserProfile{Name: "Reader"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without email, got %d", rec.Code)
	}

	rec := doJSON(t, router, http.MethodPost, "/api/session/login", models.UserProfile{Name: "Reader", Email: "reader@example.com"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on login, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/session", nil)
	var session struct {
		User     *models.UserProfile `json:"user"`
		Platform models.Platform     `json:"platform"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if session.User == nil || session.User.Email != "reader@example.com" {
		t.Fatalf("unexpected session user: %+v", session.User)
	}
	if session.Platform != models.DefaultPlatform {
		t.Fatalf("unexpected platform: %s", session.Platform)
	}

	if rec := doJSON(t, router, http.MethodPut, "/api/platform", map[string]string{"platform": "melolo"}); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on platform switch, got %d", rec.Code)
	}
	if rec := doJSON(t, router, http.MethodPut, "/api/platform", map[string]string{"platform": "vhs"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown platform, got %d", rec.Code)
	}

	if rec := doJSON(t, router, http.MethodPost, "/api/session/logout", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 on logout, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/session", nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if session.User != nil {
		t.Fatalf("expected guest session after logout, got %+v", session.User)
	}
	if session.Platform != models.PlatformMelolo {
		t.Fatalf("platform choice must survive logout, got %s", session.Platform)
	}
}
