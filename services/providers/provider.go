// Package providers adapts the four upstream catalog platforms onto the
// canonical Drama/Episode model. Adapters absorb upstream shape drift
// through the upstream field resolver; a network or decode failure
// surfaces as ErrUnavailable, never as a panic or partial write.
package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"dramastream/models"
	"dramastream/upstream"
)

// ErrUnavailable reports that an upstream provider could not be reached
// or returned an unusable payload.
var ErrUnavailable = errors.New("provider unavailable")

// ErrUnknownPlatform reports a platform with no registered adapter.
var ErrUnknownPlatform = errors.New("unknown platform")

// Adapter exposes one upstream platform through the canonical model.
type Adapter interface {
	Platform() models.Platform

	FetchHomepage(ctx context.Context, page int) ([]models.Drama, error)
	FetchTrending(ctx context.Context) ([]models.Drama, error)
	FetchLatest(ctx context.Context) ([]models.Drama, error)
	FetchForYou(ctx context.Context) ([]models.Drama, error)
	FetchVIP(ctx context.Context) ([]models.Drama, error)
	FetchDubbed(ctx context.Context, page int, classifier string) ([]models.Drama, error)
	FetchRandom(ctx context.Context) ([]models.Drama, error)
	Search(ctx context.Context, query string) ([]models.Drama, error)
	FetchDetail(ctx context.Context, dramaID string) (*models.Drama, error)
	FetchEpisodes(ctx context.Context, dramaID string) ([]models.Episode, error)
	FetchVideoURL(ctx context.Context, episodeID, dramaID string) (string, error)
}

// Registry resolves a platform to its adapter.
type Registry struct {
	adapters map[models.Platform]Adapter
}

// NewRegistry indexes the supplied adapters by platform.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[models.Platform]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Platform()] = a
	}
	return r
}

// Get returns the adapter for the platform.
func (r *Registry) Get(platform models.Platform) (Adapter, error) {
	a, ok := r.adapters[platform]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlatform, platform)
	}
	return a, nil
}

// All returns every registered adapter.
func (r *Registry) All() []Adapter {
	out := make([]Adapter, 0, len(r.adapters))
	for _, p := range models.Platforms() {
		if a, ok := r.adapters[p]; ok {
			out = append(out, a)
		}
	}
	return out
}

// apiClient carries the HTTP plumbing shared by all adapters.
type apiClient struct {
	baseURL string
	httpc   *http.Client
}

func newAPIClient(baseURL string, httpc *http.Client) apiClient {
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	return apiClient{baseURL: baseURL, httpc: httpc}
}

// getRaw fetches endpoint and decodes the body into an untyped payload.
// All failure modes collapse into ErrUnavailable.
func (c apiClient) getRaw(ctx context.Context, endpoint string) (upstream.Raw, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, resp.Status)
	}

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	return upstream.Raw(payload), nil
}

// Field name variants for catalog identity, shared by every adapter so
// resolution stays uniform rather than provider-specific.
var (
	dramaIDKeys = []string{
		"bookId", "book_id", "id", "shortPlayId", "short_play_id",
		"playletId", "playlet_id", "dramaId", "drama_id",
	}
	dramaTitleKeys = []string{
		"bookName", "book_name", "title", "name", "shortPlayName",
		"short_play_name", "playletName", "playlet_name",
	}
	dramaPosterKeys = []string{
		"cover", "coverWap", "cover_wap", "coverUrl", "cover_url",
		"poster", "pic", "imageUrl", "image_url", "thumb",
	}
	dramaDescKeys = []string{
		"introduction", "intro", "description", "desc", "brief", "abstract",
	}
	totalDurationKeys = []string{
		"totalDuration", "total_duration", "allTime", "total_time",
	}
	episodeIDKeys = []string{
		"vid", "id", "episode_id", "episodeId", "chapterId", "chapter_id",
	}
	episodeTitleKeys = []string{
		"title", "name", "episodeName", "episode_name", "chapterName", "chapter_name",
	}
	episodeNoKeys = []string{
		"episode", "episodeNo", "episode_no", "sort", "index", "chapterIndex",
	}
	videoURLKeys = []string{
		"url", "videoUrl", "video_url", "playUrl", "play_url", "mp4", "m3u8",
	}
)

// mapDrama converts one upstream catalog object into the canonical model.
// Total by construction: every field degrades to its documented sentinel.
func mapDrama(raw upstream.Raw, platform models.Platform, now time.Time) models.Drama {
	id := raw.FirstString(dramaIDKeys...)

	poster := raw.FirstString(dramaPosterKeys...)
	if poster == "" {
		poster = models.PlaceholderPoster
	}

	title := raw.FirstString(dramaTitleKeys...)
	if title == "" {
		title = models.FallbackTitle
	}

	var totalDuration string
	for _, key := range totalDurationKeys {
		if v, ok := raw[key]; ok {
			if s := upstream.FormatDuration(v); s != "" {
				totalDuration = s
				break
			}
		}
	}

	return models.Drama{
		ID:                id,
		Title:             title,
		Description:       raw.FirstString(dramaDescKeys...),
		Poster:            poster,
		ReleaseDate:       upstream.ResolveReleaseDate(raw),
		TotalEpisodeCount: upstream.ResolveEpisodeCount(raw),
		TotalDuration:     totalDuration,
		IsNew:             upstream.IsNew(raw, now),
		Platform:          platform,
	}
}

func mapDramas(items []upstream.Raw, platform models.Platform, now time.Time) []models.Drama {
	out := make([]models.Drama, 0, len(items))
	for _, item := range items {
		out = append(out, mapDrama(item, platform, now))
	}
	return out
}
