package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"dramastream/models"
	"dramastream/playbackurl"
	"dramastream/upstream"
)

// Homepage row indexes inside the melolo cell payload.
const (
	meloloTrendingRow = 1
	meloloLatestRow   = 2
	meloloForYouRow   = 3
	meloloVIPRow      = 4
)

const meloloPageSize = 20

// Melolo adapts the melolo platform, whose homepage bundles every
// curated row inside one cell payload.
type Melolo struct {
	apiClient
	code  string
	lang  string
	cache *upstream.PageCache
	now   func() time.Time
}

// NewMelolo builds the melolo adapter. A nil client gets a default with
// timeouts; the cache is shared process-wide.
func NewMelolo(baseURL, code, lang string, httpc *http.Client, cache *upstream.PageCache) *Melolo {
	if cache == nil {
		cache = upstream.NewPageCache()
	}
	return &Melolo{
		apiClient: newAPIClient(baseURL, httpc),
		code:      code,
		lang:      lang,
		cache:     cache,
		now:       time.Now,
	}
}

func (m *Melolo) Platform() models.Platform { return models.PlatformMelolo }

func (m *Melolo) endpoint(path string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	params.Set("lang", m.lang)
	params.Set("code", m.code)
	return m.baseURL + path + "?" + params.Encode()
}

// home returns the raw homepage payload, short-circuiting the network
// call on a fresh cache hit.
func (m *Melolo) home(ctx context.Context, page int) (upstream.Raw, error) {
	if page < 1 {
		page = 1
	}
	if cached, ok := m.cache.Get(m.Platform(), page); ok {
		return cached, nil
	}

	params := url.Values{}
	params.Set("offset", fmt.Sprintf("%d", (page-1)*meloloPageSize))
	raw, err := m.getRaw(ctx, m.endpoint("/home", params))
	if err != nil {
		return nil, err
	}
	m.cache.Put(m.Platform(), page, raw)
	return raw, nil
}

// sections extracts the curated rows: data.cell.cell_data[].books,
// keeping only rows that actually contain entries.
func (m *Melolo) sections(raw upstream.Raw) [][]upstream.Raw {
	cells := raw.Child("data").Child("cell").List("cell_data")
	out := make([][]upstream.Raw, 0, len(cells))
	for _, cell := range cells {
		if books := cell.List("books"); len(books) > 0 {
			out = append(out, books)
		}
	}
	return out
}

// homepageList flattens every curated row into one list.
func (m *Melolo) homepageList(raw upstream.Raw) []models.Drama {
	var items []upstream.Raw
	for _, row := range m.sections(raw) {
		items = append(items, row...)
	}
	if len(items) == 0 {
		items = raw.Child("data").FirstList("books", "list")
	}
	return mapDramas(items, m.Platform(), m.now())
}

func (m *Melolo) row(ctx context.Context, index int) ([]models.Drama, error) {
	raw, err := m.home(ctx, 1)
	if err != nil {
		return nil, err
	}
	row := mapDramas(clampSection(m.sections(raw), index), m.Platform(), m.now())
	if len(row) > 0 {
		return row, nil
	}
	return m.homepageList(raw), nil
}

func (m *Melolo) FetchHomepage(ctx context.Context, page int) ([]models.Drama, error) {
	raw, err := m.home(ctx, page)
	if err != nil {
		return nil, err
	}
	return m.homepageList(raw), nil
}

func (m *Melolo) FetchTrending(ctx context.Context) ([]models.Drama, error) {
	return m.row(ctx, meloloTrendingRow)
}

func (m *Melolo) FetchLatest(ctx context.Context) ([]models.Drama, error) {
	return m.row(ctx, meloloLatestRow)
}

func (m *Melolo) FetchForYou(ctx context.Context) ([]models.Drama, error) {
	return m.row(ctx, meloloForYouRow)
}

func (m *Melolo) FetchVIP(ctx context.Context) ([]models.Drama, error) {
	return m.row(ctx, meloloVIPRow)
}

// FetchDubbed returns the paged homepage list; melolo has no dedicated
// dubbed catalog, so the classifier is ignored.
func (m *Melolo) FetchDubbed(ctx context.Context, page int, _ string) ([]models.Drama, error) {
	return m.FetchHomepage(ctx, page)
}

func (m *Melolo) FetchRandom(ctx context.Context) ([]models.Drama, error) {
	list, err := m.FetchHomepage(ctx, 1)
	if err != nil {
		return nil, err
	}
	return shuffled(list), nil
}

func (m *Melolo) Search(ctx context.Context, query string) ([]models.Drama, error) {
	params := url.Values{}
	params.Set("q", query)
	raw, err := m.getRaw(ctx, m.endpoint("/search", params))
	if err != nil {
		return nil, err
	}
	return m.homepageList(raw), nil
}

func (m *Melolo) FetchDetail(ctx context.Context, dramaID string) (*models.Drama, error) {
	raw, err := m.getRaw(ctx, m.endpoint("/detail/"+url.PathEscape(dramaID), nil))
	if err != nil {
		return nil, err
	}
	detail := raw.Child("data")
	if detail == nil {
		detail = raw
	}
	drama := mapDrama(detail, m.Platform(), m.now())
	return &drama, nil
}

func (m *Melolo) FetchEpisodes(ctx context.Context, dramaID string) ([]models.Episode, error) {
	raw, err := m.getRaw(ctx, m.endpoint("/detail/"+url.PathEscape(dramaID), nil))
	if err != nil {
		return nil, err
	}

	list := raw.List("videos")
	if len(list) == 0 {
		list = raw.Child("data").List("episode_list")
	}
	if len(list) == 0 {
		list = raw.List("episode_list")
	}

	return mapEpisodes(list, func(ep upstream.Raw, _ int) string {
		vid := ep.FirstString(episodeIDKeys...)
		return playbackurl.Normalize(m.endpoint("/video/"+url.PathEscape(vid), nil))
	}), nil
}

func (m *Melolo) FetchVideoURL(ctx context.Context, episodeID, _ string) (string, error) {
	raw, err := m.getRaw(ctx, m.endpoint("/video/"+url.PathEscape(episodeID), nil))
	if err != nil {
		return "", err
	}
	payload := raw.Child("data")
	if payload == nil {
		payload = raw
	}
	if results := payload.Child("results"); results != nil {
		payload = results
	}
	return playbackurl.Normalize(payload.FirstString(videoURLKeys...)), nil
}
