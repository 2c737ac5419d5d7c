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

// Reelife adapts the reelife platform. Curated rows are selected with a
// tab parameter against one list endpoint.
type Reelife struct {
	apiClient
	lang  string
	cache *upstream.PageCache
	now   func() time.Time
}

func NewReelife(baseURL, lang string, httpc *http.Client, cache *upstream.PageCache) *Reelife {
	if cache == nil {
		cache = upstream.NewPageCache()
	}
	return &Reelife{
		apiClient: newAPIClient(baseURL, httpc),
		lang:      lang,
		cache:     cache,
		now:       time.Now,
	}
}

func (r *Reelife) Platform() models.Platform { return models.PlatformReelife }

func (r *Reelife) endpoint(path string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	params.Set("lang", r.lang)
	return r.baseURL + path + "?" + params.Encode()
}

func (r *Reelife) list(raw upstream.Raw) []upstream.Raw {
	if items := raw.Child("data").FirstList("list", "playletList", "records"); len(items) > 0 {
		return items
	}
	return raw.FirstList("list", "records")
}

func (r *Reelife) fetchTab(ctx context.Context, tab string) ([]models.Drama, error) {
	params := url.Values{}
	params.Set("tab", tab)
	raw, err := r.getRaw(ctx, r.endpoint("/playlet/list", params))
	if err != nil {
		return nil, err
	}
	return mapDramas(r.list(raw), r.Platform(), r.now()), nil
}

func (r *Reelife) FetchHomepage(ctx context.Context, page int) ([]models.Drama, error) {
	if page < 1 {
		page = 1
	}
	if cached, ok := r.cache.Get(r.Platform(), page); ok {
		return mapDramas(r.list(cached), r.Platform(), r.now()), nil
	}

	params := url.Values{}
	params.Set("page", fmt.Sprintf("%d", page))
	raw, err := r.getRaw(ctx, r.endpoint("/playlet/home", params))
	if err != nil {
		return nil, err
	}
	r.cache.Put(r.Platform(), page, raw)
	return mapDramas(r.list(raw), r.Platform(), r.now()), nil
}

func (r *Reelife) FetchTrending(ctx context.Context) ([]models.Drama, error) {
	return r.fetchTab(ctx, "hot")
}

func (r *Reelife) FetchLatest(ctx context.Context) ([]models.Drama, error) {
	return r.fetchTab(ctx, "new")
}

func (r *Reelife) FetchForYou(ctx context.Context) ([]models.Drama, error) {
	return r.fetchTab(ctx, "foryou")
}

func (r *Reelife) FetchVIP(ctx context.Context) ([]models.Drama, error) {
	return r.fetchTab(ctx, "vip")
}

func (r *Reelife) FetchDubbed(ctx context.Context, page int, classifier string) ([]models.Drama, error) {
	if page < 1 {
		page = 1
	}
	params := url.Values{}
	params.Set("page", fmt.Sprintf("%d", page))
	params.Set("tab", "dubbed")
	if classifier != "" {
		params.Set("classify", classifier)
	}
	raw, err := r.getRaw(ctx, r.endpoint("/playlet/list", params))
	if err != nil {
		return nil, err
	}
	return mapDramas(r.list(raw), r.Platform(), r.now()), nil
}

func (r *Reelife) FetchRandom(ctx context.Context) ([]models.Drama, error) {
	list, err := r.FetchHomepage(ctx, 1)
	if err != nil {
		return nil, err
	}
	return shuffled(list), nil
}

func (r *Reelife) Search(ctx context.Context, query string) ([]models.Drama, error) {
	params := url.Values{}
	params.Set("kw", query)
	raw, err := r.getRaw(ctx, r.endpoint("/playlet/search", params))
	if err != nil {
		return nil, err
	}
	return mapDramas(r.list(raw), r.Platform(), r.now()), nil
}

func (r *Reelife) FetchDetail(ctx context.Context, dramaID string) (*models.Drama, error) {
	raw, err := r.getRaw(ctx, r.endpoint("/playlet/detail/"+url.PathEscape(dramaID), nil))
	if err != nil {
		return nil, err
	}
	detail := raw.Child("data").Child("playlet")
	if detail == nil {
		detail = raw.Child("data")
	}
	if detail == nil {
		detail = raw
	}
	drama := mapDrama(detail, r.Platform(), r.now())
	return &drama, nil
}

func (r *Reelife) FetchEpisodes(ctx context.Context, dramaID string) ([]models.Episode, error) {
	raw, err := r.getRaw(ctx, r.endpoint("/playlet/detail/"+url.PathEscape(dramaID), nil))
	if err != nil {
		return nil, err
	}

	list := raw.Child("data").FirstList("episodeList", "videoList", "list")
	if len(list) == 0 {
		list = raw.FirstList("episodeList", "videoList")
	}

	return mapEpisodes(list, func(ep upstream.Raw, _ int) string {
		return playbackurl.Normalize(ep.FirstString(videoURLKeys...))
	}), nil
}

func (r *Reelife) FetchVideoURL(ctx context.Context, episodeID, dramaID string) (string, error) {
	params := url.Values{}
	if dramaID != "" {
		params.Set("playletId", dramaID)
	}
	raw, err := r.getRaw(ctx, r.endpoint("/playlet/video/"+url.PathEscape(episodeID), params))
	if err != nil {
		return "", err
	}
	if data := raw.Child("data"); data != nil {
		if u := data.FirstString(videoURLKeys...); u != "" {
			return playbackurl.Normalize(u), nil
		}
	}
	return playbackurl.Normalize(raw.FirstString(videoURLKeys...)), nil
}
