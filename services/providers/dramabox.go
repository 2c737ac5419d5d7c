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

// Dramabox adapts the dramabox platform. Unlike melolo, every curated
// row has its own endpoint; only the homepage browse list is paged.
type Dramabox struct {
	apiClient
	lang  string
	cache *upstream.PageCache
	now   func() time.Time
}

func NewDramabox(baseURL, lang string, httpc *http.Client, cache *upstream.PageCache) *Dramabox {
	if cache == nil {
		cache = upstream.NewPageCache()
	}
	return &Dramabox{
		apiClient: newAPIClient(baseURL, httpc),
		lang:      lang,
		cache:     cache,
		now:       time.Now,
	}
}

func (d *Dramabox) Platform() models.Platform { return models.PlatformDramabox }

func (d *Dramabox) endpoint(path string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	params.Set("lang", d.lang)
	return d.baseURL + path + "?" + params.Encode()
}

// list pulls the record array out of a dramabox envelope, which nests it
// under data.records, data.list, or records depending on the endpoint.
func (d *Dramabox) list(raw upstream.Raw) []upstream.Raw {
	if items := raw.Child("data").FirstList("records", "list", "bookList"); len(items) > 0 {
		return items
	}
	return raw.FirstList("records", "list")
}

func (d *Dramabox) fetchList(ctx context.Context, path string, params url.Values) ([]models.Drama, error) {
	raw, err := d.getRaw(ctx, d.endpoint(path, params))
	if err != nil {
		return nil, err
	}
	return mapDramas(d.list(raw), d.Platform(), d.now()), nil
}

func (d *Dramabox) FetchHomepage(ctx context.Context, page int) ([]models.Drama, error) {
	if page < 1 {
		page = 1
	}
	if cached, ok := d.cache.Get(d.Platform(), page); ok {
		return mapDramas(d.list(cached), d.Platform(), d.now()), nil
	}

	params := url.Values{}
	params.Set("pageNo", fmt.Sprintf("%d", page))
	raw, err := d.getRaw(ctx, d.endpoint("/theater/list", params))
	if err != nil {
		return nil, err
	}
	d.cache.Put(d.Platform(), page, raw)
	return mapDramas(d.list(raw), d.Platform(), d.now()), nil
}

func (d *Dramabox) FetchTrending(ctx context.Context) ([]models.Drama, error) {
	return d.fetchList(ctx, "/rank/hot", nil)
}

func (d *Dramabox) FetchLatest(ctx context.Context) ([]models.Drama, error) {
	return d.fetchList(ctx, "/rank/new", nil)
}

func (d *Dramabox) FetchForYou(ctx context.Context) ([]models.Drama, error) {
	return d.fetchList(ctx, "/recommend", nil)
}

func (d *Dramabox) FetchVIP(ctx context.Context) ([]models.Drama, error) {
	return d.fetchList(ctx, "/vip/list", nil)
}

// FetchDubbed lists the dubbed catalog; the optional classifier narrows
// the result to one dub language bucket.
func (d *Dramabox) FetchDubbed(ctx context.Context, page int, classifier string) ([]models.Drama, error) {
	if page < 1 {
		page = 1
	}
	params := url.Values{}
	params.Set("pageNo", fmt.Sprintf("%d", page))
	if classifier != "" {
		params.Set("classify", classifier)
	}
	return d.fetchList(ctx, "/dubbed/list", params)
}

func (d *Dramabox) FetchRandom(ctx context.Context) ([]models.Drama, error) {
	list, err := d.FetchHomepage(ctx, 1)
	if err != nil {
		return nil, err
	}
	return shuffled(list), nil
}

func (d *Dramabox) Search(ctx context.Context, query string) ([]models.Drama, error) {
	params := url.Values{}
	params.Set("keyword", query)
	return d.fetchList(ctx, "/search", params)
}

func (d *Dramabox) FetchDetail(ctx context.Context, dramaID string) (*models.Drama, error) {
	raw, err := d.getRaw(ctx, d.endpoint("/detail/"+url.PathEscape(dramaID), nil))
	if err != nil {
		return nil, err
	}
	detail := raw.Child("data").Child("book")
	if detail == nil {
		detail = raw.Child("data")
	}
	if detail == nil {
		detail = raw
	}
	drama := mapDrama(detail, d.Platform(), d.now())
	return &drama, nil
}

func (d *Dramabox) FetchEpisodes(ctx context.Context, dramaID string) ([]models.Episode, error) {
	raw, err := d.getRaw(ctx, d.endpoint("/chapters/"+url.PathEscape(dramaID), nil))
	if err != nil {
		return nil, err
	}

	list := raw.Child("data").FirstList("chapterList", "chapters", "list")
	if len(list) == 0 {
		list = raw.FirstList("chapterList", "chapters")
	}

	return mapEpisodes(list, func(ep upstream.Raw, _ int) string {
		// Chapter payloads sometimes carry a direct CDN URL; otherwise
		// the player resolves it through FetchVideoURL.
		return playbackurl.Normalize(ep.FirstString(videoURLKeys...))
	}), nil
}

func (d *Dramabox) FetchVideoURL(ctx context.Context, episodeID, dramaID string) (string, error) {
	params := url.Values{}
	if dramaID != "" {
		params.Set("bookId", dramaID)
	}
	raw, err := d.getRaw(ctx, d.endpoint("/video/"+url.PathEscape(episodeID), params))
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
