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

// Homepage module indexes inside the netshort payload.
const (
	netshortTrendingRow = 0
	netshortLatestRow   = 1
	netshortForYouRow   = 2
	netshortVIPRow      = 3
)

// Netshort adapts the netshort platform. Its homepage bundles curated
// modules in one payload, each carrying shortPlayInfos entries.
type Netshort struct {
	apiClient
	lang  string
	cache *upstream.PageCache
	now   func() time.Time
}

func NewNetshort(baseURL, lang string, httpc *http.Client, cache *upstream.PageCache) *Netshort {
	if cache == nil {
		cache = upstream.NewPageCache()
	}
	return &Netshort{
		apiClient: newAPIClient(baseURL, httpc),
		lang:      lang,
		cache:     cache,
		now:       time.Now,
	}
}

func (n *Netshort) Platform() models.Platform { return models.PlatformNetshort }

func (n *Netshort) endpoint(path string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	params.Set("lang", n.lang)
	return n.baseURL + path + "?" + params.Encode()
}

func (n *Netshort) home(ctx context.Context, page int) (upstream.Raw, error) {
	if page < 1 {
		page = 1
	}
	if cached, ok := n.cache.Get(n.Platform(), page); ok {
		return cached, nil
	}

	params := url.Values{}
	params.Set("page", fmt.Sprintf("%d", page))
	raw, err := n.getRaw(ctx, n.endpoint("/shortplay/home", params))
	if err != nil {
		return nil, err
	}
	n.cache.Put(n.Platform(), page, raw)
	return raw, nil
}

func (n *Netshort) sections(raw upstream.Raw) [][]upstream.Raw {
	modules := raw.Child("data").List("moduleList")
	out := make([][]upstream.Raw, 0, len(modules))
	for _, module := range modules {
		if infos := module.FirstList("shortPlayInfos", "contentInfos"); len(infos) > 0 {
			out = append(out, infos)
		}
	}
	return out
}

func (n *Netshort) homepageList(raw upstream.Raw) []models.Drama {
	var items []upstream.Raw
	for _, row := range n.sections(raw) {
		items = append(items, row...)
	}
	if len(items) == 0 {
		items = raw.Child("data").FirstList("contentInfos", "list")
	}
	return mapDramas(items, n.Platform(), n.now())
}

func (n *Netshort) row(ctx context.Context, index int) ([]models.Drama, error) {
	raw, err := n.home(ctx, 1)
	if err != nil {
		return nil, err
	}
	row := mapDramas(clampSection(n.sections(raw), index), n.Platform(), n.now())
	if len(row) > 0 {
		return row, nil
	}
	return n.homepageList(raw), nil
}

func (n *Netshort) FetchHomepage(ctx context.Context, page int) ([]models.Drama, error) {
	raw, err := n.home(ctx, page)
	if err != nil {
		return nil, err
	}
	return n.homepageList(raw), nil
}

func (n *Netshort) FetchTrending(ctx context.Context) ([]models.Drama, error) {
	return n.row(ctx, netshortTrendingRow)
}

func (n *Netshort) FetchLatest(ctx context.Context) ([]models.Drama, error) {
	return n.row(ctx, netshortLatestRow)
}

func (n *Netshort) FetchForYou(ctx context.Context) ([]models.Drama, error) {
	return n.row(ctx, netshortForYouRow)
}

func (n *Netshort) FetchVIP(ctx context.Context) ([]models.Drama, error) {
	return n.row(ctx, netshortVIPRow)
}

func (n *Netshort) FetchDubbed(ctx context.Context, page int, _ string) ([]models.Drama, error) {
	return n.FetchHomepage(ctx, page)
}

func (n *Netshort) FetchRandom(ctx context.Context) ([]models.Drama, error) {
	list, err := n.FetchHomepage(ctx, 1)
	if err != nil {
		return nil, err
	}
	return shuffled(list), nil
}

func (n *Netshort) Search(ctx context.Context, query string) ([]models.Drama, error) {
	params := url.Values{}
	params.Set("searchValue", query)
	raw, err := n.getRaw(ctx, n.endpoint("/shortplay/search", params))
	if err != nil {
		return nil, err
	}
	items := raw.Child("data").FirstList("contentInfos", "list")
	return mapDramas(items, n.Platform(), n.now()), nil
}

func (n *Netshort) FetchDetail(ctx context.Context, dramaID string) (*models.Drama, error) {
	raw, err := n.getRaw(ctx, n.endpoint("/shortplay/detail/"+url.PathEscape(dramaID), nil))
	if err != nil {
		return nil, err
	}
	detail := raw.Child("data")
	if detail == nil {
		detail = raw
	}
	drama := mapDrama(detail, n.Platform(), n.now())
	return &drama, nil
}

func (n *Netshort) FetchEpisodes(ctx context.Context, dramaID string) ([]models.Episode, error) {
	raw, err := n.getRaw(ctx, n.endpoint("/shortplay/episodes/"+url.PathEscape(dramaID), nil))
	if err != nil {
		return nil, err
	}

	list := raw.Child("data").FirstList("episodeInfos", "episodeList", "list")
	if len(list) == 0 {
		list = raw.FirstList("episodeInfos", "episodeList")
	}

	return mapEpisodes(list, func(ep upstream.Raw, _ int) string {
		return playbackurl.Normalize(ep.FirstString(videoURLKeys...))
	}), nil
}

func (n *Netshort) FetchVideoURL(ctx context.Context, episodeID, _ string) (string, error) {
	raw, err := n.getRaw(ctx, n.endpoint("/shortplay/video/"+url.PathEscape(episodeID), nil))
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
