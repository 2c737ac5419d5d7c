package providers

import (
	"fmt"
	"math/rand/v2"

	"dramastream/models"
	"dramastream/upstream"
)

// clampSection selects a curated row by fixed index, clamped into the
// available range. Returns nil only when no section holds any data;
// callers then fall back to the full homepage list so a populated
// catalog never renders an empty row.
func clampSection(sections [][]upstream.Raw, index int) []upstream.Raw {
	if len(sections) == 0 {
		return nil
	}
	if index < 0 {
		index = 0
	}
	if index > len(sections)-1 {
		index = len(sections) - 1
	}
	return sections[index]
}

// mapEpisodes converts an upstream episode list, building the playback
// URL through the adapter-supplied resolver.
func mapEpisodes(items []upstream.Raw, buildURL func(raw upstream.Raw, index int) string) []models.Episode {
	out := make([]models.Episode, 0, len(items))
	for i, item := range items {
		id := item.FirstString(episodeIDKeys...)
		if id == "" {
			id = fmt.Sprintf("%d", i+1)
		}

		no, _ := item.FirstInt(episodeNoKeys...)
		if no <= 0 {
			no = i + 1
		}

		title := item.FirstString(episodeTitleKeys...)
		if title == "" {
			title = fmt.Sprintf("Episode %d", no)
		}

		out = append(out, models.Episode{
			ID:        id,
			Title:     title,
			EpisodeNo: no,
			Duration:  upstream.ResolveDuration(item),
			URL:       buildURL(item, i),
		})
	}
	return out
}

// shuffled returns a copy of the list in random order.
func shuffled(list []models.Drama) []models.Drama {
	out := make([]models.Drama, len(list))
	copy(out, list)
	rand.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
