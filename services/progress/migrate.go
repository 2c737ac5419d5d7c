package progress

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"dramastream/models"
)

// Migrate upgrades a persisted state document to the current schema
// version. Current-version documents decode straight through, so running
// the migration twice is a no-op. The second return value reports
// whether a rewrite happened.
//
// Legacy ledgers come in two shapes: a flat map (dramaId -> entry, no
// platform scoping, single implicit user) and a nested map (userKey ->
// scopedKey -> entry). The shape is detected heuristically: flat if and
// only if every top-level value itself looks like an entry object.
func Migrate(raw models.RawPersistedState) (models.PersistedState, bool, error) {
	platform := models.ParsePlatform(raw.Platform)

	if raw.Version >= models.StateVersion {
		state := models.PersistedState{
			Version:          models.StateVersion,
			MyList:           []models.Drama{},
			ContinueWatching: models.Ledger{},
			User:             raw.User,
			Platform:         platform,
		}
		if len(raw.MyList) > 0 {
			if err := json.Unmarshal(raw.MyList, &state.MyList); err != nil {
				return models.PersistedState{}, false, fmt.Errorf("decode my-list: %w", err)
			}
		}
		if len(raw.ContinueWatching) > 0 {
			if err := json.Unmarshal(raw.ContinueWatching, &state.ContinueWatching); err != nil {
				return models.PersistedState{}, false, fmt.Errorf("decode ledger: %w", err)
			}
		}
		return state, false, nil
	}

	state := models.PersistedState{
		Version:          models.StateVersion,
		MyList:           migrateMyList(raw.MyList, platform),
		ContinueWatching: migrateLedger(raw.ContinueWatching, platform),
		User:             raw.User,
		Platform:         platform,
	}
	return state, true, nil
}

type legacyListItem struct {
	ID          string `json:"id"`
	BookID      string `json:"bookId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Poster      string `json:"poster"`
	Platform    string `json:"_platform"`
}

func migrateMyList(raw json.RawMessage, defaultPlatform models.Platform) []models.Drama {
	out := []models.Drama{}
	if len(raw) == 0 {
		return out
	}

	var items []legacyListItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return out
	}

	for _, item := range items {
		id := item.BookID
		if id == "" {
			id = item.ID
		}
		if strings.TrimSpace(id) == "" {
			continue
		}

		platform := defaultPlatform
		if item.Platform != "" {
			platform = models.ParsePlatform(item.Platform)
		}

		out = append(out, models.Drama{
			ID:          id,
			Title:       item.Title,
			Description: item.Description,
			Poster:      item.Poster,
			Platform:    platform,
		})
	}
	return out
}

func migrateLedger(raw json.RawMessage, defaultPlatform models.Platform) models.Ledger {
	ledger := models.Ledger{}
	if len(raw) == 0 {
		return ledger
	}

	var legacy map[string]map[string]any
	if err := json.Unmarshal(raw, &legacy); err != nil || len(legacy) == 0 {
		return ledger
	}

	if isFlatLegacy(legacy) {
		guest := make(map[string]models.ContinueWatchingEntry, len(legacy))
		for dramaID, value := range legacy {
			entry, ok := legacyEntry(dramaID, value, "", defaultPlatform)
			if !ok {
				continue
			}
			guest[entry.ScopedKey()] = entry
		}
		if len(guest) > 0 {
			ledger[models.GuestUserKey] = guest
		}
		return ledger
	}

	for userKey, segment := range legacy {
		records := make(map[string]models.ContinueWatchingEntry, len(segment))
		for scopedKey, value := range segment {
			item, ok := value.(map[string]any)
			if !ok {
				continue
			}

			dramaID := asString(item["dramaId"])
			if dramaID == "" {
				if _, rest, found := strings.Cut(scopedKey, ":"); found {
					dramaID = rest
				} else {
					dramaID = scopedKey
				}
			}

			entry, okEntry := legacyEntry(dramaID, item, scopedKey, defaultPlatform)
			if !okEntry {
				continue
			}
			records[entry.ScopedKey()] = entry
		}
		if len(records) > 0 {
			ledger[userKey] = records
		}
	}
	return ledger
}

// isFlatLegacy reports whether every top-level value reads as an entry
// object rather than a per-user segment.
func isFlatLegacy(legacy map[string]map[string]any) bool {
	for _, value := range legacy {
		if value == nil {
			return false
		}
		_, hasEpisode := value["episodeId"]
		_, hasTitle := value["dramaTitle"]
		if !hasEpisode && !hasTitle {
			return false
		}
	}
	return len(legacy) > 0
}

// legacyEntry reconstructs one ledger entry from an untyped legacy
// object. Platform falls back to a scoped-key prefix, then the user's
// configured platform. Entries without a recoverable drama id are
// dropped by the callers.
func legacyEntry(dramaID string, value map[string]any, scopedKey string, defaultPlatform models.Platform) (models.ContinueWatchingEntry, bool) {
	dramaID = strings.TrimSpace(dramaID)
	if dramaID == "" {
		return models.ContinueWatchingEntry{}, false
	}

	platform := defaultPlatform
	if p := asString(value["platform"]); p != "" {
		platform = models.ParsePlatform(p)
	} else if prefix, _, found := strings.Cut(scopedKey, ":"); found {
		platform = models.ParsePlatform(prefix)
	}

	title := asString(value["dramaTitle"])
	if title == "" {
		title = "Unknown Title"
	}
	poster := asString(value["dramaPoster"])
	if poster == "" {
		poster = models.PlaceholderPoster
	}
	episodeID := asString(value["episodeId"])
	if episodeID == "" {
		episodeID = "1"
	}

	timestamp := int64(asNumber(value["timestamp"]))
	if timestamp == 0 {
		timestamp = time.Now().UnixMilli()
	}

	entry := models.ContinueWatchingEntry{
		Platform:    platform,
		DramaID:     dramaID,
		DramaTitle:  title,
		DramaPoster: poster,
		EpisodeID:   episodeID,
		Progress:    int(asNumber(value["progress"])),
		Timestamp:   timestamp,
	}
	if no := int(asNumber(value["episodeNo"])); no > 0 {
		entry.EpisodeNo = no
	}
	return entry, true
}

func asString(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func asNumber(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case string:
		var f float64
		if _, err := fmt.Sscanf(strings.TrimSpace(n), "%g", &f); err == nil {
			return f
		}
	}
	return 0
}
