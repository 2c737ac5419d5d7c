// Package upstream resolves best-effort values out of provider payloads
// whose field names and encodings drift without notice. Every accessor is
// total: unknown shapes yield an "absent" result, never an error.
package upstream

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Raw is a decoded upstream object of unknown shape.
type Raw map[string]any

// Field name variants observed across the four providers. Order matters:
// the first non-empty, non-zero match wins.
var (
	episodeCountKeys = []string{
		"chapterCount", "chapter_count", "episodeCount", "episode_count",
		"totalEpisode", "total_episode", "totalEpisodes", "serial_count",
		"episodeTotal", "upCount",
	}
	durationKeys = []string{
		"duration", "time", "videoDuration", "video_duration",
		"timeLength", "playTime", "play_time", "seconds", "length",
	}
	newFlagKeys = []string{
		"isNew", "is_new", "newFlag", "new_flag", "isNewBook", "corner_new",
	}
	releaseDateKeys = []string{
		"releaseDate", "release_date", "releaseTime", "release_time",
		"publishTime", "publish_time", "onlineTime", "online_time",
		"createTime", "create_time",
	}
)

// millisecondThreshold disambiguates seconds from milliseconds for
// numeric durations that arrive without a unit. Values above it are
// assumed to be milliseconds. Known approximation, not a guaranteed
// parse.
const millisecondThreshold = 10_000

// newWithinDays is how recent a release date must be for the "new" badge
// to light up without an explicit upstream flag.
const newWithinDays = 45

// FirstString returns the first key whose value renders as a non-empty
// string.
func (r Raw) FirstString(keys ...string) string {
	for _, key := range keys {
		v, ok := r[key]
		if !ok || v == nil {
			continue
		}
		s := strings.TrimSpace(stringify(v))
		if s != "" {
			return s
		}
	}
	return ""
}

// FirstInt returns the first key whose value coerces to a non-zero
// integer.
func (r Raw) FirstInt(keys ...string) (int, bool) {
	for _, key := range keys {
		v, ok := r[key]
		if !ok {
			continue
		}
		if n, ok := toInt(v); ok && n != 0 {
			return n, true
		}
	}
	return 0, false
}

// FirstTruthy reports whether any key evaluates truthy under the
// permissive coercion: boolean true, numeric 1, or the strings "1" /
// "true" (case-insensitive).
func (r Raw) FirstTruthy(keys ...string) bool {
	for _, key := range keys {
		v, ok := r[key]
		if !ok {
			continue
		}
		if truthy(v) {
			return true
		}
	}
	return false
}

// ResolveEpisodeCount probes the known episode-count variants. A nil
// result means "not available", which callers must keep distinct from
// zero episodes.
func ResolveEpisodeCount(r Raw) *int {
	if n, ok := r.FirstInt(episodeCountKeys...); ok && n > 0 {
		return &n
	}
	return nil
}

// ResolveDuration probes the known duration variants and normalises the
// winner via FormatDuration.
func ResolveDuration(r Raw) string {
	for _, key := range durationKeys {
		v, ok := r[key]
		if !ok || v == nil {
			continue
		}
		if s := FormatDuration(v); s != "" {
			return s
		}
	}
	return ""
}

// FormatDuration renders a raw duration as "M:SS". Numeric values above
// the millisecond threshold are divided down to seconds first. Numeric
// strings are coerced the same way; any other string passes through
// unchanged.
func FormatDuration(v any) string {
	switch d := v.(type) {
	case string:
		raw := strings.TrimSpace(d)
		if raw == "" {
			return ""
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return raw
		}
		return clockFormat(n)
	default:
		if f, ok := toFloat(v); ok {
			return clockFormat(int64(f))
		}
	}
	return ""
}

func clockFormat(v int64) string {
	if v < 0 {
		return ""
	}
	seconds := v
	if v > millisecondThreshold {
		seconds = v / 1000
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// ResolveReleaseDate probes the release date variants and parses the
// first match. Unparseable dates are absent, not errors.
func ResolveReleaseDate(r Raw) *time.Time {
	s := r.FirstString(releaseDateKeys...)
	if s == "" {
		return nil
	}
	return ParseReleaseDate(s)
}

var releaseDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006-1-2",
}

// ParseReleaseDate attempts a direct parse first; on failure it
// normalises "." and "/" separators to "-" and retries.
func ParseReleaseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if t := parseDate(s); t != nil {
		return t
	}
	normalised := strings.NewReplacer(".", "-", "/", "-").Replace(s)
	if normalised != s {
		return parseDate(normalised)
	}
	return nil
}

func parseDate(s string) *time.Time {
	for _, layout := range releaseDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// IsNew reports whether the item should carry the "new" badge: an
// explicit upstream flag and a recent release date are OR'd, either is
// sufficient.
func IsNew(r Raw, now time.Time) bool {
	if r.FirstTruthy(newFlagKeys...) {
		return true
	}
	released := ResolveReleaseDate(r)
	if released == nil {
		return false
	}
	age := now.Sub(*released)
	return age >= 0 && age <= newWithinDays*24*time.Hour
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case bool:
		return strconv.FormatBool(s)
	}
	return ""
}

func toInt(v any) (int, bool) {
	if f, ok := toFloat(v); ok {
		return int(f), true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func truthy(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case float64:
		return b == 1
	case int:
		return b == 1
	case string:
		s := strings.ToLower(strings.TrimSpace(b))
		return s == "1" || s == "true"
	}
	return false
}
