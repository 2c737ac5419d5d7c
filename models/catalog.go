package models

import (
	"strconv"
	"strings"
	"time"
)

// Platform identifies one upstream catalog provider.
type Platform string

const (
	PlatformDramabox Platform = "dramabox"
	PlatformMelolo   Platform = "melolo"
	PlatformNetshort Platform = "netshort"
	PlatformReelife  Platform = "reelife"
)

// DefaultPlatform is assumed whenever stored data carries no platform tag.
const DefaultPlatform = PlatformDramabox

// PlaceholderPoster is the sentinel poster path used when no usable
// artwork is known for a drama.
const PlaceholderPoster = "/images/placeholder-poster.svg"

// FallbackTitle is stored when neither the incoming nor the previously
// stored title is usable.
const FallbackTitle = "Tanpa Judul"

// Platforms lists every supported provider.
func Platforms() []Platform {
	return []Platform{PlatformDramabox, PlatformMelolo, PlatformNetshort, PlatformReelife}
}

// ParsePlatform normalises a platform string, falling back to the default
// for unknown or empty input.
func ParsePlatform(raw string) Platform {
	p := Platform(strings.ToLower(strings.TrimSpace(raw)))
	if p.Valid() {
		return p
	}
	return DefaultPlatform
}

// Valid reports whether the platform is one of the supported providers.
func (p Platform) Valid() bool {
	switch p {
	case PlatformDramabox, PlatformMelolo, PlatformNetshort, PlatformReelife:
		return true
	}
	return false
}

// Drama is the canonical catalog entry shared by every provider adapter.
// Instances are constructed by an adapter on each fetch and never mutated
// afterwards.
type Drama struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	Description       string     `json:"description,omitempty"`
	Poster            string     `json:"poster"`
	ReleaseDate       *time.Time `json:"releaseDate,omitempty"`
	TotalEpisodeCount *int       `json:"totalEpisodeCount,omitempty"`
	TotalDuration     string     `json:"totalDuration,omitempty"`
	IsNew             bool       `json:"isNew"`

	// Platform tags my-list snapshots so the same catalog id on two
	// providers never collides.
	Platform Platform `json:"platform,omitempty"`
}

// EpisodeCountLabel renders the episode count, distinguishing "unknown"
// from an actual zero.
func (d Drama) EpisodeCountLabel() string {
	if d.TotalEpisodeCount == nil {
		return "N/A"
	}
	return strconv.Itoa(*d.TotalEpisodeCount)
}

// Episode is a single playable entry within a drama. Episodes are built
// fresh on every list fetch and never cached across platform switches.
type Episode struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	EpisodeNo int    `json:"episodeNo,omitempty"`
	Duration  string `json:"duration,omitempty"`
	URL       string `json:"url"`
}
