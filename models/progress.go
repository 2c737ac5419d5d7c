package models

import (
	"encoding/json"
	"strings"
)

// GuestUserKey owns ledger entries recorded while no profile is signed in.
const GuestUserKey = "guest"

// UserProfile describes the signed-in account, as provided by the external
// identity layer.
type UserProfile struct {
	UID     string `json:"uid,omitempty"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture,omitempty"`
}

// Key returns the ledger user key for the profile: the normalised email,
// or the guest fallback when unauthenticated.
func (u *UserProfile) Key() string {
	if u == nil || strings.TrimSpace(u.Email) == "" {
		return GuestUserKey
	}
	return strings.ToLower(strings.TrimSpace(u.Email))
}

// ContinueWatchingEntry records the most recent playback position for one
// drama on one platform. Exactly one entry exists per
// (userKey, platform, dramaId) triple; updates overwrite, never append.
type ContinueWatchingEntry struct {
	Platform    Platform `json:"platform"`
	DramaID     string   `json:"dramaId"`
	DramaTitle  string   `json:"dramaTitle"`
	DramaPoster string   `json:"dramaPoster"`
	EpisodeID   string   `json:"episodeId"`
	EpisodeNo   int      `json:"episodeNo,omitempty"`
	Progress    int      `json:"progress"`
	Timestamp   int64    `json:"timestamp"`
}

// ScopedKey identifies the entry within a user's ledger segment.
func (e ContinueWatchingEntry) ScopedKey() string {
	return string(e.Platform) + ":" + e.DramaID
}

// Ledger maps userKey -> scopedKey -> entry.
type Ledger map[string]map[string]ContinueWatchingEntry

// StateVersion is the current persisted state schema version. Older
// versions are migrated forward on load.
const StateVersion = 4

// PersistedState is the on-disk envelope for all locally persisted user
// state: the my-list snapshots, the continue-watching ledger, the active
// profile, and the active platform.
type PersistedState struct {
	Version          int          `json:"version"`
	MyList           []Drama      `json:"myList"`
	ContinueWatching Ledger       `json:"continueWatching"`
	User             *UserProfile `json:"user,omitempty"`
	Platform         Platform     `json:"platform"`
}

// RawPersistedState defers decoding of the ledger and my-list so legacy
// shapes can be inspected before migration.
type RawPersistedState struct {
	Version          int             `json:"version"`
	MyList           json.RawMessage `json:"myList"`
	ContinueWatching json.RawMessage `json:"continueWatching"`
	User             *UserProfile    `json:"user,omitempty"`
	Platform         string          `json:"platform"`
}
