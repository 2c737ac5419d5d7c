// Package progress owns the locally persisted user state: the
// continue-watching ledger, the my-list snapshots, the signed-in
// profile, and the active platform. Writes are local-first; persistence
// is debounced and cloud pushes are handed to an async outbox.
package progress

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"dramastream/models"
)

var ErrStorageDirRequired = errors.New("storage directory not provided")

// MinProgressSeconds is the persistence threshold: updates below it are
// dropped rather than stored as zero.
const MinProgressSeconds = 1

const stateFileName = "state.json"

// defaultSaveDelay coalesces the progress ticks a player emits every few
// seconds into one disk write.
const defaultSaveDelay = time.Second

// RemoteQueue is the async outbound side of the sync bridge. A nil queue
// means cloud sync is disabled.
type RemoteQueue interface {
	EnqueuePush(userID string, entry models.ContinueWatchingEntry)
	EnqueueClear(userID string)
	EnqueueProfile(userID string, profile models.UserProfile)
}

// Service is the authoritative in-memory state, persisted to one JSON
// document in the storage directory.
type Service struct {
	mu    sync.Mutex
	path  string
	state models.PersistedState

	remote RemoteQueue
	now    func() time.Time

	saveDelay time.Duration
	saveTimer *time.Timer
}

// NewService loads (and migrates, if needed) the persisted state from
// the storage directory.
func NewService(storageDir string) (*Service, error) {
	if strings.TrimSpace(storageDir) == "" {
		return nil, ErrStorageDirRequired
	}

	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	svc := &Service{
		path:      filepath.Join(storageDir, stateFileName),
		now:       time.Now,
		saveDelay: defaultSaveDelay,
	}

	if err := svc.load(); err != nil {
		return nil, err
	}

	return svc, nil
}

// SetRemoteQueue wires the async sync outbox. Safe to leave unset.
func (s *Service) SetRemoteQueue(remote RemoteQueue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remote = remote
}

// UpdateProgress creates or overwrites the ledger entry for the drama on
// the given platform. Sub-threshold progress and dramas without an id
// are dropped silently; a valid write stamps the current time, applies
// the title/poster non-regression rules, and enqueues a cloud push.
func (s *Service) UpdateProgress(drama models.Drama, episodeID string, progressSeconds int, platform models.Platform, episodeNo int) {
	if progressSeconds < MinProgressSeconds {
		return
	}
	dramaID := strings.TrimSpace(drama.ID)
	if dramaID == "" {
		return
	}

	s.mu.Lock()

	if !platform.Valid() {
		platform = s.state.Platform
	}
	userKey := s.state.User.Key()
	scopedKey := string(platform) + ":" + dramaID

	existing, hasExisting := s.state.ContinueWatching[userKey][scopedKey]

	entry := models.ContinueWatchingEntry{
		Platform:    platform,
		DramaID:     dramaID,
		DramaTitle:  resolveTitle(drama.Title, existing.DramaTitle, dramaID),
		DramaPoster: resolvePoster(drama.Poster, existing.DramaPoster),
		EpisodeID:   strings.TrimSpace(episodeID),
		Progress:    progressSeconds,
		Timestamp:   s.now().UnixMilli(),
	}
	if episodeNo > 0 {
		entry.EpisodeNo = episodeNo
	} else if hasExisting {
		entry.EpisodeNo = existing.EpisodeNo
	}

	if s.state.ContinueWatching == nil {
		s.state.ContinueWatching = models.Ledger{}
	}
	if s.state.ContinueWatching[userKey] == nil {
		s.state.ContinueWatching[userKey] = make(map[string]models.ContinueWatchingEntry)
	}
	s.state.ContinueWatching[userKey][scopedKey] = entry

	remote := s.remote
	s.scheduleSaveLocked()
	s.mu.Unlock()

	if remote != nil {
		remote.EnqueuePush(userKey, entry)
	}
}

// ContinueWatchingForCurrentUser returns the active user's entries on
// the active platform, most recently watched first. Stored placeholder
// posters are backfilled from the my-list snapshot when a usable one is
// known there.
func (s *Service) ContinueWatchingForCurrentUser() []models.ContinueWatchingEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	userKey := s.state.User.Key()
	platform := s.state.Platform

	entries := make([]models.ContinueWatchingEntry, 0)
	for _, entry := range s.state.ContinueWatching[userKey] {
		if entry.Platform != platform {
			continue
		}
		if isInvalidTitle(entry.DramaTitle, entry.DramaID) {
			entry.DramaTitle = models.FallbackTitle
		}
		if !isUsablePoster(entry.DramaPoster) {
			entry.DramaPoster = s.posterFromListLocked(entry.DramaID, entry.Platform)
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Timestamp == entries[j].Timestamp {
			return entries[i].ScopedKey() < entries[j].ScopedKey()
		}
		return entries[i].Timestamp > entries[j].Timestamp
	})

	return entries
}

// ClearContinueWatchingForCurrentUser drops the active user's entries
// across all platforms and requests a remote bulk delete.
func (s *Service) ClearContinueWatchingForCurrentUser() {
	s.mu.Lock()
	userKey := s.state.User.Key()
	delete(s.state.ContinueWatching, userKey)
	remote := s.remote
	s.scheduleSaveLocked()
	s.mu.Unlock()

	if remote != nil {
		remote.EnqueueClear(userKey)
	}
}

// ReplaceContinueWatchingForCurrentUser installs the pulled cloud
// entries as the user's ledger segment. Pull wins wholesale: entries
// are revalidated and re-keyed, then replace whatever is held locally.
// A local update whose push has not completed yet can lose to this.
func (s *Service) ReplaceContinueWatchingForCurrentUser(entries []models.ContinueWatchingEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	segment := make(map[string]models.ContinueWatchingEntry, len(entries))
	for _, entry := range entries {
		dramaID := strings.TrimSpace(entry.DramaID)
		if dramaID == "" {
			continue
		}
		platform := entry.Platform
		if !platform.Valid() {
			platform = models.DefaultPlatform
		}

		next := models.ContinueWatchingEntry{
			Platform:    platform,
			DramaID:     dramaID,
			DramaTitle:  entry.DramaTitle,
			DramaPoster: entry.DramaPoster,
			EpisodeID:   entry.EpisodeID,
			EpisodeNo:   entry.EpisodeNo,
			Progress:    entry.Progress,
			Timestamp:   entry.Timestamp,
		}
		if isInvalidTitle(next.DramaTitle, dramaID) {
			next.DramaTitle = models.FallbackTitle
		}
		if !isUsablePoster(next.DramaPoster) {
			next.DramaPoster = models.PlaceholderPoster
		}
		if next.EpisodeID == "" {
			next.EpisodeID = "1"
		}
		if next.Timestamp == 0 {
			next.Timestamp = s.now().UnixMilli()
		}

		segment[next.ScopedKey()] = next
	}

	if s.state.ContinueWatching == nil {
		s.state.ContinueWatching = models.Ledger{}
	}
	s.state.ContinueWatching[s.state.User.Key()] = segment
	s.scheduleSaveLocked()
}

// posterFromListLocked backfills a poster from the my-list snapshot for
// the same drama on the same platform.
func (s *Service) posterFromListLocked(dramaID string, platform models.Platform) string {
	for _, item := range s.state.MyList {
		if item.ID == dramaID && item.Platform == platform && isUsablePoster(item.Poster) {
			return item.Poster
		}
	}
	return models.PlaceholderPoster
}

// Login records the profile, pulls nothing by itself (callers decide
// when to sync), and pushes the profile to the cloud store.
func (s *Service) Login(profile models.UserProfile) {
	s.mu.Lock()
	p := profile
	s.state.User = &p
	remote := s.remote
	userKey := s.state.User.Key()
	s.scheduleSaveLocked()
	s.mu.Unlock()

	if remote != nil {
		remote.EnqueueProfile(userKey, profile)
	}
}

// Logout clears the active profile; subsequent writes land under guest.
func (s *Service) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.User = nil
	s.scheduleSaveLocked()
}

// CurrentUser returns the active profile, or nil for guest sessions.
func (s *Service) CurrentUser() *models.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.User == nil {
		return nil
	}
	u := *s.state.User
	return &u
}

// CurrentUserKey returns the ledger key of the active user.
func (s *Service) CurrentUserKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.User.Key()
}

// Platform returns the active platform.
func (s *Service) Platform() models.Platform {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Platform
}

// SetPlatform switches the active platform.
func (s *Service) SetPlatform(platform models.Platform) {
	if !platform.Valid() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Platform = platform
	s.scheduleSaveLocked()
}

// scheduleSaveLocked arms (or re-arms) the debounced persistence timer.
func (s *Service) scheduleSaveLocked() {
	if s.saveTimer != nil {
		s.saveTimer.Reset(s.saveDelay)
		return
	}
	s.saveTimer = time.AfterFunc(s.saveDelay, func() {
		if err := s.Flush(); err != nil {
			log.Printf("[progress] persist failed: %v", err)
		}
	})
}

// Flush writes the state to disk synchronously. Used by the debounce
// timer, on shutdown, and by tests.
func (s *Service) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Service) saveLocked() error {
	tmp := s.path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create state temp file: %w", err)
	}

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.state); err != nil {
		file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("encode state: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("sync state: %w", err)
	}

	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close state temp file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}

	return nil
}

func (s *Service) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) || (err == nil && len(data) == 0) {
		s.state = defaultState()
		return nil
	}
	if err != nil {
		return fmt.Errorf("read state: %w", err)
	}

	var raw models.RawPersistedState
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode state: %w", err)
	}

	state, migrated, err := Migrate(raw)
	if err != nil {
		return fmt.Errorf("migrate state: %w", err)
	}
	s.state = state

	if migrated {
		log.Printf("[progress] migrated state from version %d to %d", raw.Version, models.StateVersion)
		if err := s.saveLocked(); err != nil {
			return err
		}
	}

	return nil
}

func defaultState() models.PersistedState {
	return models.PersistedState{
		Version:          models.StateVersion,
		MyList:           []models.Drama{},
		ContinueWatching: models.Ledger{},
		Platform:         models.DefaultPlatform,
	}
}

var numericTitle = regexp.MustCompile(`^\d{8,}$`)

// isInvalidTitle rejects upstream placeholder titles: empty strings, the
// literal "Unknown Title" sentinel, the drama's own id, and long numeric
// ids masquerading as titles.
func isInvalidTitle(title, dramaID string) bool {
	normalized := strings.TrimSpace(title)
	if normalized == "" || normalized == "Unknown Title" {
		return true
	}
	if dramaID != "" && normalized == dramaID {
		return true
	}
	return numericTitle.MatchString(normalized)
}

// isUsablePoster rejects empty and placeholder poster paths.
func isUsablePoster(poster string) bool {
	value := strings.TrimSpace(poster)
	if value == "" || value == models.PlaceholderPoster {
		return false
	}
	if strings.Contains(value, "/images/placeholder-") {
		return false
	}
	return !strings.Contains(value, "Poster Unavailable")
}

// resolveTitle keeps the previous stored title when the incoming one is
// a placeholder, so good data never regresses to bad.
func resolveTitle(incoming, existing, dramaID string) string {
	if !isInvalidTitle(incoming, dramaID) {
		return strings.TrimSpace(incoming)
	}
	if !isInvalidTitle(existing, dramaID) {
		return strings.TrimSpace(existing)
	}
	return models.FallbackTitle
}

// resolvePoster keeps the previous stored poster over a placeholder.
func resolvePoster(incoming, existing string) string {
	if isUsablePoster(incoming) {
		return strings.TrimSpace(incoming)
	}
	if isUsablePoster(existing) {
		return strings.TrimSpace(existing)
	}
	return models.PlaceholderPoster
}
