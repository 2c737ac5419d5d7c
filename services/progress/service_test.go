package progress

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dramastream/models"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(t.TempDir())
	require.NoError(t, err)
	return svc
}

func TestUpdateProgressDropsSubThreshold(t *testing.T) {
	svc := newTestService(t)

	svc.UpdateProgress(models.Drama{ID: "d1", Title: "Jodoh"}, "ep1", 0, models.PlatformDramabox, 1)
	assert.Empty(t, svc.ContinueWatchingForCurrentUser())

	svc.UpdateProgress(models.Drama{ID: "d1", Title: "Jodoh"}, "ep1", 1, models.PlatformDramabox, 1)
	assert.Len(t, svc.ContinueWatchingForCurrentUser(), 1)
}

func TestUpdateProgressDropsEmptyDramaID(t *testing.T) {
	svc := newTestService(t)
	svc.UpdateProgress(models.Drama{ID: "  ", Title: "Jodoh"}, "ep1", 30, models.PlatformDramabox, 1)
	assert.Empty(t, svc.ContinueWatchingForCurrentUser())
}

func TestUpdateProgressOneEntryPerDramaAndPlatform(t *testing.T) {
	svc := newTestService(t)

	svc.UpdateProgress(models.Drama{ID: "d1", Title: "Jodoh"}, "ep1", 30, models.PlatformDramabox, 1)
	svc.UpdateProgress(models.Drama{ID: "d1", Title: "Jodoh"}, "ep2", 45, models.PlatformDramabox, 2)

	entries := svc.ContinueWatchingForCurrentUser()
	require.Len(t, entries, 1)
	assert.Equal(t, "ep2", entries[0].EpisodeID)
	assert.Equal(t, 2, entries[0].EpisodeNo)
	assert.Equal(t, 45, entries[0].Progress)

	// The same drama on another platform is a separate record.
	svc.UpdateProgress(models.Drama{ID: "d1", Title: "Jodoh"}, "ep1", 10, models.PlatformMelolo, 1)
	assert.Len(t, svc.ContinueWatchingForCurrentUser(), 1)

	svc.SetPlatform(models.PlatformMelolo)
	entries = svc.ContinueWatchingForCurrentUser()
	require.Len(t, entries, 1)
	assert.Equal(t, models.PlatformMelolo, entries[0].Platform)
}

func TestUpdateProgressIdempotentReplay(t *testing.T) {
	svc := newTestService(t)
	current := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return current }

	svc.UpdateProgress(models.Drama{ID: "d1", Title: "Jodoh"}, "ep1", 30, models.PlatformDramabox, 1)
	first := svc.ContinueWatchingForCurrentUser()[0]

	current = current.Add(time.Minute)
	svc.UpdateProgress(models.Drama{ID: "d1", Title: "Jodoh"}, "ep1", 30, models.PlatformDramabox, 1)

	entries := svc.ContinueWatchingForCurrentUser()
	require.Len(t, entries, 1, "replay must overwrite, never append")
	assert.Equal(t, first.ScopedKey(), entries[0].ScopedKey())
	assert.Greater(t, entries[0].Timestamp, first.Timestamp, "timestamp only advances")
	assert.Equal(t, first.Progress, entries[0].Progress)
}

func TestTitleNonRegression(t *testing.T) {
	svc := newTestService(t)

	svc.UpdateProgress(models.Drama{ID: "8123456789", Title: "Jodoh Terakhir"}, "ep1", 30, models.PlatformDramabox, 1)

	// A later update whose title degraded to the numeric id must keep the
	// good title already stored.
	svc.UpdateProgress(models.Drama{ID: "8123456789", Title: "8123456789"}, "ep2", 60, models.PlatformDramabox, 2)

	entries := svc.ContinueWatchingForCurrentUser()
	require.Len(t, entries, 1)
	assert.Equal(t, "Jodoh Terakhir", entries[0].DramaTitle)
	assert.Equal(t, 60, entries[0].Progress)
}

func TestTitleFallbackWhenNeverKnown(t *testing.T) {
	svc := newTestService(t)
	svc.UpdateProgress(models.Drama{ID: "d1", Title: "Unknown Title"}, "ep1", 30, models.PlatformDramabox, 1)

	entries := svc.ContinueWatchingForCurrentUser()
	require.Len(t, entries, 1)
	assert.Equal(t, models.FallbackTitle, entries[0].DramaTitle)
}

func TestPosterNonRegressionAndBackfill(t *testing.T) {
	svc := newTestService(t)

	svc.UpdateProgress(models.Drama{ID: "d1", Title: "Jodoh", Poster: "https://cdn/poster.jpg"}, "ep1", 30, models.PlatformDramabox, 1)
	svc.UpdateProgress(models.Drama{ID: "d1", Title: "Jodoh", Poster: models.PlaceholderPoster}, "ep2", 60, models.PlatformDramabox, 2)

	entries := svc.ContinueWatchingForCurrentUser()
	require.Len(t, entries, 1)
	assert.Equal(t, "https://cdn/poster.jpg", entries[0].DramaPoster)

	// A drama that only ever had a placeholder borrows the poster from
	// its my-list snapshot.
	svc.AddToList(models.Drama{ID: "d2", Title: "Pewaris", Poster: "https://cdn/pewaris.jpg", Platform: models.PlatformDramabox})
	svc.UpdateProgress(models.Drama{ID: "d2", Title: "Pewaris"}, "ep1", 30, models.PlatformDramabox, 1)

	entries = svc.ContinueWatchingForCurrentUser()
	require.Len(t, entries, 2)
	for _, entry := range entries {
		if entry.DramaID == "d2" {
			assert.Equal(t, "https://cdn/pewaris.jpg", entry.DramaPoster)
		}
	}
}

func TestContinueWatchingSortedByRecency(t *testing.T) {
	svc := newTestService(t)
	current := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return current }

	svc.UpdateProgress(models.Drama{ID: "old", Title: "Old"}, "ep1", 30, models.PlatformDramabox, 1)
	current = current.Add(time.Minute)
	svc.UpdateProgress(models.Drama{ID: "new", Title: "New"}, "ep1", 30, models.PlatformDramabox, 1)

	entries := svc.ContinueWatchingForCurrentUser()
	require.Len(t, entries, 2)
	assert.Equal(t, "new", entries[0].DramaID)
	assert.Equal(t, "old", entries[1].DramaID)
}

func TestLedgerScopedPerUser(t *testing.T) {
	svc := newTestService(t)

	svc.UpdateProgress(models.Drama{ID: "guest-drama", Title: "Guest"}, "ep1", 30, models.PlatformDramabox, 1)

	svc.Login(models.UserProfile{Email: "Reader@Example.COM", Name: "Reader"})
	assert.Equal(t, "reader@example.com", svc.CurrentUserKey())
	assert.Empty(t, svc.ContinueWatchingForCurrentUser())

	svc.UpdateProgress(models.Drama{ID: "user-drama", Title: "Mine"}, "ep1", 30, models.PlatformDramabox, 1)
	require.Len(t, svc.ContinueWatchingForCurrentUser(), 1)

	svc.Logout()
	entries := svc.ContinueWatchingForCurrentUser()
	require.Len(t, entries, 1)
	assert.Equal(t, "guest-drama", entries[0].DramaID)
}

func TestClearContinueWatching(t *testing.T) {
	svc := newTestService(t)
	svc.UpdateProgress(models.Drama{ID: "d1", Title: "Jodoh"}, "ep1", 30, models.PlatformDramabox, 1)
	svc.UpdateProgress(models.Drama{ID: "d2", Title: "Pewaris"}, "ep1", 30, models.PlatformMelolo, 1)

	svc.ClearContinueWatchingForCurrentUser()
	assert.Empty(t, svc.ContinueWatchingForCurrentUser())

	svc.SetPlatform(models.PlatformMelolo)
	assert.Empty(t, svc.ContinueWatchingForCurrentUser(), "clear spans platforms")
}

func TestReplaceContinueWatchingRevalidates(t *testing.T) {
	svc := newTestService(t)
	svc.UpdateProgress(models.Drama{ID: "local", Title: "Local"}, "ep1", 30, models.PlatformDramabox, 1)

	svc.ReplaceContinueWatchingForCurrentUser([]models.ContinueWatchingEntry{
		{Platform: models.PlatformDramabox, DramaID: "cloud", DramaTitle: "12345678", Progress: 90, Timestamp: 1},
		{DramaID: "   "},
	})

	entries := svc.ContinueWatchingForCurrentUser()
	require.Len(t, entries, 1, "pull replaces the local segment wholesale")
	assert.Equal(t, "cloud", entries[0].DramaID)
	assert.Equal(t, models.FallbackTitle, entries[0].DramaTitle, "numeric title rejected")
	assert.Equal(t, models.PlaceholderPoster, entries[0].DramaPoster)
	assert.Equal(t, "1", entries[0].EpisodeID)
}

func TestStatePersistsAcrossRestart(t *testing.T) {
	dir := t.TempDir()

	svc, err := NewService(dir)
	require.NoError(t, err)
	svc.UpdateProgress(models.Drama{ID: "d1", Title: "Jodoh", Poster: "https://cdn/p.jpg"}, "ep3", 75, models.PlatformMelolo, 3)
	svc.AddToList(models.Drama{ID: "d1", Title: "Jodoh", Platform: models.PlatformMelolo})
	svc.SetPlatform(models.PlatformMelolo)
	require.NoError(t, svc.Flush())

	reloaded, err := NewService(dir)
	require.NoError(t, err)
	assert.Equal(t, models.PlatformMelolo, reloaded.Platform())

	entries := reloaded.ContinueWatchingForCurrentUser()
	require.Len(t, entries, 1)
	assert.Equal(t, "d1", entries[0].DramaID)
	assert.Equal(t, 75, entries[0].Progress)
	assert.Equal(t, 3, entries[0].EpisodeNo)
	assert.True(t, reloaded.IsInList("d1"))
}

func TestLoadRejectsCorruptState(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, stateFileName), []byte("{not json"), 0o644))

	_, err := NewService(dir)
	assert.Error(t, err)
}

func TestNewServiceRequiresDir(t *testing.T) {
	_, err := NewService("  ")
	assert.ErrorIs(t, err, ErrStorageDirRequired)
}

type recordingQueue struct {
	pushes   []models.ContinueWatchingEntry
	pushKeys []string
	clears   []string
	profiles []string
}

func (q *recordingQueue) EnqueuePush(userID string, entry models.ContinueWatchingEntry) {
	q.pushKeys = append(q.pushKeys, userID)
	q.pushes = append(q.pushes, entry)
}
func (q *recordingQueue) EnqueueClear(userID string) { q.clears = append(q.clears, userID) }
func (q *recordingQueue) EnqueueProfile(userID string, _ models.UserProfile) {
	q.profiles = append(q.profiles, userID)
}

func TestRemoteQueueReceivesMutations(t *testing.T) {
	svc := newTestService(t)
	queue := &recordingQueue{}
	svc.SetRemoteQueue(queue)

	svc.UpdateProgress(models.Drama{ID: "d1", Title: "Jodoh"}, "ep1", 30, models.PlatformDramabox, 1)
	require.Len(t, queue.pushes, 1)
	assert.Equal(t, models.GuestUserKey, queue.pushKeys[0])
	assert.Equal(t, "d1", queue.pushes[0].DramaID)

	// Dropped updates never reach the queue.
	svc.UpdateProgress(models.Drama{ID: "d1", Title: "Jodoh"}, "ep1", 0, models.PlatformDramabox, 1)
	assert.Len(t, queue.pushes, 1)

	svc.ClearContinueWatchingForCurrentUser()
	assert.Equal(t, []string{models.GuestUserKey}, queue.clears)

	svc.Login(models.UserProfile{Email: "a@b.c"})
	assert.Equal(t, []string{"a@b.c"}, queue.profiles)
}
