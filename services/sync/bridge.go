// Package sync pushes and pulls continue-watching state to a remote
// store so progress follows the user across devices. Everything here is
// best-effort: a failing remote degrades the app to local-only
// operation and is never surfaced to the watching experience.
package sync

import (
	"context"

	"dramastream/models"
)

// Bridge is the remote-persistence collaborator contract. The core
// depends only on this interface, not on any concrete backend.
type Bridge interface {
	Push(ctx context.Context, userID string, entry models.ContinueWatchingEntry) error
	Pull(ctx context.Context, userID string) ([]models.ContinueWatchingEntry, error)
	Clear(ctx context.Context, userID string) error
	SaveProfile(ctx context.Context, userID string, profile models.UserProfile) error
}

// NopBridge satisfies Bridge while cloud sync is disabled.
type NopBridge struct{}

func (NopBridge) Push(context.Context, string, models.ContinueWatchingEntry) error { return nil }

func (NopBridge) Pull(context.Context, string) ([]models.ContinueWatchingEntry, error) {
	return nil, nil
}

func (NopBridge) Clear(context.Context, string) error { return nil }

func (NopBridge) SaveProfile(context.Context, string, models.UserProfile) error { return nil }
