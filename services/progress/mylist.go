package progress

import (
	"strings"

	"dramastream/models"
)

// AddToList saves a drama snapshot tagged with the active platform.
// Idempotent: adding the same id on the same platform twice keeps one
// entry.
func (s *Service) AddToList(drama models.Drama) {
	dramaID := strings.TrimSpace(drama.ID)
	if dramaID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	platform := drama.Platform
	if !platform.Valid() {
		platform = s.state.Platform
	}

	for _, item := range s.state.MyList {
		if item.ID == dramaID && item.Platform == platform {
			return
		}
	}

	drama.ID = dramaID
	drama.Platform = platform
	s.state.MyList = append(s.state.MyList, drama)
	s.scheduleSaveLocked()
}

// RemoveFromList drops the snapshot for the id on the active platform.
func (s *Service) RemoveFromList(dramaID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	platform := s.state.Platform
	kept := s.state.MyList[:0]
	for _, item := range s.state.MyList {
		if item.ID == dramaID && item.Platform == platform {
			continue
		}
		kept = append(kept, item)
	}
	if len(kept) == len(s.state.MyList) {
		return
	}
	s.state.MyList = kept
	s.scheduleSaveLocked()
}

// IsInList reports whether the id is saved on the active platform.
func (s *Service) IsInList(dramaID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range s.state.MyList {
		if item.ID == dramaID && item.Platform == s.state.Platform {
			return true
		}
	}
	return false
}

// MyListForCurrentPlatform returns the saved snapshots for the active
// platform.
func (s *Service) MyListForCurrentPlatform() []models.Drama {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Drama, 0)
	for _, item := range s.state.MyList {
		if item.Platform == s.state.Platform {
			out = append(out, item)
		}
	}
	return out
}

// ClearMyListForCurrentPlatform removes every snapshot saved on the
// active platform.
func (s *Service) ClearMyListForCurrentPlatform() {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.state.MyList[:0]
	for _, item := range s.state.MyList {
		if item.Platform != s.state.Platform {
			kept = append(kept, item)
		}
	}
	s.state.MyList = kept
	s.scheduleSaveLocked()
}

// ClearAllMyList removes every snapshot across all platforms.
func (s *Service) ClearAllMyList() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.MyList = []models.Drama{}
	s.scheduleSaveLocked()
}
