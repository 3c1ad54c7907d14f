package careprofile

import (
	"context"
	"sync"
)

// ownerCache maps profile ids to owner ids. A profile's owner never changes,
// so entries only go away when the profile is deleted.
type ownerCache struct {
	mu     sync.RWMutex
	owners map[string]string
}

func newOwnerCache() *ownerCache {
	return &ownerCache{owners: make(map[string]string)}
}

func (c *ownerCache) get(profileID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	owner, ok := c.owners[profileID]
	return owner, ok
}

func (c *ownerCache) put(profileID, ownerID string) {
	c.mu.Lock()
	c.owners[profileID] = ownerID
	c.mu.Unlock()
}

func (c *ownerCache) remove(profileID string) {
	c.mu.Lock()
	delete(c.owners, profileID)
	c.mu.Unlock()
}

// Authorize checks that userID owns profileID. It returns ErrProfileNotFound
// or ErrForbidden. The medication, calendar and health record services use it
// to scope every request.
func (s *Service) Authorize(ctx context.Context, userID, profileID string) error {
	owner, ok := s.owners.get(profileID)
	if !ok {
		profile, err := s.repo.Get(ctx, profileID)
		if err != nil {
			return err
		}
		owner = profile.UserID
		s.owners.put(profileID, owner)
	}

	if owner != userID {
		return ErrForbidden
	}
	return nil
}
