package memory

import (
	"context"
	"sync"

	"github.com/helioapps/purchasekit/session"
)

const (
	keyUserID       = "user_id"
	keyDeviceUUID   = "device_uuid"
	keyLanguageCode = "language_code"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		values: map[string]string{},
	}
}

func (s *InMemoryStore) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values = make(map[string]string)
}

func (s *InMemoryStore) GetIdentity(ctx context.Context) (session.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userID, ok := s.values[keyUserID]
	if !ok {
		return session.Identity{}, session.ErrNotFound
	}
	return session.Identity{
		UserID:     userID,
		DeviceUUID: s.values[keyDeviceUUID],
	}, nil
}

func (s *InMemoryStore) SetIdentity(ctx context.Context, identity session.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[keyUserID] = identity.UserID
	s.values[keyDeviceUUID] = identity.DeviceUUID
	return nil
}

func (s *InMemoryStore) GetLanguageCode(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	code, ok := s.values[keyLanguageCode]
	if !ok {
		return "", session.ErrNotFound
	}
	return code, nil
}

func (s *InMemoryStore) SetLanguageCode(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[keyLanguageCode] = code
	return nil
}
