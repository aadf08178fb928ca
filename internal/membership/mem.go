package membership

import (
	"context"
	"sync"
)

// MemStore keeps memberships in memory. Used in tests and in dev setups
// where chat membership is seeded by hand.
type MemStore struct {
	lock  sync.RWMutex
	chats map[int64]map[int64]struct{}
}

func NewMemStore() *MemStore {
	return &MemStore{chats: make(map[int64]map[int64]struct{})}
}

func (s *MemStore) AddMember(chatID, userID int64) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.chats[chatID] == nil {
		s.chats[chatID] = make(map[int64]struct{})
	}
	s.chats[chatID][userID] = struct{}{}
}

func (s *MemStore) RemoveMember(chatID, userID int64) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if members, ok := s.chats[chatID]; ok {
		delete(members, userID)
		if len(members) == 0 {
			delete(s.chats, chatID)
		}
	}
}

func (s *MemStore) IsMember(ctx context.Context, chatID, userID int64) (bool, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	members, ok := s.chats[chatID]
	if !ok {
		return false, nil
	}
	_, ok = members[userID]
	return ok, nil
}

func (s *MemStore) HealthCheck() error {
	return nil
}

func (s *MemStore) Close() error {
	return nil
}
