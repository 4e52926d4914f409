package store

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// CachedStore layers an in-memory deck cache over a durable SessionStore.
//
// Reads hit the cache first and fall back to the durable tier, repopulating
// the cache on a hit there — so a process restart transparently restores
// session state. Writes are write-through: the durable tier is written
// first, then the cache, so a committed deck survives a crash and a cache
// entry never points at uncommitted state. Non-deck operations pass straight
// through to the durable tier.
type CachedStore struct {
	SessionStore

	mu    sync.RWMutex
	decks map[string]*DeckRecord
}

var _ SessionStore = (*CachedStore)(nil)

// NewCachedStore wraps durable with an empty deck cache.
func NewCachedStore(durable SessionStore) *CachedStore {
	return &CachedStore{
		SessionStore: durable,
		decks:        make(map[string]*DeckRecord),
	}
}

func (s *CachedStore) GetDeck(ctx context.Context, sessionID string) (*DeckRecord, error) {
	s.mu.RLock()
	rec, ok := s.decks[sessionID]
	s.mu.RUnlock()
	if ok {
		return rec, nil
	}

	rec, err := s.SessionStore.GetDeck(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}

	log.Debug().Str("sessionId", sessionID).Msg("Deck cache repopulated from durable store")
	s.mu.Lock()
	s.decks[sessionID] = rec
	s.mu.Unlock()
	return rec, nil
}

func (s *CachedStore) PutDeck(ctx context.Context, sessionID string, rec *DeckRecord) error {
	// Durable tier first: if this fails the cache still holds the last
	// committed deck, and readers keep seeing consistent state.
	if err := s.SessionStore.PutDeck(ctx, sessionID, rec); err != nil {
		return err
	}

	s.mu.Lock()
	s.decks[sessionID] = rec
	s.mu.Unlock()
	return nil
}

func (s *CachedStore) DeleteDeck(ctx context.Context, sessionID string) error {
	if err := s.SessionStore.DeleteDeck(ctx, sessionID); err != nil {
		return err
	}
	s.evict(sessionID)
	return nil
}

func (s *CachedStore) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.SessionStore.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	s.evict(sessionID)
	return nil
}

func (s *CachedStore) evict(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.decks, sessionID)
}
