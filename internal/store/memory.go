package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a fully in-memory SessionStore used by the CLI and tests.
// It honors the same contracts as DynamoStore: (nil, nil) for missing
// records, full-item replacement on Put, safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	decks    map[string]DeckRecord
	chatJobs map[string]map[string]ChatJob
	expJobs  map[string]map[string]ExportJob
}

var _ SessionStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]Session),
		decks:    make(map[string]DeckRecord),
		chatJobs: make(map[string]map[string]ChatJob),
		expJobs:  make(map[string]map[string]ExportJob),
	}
}

func (s *MemoryStore) PutSession(_ context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session.CreatedAt == 0 {
		session.CreatedAt = time.Now().Unix()
	}
	s.sessions[session.ID] = *session
	return nil
}

func (s *MemoryStore) GetSession(_ context.Context, sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	sess.ID = sessionID
	return &sess, nil
}

func (s *MemoryStore) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	delete(s.decks, sessionID)
	delete(s.chatJobs, sessionID)
	delete(s.expJobs, sessionID)
	return nil
}

func (s *MemoryStore) PutDeck(_ context.Context, sessionID string, rec *DeckRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.UpdatedAt == 0 {
		rec.UpdatedAt = time.Now().Unix()
	}
	s.decks[sessionID] = *rec
	return nil
}

func (s *MemoryStore) GetDeck(_ context.Context, sessionID string) (*DeckRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.decks[sessionID]
	if !ok {
		return nil, nil
	}
	rec.SessionID = sessionID
	return &rec, nil
}

func (s *MemoryStore) DeleteDeck(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.decks, sessionID)
	return nil
}

func (s *MemoryStore) PutChatJob(_ context.Context, sessionID string, job *ChatJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chatJobs[sessionID] == nil {
		s.chatJobs[sessionID] = make(map[string]ChatJob)
	}
	s.chatJobs[sessionID][job.ID] = *job
	return nil
}

func (s *MemoryStore) GetChatJob(_ context.Context, sessionID, jobID string) (*ChatJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.chatJobs[sessionID][jobID]
	if !ok {
		return nil, nil
	}
	job.ID = jobID
	job.SessionID = sessionID
	return &job, nil
}

func (s *MemoryStore) PutExportJob(_ context.Context, sessionID string, job *ExportJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expJobs[sessionID] == nil {
		s.expJobs[sessionID] = make(map[string]ExportJob)
	}
	s.expJobs[sessionID][job.ID] = *job
	return nil
}

func (s *MemoryStore) GetExportJob(_ context.Context, sessionID, jobID string) (*ExportJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.expJobs[sessionID][jobID]
	if !ok {
		return nil, nil
	}
	job.ID = jobID
	job.SessionID = sessionID
	return &job, nil
}
