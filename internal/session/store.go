package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Store keeps session contexts keyed by chat id.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*Context
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[int64]*Context),
		now:      time.Now,
	}
}

// Get returns the chat's context and marks it as active.
func (s *Store) Get(chatID int64) (*Context, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, ok := s.sessions[chatID]
	if ok {
		sc.LastSeen = s.now()
	}
	return sc, ok
}

// Peek is Get without touching LastSeen.
func (s *Store) Peek(chatID int64) (*Context, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, ok := s.sessions[chatID]
	return sc, ok
}

// Put replaces any existing context of the same chat.
func (s *Store) Put(sc *Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc.LastSeen = s.now()
	s.sessions[sc.ChatID] = sc
}

func (s *Store) Delete(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, chatID)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sessions)
}

// EvictIdle removes contexts not seen for longer than maxIdle and returns how many were removed.
func (s *Store) EvictIdle(maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	deadline := s.now().Add(-maxIdle)
	evicted := 0
	for chatID, sc := range s.sessions {
		if sc.LastSeen.Before(deadline) {
			delete(s.sessions, chatID)
			evicted++
		}
	}
	return evicted
}

// RunJanitor evicts idle contexts every interval until ctx is done.
func (s *Store) RunJanitor(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.EvictIdle(maxIdle); n > 0 {
				log.Info().Int("evicted", n).Int("active", s.Len()).Msg("session: idle sessions evicted")
			}
		}
	}
}
