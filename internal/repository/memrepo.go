package repository

import (
	"context"
	"strings"
	"sync"
	"time"
)

// memrepo is an in-memory Repository used when no database is configured.
type memrepo struct {
	mu       sync.RWMutex
	verdicts map[string]*Record
}

func NewMemoryRepository() Repository {
	return &memrepo{verdicts: make(map[string]*Record)}
}

func (m *memrepo) SaveVerdict(_ context.Context, rec *Record) error {
	if rec == nil {
		return nil
	}
	cp := *rec
	cp.MatchID = strings.TrimSpace(cp.MatchID)
	if cp.DecidedAt.IsZero() {
		cp.DecidedAt = time.Now().UTC()
	}
	m.mu.Lock()
	m.verdicts[cp.MatchID] = &cp
	m.mu.Unlock()
	return nil
}

func (m *memrepo) GetVerdict(_ context.Context, matchID string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.verdicts[strings.TrimSpace(matchID)]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}
