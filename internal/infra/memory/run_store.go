package memory

import (
	"sync"

	"quiz-gauntlet/internal/app"
)

// RunStore is an in-memory implementation of app.RunRepository.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]*app.ExtraStageRun
}

func NewRunStore() *RunStore {
	return &RunStore{
		runs: make(map[string]*app.ExtraStageRun),
	}
}

func (s *RunStore) Put(ownerID string, run *app.ExtraStageRun) *app.ExtraStageRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.runs[ownerID]
	s.runs[ownerID] = run
	if prev == run {
		return nil
	}
	return prev
}

func (s *RunStore) Get(ownerID string) (*app.ExtraStageRun, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[ownerID]
	return run, ok
}

func (s *RunStore) Delete(ownerID string, run *app.ExtraStageRun) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.runs[ownerID]; ok && cur == run {
		delete(s.runs, ownerID)
	}
}

// Len reports how many owners have an active run.
func (s *RunStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}
