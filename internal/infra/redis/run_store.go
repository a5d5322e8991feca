package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-gauntlet/internal/app"
)

// RunStore is a Redis-aware implementation of app.RunRepository.
// Notes:
//   - Runs own a live timer, so they stay in a local map; Redis only records
//     which run each owner is playing (SET quiz:run:{owner} {runID}).
//   - The marker lets other instances see that an owner is mid-run.
type RunStore struct {
	client *redis.Client
	ttl    time.Duration
	mu     sync.RWMutex
	runs   map[string]*app.ExtraStageRun
}

func NewRunStore(client *redis.Client, ttl time.Duration) *RunStore {
	return &RunStore{
		client: client,
		ttl:    ttl,
		runs:   make(map[string]*app.ExtraStageRun),
	}
}

func (s *RunStore) Put(ownerID string, run *app.ExtraStageRun) *app.ExtraStageRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.runs[ownerID]
	s.runs[ownerID] = run
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(ownerID), run.ID(), s.ttl).Err()
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
	cur, ok := s.runs[ownerID]
	if !ok || cur != run {
		return
	}
	delete(s.runs, ownerID)
	_ = s.client.Del(context.Background(), s.key(ownerID)).Err()
}

// ActiveRunID reports the run an owner is playing on any instance.
func (s *RunStore) ActiveRunID(ctx context.Context, ownerID string) (string, bool, error) {
	id, err := s.client.Get(ctx, s.key(ownerID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

func (s *RunStore) key(ownerID string) string {
	return "quiz:run:" + ownerID
}
