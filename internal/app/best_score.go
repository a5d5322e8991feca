package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"quiz-gauntlet/internal/domain"
)

// BestScoreKey is where the extra-stage best run is stored.
const BestScoreKey = "quiz_extra_best"

// BestScoreStore persists the device's best extra-stage run. Save overwrites
// unconditionally; callers decide whether a run improves on the stored one.
type BestScoreStore struct {
	kv KeyValueStore
}

func NewBestScoreStore(kv KeyValueStore) *BestScoreStore {
	return &BestScoreStore{kv: kv}
}

// Load returns the stored record, or false when none exists yet.
func (s *BestScoreStore) Load(ctx context.Context) (domain.BestScore, bool, error) {
	raw, err := s.kv.Get(ctx, BestScoreKey)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.BestScore{}, false, nil
	}
	if err != nil {
		return domain.BestScore{}, false, fmt.Errorf("load best score: %w", err)
	}
	var rec domain.BestScore
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return domain.BestScore{}, false, fmt.Errorf("decode best score: %w", err)
	}
	return rec, true, nil
}

// Save overwrites the stored record unconditionally; callers check IsNewBest first.
func (s *BestScoreStore) Save(ctx context.Context, rec domain.BestScore) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode best score: %w", err)
	}
	if err := s.kv.Set(ctx, BestScoreKey, string(data)); err != nil {
		return fmt.Errorf("save best score: %w", err)
	}
	return nil
}

// IsNewBest applies the best-score order; with no prior record any run qualifies.
func IsNewBest(candidate, prior domain.BestScore, hasPrior bool) bool {
	if !hasPrior {
		return true
	}
	return candidate.Better(prior)
}

// ScoreOf converts a finished run into a best-score candidate.
func ScoreOf(res domain.ExtraStageResult) domain.BestScore {
	return domain.BestScore{
		CorrectCount:  res.CorrectCount,
		ElapsedTimeMs: res.Elapsed.Milliseconds(),
	}
}
