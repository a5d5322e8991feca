package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quiz-gauntlet/internal/domain"
	"quiz-gauntlet/internal/infra/memory"
)

// QuestionRepository caches question sets in Redis and falls back to a loader on cache miss.
// Sets are stored as JSON: SET quiz:set:{key} {"key":...,"questions":[...]}
// Only answer digests are cached; plain answers never reach Redis.
type QuestionRepository struct {
	client *redis.Client
	loader memory.QuestionLoader
	ultra  string
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuestionRepository(client *redis.Client, loader memory.QuestionLoader, ttl time.Duration, ultra string) *QuestionRepository {
	return &QuestionRepository{
		client: client,
		loader: loader,
		ultra:  ultra,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionRepository) ExtraStageQuestions(ctx context.Context, _ string) ([]domain.Question, error) {
	set, err := r.GetQuestionSet(ctx, domain.ExtraSetKey)
	return set.Questions, err
}

func (r *QuestionRepository) LevelQuestions(ctx context.Context, genre, level, _ string) ([]domain.Question, error) {
	set, err := r.GetQuestionSet(ctx, domain.LevelSetKey(genre, level))
	return set.Questions, err
}

func (r *QuestionRepository) UltraQuestions(ctx context.Context, genre, _ string) ([]domain.Question, error) {
	set, err := r.GetQuestionSet(ctx, domain.LevelSetKey(genre, r.ultra))
	return set.Questions, err
}

func (r *QuestionRepository) GetQuestionSet(ctx context.Context, key string) (domain.QuestionSet, error) {
	if set, ok := r.cached(ctx, key); ok {
		return set, nil
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if set, ok := r.cached(ctx, key); ok {
			return set, nil
		}

		set, err := r.loader.LoadQuestionSet(ctx, key)
		if err != nil {
			return domain.QuestionSet{}, err
		}
		if data, err := json.Marshal(set); err == nil {
			_ = r.client.Set(ctx, r.setKey(key), data, r.ttlWithJitter()).Err()
		}
		return set, nil
	})
	if err != nil {
		return domain.QuestionSet{}, err
	}
	return result.(domain.QuestionSet), nil
}

func (r *QuestionRepository) cached(ctx context.Context, key string) (domain.QuestionSet, bool) {
	data, err := r.client.Get(ctx, r.setKey(key)).Bytes()
	if err != nil {
		return domain.QuestionSet{}, false
	}
	var set domain.QuestionSet
	if err := json.Unmarshal(data, &set); err != nil || len(set.Questions) == 0 {
		return domain.QuestionSet{}, false
	}
	return set, true
}

func (r *QuestionRepository) setKey(key string) string {
	return "quiz:set:" + key
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
