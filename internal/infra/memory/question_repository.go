package memory

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quiz-gauntlet/internal/domain"
)

// QuestionLoader fetches question sets from a backing store (e.g., the question bank).
type QuestionLoader interface {
	LoadQuestionSet(ctx context.Context, key string) (domain.QuestionSet, error)
}

// QuestionRepository caches question sets with TTL to avoid repeated DB hits.
// It serves both the extra stage and the standard levels.
type QuestionRepository struct {
	loader QuestionLoader
	ultra  string
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	rndMu sync.Mutex
	cache map[string]cachedSet
}

type cachedSet struct {
	set       domain.QuestionSet
	expiresAt time.Time
}

// NewQuestionRepository caches loader's sets for ttl. ultra is the level name
// under which ultra-level sets are stored.
func NewQuestionRepository(loader QuestionLoader, ttl time.Duration, ultra string) *QuestionRepository {
	return &QuestionRepository{
		loader: loader,
		ultra:  ultra,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedSet),
	}
}

func (r *QuestionRepository) ExtraStageQuestions(ctx context.Context, _ string) ([]domain.Question, error) {
	return r.questions(ctx, domain.ExtraSetKey)
}

func (r *QuestionRepository) LevelQuestions(ctx context.Context, genre, level, _ string) ([]domain.Question, error) {
	return r.questions(ctx, domain.LevelSetKey(genre, level))
}

func (r *QuestionRepository) UltraQuestions(ctx context.Context, genre, _ string) ([]domain.Question, error) {
	return r.questions(ctx, domain.LevelSetKey(genre, r.ultra))
}

func (r *QuestionRepository) questions(ctx context.Context, key string) ([]domain.Question, error) {
	set, err := r.GetQuestionSet(ctx, key)
	if err != nil {
		return nil, err
	}
	return append([]domain.Question(nil), set.Questions...), nil
}

func (r *QuestionRepository) GetQuestionSet(ctx context.Context, key string) (domain.QuestionSet, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[key]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.set, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[key]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.set, nil
		}
		r.mu.RUnlock()

		set, err := r.loader.LoadQuestionSet(ctx, key)
		if err != nil {
			return domain.QuestionSet{}, err
		}

		r.mu.Lock()
		r.cache[key] = cachedSet{
			set:       set,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return set, nil
	})
	if err != nil {
		return domain.QuestionSet{}, err
	}
	return result.(domain.QuestionSet), nil
}

// StaticQuestionLoader is a simple loader backed by an in-memory map (useful for tests/demos).
type StaticQuestionLoader struct {
	sets map[string]domain.QuestionSet
}

func NewStaticQuestionLoader(sets ...domain.QuestionSet) *StaticQuestionLoader {
	l := &StaticQuestionLoader{sets: make(map[string]domain.QuestionSet, len(sets))}
	for _, s := range sets {
		l.sets[s.Key] = s
	}
	return l
}

func (l *StaticQuestionLoader) LoadQuestionSet(_ context.Context, key string) (domain.QuestionSet, error) {
	if set, ok := l.sets[key]; ok {
		return set, nil
	}
	return domain.QuestionSet{}, domain.ErrQuestionSetNotFound
}

// Sets lists every set ordered by key.
func (l *StaticQuestionLoader) Sets() []domain.QuestionSet {
	out := make([]domain.QuestionSet, 0, len(l.sets))
	for _, s := range l.sets {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
