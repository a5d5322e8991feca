package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"quiz-gauntlet/internal/answer"
	"quiz-gauntlet/internal/app"
	"quiz-gauntlet/internal/domain"
	"quiz-gauntlet/internal/infra/memory"
	"quiz-gauntlet/internal/timer/timertest"
)

func TestQuestionRepositoryCachesInRedis(t *testing.T) {
	mr := startRedis(t)
	client := newClient(mr)

	loader := &countingLoader{QuestionLoader: memory.NewStaticQuestionLoader(sampleSet())}
	repo := NewQuestionRepository(client, loader, time.Minute, "Ultra")

	qs, err := repo.ExtraStageQuestions(context.Background(), "u1")
	if err != nil {
		t.Fatalf("get questions: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("quiz:set:extra") {
		t.Fatalf("expected set cached in redis")
	}

	// A second repository shares the cache, loader not incremented.
	other := NewQuestionRepository(client, loader, time.Minute, "Ultra")
	cached, _ := other.ExtraStageQuestions(context.Background(), "u2")
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if len(cached) != len(qs) || cached[0].AnswerDigest != qs[0].AnswerDigest {
		t.Fatalf("cached questions differ: %+v", cached)
	}

	mr.FastForward(2 * time.Minute)
	_, _ = repo.ExtraStageQuestions(context.Background(), "u1")
	if loader.calls != 2 {
		t.Fatalf("expected reload after expiry, loader calls=%d", loader.calls)
	}
}

func TestQuestionRepositoryPropagatesLoaderErrors(t *testing.T) {
	mr := startRedis(t)
	repo := NewQuestionRepository(newClient(mr), memory.NewStaticQuestionLoader(), time.Minute, "Ultra")

	_, err := repo.LevelQuestions(context.Background(), "Genre 1", "Beginner", "u")
	if !errors.Is(err, domain.ErrQuestionSetNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRunStoreSetsAndClearsKeys(t *testing.T) {
	mr := startRedis(t)
	store := NewRunStore(newClient(mr), time.Minute)
	service := app.NewExtraStageService(
		memory.NewQuestionRepository(memory.NewStaticQuestionLoader(sampleSet()), time.Minute, "Ultra"),
		store,
		app.WithClock(timertest.New(time.Unix(0, 0))),
	)

	run, err := service.Start(context.Background(), "u1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if got, _ := mr.Get("quiz:run:u1"); got != run.ID() {
		t.Fatalf("expected marker %s, got %q", run.ID(), got)
	}
	id, ok, err := store.ActiveRunID(context.Background(), "u1")
	if err != nil || !ok || id != run.ID() {
		t.Fatalf("active run id: %q %v %v", id, ok, err)
	}

	service.Release("u1", run)
	if mr.Exists("quiz:run:u1") {
		t.Fatalf("expected redis key to be removed")
	}
	if _, ok, _ := store.ActiveRunID(context.Background(), "u1"); ok {
		t.Fatalf("expected no active run")
	}
}

func TestKVStoreNamespacesAndClear(t *testing.T) {
	ctx := context.Background()
	mr := startRedis(t)
	client := newClient(mr)
	device := NewKVStore(client, "device-a")
	other := NewKVStore(client, "device-b")

	if _, err := device.Get(ctx, "quiz_nickname"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := device.Set(ctx, "quiz_nickname", "Taro"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := other.Set(ctx, "quiz_nickname", "Jiro"); err != nil {
		t.Fatalf("set other: %v", err)
	}
	if v, _ := device.Get(ctx, "quiz_nickname"); v != "Taro" {
		t.Fatalf("expected Taro, got %q", v)
	}

	if err := device.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := device.Get(ctx, "quiz_nickname"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected cleared, got %v", err)
	}
	if v, _ := other.Get(ctx, "quiz_nickname"); v != "Jiro" {
		t.Fatalf("clear must not touch other namespaces, got %q", v)
	}
}

func startRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	return mr
}

type countingLoader struct {
	memory.QuestionLoader
	calls int
}

func (l *countingLoader) LoadQuestionSet(ctx context.Context, key string) (domain.QuestionSet, error) {
	l.calls++
	return l.QuestionLoader.LoadQuestionSet(ctx, key)
}

func sampleSet() domain.QuestionSet {
	return domain.QuestionSet{
		Key: domain.ExtraSetKey,
		Questions: []domain.Question{
			{
				ID:            "q1",
				Prompt:        "What is 2 + 2?",
				SelectionType: domain.SelectionSingle,
				ChoiceA:       "3",
				ChoiceB:       "4",
				AnswerDigest:  answer.Digest("4"),
			},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
