package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"quiz-gauntlet/internal/answer"
	"quiz-gauntlet/internal/domain"
)

func TestQuestionRepositoryCaches(t *testing.T) {
	loader := &countingLoader{QuestionLoader: NewStaticQuestionLoader(sampleSet(domain.ExtraSetKey))}
	repo := NewQuestionRepository(loader, time.Minute, "Ultra")

	if _, err := repo.ExtraStageQuestions(context.Background(), "u1"); err != nil {
		t.Fatalf("get questions: %v", err)
	}
	if loader.calls.Load() != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls.Load())
	}

	qs, err := repo.ExtraStageQuestions(context.Background(), "u2")
	if err != nil {
		t.Fatalf("get questions 2: %v", err)
	}
	if loader.calls.Load() != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls.Load())
	}
	if len(qs) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(qs))
	}
}

func TestQuestionRepositoryExpires(t *testing.T) {
	loader := &countingLoader{QuestionLoader: NewStaticQuestionLoader(sampleSet(domain.ExtraSetKey))}
	repo := NewQuestionRepository(loader, time.Minute, "Ultra")
	now := time.Unix(1_700_000_000, 0)
	repo.clock = func() time.Time { return now }

	if _, err := repo.GetQuestionSet(context.Background(), domain.ExtraSetKey); err != nil {
		t.Fatalf("get set: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := repo.GetQuestionSet(context.Background(), domain.ExtraSetKey); err != nil {
		t.Fatalf("get set after expiry: %v", err)
	}
	if loader.calls.Load() != 2 {
		t.Fatalf("expected reload after ttl, loader calls %d", loader.calls.Load())
	}
}

func TestQuestionRepositoryCollapsesConcurrentLoads(t *testing.T) {
	release := make(chan struct{})
	loader := &countingLoader{
		QuestionLoader: NewStaticQuestionLoader(sampleSet(domain.ExtraSetKey)),
		gate:           release,
	}
	repo := NewQuestionRepository(loader, time.Minute, "Ultra")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.ExtraStageQuestions(context.Background(), "u"); err != nil {
				t.Errorf("get questions: %v", err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if loader.calls.Load() != 1 {
		t.Fatalf("expected a single load, got %d", loader.calls.Load())
	}
}

func TestQuestionRepositoryLevelKeys(t *testing.T) {
	loader := NewStaticQuestionLoader(
		sampleSet(domain.LevelSetKey("Genre 1", "Beginner")),
		sampleSet(domain.LevelSetKey("Genre 1", "Ultra")),
	)
	repo := NewQuestionRepository(loader, time.Minute, "Ultra")

	if _, err := repo.LevelQuestions(context.Background(), "Genre 1", "Beginner", "u"); err != nil {
		t.Fatalf("level questions: %v", err)
	}
	if _, err := repo.UltraQuestions(context.Background(), "Genre 1", "u"); err != nil {
		t.Fatalf("ultra questions: %v", err)
	}
	_, err := repo.LevelQuestions(context.Background(), "Genre 2", "Beginner", "u")
	if !errors.Is(err, domain.ErrQuestionSetNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestKVStore(t *testing.T) {
	ctx := context.Background()
	kv := NewKVStore()

	if _, err := kv.Get(ctx, "k"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := kv.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, err := kv.Get(ctx, "k"); err != nil || v != "v" {
		t.Fatalf("get: %q %v", v, err)
	}
	if err := kv.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := kv.Get(ctx, "k"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected deleted, got %v", err)
	}
	_ = kv.Set(ctx, "a", "1")
	_ = kv.Set(ctx, "b", "2")
	if err := kv.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := kv.Get(ctx, "a"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected cleared, got %v", err)
	}
}

func TestLoadQuestionFileDigestsPlainAnswers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.yaml")
	content := `
sets:
  - key: extra
    questions:
      - id: q1
        question: Capital of Japan?
        selectionType: input
        answer: [" tokyo "]
      - id: q2
        question: Pick the primes
        selectionType: multiple
        choices: ["2", "4", "5", "9"]
        answer: ["5", "2"]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	loader, err := LoadQuestionFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	set, err := loader.LoadQuestionSet(context.Background(), domain.ExtraSetKey)
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if len(set.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(set.Questions))
	}
	if set.Questions[0].AnswerDigest != answer.Digest("TOKYO") {
		t.Fatalf("unexpected digest for input answer: %s", set.Questions[0].AnswerDigest)
	}
	if set.Questions[1].AnswerDigest != answer.Digest("2,5") {
		t.Fatalf("unexpected digest for multiple answer: %s", set.Questions[1].AnswerDigest)
	}
	if got := set.Questions[1].Choices(); len(got) != 4 || got[2] != "5" {
		t.Fatalf("unexpected choices %v", got)
	}
	if sets := loader.Sets(); len(sets) != 1 || sets[0].Key != domain.ExtraSetKey {
		t.Fatalf("unexpected sets %v", sets)
	}
}

type countingLoader struct {
	QuestionLoader
	calls atomic.Int32
	gate  chan struct{}
}

func (l *countingLoader) LoadQuestionSet(ctx context.Context, key string) (domain.QuestionSet, error) {
	l.calls.Add(1)
	if l.gate != nil {
		<-l.gate
	}
	return l.QuestionLoader.LoadQuestionSet(ctx, key)
}

func sampleSet(key string) domain.QuestionSet {
	return domain.QuestionSet{
		Key: key,
		Questions: []domain.Question{
			{
				ID:            "q1",
				Prompt:        "What is 2 + 2?",
				SelectionType: domain.SelectionSingle,
				ChoiceA:       "3",
				ChoiceB:       "4",
				AnswerDigest:  answer.Digest("4"),
			},
			{
				ID:            "q2",
				Prompt:        "Capital of Japan?",
				SelectionType: domain.SelectionInput,
				AnswerDigest:  answer.Digest("TOKYO"),
			},
		},
	}
}
