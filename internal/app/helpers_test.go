package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quiz-gauntlet/internal/answer"
	"quiz-gauntlet/internal/app"
	"quiz-gauntlet/internal/domain"
	"quiz-gauntlet/internal/infra/memory"
	"quiz-gauntlet/internal/timer/timertest"
)

var epoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

// gauntlet is a three-question extra stage: single "A", multiple {A, C}, input "Tokyo".
func gauntlet() []domain.Question {
	return []domain.Question{
		{
			ID:            "x1",
			Prompt:        "Pick A",
			SelectionType: domain.SelectionSingle,
			ChoiceA:       "A", ChoiceB: "B", ChoiceC: "C", ChoiceD: "D",
			AnswerDigest: answer.Digest("A"),
		},
		{
			ID:            "x2",
			Prompt:        "Pick A and C",
			SelectionType: domain.SelectionMultiple,
			ChoiceA:       "A", ChoiceB: "B", ChoiceC: "C", ChoiceD: "D",
			AnswerDigest: answer.Digest("A,C"),
		},
		{
			ID:            "x3",
			Prompt:        "Capital of Japan",
			SelectionType: domain.SelectionInput,
			AnswerDigest:  answer.Digest("TOKYO"),
		},
	}
}

var rightAnswers = []domain.Answer{
	domain.SingleAnswer("A"),
	domain.MultiAnswer("C", "A"),
	domain.SingleAnswer(" tokyo "),
}

type fixture struct {
	clock   *timertest.Clock
	runs    *memory.RunStore
	service *app.ExtraStageService
}

func newFixture(t *testing.T, questions []domain.Question) fixture {
	t.Helper()
	clock := timertest.New(epoch)
	runs := memory.NewRunStore()
	repo := memory.NewQuestionRepository(
		memory.NewStaticQuestionLoader(domain.QuestionSet{Key: domain.ExtraSetKey, Questions: questions}),
		time.Minute, "Ultra",
	)
	return fixture{
		clock:   clock,
		runs:    runs,
		service: app.NewExtraStageService(repo, runs, app.WithClock(clock)),
	}
}

func (f fixture) start(t *testing.T) *app.ExtraStageRun {
	t.Helper()
	run, err := f.service.Start(context.Background(), "player-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	return run
}

func drain(ch <-chan app.Event) []app.Event {
	var out []app.Event
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}

func kinds(events []app.Event) []app.EventKind {
	out := make([]app.EventKind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind
	}
	return out
}

var errStorageDown = errors.New("storage down")

// failingKV fails every operation, like a browser with storage disabled.
type failingKV struct{}

func (failingKV) Get(context.Context, string) (string, error) { return "", errStorageDown }
func (failingKV) Set(context.Context, string, string) error   { return errStorageDown }
func (failingKV) Delete(context.Context, string) error        { return errStorageDown }
func (failingKV) Clear(context.Context) error                 { return errStorageDown }

type sourceFunc func(ctx context.Context, userID string) ([]domain.Question, error)

func (f sourceFunc) ExtraStageQuestions(ctx context.Context, userID string) ([]domain.Question, error) {
	return f(ctx, userID)
}

type recordingRegistrar struct {
	mu   sync.Mutex
	subs []domain.ScoreSubmission
	err  error
}

func (r *recordingRegistrar) SubmitBestScore(_ context.Context, s domain.ScoreSubmission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.subs = append(r.subs, s)
	return nil
}

type recordingRasterizer struct {
	reqs []app.CertificateRequest
	err  error
}

func (r *recordingRasterizer) Render(_ context.Context, req app.CertificateRequest) (string, error) {
	r.reqs = append(r.reqs, req)
	if r.err != nil {
		return "", r.err
	}
	return "certificates/" + req.Key + ".png", nil
}
