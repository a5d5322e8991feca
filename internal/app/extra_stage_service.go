package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"quiz-gauntlet/internal/domain"
	"quiz-gauntlet/internal/logger"
	"quiz-gauntlet/internal/timer"
)

const (
	// DefaultQuestionTime is the per-question countdown of the extra stage.
	DefaultQuestionTime = 10 * time.Second
	// ExtraGenre is the genre label used when registering extra-stage scores.
	ExtraGenre = "extra"
)

// ExtraStageService starts and tracks extra-stage runs.
type ExtraStageService struct {
	questions    QuestionSource
	runs         RunRepository
	clock        timer.Clock
	questionTime time.Duration
	warnAt       time.Duration
	log          *logger.Logger
	newID        func() string
}

// ServiceOption configures an ExtraStageService.
type ServiceOption func(*ExtraStageService)

// WithClock replaces the wall clock driving run timers.
func WithClock(c timer.Clock) ServiceOption {
	return func(s *ExtraStageService) { s.clock = c }
}

// WithQuestionTime sets the per-question countdown; non-positive values are ignored.
func WithQuestionTime(d time.Duration) ServiceOption {
	return func(s *ExtraStageService) {
		if d > 0 {
			s.questionTime = d
		}
	}
}

func WithWarningTime(d time.Duration) ServiceOption {
	return func(s *ExtraStageService) {
		if d > 0 {
			s.warnAt = d
		}
	}
}

func WithLogger(l *logger.Logger) ServiceOption {
	return func(s *ExtraStageService) { s.log = l }
}

// NewExtraStageService creates a service that fetches questions from questions and tracks runs in runs.
func NewExtraStageService(questions QuestionSource, runs RunRepository, opts ...ServiceOption) *ExtraStageService {
	s := &ExtraStageService{
		questions:    questions,
		runs:         runs,
		clock:        timer.RealClock(),
		questionTime: DefaultQuestionTime,
		warnAt:       timer.DefaultWarning,
		log:          logger.Nop(),
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("service", "ExtraStageService")
	return s
}

// Start fetches the question list for owner and presents the first question.
// Any run the owner already had is abandoned.
func (s *ExtraStageService) Start(ctx context.Context, ownerID string) (*ExtraStageRun, error) {
	questions, err := s.questions.ExtraStageQuestions(ctx, ownerID)
	if err != nil {
		s.log.Warn("question fetch failed", "owner", ownerID, "error", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrQuestionsUnavailable, err)
	}
	if len(questions) == 0 {
		s.log.Warn("question source returned no questions", "owner", ownerID)
		return nil, domain.ErrNoQuestions
	}

	run, err := newExtraStageRun(s.newID(), ownerID, questions, s.clock, s.questionTime, s.warnAt, s.log)
	if err != nil {
		return nil, err
	}
	if prev := s.runs.Put(ownerID, run); prev != nil {
		prev.Abandon()
	}
	run.begin()
	s.log.Info("extra stage started", "owner", ownerID, "run", run.ID(), "questions", len(questions))
	return run, nil
}

// Get returns the owner's active run.
func (s *ExtraStageService) Get(_ context.Context, ownerID string) (*ExtraStageRun, error) {
	run, ok := s.runs.Get(ownerID)
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	return run, nil
}

// Release abandons run if it is still going and forgets it.
func (s *ExtraStageService) Release(ownerID string, run *ExtraStageRun) {
	if run == nil {
		return
	}
	run.Abandon()
	s.runs.Delete(ownerID, run)
}

// Abandon ends the owner's active run, if any.
func (s *ExtraStageService) Abandon(_ context.Context, ownerID string) {
	run, ok := s.runs.Get(ownerID)
	if !ok {
		return
	}
	s.Release(ownerID, run)
}
