package app

import (
	"time"

	"quiz-gauntlet/internal/answer"
	"quiz-gauntlet/internal/domain"
	"quiz-gauntlet/internal/timer"
)

// ExtraStage is the single-life gauntlet state. It is a value: every transition
// returns a new ExtraStage and leaves the receiver untouched.
//
//	Loading -> InProgress(0) -> ... -> InProgress(n-1) -> Passed
//	                        \-> Failed(i) on a wrong answer or a timeout at i
type ExtraStage struct {
	questions []domain.Question
	cursor    int
	outcome   domain.Outcome
	token     timer.Token
	selected  []string
	startedAt time.Time
	elapsed   time.Duration
	timedOut  bool
}

// StartExtraStage enters InProgress(0). An empty question list keeps the stage in Loading.
func StartExtraStage(questions []domain.Question, now time.Time) (ExtraStage, error) {
	if len(questions) == 0 {
		return ExtraStage{outcome: domain.OutcomeLoading}, domain.ErrNoQuestions
	}
	return ExtraStage{
		questions: append([]domain.Question(nil), questions...),
		outcome:   domain.OutcomeInProgress,
		startedAt: now,
	}, nil
}

func (s ExtraStage) Outcome() domain.Outcome { return s.outcome }

// Cursor is the index of the active question; it equals Total once passed.
func (s ExtraStage) Cursor() int { return s.cursor }

func (s ExtraStage) Total() int { return len(s.questions) }

// Token is the timer instance armed for the active question.
func (s ExtraStage) Token() timer.Token { return s.token }

func (s ExtraStage) StartedAt() time.Time { return s.startedAt }

// Current returns the active question while the stage is in progress.
func (s ExtraStage) Current() (domain.Question, bool) {
	if s.outcome != domain.OutcomeInProgress || s.cursor >= len(s.questions) {
		return domain.Question{}, false
	}
	return s.questions[s.cursor], true
}

// Selected returns the unsubmitted choices for the active question.
func (s ExtraStage) Selected() []string {
	return append([]string(nil), s.selected...)
}

// Selection turns the pending choices into an answer for the active question.
func (s ExtraStage) Selection() domain.Answer {
	q, ok := s.Current()
	if ok && q.IsMultiple() {
		return domain.MultiAnswer(s.selected...)
	}
	if len(s.selected) == 0 {
		return domain.Answer{}
	}
	return domain.SingleAnswer(s.selected[0])
}

// Arm records the timer instance bound to the active question.
func (s ExtraStage) Arm(tok timer.Token) ExtraStage {
	if s.outcome != domain.OutcomeInProgress {
		return s
	}
	s.token = tok
	return s
}

// Select records a pending choice. Multiple-select toggles; single-select and
// input replace.
func (s ExtraStage) Select(choice string) (ExtraStage, error) {
	q, err := s.active()
	if err != nil {
		return s, err
	}
	switch {
	case q.SelectionType == domain.SelectionInput:
		s.selected = []string{choice}
	case !q.HasChoice(choice):
		return s, domain.ErrUnknownChoice
	case q.IsMultiple():
		next := make([]string, 0, len(s.selected)+1)
		removed := false
		for _, c := range s.selected {
			if c == choice {
				removed = true
				continue
			}
			next = append(next, c)
		}
		if !removed {
			next = append(next, choice)
		}
		s.selected = next
	default:
		s.selected = []string{choice}
	}
	return s, nil
}

// Submit judges a against the active question's digest. A match advances to the
// next question or passes the stage; a mismatch fails it at the current index.
func (s ExtraStage) Submit(a domain.Answer, now time.Time) (ExtraStage, bool, error) {
	q, err := s.active()
	if err != nil {
		return s, false, err
	}
	correct, err := answer.Matches(a, q.AnswerDigest)
	if err != nil {
		return s, false, err
	}
	if !correct {
		return s.fail(now, false), false, nil
	}
	s.cursor++
	s.selected = nil
	s.token = 0
	if s.cursor == len(s.questions) {
		s.outcome = domain.OutcomePassed
		s.elapsed = now.Sub(s.startedAt)
	}
	return s, true, nil
}

// Timeout fails the stage if tok is the instance armed for the active question.
// Stale tokens are ignored and reported as not applied.
func (s ExtraStage) Timeout(tok timer.Token, now time.Time) (ExtraStage, bool) {
	if s.outcome != domain.OutcomeInProgress || tok == 0 || tok != s.token {
		return s, false
	}
	return s.fail(now, true), true
}

// Result summarises the stage; meaningful once Outcome is terminal.
func (s ExtraStage) Result() domain.ExtraStageResult {
	correct := s.cursor
	if s.outcome == domain.OutcomePassed {
		correct = len(s.questions)
	}
	return domain.ExtraStageResult{
		Outcome:      s.outcome,
		ReachedIndex: s.cursor,
		CorrectCount: correct,
		Total:        len(s.questions),
		Elapsed:      s.elapsed,
		TimedOut:     s.timedOut,
	}
}

func (s ExtraStage) active() (domain.Question, error) {
	if s.outcome.Terminal() {
		return domain.Question{}, domain.ErrSessionFinished
	}
	q, ok := s.Current()
	if !ok {
		return domain.Question{}, domain.ErrNoActiveQuestion
	}
	return q, nil
}

// fail keeps the cursor at the failed index; partial selections are discarded.
func (s ExtraStage) fail(now time.Time, timedOut bool) ExtraStage {
	s.outcome = domain.OutcomeFailed
	s.selected = nil
	s.token = 0
	s.elapsed = now.Sub(s.startedAt)
	s.timedOut = timedOut
	return s
}
