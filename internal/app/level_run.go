package app

import (
	"context"
	"errors"
	"fmt"

	"quiz-gauntlet/internal/domain"
	"quiz-gauntlet/internal/logger"
)

// SubmittedAnswer is one entry of a batch judgment request. Answer is nil when
// unanswered, a string for single/input questions and a []string for multiple-select.
type SubmittedAnswer struct {
	QuestionID string `json:"questionId"`
	Answer     any    `json:"answer"`
}

// LevelRun is a standard-mode attempt: every question is visible, the player
// moves freely between them and submits the whole set once all are answered.
type LevelRun struct {
	Genre     string
	Level     string
	questions []domain.Question
	answers   []domain.Answer
	cursor    int
}

func newLevelRun(genre, level string, questions []domain.Question) *LevelRun {
	return &LevelRun{
		Genre:     genre,
		Level:     level,
		questions: append([]domain.Question(nil), questions...),
		answers:   make([]domain.Answer, len(questions)),
	}
}

func (r *LevelRun) Total() int  { return len(r.questions) }
func (r *LevelRun) Cursor() int { return r.cursor }

func (r *LevelRun) Current() domain.Question { return r.questions[r.cursor] }

// AnswerAt returns the answer recorded for question i.
func (r *LevelRun) AnswerAt(i int) domain.Answer { return r.answers[i] }

// Next moves forward, stopping at the last question.
func (r *LevelRun) Next() bool {
	if r.cursor >= len(r.questions)-1 {
		return false
	}
	r.cursor++
	return true
}

// Previous moves back, stopping at the first question.
func (r *LevelRun) Previous() bool {
	if r.cursor == 0 {
		return false
	}
	r.cursor--
	return true
}

func (r *LevelRun) Jump(i int) bool {
	if i < 0 || i >= len(r.questions) {
		return false
	}
	r.cursor = i
	return true
}

// Select toggles or replaces a choice on the current question.
func (r *LevelRun) Select(choice string) error {
	q := r.Current()
	if q.SelectionType == domain.SelectionInput {
		return r.Input(choice)
	}
	if !q.HasChoice(choice) {
		return domain.ErrUnknownChoice
	}
	if !q.IsMultiple() {
		r.answers[r.cursor] = domain.SingleAnswer(choice)
		return nil
	}
	cur := r.answers[r.cursor].Values
	next := make([]string, 0, len(cur)+1)
	removed := false
	for _, c := range cur {
		if c == choice {
			removed = true
			continue
		}
		next = append(next, c)
	}
	if !removed {
		next = append(next, choice)
	}
	r.answers[r.cursor] = domain.MultiAnswer(next...)
	return nil
}

// Input records free text for the current question; blank input clears it.
func (r *LevelRun) Input(text string) error {
	if r.Current().SelectionType != domain.SelectionInput {
		return domain.ErrUnknownChoice
	}
	r.answers[r.cursor] = domain.SingleAnswer(text)
	return nil
}

func (r *LevelRun) Answered(i int) bool {
	return !r.answers[i].Empty()
}

// AllAnswered gates submission.
func (r *LevelRun) AllAnswered() bool {
	for i := range r.answers {
		if !r.Answered(i) {
			return false
		}
	}
	return true
}

// Answers renders the batch in the shape the judge expects.
func (r *LevelRun) Answers() []SubmittedAnswer {
	out := make([]SubmittedAnswer, len(r.questions))
	for i, q := range r.questions {
		out[i] = SubmittedAnswer{QuestionID: q.ID}
		a := r.answers[i]
		switch {
		case a.Empty():
		case a.Multiple:
			out[i].Answer = append([]string(nil), a.Values...)
		default:
			out[i].Answer = a.Values[0]
		}
	}
	return out
}

// LevelResult is the outcome of a judged standard-mode run.
type LevelResult struct {
	Genre        string               `json:"genre"`
	Level        string               `json:"level"`
	CorrectCount int                  `json:"correctCount"`
	Total        int                  `json:"total"`
	Passed       bool                 `json:"passed"`
	WrongAnswers []domain.WrongAnswer `json:"wrongAnswers,omitempty"`
	NextLevel    string               `json:"nextLevel,omitempty"`
	Certificate  *Certificate         `json:"certificate,omitempty"`
	ShareText    string               `json:"shareText"`
	ShareURL     string               `json:"shareUrl"`
	Warnings     []string             `json:"warnings,omitempty"`
}

// CertificateIssuer records and renders certificates for passed levels.
type CertificateIssuer interface {
	IssueCertificate(ctx context.Context, key, genre, level string) (Certificate, error)
}

// LevelService runs the standard genre/level mode.
type LevelService struct {
	questions   LevelQuestionSource
	judge       Judge
	progression *Progression
	profile     *Profile
	issuer      CertificateIssuer
	appURL      string
	log         *logger.Logger
}

func NewLevelService(questions LevelQuestionSource, judge Judge, progression *Progression, profile *Profile, issuer CertificateIssuer, appURL string, log *logger.Logger) *LevelService {
	if log == nil {
		log = logger.Nop()
	}
	return &LevelService{
		questions:   questions,
		judge:       judge,
		progression: progression,
		profile:     profile,
		issuer:      issuer,
		appURL:      appURL,
		log:         log.With("service", "LevelService"),
	}
}

// Start checks that genre/level is unlocked and fetches its questions.
func (s *LevelService) Start(ctx context.Context, genre, level string) (*LevelRun, error) {
	catalog := s.progression.Catalog()
	g, ok := catalog.GenreNumber(genre)
	if !ok {
		return nil, fmt.Errorf("unknown genre %q", genre)
	}
	l, ok := catalog.LevelNumber(level)
	if !ok {
		return nil, fmt.Errorf("unknown level %q", level)
	}
	open, err := s.progression.Unlocked(ctx, g, l)
	if err != nil {
		return nil, err
	}
	if !open {
		return nil, fmt.Errorf("%w: %s %s", domain.ErrLocked, genre, level)
	}

	userID, err := s.profile.BrowserID(ctx)
	if err != nil {
		return nil, err
	}
	var questions []domain.Question
	if l == catalog.UltraNumber() {
		questions, err = s.questions.UltraQuestions(ctx, genre, userID)
	} else {
		questions, err = s.questions.LevelQuestions(ctx, genre, level, userID)
	}
	if err != nil {
		s.log.Warn("question fetch failed", "genre", genre, "level", level, "error", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrQuestionsUnavailable, err)
	}
	if len(questions) == 0 {
		return nil, domain.ErrNoQuestions
	}
	s.log.Info("level started", "genre", genre, "level", level, "questions", len(questions))
	return newLevelRun(genre, level, questions), nil
}

// Submit judges a fully answered run. A perfect run issues the level's
// certificate, which unlocks the next level.
func (s *LevelService) Submit(ctx context.Context, run *LevelRun) (LevelResult, error) {
	if !run.AllAnswered() {
		return LevelResult{}, domain.ErrIncomplete
	}
	userID, err := s.profile.BrowserID(ctx)
	if err != nil {
		return LevelResult{}, err
	}
	judgment, err := s.judge.JudgeAnswers(ctx, run.Genre, run.Level, run.Answers(), userID)
	if err != nil {
		return LevelResult{}, fmt.Errorf("judge answers: %w", err)
	}

	res := LevelResult{
		Genre:        run.Genre,
		Level:        run.Level,
		CorrectCount: judgment.CorrectCount(),
		Total:        len(judgment.Results),
		WrongAnswers: judgment.WrongAnswers,
	}
	res.Passed = res.Total > 0 && res.CorrectCount == res.Total
	res.ShareText = LevelShareText(res)
	res.ShareURL = ShareIntent(res.ShareText, s.appURL)
	s.log.Info("level judged", "genre", run.Genre, "level", run.Level, "correct", res.CorrectCount, "total", res.Total)

	if !res.Passed {
		return res, nil
	}
	catalog := s.progression.Catalog()
	if next, ok := catalog.NextLevel(run.Level); ok {
		res.NextLevel = next
	}
	if s.issuer == nil {
		return res, nil
	}
	g, _ := catalog.GenreNumber(run.Genre)
	l, _ := catalog.LevelNumber(run.Level)
	cert, err := s.issuer.IssueCertificate(ctx, CertificateKey(g, l), run.Genre, run.Level)
	switch {
	case errors.Is(err, domain.ErrNicknameRequired):
		res.Warnings = append(res.Warnings, "set a nickname to receive certificates")
	case err != nil && cert.Key == "":
		s.log.Warn("certificate not recorded", "error", err)
		res.Warnings = append(res.Warnings, "certificate could not be saved")
	case err != nil:
		s.log.Warn("certificate image not rendered", "error", err)
		res.Warnings = append(res.Warnings, "certificate image could not be created")
		res.Certificate = &cert
	default:
		res.Certificate = &cert
	}
	return res, nil
}

// LevelShareText is the literal text offered for sharing a level result.
func LevelShareText(res LevelResult) string {
	if res.Passed {
		return fmt.Sprintf("I passed %s %s with a perfect %d/%d!", res.Genre, res.Level, res.CorrectCount, res.Total)
	}
	return fmt.Sprintf("I scored %d/%d on %s %s. %d to go!", res.CorrectCount, res.Total, res.Genre, res.Level, res.Total-res.CorrectCount)
}
