package app

import (
	"context"

	"quiz-gauntlet/internal/domain"
)

// QuestionSource supplies the fixed, ordered extra-stage question list.
type QuestionSource interface {
	ExtraStageQuestions(ctx context.Context, userID string) ([]domain.Question, error)
}

// LevelQuestionSource supplies questions for the standard genre/level mode.
type LevelQuestionSource interface {
	LevelQuestions(ctx context.Context, genre, level, userID string) ([]domain.Question, error)
	UltraQuestions(ctx context.Context, genre, userID string) ([]domain.Question, error)
}

// Judge grades a whole standard-mode submission remotely.
type Judge interface {
	JudgeAnswers(ctx context.Context, genre, level string, answers []SubmittedAnswer, userID string) (domain.Judgment, error)
}

// KeyValueStore is the device-scoped persistent store (nickname, device id,
// best score, certificates). Get returns domain.ErrNotFound for missing keys.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// RunRepository tracks the single active extra-stage run per owner.
type RunRepository interface {
	// Put stores run and returns the run it replaced, if any.
	Put(ownerID string, run *ExtraStageRun) *ExtraStageRun
	Get(ownerID string) (*ExtraStageRun, bool)
	// Delete removes the owner's run only if it is still run.
	Delete(ownerID string, run *ExtraStageRun)
}

// ScoreRegistrar publishes a best score to the remote leaderboard.
type ScoreRegistrar interface {
	SubmitBestScore(ctx context.Context, submission domain.ScoreSubmission) error
}

// CertificateRequest is everything the rasterizer needs for one certificate.
type CertificateRequest struct {
	Key      string
	Nickname string
	Genre    string
	Level    string
	Date     string
}

// Rasterizer turns a certificate request into an image and returns a reference to it.
type Rasterizer interface {
	Render(ctx context.Context, req CertificateRequest) (string, error)
}
