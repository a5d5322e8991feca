// Package api talks to the remote question and scoring service. Every call is
// a JSON POST {"action": ..., ...} except the health and config probes, which
// are GET ?path=...
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"quiz-gauntlet/internal/app"
	"quiz-gauntlet/internal/domain"
	"quiz-gauntlet/internal/logger"
)

const (
	actionExtraQuestions = "getExtraModeQuestions"
	actionLevelQuestions = "getQuestions"
	actionUltraQuestions = "getUltraModeQuestions"
	actionJudgeAnswers   = "judgeAnswers"
	actionSaveScore      = "saveScore"
	actionTopChallengers = "getTopChallengers"
	actionHallOfFame     = "getHallOfFame"
	defaultTimeout       = 15 * time.Second
	defaultReadRetries   = 2
	maxErrorBodyBytes    = 512
)

// DefaultLeaderboardGenre is the genre the remote leaderboard files extra-stage runs under.
const DefaultLeaderboardGenre = "エクストラステージ"

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http error: status %d", e.Code)
}

// RemoteError is an {"error": "..."} payload returned with a 2xx status.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string { return e.Message }

// Client implements the question, judging and score collaborators over HTTP.
type Client struct {
	baseURL    string
	http       *http.Client
	retries    uint64
	newBackOff func() backoff.BackOff
	log        *logger.Logger
	board      string
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRetries sets how often idempotent reads are retried on transport errors and 5xx.
func WithRetries(n uint64) Option {
	return func(c *Client) { c.retries = n }
}

// WithLeaderboardGenre sets the genre queried for the top-challengers board.
func WithLeaderboardGenre(genre string) Option {
	return func(c *Client) {
		if genre != "" {
			c.board = genre
		}
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		http:       &http.Client{Timeout: defaultTimeout},
		retries:    defaultReadRetries,
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
		log:        logger.Nop(),
		board:      DefaultLeaderboardGenre,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("component", "api")
	return c
}

var (
	_ app.QuestionSource      = (*Client)(nil)
	_ app.LevelQuestionSource = (*Client)(nil)
	_ app.Judge               = (*Client)(nil)
	_ app.ScoreRegistrar      = (*Client)(nil)
)

func (c *Client) ExtraStageQuestions(ctx context.Context, userID string) ([]domain.Question, error) {
	return c.questions(ctx, actionExtraQuestions, map[string]any{"userId": userID})
}

func (c *Client) LevelQuestions(ctx context.Context, genre, level, userID string) ([]domain.Question, error) {
	return c.questions(ctx, actionLevelQuestions, map[string]any{"genre": genre, "level": level, "userId": userID})
}

func (c *Client) UltraQuestions(ctx context.Context, genre, userID string) ([]domain.Question, error) {
	return c.questions(ctx, actionUltraQuestions, map[string]any{"genre": genre, "userId": userID})
}

func (c *Client) JudgeAnswers(ctx context.Context, genre, level string, answers []app.SubmittedAnswer, userID string) (domain.Judgment, error) {
	var out domain.Judgment
	err := c.post(ctx, actionJudgeAnswers, map[string]any{
		"genre":   genre,
		"level":   level,
		"answers": answers,
		"userId":  userID,
	}, &out)
	return out, err
}

// SubmitBestScore is never retried; the remote side has no idempotency key.
func (c *Client) SubmitBestScore(ctx context.Context, s domain.ScoreSubmission) error {
	payload := map[string]any{
		"browserId":      s.BrowserID,
		"nickname":       s.Nickname,
		"score":          s.CorrectCount,
		"totalQuestions": s.TotalQuestions,
		"genre":          s.Genre,
		"elapsedTimeMs":  s.ElapsedTimeMs,
	}
	return c.post(ctx, actionSaveScore, payload, nil)
}

// TopChallengers returns the extra-stage leaderboard.
func (c *Client) TopChallengers(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	var out struct {
		TopChallengers []domain.LeaderboardEntry `json:"topChallengers"`
	}
	err := c.retry(ctx, func() error {
		return c.post(ctx, actionTopChallengers, map[string]any{"genre": c.board, "level": ""}, &out)
	})
	return out.TopChallengers, err
}

// HallOfFame lists players who cleared the extra stage.
func (c *Client) HallOfFame(ctx context.Context) ([]domain.HallOfFameEntry, error) {
	var out struct {
		HallOfFame []domain.HallOfFameEntry `json:"hallOfFame"`
	}
	err := c.retry(ctx, func() error {
		return c.post(ctx, actionHallOfFame, map[string]any{}, &out)
	})
	return out.HallOfFame, err
}

// Ping checks that the service answers.
func (c *Client) Ping(ctx context.Context) error {
	return c.get(ctx, "ping", nil)
}

// Config fetches the remote application settings as raw JSON values.
func (c *Client) Config(ctx context.Context) (map[string]any, error) {
	out := map[string]any{}
	err := c.get(ctx, "config", &out)
	return out, err
}

func (c *Client) questions(ctx context.Context, action string, payload map[string]any) ([]domain.Question, error) {
	var raw json.RawMessage
	err := c.retry(ctx, func() error {
		return c.post(ctx, action, payload, &raw)
	})
	if err != nil {
		return nil, err
	}
	return decodeQuestions(raw)
}

// decodeQuestions accepts either a bare array or {"questions": [...]}.
func decodeQuestions(raw json.RawMessage) ([]domain.Question, error) {
	var list []domain.Question
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Questions []domain.Question `json:"questions"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	return wrapped.Questions, nil
}

func (c *Client) retry(ctx context.Context, op func() error) error {
	b := backoff.WithMaxRetries(c.newBackOff(), c.retries)
	return backoff.Retry(func() error {
		err := op()
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		if err != nil {
			c.log.Warn("api call failed, retrying", "error", err)
		}
		return err
	}, backoff.WithContext(b, ctx))
}

func retryable(err error) bool {
	var remote *RemoteError
	if errors.As(err, &remote) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var status *StatusError
	if errors.As(err, &status) {
		return status.Code >= 500
	}
	return true
}

func (c *Client) post(ctx context.Context, action string, payload map[string]any, out any) error {
	body := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		body[k] = v
	}
	body["action"] = action
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s: %w", action, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	// what browsers send for a string body
	req.Header.Set("Content-Type", "text/plain;charset=utf-8")
	return c.do(req, action, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("parse api url: %w", err)
	}
	q := u.Query()
	q.Set("path", path)
	u.RawQuery = q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	return c.do(req, path, out)
}

func (c *Client) do(req *http.Request, name string, out any) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read body: %w", name, err)
	}
	c.log.Debug("api call", "name", name, "status", resp.StatusCode, "took", time.Since(start))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(data) > maxErrorBodyBytes {
			data = data[:maxErrorBodyBytes]
		}
		return &StatusError{Code: resp.StatusCode, Body: string(data)}
	}

	var envelope struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &envelope) == nil && envelope.Error != "" {
		return &RemoteError{Message: envelope.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", name, err)
	}
	return nil
}
