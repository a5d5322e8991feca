package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-gauntlet/internal/app"
	"quiz-gauntlet/internal/domain"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := New(srv.URL, WithTimeout(2*time.Second))
	c.newBackOff = func() backoff.BackOff { return backoff.NewConstantBackOff(time.Millisecond) }
	return c
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	data, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	body := map[string]any{}
	require.NoError(t, json.Unmarshal(data, &body))
	return body
}

func TestExtraStageQuestionsPostsAction(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		body := decodeBody(t, r)
		assert.Equal(t, "getExtraModeQuestions", body["action"])
		assert.Equal(t, "browser_1_abc", body["userId"])
		_, _ = w.Write([]byte(`[{"id":"q1","question":"2+2","selectionType":"single","choiceA":"3","choiceB":"4","answerHash":"abc"}]`))
	})

	qs, err := c.ExtraStageQuestions(context.Background(), "browser_1_abc")
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Equal(t, domain.Question{
		ID: "q1", Prompt: "2+2", SelectionType: domain.SelectionSingle,
		ChoiceA: "3", ChoiceB: "4", AnswerDigest: "abc",
	}, qs[0])
}

func TestQuestionsAcceptWrappedPayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		assert.Equal(t, "getUltraModeQuestions", body["action"])
		assert.Equal(t, "Genre 2", body["genre"])
		_, _ = w.Write([]byte(`{"questions":[{"id":"u1","question":"?","selectionType":"input","answerHash":"x"}]}`))
	})

	qs, err := c.UltraQuestions(context.Background(), "Genre 2", "u")
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Equal(t, "u1", qs[0].ID)
}

func TestErrorFieldIsAnError(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"error":"sheet not found"}`))
	})

	_, err := c.LevelQuestions(context.Background(), "Genre 1", "Beginner", "u")
	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "sheet not found", remote.Message)
	assert.Equal(t, int32(1), calls.Load(), "remote errors are not retried")
}

func TestServerErrorsAreRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	})

	qs, err := c.ExtraStageQuestions(context.Background(), "u")
	require.NoError(t, err)
	assert.Empty(t, qs)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "nope", http.StatusForbidden)
	})

	_, err := c.ExtraStageQuestions(context.Background(), "u")
	var status *StatusError
	require.True(t, errors.As(err, &status))
	assert.Equal(t, http.StatusForbidden, status.Code)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSubmitBestScoreIsSentOnce(t *testing.T) {
	var calls atomic.Int32
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		got = decodeBody(t, r)
		http.Error(w, "down", http.StatusServiceUnavailable)
	})

	err := c.SubmitBestScore(context.Background(), domain.ScoreSubmission{
		BrowserID: "b", Nickname: "Taro", CorrectCount: 7, TotalQuestions: 10, Genre: "extra", ElapsedTimeMs: 1234,
	})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "saveScore", got["action"])
	assert.Equal(t, float64(7), got["score"])
	assert.Equal(t, float64(1234), got["elapsedTimeMs"])
	assert.Equal(t, "extra", got["genre"])
}

func TestJudgeAnswers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		assert.Equal(t, "judgeAnswers", body["action"])
		answers := body["answers"].([]any)
		require.Len(t, answers, 2)
		assert.Equal(t, map[string]any{"questionId": "q2", "answer": []any{"A", "C"}}, answers[1])
		_, _ = w.Write([]byte(`{"results":[true,false],"wrongAnswers":[{"questionNumber":2,"question":"Pick","userAnswer":"A,C"}]}`))
	})

	j, err := c.JudgeAnswers(context.Background(), "Genre 1", "Beginner", []app.SubmittedAnswer{
		{QuestionID: "q1", Answer: "B"},
		{QuestionID: "q2", Answer: []string{"A", "C"}},
	}, "u")
	require.NoError(t, err)
	assert.Equal(t, 1, j.CorrectCount())
	require.Len(t, j.WrongAnswers, 1)
	assert.Equal(t, 2, j.WrongAnswers[0].QuestionNumber)
}

func TestLeaderboards(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch decodeBody(t, r)["action"] {
		case "getTopChallengers":
			_, _ = w.Write([]byte(`{"topChallengers":[{"nickname":"Taro","score":10,"clearTime":61.5,"date":"2025/03/01"}]}`))
		case "getHallOfFame":
			_, _ = w.Write([]byte(`{"hallOfFame":[{"nickname":"Hanako","time":93000,"completionDate":"2025/02/11"}]}`))
		default:
			http.Error(w, "unknown", http.StatusBadRequest)
		}
	})

	top, err := c.TopChallengers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.LeaderboardEntry{{Nickname: "Taro", Score: 10, ClearTime: 61.5, Date: "2025/03/01"}}, top)

	hof, err := c.HallOfFame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.HallOfFameEntry{{Nickname: "Hanako", Time: 93000, CompletionDate: "2025/02/11"}}, hof)
}

func TestTopChallengersQueriesLeaderboardGenre(t *testing.T) {
	var genres []any
	handler := func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		assert.Equal(t, "getTopChallengers", body["action"])
		assert.Equal(t, "", body["level"])
		genres = append(genres, body["genre"])
		_, _ = w.Write([]byte(`{"topChallengers":[]}`))
	}

	_, err := newTestClient(t, handler).TopChallengers(context.Background())
	require.NoError(t, err)

	c := newTestClient(t, handler)
	WithLeaderboardGenre("Extra")(c)
	_, err = c.TopChallengers(context.Background())
	require.NoError(t, err)

	WithLeaderboardGenre("")(c)
	_, err = c.TopChallengers(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []any{DefaultLeaderboardGenre, "Extra", "Extra"}, genres)
}

func TestPingUsesGetPath(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		switch r.URL.Query().Get("path") {
		case "ping":
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		case "config":
			_, _ = w.Write([]byte(`{"questionTime":10}`))
		}
	})

	require.NoError(t, c.Ping(context.Background()))
	cfg, err := c.Config(context.Background())
	require.NoError(t, err)
	assert.Equal(t, float64(10), cfg["questionTime"])
}
