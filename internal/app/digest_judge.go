package app

import (
	"context"
	"fmt"
	"strings"

	"quiz-gauntlet/internal/answer"
	"quiz-gauntlet/internal/domain"
)

// DigestJudge grades a standard-mode batch locally against the answer digests
// of the level's question set. It stands in for the remote judge when questions
// come from a local question bank.
type DigestJudge struct {
	questions LevelQuestionSource
	ultra     string
}

func NewDigestJudge(questions LevelQuestionSource, catalog Catalog) *DigestJudge {
	return &DigestJudge{questions: questions, ultra: catalog.Ultra}
}

func (j *DigestJudge) JudgeAnswers(ctx context.Context, genre, level string, answers []SubmittedAnswer, userID string) (domain.Judgment, error) {
	var (
		questions []domain.Question
		err       error
	)
	if level == j.ultra && j.ultra != "" {
		questions, err = j.questions.UltraQuestions(ctx, genre, userID)
	} else {
		questions, err = j.questions.LevelQuestions(ctx, genre, level, userID)
	}
	if err != nil {
		return domain.Judgment{}, err
	}
	byID := make(map[string]domain.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	out := domain.Judgment{Results: make([]bool, len(answers))}
	for i, sub := range answers {
		q, ok := byID[sub.QuestionID]
		if !ok {
			return domain.Judgment{}, fmt.Errorf("unknown question %q", sub.QuestionID)
		}
		a := toAnswer(sub.Answer)
		correct := false
		if !a.Empty() {
			if correct, err = answer.Matches(a, q.AnswerDigest); err != nil {
				return domain.Judgment{}, err
			}
		}
		out.Results[i] = correct
		if !correct {
			out.WrongAnswers = append(out.WrongAnswers, domain.WrongAnswer{
				QuestionNumber: i + 1,
				Question:       q.Prompt,
				UserAnswer:     strings.Join(a.Values, ", "),
			})
		}
	}
	return out, nil
}

func toAnswer(v any) domain.Answer {
	switch t := v.(type) {
	case string:
		return domain.SingleAnswer(t)
	case []string:
		return domain.MultiAnswer(t...)
	case []any:
		vals := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				vals = append(vals, s)
			}
		}
		return domain.MultiAnswer(vals...)
	}
	return domain.Answer{}
}
