package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-gauntlet/internal/answer"
	"quiz-gauntlet/internal/app"
	"quiz-gauntlet/internal/domain"
	"quiz-gauntlet/internal/infra/memory"
)

type levelFixture struct {
	kv          *memory.KVStore
	profile     *app.Profile
	progression *app.Progression
	raster      *recordingRasterizer
	service     *app.LevelService
}

func levelSet(genre, level string) domain.QuestionSet {
	return domain.QuestionSet{
		Key: domain.LevelSetKey(genre, level),
		Questions: []domain.Question{
			{ID: "l1", Prompt: "2+2", SelectionType: domain.SelectionSingle, ChoiceA: "3", ChoiceB: "4", AnswerDigest: answer.Digest("4")},
			{ID: "l2", Prompt: "Evens", SelectionType: domain.SelectionMultiple, ChoiceA: "1", ChoiceB: "2", ChoiceC: "3", ChoiceD: "4", AnswerDigest: answer.Digest("2,4")},
			{ID: "l3", Prompt: "Capital of Japan", SelectionType: domain.SelectionInput, AnswerDigest: answer.Digest("TOKYO")},
		},
	}
}

func newLevelFixture(t *testing.T) levelFixture {
	t.Helper()
	kv := memory.NewKVStore()
	catalog := app.DefaultCatalog()
	repo := memory.NewQuestionRepository(memory.NewStaticQuestionLoader(
		levelSet("Genre 1", "Beginner"),
		levelSet("Genre 1", "Advanced"),
		levelSet("Genre 1", "Ultra"),
	), time.Minute, catalog.Ultra)

	f := levelFixture{
		kv:          kv,
		profile:     app.NewProfile(kv, nil),
		progression: app.NewProgression(kv, catalog),
		raster:      &recordingRasterizer{},
	}
	presenter := app.NewResultPresenter(app.NewBestScoreStore(kv), f.profile, f.progression,
		app.WithRasterizer(f.raster),
		app.WithPresenterClock(func() time.Time { return epoch }),
	)
	f.service = app.NewLevelService(repo, app.NewDigestJudge(repo, catalog), f.progression, f.profile, presenter, "", nil)
	_, err := f.profile.SetNickname(context.Background(), "Taro")
	require.NoError(t, err)
	return f
}

func answerAll(t *testing.T, run *app.LevelRun) {
	t.Helper()
	require.True(t, run.Jump(0))
	require.NoError(t, run.Select("4"))
	run.Next()
	require.NoError(t, run.Select("4"))
	require.NoError(t, run.Select("2"))
	run.Next()
	require.NoError(t, run.Input("tokyo"))
}

func TestLevelRunNavigation(t *testing.T) {
	f := newLevelFixture(t)
	run, err := f.service.Start(context.Background(), "Genre 1", "Beginner")
	require.NoError(t, err)

	assert.False(t, run.Previous())
	assert.True(t, run.Next())
	assert.True(t, run.Next())
	assert.False(t, run.Next())
	assert.Equal(t, 2, run.Cursor())
	assert.False(t, run.Jump(3))
	assert.True(t, run.Jump(1))
	assert.Equal(t, "l2", run.Current().ID)

	assert.ErrorIs(t, run.Input("typed"), domain.ErrUnknownChoice, "choice questions take no free text")
	assert.ErrorIs(t, run.Select("7"), domain.ErrUnknownChoice)
}

func TestLevelRunAnswersShape(t *testing.T) {
	f := newLevelFixture(t)
	run, _ := f.service.Start(context.Background(), "Genre 1", "Beginner")

	require.NoError(t, run.Select("3"))
	require.NoError(t, run.Select("4"))
	run.Next()
	require.NoError(t, run.Select("2"))
	require.NoError(t, run.Select("4"))
	require.NoError(t, run.Select("2"))
	assert.False(t, run.AllAnswered())

	assert.Equal(t, []app.SubmittedAnswer{
		{QuestionID: "l1", Answer: "4"},
		{QuestionID: "l2", Answer: []string{"4"}},
		{QuestionID: "l3"},
	}, run.Answers())

	_, err := f.service.Submit(context.Background(), run)
	assert.ErrorIs(t, err, domain.ErrIncomplete)
}

func TestLevelPassIssuesCertificateAndUnlocksNext(t *testing.T) {
	ctx := context.Background()
	f := newLevelFixture(t)

	_, err := f.service.Start(ctx, "Genre 1", "Intermediate")
	require.ErrorIs(t, err, domain.ErrLocked)

	run, err := f.service.Start(ctx, "Genre 1", "Beginner")
	require.NoError(t, err)
	answerAll(t, run)
	require.True(t, run.AllAnswered())

	res, err := f.service.Submit(ctx, run)
	require.NoError(t, err)
	assert.True(t, res.Passed)
	assert.Equal(t, 3, res.CorrectCount)
	assert.Equal(t, "Intermediate", res.NextLevel)
	require.NotNil(t, res.Certificate)
	assert.Equal(t, "1-1", res.Certificate.Key)
	assert.Equal(t, "certificates/1-1.png", res.Certificate.ImageRef)
	assert.Empty(t, res.Warnings)

	open, err := f.progression.Unlocked(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, open)
}

func TestLevelFailReportsWrongAnswers(t *testing.T) {
	ctx := context.Background()
	f := newLevelFixture(t)
	run, _ := f.service.Start(ctx, "Genre 1", "Beginner")
	answerAll(t, run)
	run.Jump(2)
	require.NoError(t, run.Input("Osaka"))

	res, err := f.service.Submit(ctx, run)
	require.NoError(t, err)
	assert.False(t, res.Passed)
	assert.Equal(t, 2, res.CorrectCount)
	require.Len(t, res.WrongAnswers, 1)
	assert.Equal(t, domain.WrongAnswer{QuestionNumber: 3, Question: "Capital of Japan", UserAnswer: "Osaka"}, res.WrongAnswers[0])
	assert.Nil(t, res.Certificate)
	assert.Contains(t, res.ShareText, "1 to go")
	assert.Empty(t, f.raster.reqs)
}

func TestUltraLevelUsesUltraQuestions(t *testing.T) {
	ctx := context.Background()
	f := newLevelFixture(t)

	_, err := f.service.Start(ctx, "Genre 1", "Ultra")
	require.ErrorIs(t, err, domain.ErrLocked)

	_, err = f.progression.RecordCertificate(ctx, app.CertificateKey(1, 3), "Taro", epoch)
	require.NoError(t, err)
	run, err := f.service.Start(ctx, "Genre 1", "Ultra")
	require.NoError(t, err)
	answerAll(t, run)

	res, err := f.service.Submit(ctx, run)
	require.NoError(t, err)
	assert.True(t, res.Passed)
	assert.Empty(t, res.NextLevel)
	assert.Equal(t, "1-4", res.Certificate.Key)
}

func TestLevelStartErrors(t *testing.T) {
	f := newLevelFixture(t)
	_, err := f.service.Start(context.Background(), "Genre 9", "Beginner")
	assert.Error(t, err)
	_, err = f.service.Start(context.Background(), "Genre 2", "Beginner")
	assert.ErrorIs(t, err, domain.ErrQuestionsUnavailable)
}
