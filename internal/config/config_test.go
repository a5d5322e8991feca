package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadYAMLWithEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9090"
redis:
  addr: localhost:6379
storage:
  driver: redis
extra:
  question_time: 15s
api:
  url: https://example.invalid/exec
`), 0o600))

	t.Setenv("QUIZ_API_URL", "https://override.invalid/exec")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "redis", cfg.Storage.Driver)
	assert.Equal(t, "quiz.db", cfg.Storage.Path)
	assert.Equal(t, "https://override.invalid/exec", cfg.API.URL)
	assert.Equal(t, 15*time.Second, TTLDuration(cfg.Extra.QuestionTime, 10*time.Second))
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "certificates", cfg.Certificate.OutDir)
	assert.Equal(t, "エクストラステージ", cfg.Quiz.ExtraGenre)
}

func TestTTLDuration(t *testing.T) {
	assert.Equal(t, time.Minute, TTLDuration("", time.Minute))
	assert.Equal(t, time.Minute, TTLDuration("garbage", time.Minute))
	assert.Equal(t, 3*time.Second, TTLDuration("3s", time.Minute))
}

func TestLoadCatalogFromEnv(t *testing.T) {
	t.Setenv("QUIZ_GENRES", "History,Science")
	t.Setenv("QUIZ_QUESTIONS_FILE", "questions.yaml")
	t.Setenv("QUIZ_EXTRA_GENRE", "Extra")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, []string{"History", "Science"}, cfg.Quiz.Genres)
	assert.Empty(t, cfg.Quiz.Levels)
	assert.Equal(t, "questions.yaml", cfg.Quiz.File)
	assert.Equal(t, "Extra", cfg.Quiz.ExtraGenre)
}
