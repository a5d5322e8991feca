package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-gauntlet/internal/app"
	"quiz-gauntlet/internal/config"
)

func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(`
log:
  mode: prod
storage:
  driver: sqlite
  path: %s
certificate:
  out_dir: %s
%s`, filepath.Join(dir, "quiz.db"), filepath.Join(dir, "certs"), extra)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestResolveName(t *testing.T) {
	names := []string{"Beginner", "Intermediate", "Advanced", "Ultra"}
	cases := []struct {
		arg  string
		want string
		ok   bool
	}{
		{"1", "Beginner", true},
		{"4", "Ultra", true},
		{"advanced", "Advanced", true},
		{"0", "", false},
		{"5", "", false},
		{"Expert", "", false},
	}
	for _, tc := range cases {
		got, ok := resolveName(names, tc.arg)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("resolveName(%q) = %q, %v; want %q, %v", tc.arg, got, ok, tc.want, tc.ok)
		}
	}
}

func TestCatalogFromConfig(t *testing.T) {
	c := catalogFrom(config.QuizConfig{Genres: []string{"History"}})
	assert.Equal(t, []string{"History"}, c.Genres)
	assert.Equal(t, app.DefaultCatalog().Levels, c.Levels)
	assert.Equal(t, "Ultra", c.Ultra)
}

func TestNicknamePersistsAcrossCommands(t *testing.T) {
	ctx := context.Background()
	path := writeConfig(t, "")

	var out bytes.Buffer
	require.NoError(t, runNickname(ctx, &out, path, ""))
	assert.Contains(t, out.String(), "No nickname yet")

	out.Reset()
	require.NoError(t, runNickname(ctx, &out, path, " Taro "))
	assert.Equal(t, "Nickname set to Taro\n", out.String())

	out.Reset()
	require.NoError(t, runNickname(ctx, &out, path, ""))
	assert.Equal(t, "Taro\n", out.String())

	err := runNickname(ctx, &out, path, "much-too-long-name")
	require.Error(t, err)

	out.Reset()
	require.NoError(t, runReset(ctx, &out, path))
	out.Reset()
	require.NoError(t, runNickname(ctx, &out, path, ""))
	assert.Contains(t, out.String(), "No nickname yet")
}

func TestBestPrintsLeaderboards(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		_ = json.Unmarshal(body, &req)
		switch req["action"] {
		case "getTopChallengers":
			_, _ = w.Write([]byte(`{"topChallengers":[{"nickname":"Hana","score":10,"clearTime":42.5,"date":"2025/03/01"}]}`))
		case "getHallOfFame":
			_, _ = w.Write([]byte(`{"hallOfFame":[{"nickname":"Ken","time":61000,"completionDate":"2025/02/11"}]}`))
		default:
			http.Error(w, "unexpected action", http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	path := writeConfig(t, fmt.Sprintf("api:\n  url: %s\n", srv.URL))
	var out bytes.Buffer
	require.NoError(t, runBest(context.Background(), &out, path))

	text := out.String()
	assert.Contains(t, text, "no extra-stage run registered yet")
	assert.Contains(t, text, "Hana")
	assert.Contains(t, text, "42.500s")
	assert.Contains(t, text, "Ken")
	assert.Contains(t, text, "1m01.000s")
}

func TestResetNeedsConfirmation(t *testing.T) {
	cmd := NewResetCmd(new(string))
	cmd.SetArgs([]string{})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")
}

func TestQuestionsNeedASource(t *testing.T) {
	b, err := openBackend(context.Background(), writeConfig(t, ""), false)
	require.NoError(t, err)
	defer b.Close()

	_, _, err = b.questions()
	assert.ErrorIs(t, err, errNoQuestionSource)
}
