package certificate

import (
	"bytes"
	"context"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-gauntlet/internal/app"
)

func TestRenderWritesPNG(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "certs")
	r, err := New(dir, "", nil)
	require.NoError(t, err)

	path, err := r.Render(context.Background(), app.CertificateRequest{
		Key:      "2-3",
		Nickname: "Taro",
		Genre:    "Genre 2",
		Level:    "Advanced",
		Date:     "2025/03/01",
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "certificate_2-3.png"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, width, img.Bounds().Dx())
	assert.Equal(t, height, img.Bounds().Dy())
}

func TestRenderHonoursCancelledContext(t *testing.T) {
	r, err := New(t.TempDir(), "", nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = r.Render(ctx, app.CertificateRequest{Key: "ex"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRejectsMissingFont(t *testing.T) {
	_, err := New(t.TempDir(), filepath.Join(t.TempDir(), "missing.ttf"), nil)
	assert.Error(t, err)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "1-2", sanitize("1-2"))
	assert.Equal(t, "___etc_passwd", sanitize("../etc/passwd"))
}
