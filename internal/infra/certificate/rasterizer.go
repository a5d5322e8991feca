// Package certificate renders pass certificates as PNG files.
package certificate

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"quiz-gauntlet/internal/app"
	"quiz-gauntlet/internal/logger"
)

const (
	width  = 1200
	height = 850

	titleSize = 64
	nameSize  = 56
	bodySize  = 30
)

var (
	paper  = color.NRGBA{R: 0xfb, G: 0xf7, B: 0xec, A: 0xff}
	gold   = color.NRGBA{R: 0xb8, G: 0x86, B: 0x0b, A: 0xff}
	ink    = color.NRGBA{R: 0x2c, G: 0x3e, B: 0x50, A: 0xff}
	subtle = color.NRGBA{R: 0x7f, G: 0x8c, B: 0x8d, A: 0xff}
)

// Rasterizer draws certificates and writes them to a directory.
type Rasterizer struct {
	outDir string
	faces  map[float64]font.Face
	log    *logger.Logger
}

var _ app.Rasterizer = (*Rasterizer)(nil)

// New prepares a rasterizer. fontPath may point to a TrueType font with CJK
// glyphs; without it a built-in bitmap face is used, which only covers ASCII.
func New(outDir, fontPath string, log *logger.Logger) (*Rasterizer, error) {
	if log == nil {
		log = logger.Nop()
	}
	r := &Rasterizer{outDir: outDir, faces: map[float64]font.Face{}, log: log.With("component", "certificate")}
	if strings.TrimSpace(fontPath) == "" {
		r.log.Warn("no certificate font configured, falling back to the bitmap face")
		return r, nil
	}
	r.log.Info("loading certificate font", "font", fontPath)
	for _, size := range []float64{titleSize, nameSize, bodySize} {
		face, err := loadFontFace(fontPath, size)
		if err != nil {
			return nil, fmt.Errorf("could not load certificate font: %w", err)
		}
		r.faces[size] = face
	}
	return r, nil
}

// Render writes <outDir>/<key>.png and returns its path.
func (r *Rasterizer) Render(ctx context.Context, req app.CertificateRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	buf, err := r.Draw(req)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(r.outDir, 0o755); err != nil {
		return "", fmt.Errorf("create certificate dir: %w", err)
	}
	path := filepath.Join(r.outDir, "certificate_"+sanitize(req.Key)+".png")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write certificate: %w", err)
	}
	r.log.Debug("certificate written", "path", path)
	return path, nil
}

// Draw renders the certificate into an in-memory PNG.
func (r *Rasterizer) Draw(req app.CertificateRequest) (bytes.Buffer, error) {
	dc := gg.NewContext(width, height)

	dc.SetColor(paper)
	dc.DrawRectangle(0, 0, width, height)
	dc.Fill()

	dc.SetColor(gold)
	dc.SetLineWidth(12)
	dc.DrawRectangle(30, 30, width-60, height-60)
	dc.Stroke()
	dc.SetLineWidth(3)
	dc.DrawRectangle(55, 55, width-110, height-110)
	dc.Stroke()

	cx := float64(width) / 2

	r.setFace(dc, titleSize)
	dc.SetColor(gold)
	dc.DrawStringAnchored("CERTIFICATE OF ACHIEVEMENT", cx, 190, 0.5, 0.5)

	r.setFace(dc, bodySize)
	dc.SetColor(subtle)
	dc.DrawStringAnchored("This certifies that", cx, 300, 0.5, 0.5)

	r.setFace(dc, nameSize)
	dc.SetColor(ink)
	dc.DrawStringAnchored(req.Nickname, cx, 390, 0.5, 0.5)
	dc.SetColor(gold)
	dc.SetLineWidth(2)
	dc.DrawLine(cx-300, 440, cx+300, 440)
	dc.Stroke()

	r.setFace(dc, bodySize)
	dc.SetColor(ink)
	dc.DrawStringAnchored("has passed", cx, 510, 0.5, 0.5)
	dc.DrawStringAnchored(strings.TrimSpace(req.Genre+" "+req.Level), cx, 570, 0.5, 0.5)

	dc.SetColor(subtle)
	dc.DrawStringAnchored(req.Date, cx, 700, 0.5, 0.5)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return bytes.Buffer{}, fmt.Errorf("encode certificate: %w", err)
	}
	return buf, nil
}

func (r *Rasterizer) setFace(dc *gg.Context, size float64) {
	if face, ok := r.faces[size]; ok {
		dc.SetFontFace(face)
		return
	}
	dc.SetFontFace(basicfont.Face7x13)
}

func loadFontFace(fontPath string, size float64) (font.Face, error) {
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read font file: %w", err)
	}
	parsedFont, err := truetype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TTF: %w", err)
	}
	face := truetype.NewFace(parsedFont, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	return face, nil
}

func sanitize(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, key)
}
