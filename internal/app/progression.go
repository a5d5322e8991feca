package app

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"quiz-gauntlet/internal/domain"
)

const (
	certificatePrefix = "cert_"
	// ExtraCertificateKey identifies the extra-stage certificate.
	ExtraCertificateKey = "ex"
	// CertificateDateLayout is how completion dates are printed on certificates.
	CertificateDateLayout = "2006/01/02"
)

// Catalog names the genres and levels. Names are what the remote API expects.
type Catalog struct {
	Genres []string
	Levels []string
	Ultra  string
}

func DefaultCatalog() Catalog {
	return Catalog{
		Genres: []string{"Genre 1", "Genre 2", "Genre 3", "Genre 4", "Genre 5", "Genre 6"},
		Levels: []string{"Beginner", "Intermediate", "Advanced"},
		Ultra:  "Ultra",
	}
}

// GenreNumber is the 1-based position of genre.
func (c Catalog) GenreNumber(genre string) (int, bool) {
	for i, g := range c.Genres {
		if g == genre {
			return i + 1, true
		}
	}
	return 0, false
}

// LevelNumber is the 1-based level; the ultra level follows the regular ones.
func (c Catalog) LevelNumber(level string) (int, bool) {
	if level == c.Ultra && c.Ultra != "" {
		return len(c.Levels) + 1, true
	}
	for i, l := range c.Levels {
		if l == level {
			return i + 1, true
		}
	}
	return 0, false
}

func (c Catalog) UltraNumber() int { return len(c.Levels) + 1 }

// NextLevel is the level a pass at level unlocks, if any.
func (c Catalog) NextLevel(level string) (string, bool) {
	n, ok := c.LevelNumber(level)
	if !ok || n >= c.UltraNumber() {
		return "", false
	}
	if n == len(c.Levels) {
		return c.Ultra, c.Ultra != ""
	}
	return c.Levels[n], true
}

// CertificateKey identifies the certificate for a genre/level pair, e.g. "2-3".
func CertificateKey(genre, level int) string {
	return fmt.Sprintf("%d-%d", genre, level)
}

// Progression records passed levels and derives which levels are unlocked.
type Progression struct {
	kv      KeyValueStore
	catalog Catalog
}

func NewProgression(kv KeyValueStore, catalog Catalog) *Progression {
	return &Progression{kv: kv, catalog: catalog}
}

func (p *Progression) Catalog() Catalog { return p.catalog }

// Certificate loads the metadata stored for key. Unreadable entries count as absent.
func (p *Progression) Certificate(ctx context.Context, key string) (domain.CertificateMetadata, bool, error) {
	raw, err := p.kv.Get(ctx, certificatePrefix+key)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.CertificateMetadata{}, false, nil
	}
	if err != nil {
		return domain.CertificateMetadata{}, false, fmt.Errorf("load certificate %s: %w", key, err)
	}
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return domain.CertificateMetadata{}, false, nil
	}
	var meta domain.CertificateMetadata
	if err := json.Unmarshal(decoded, &meta); err != nil {
		return domain.CertificateMetadata{}, false, nil
	}
	return meta, true, nil
}

// RecordCertificate stores metadata for a passed level.
func (p *Progression) RecordCertificate(ctx context.Context, key, nickname string, at time.Time) (domain.CertificateMetadata, error) {
	meta := domain.CertificateMetadata{
		Nickname:  nickname,
		Date:      at.Format(CertificateDateLayout),
		Timestamp: at.UnixMilli(),
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return meta, fmt.Errorf("encode certificate: %w", err)
	}
	if err := p.kv.Set(ctx, certificatePrefix+key, base64.StdEncoding.EncodeToString(data)); err != nil {
		return meta, fmt.Errorf("save certificate %s: %w", key, err)
	}
	return meta, nil
}

// Unlocked reports whether genre/level may be played. The first level is always
// open; every other level needs the certificate of the level before it.
func (p *Progression) Unlocked(ctx context.Context, genre, level int) (bool, error) {
	if level <= 1 {
		return true, nil
	}
	if level > p.catalog.UltraNumber() {
		return false, nil
	}
	_, ok, err := p.Certificate(ctx, CertificateKey(genre, level-1))
	return ok, err
}

// ExtraUnlocked reports whether the top regular level of every genre has been passed.
func (p *Progression) ExtraUnlocked(ctx context.Context) (bool, error) {
	top := len(p.catalog.Levels)
	for g := range p.catalog.Genres {
		_, ok, err := p.Certificate(ctx, CertificateKey(g+1, top))
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}
