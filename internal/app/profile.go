package app

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"quiz-gauntlet/internal/domain"
	"quiz-gauntlet/internal/logger"
)

const (
	NicknameKey  = "quiz_nickname"
	BrowserIDKey = "quiz_browser_id"

	MaxNicknameLength = 10
)

var nicknamePattern = regexp.MustCompile(`^[a-zA-Z0-9ぁ-んァ-ヶー一-龠々\s\p{Zs}]+$`)

// ValidateNickname checks a trimmed nickname against the length limit and the
// allowed character set.
func ValidateNickname(nickname string) error {
	switch {
	case strings.TrimSpace(nickname) == "":
		return fmt.Errorf("%w: nickname is required", domain.ErrInvalidNickname)
	case utf8.RuneCountInString(nickname) > MaxNicknameLength:
		return fmt.Errorf("%w: at most %d characters", domain.ErrInvalidNickname, MaxNicknameLength)
	case !nicknamePattern.MatchString(nickname):
		return fmt.Errorf("%w: contains characters that are not allowed", domain.ErrInvalidNickname)
	}
	return nil
}

// Profile holds the player's identity on this device.
type Profile struct {
	kv    KeyValueStore
	log   *logger.Logger
	now   func() time.Time
	newID func() string
}

func NewProfile(kv KeyValueStore, log *logger.Logger) *Profile {
	if log == nil {
		log = logger.Nop()
	}
	return &Profile{kv: kv, log: log, now: time.Now, newID: uuid.NewString}
}

// Nickname returns the saved nickname or domain.ErrNicknameRequired.
func (p *Profile) Nickname(ctx context.Context) (string, error) {
	name, err := p.kv.Get(ctx, NicknameKey)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && name == "") {
		return "", domain.ErrNicknameRequired
	}
	if err != nil {
		return "", fmt.Errorf("load nickname: %w", err)
	}
	return name, nil
}

// SetNickname validates and stores nickname, returning the stored form.
func (p *Profile) SetNickname(ctx context.Context, nickname string) (string, error) {
	nickname = strings.TrimSpace(nickname)
	if err := ValidateNickname(nickname); err != nil {
		return "", err
	}
	if err := p.kv.Set(ctx, NicknameKey, nickname); err != nil {
		return "", fmt.Errorf("save nickname: %w", err)
	}
	return nickname, nil
}

// BrowserID returns the stable device identifier, creating it on first use.
// When storage is unavailable a fresh identifier is returned for this call only.
func (p *Profile) BrowserID(ctx context.Context) (string, error) {
	id, err := p.kv.Get(ctx, BrowserIDKey)
	if err == nil && id != "" {
		return id, nil
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		p.log.Warn("browser id unavailable, using an ephemeral one", "error", err)
		return p.generateID(), nil
	}
	id = p.generateID()
	if err := p.kv.Set(ctx, BrowserIDKey, id); err != nil {
		p.log.Warn("browser id not persisted", "error", err)
	}
	return id, nil
}

// Reset erases every locally stored value: nickname, device id, best score and certificates.
func (p *Profile) Reset(ctx context.Context) error {
	if err := p.kv.Clear(ctx); err != nil {
		return fmt.Errorf("clear storage: %w", err)
	}
	return nil
}

func (p *Profile) generateID() string {
	suffix := strings.ReplaceAll(p.newID(), "-", "")
	if len(suffix) > 13 {
		suffix = suffix[:13]
	}
	return fmt.Sprintf("browser_%d_%s", p.now().UnixMilli(), suffix)
}
