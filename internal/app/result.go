package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"quiz-gauntlet/internal/domain"
	"quiz-gauntlet/internal/logger"
)

const (
	shareIntentURL  = "https://twitter.com/intent/tweet"
	extraStageLabel = "Extra Stage"
)

// Presentation is everything a front end needs to render a finished run.
type Presentation struct {
	Result              domain.ExtraStageResult `json:"result"`
	Score               domain.BestScore        `json:"score"`
	PreviousBest        *domain.BestScore       `json:"previousBest,omitempty"`
	IsNewBest           bool                    `json:"isNewBest"`
	ShareText           string                  `json:"shareText"`
	ShareURL            string                  `json:"shareUrl"`
	CertificateEligible bool                    `json:"certificateEligible"`
	Warnings            []string                `json:"warnings,omitempty"`
}

// RegisterOutcome reports what an explicit "register best score" action did.
type RegisterOutcome struct {
	SavedLocal      bool  `json:"savedLocal"`
	SubmittedRemote bool  `json:"submittedRemote"`
	LocalErr        error `json:"-"`
	RemoteErr       error `json:"-"`
}

// Certificate is an issued certificate image.
type Certificate struct {
	Key      string                     `json:"key"`
	ImageRef string                     `json:"imageRef"`
	Metadata domain.CertificateMetadata `json:"metadata"`
}

// ResultPresenter turns terminal runs into presentations and performs the
// user-requested side effects. Nothing is persisted by Present itself.
type ResultPresenter struct {
	best        *BestScoreStore
	profile     *Profile
	progression *Progression
	scores      ScoreRegistrar
	rasterizer  Rasterizer
	appURL      string
	now         func() time.Time
	log         *logger.Logger
}

type PresenterOption func(*ResultPresenter)

func WithScoreRegistrar(r ScoreRegistrar) PresenterOption {
	return func(p *ResultPresenter) { p.scores = r }
}

func WithRasterizer(r Rasterizer) PresenterOption {
	return func(p *ResultPresenter) { p.rasterizer = r }
}

// WithAppURL sets the link attached to shared results.
func WithAppURL(u string) PresenterOption {
	return func(p *ResultPresenter) { p.appURL = u }
}

func WithPresenterLogger(l *logger.Logger) PresenterOption {
	return func(p *ResultPresenter) { p.log = l }
}

func WithPresenterClock(now func() time.Time) PresenterOption {
	return func(p *ResultPresenter) { p.now = now }
}

func NewResultPresenter(best *BestScoreStore, profile *Profile, progression *Progression, opts ...PresenterOption) *ResultPresenter {
	p := &ResultPresenter{
		best:        best,
		profile:     profile,
		progression: progression,
		now:         time.Now,
		log:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.With("component", "ResultPresenter")
	return p
}

// Present compares res against the stored best. Storage problems are reported as
// warnings; the presentation is always produced.
func (p *ResultPresenter) Present(ctx context.Context, res domain.ExtraStageResult) Presentation {
	score := ScoreOf(res)
	pr := Presentation{
		Result:              res,
		Score:               score,
		CertificateEligible: res.Perfect(),
	}

	prior, hasPrior, err := p.best.Load(ctx)
	if err != nil {
		p.log.Warn("best score unavailable", "error", err)
		pr.Warnings = append(pr.Warnings, "previous best score could not be read")
		hasPrior = false
	}
	if hasPrior {
		prev := prior
		pr.PreviousBest = &prev
	}
	pr.IsNewBest = IsNewBest(score, prior, hasPrior)
	pr.ShareText = ExtraStageShareText(res)
	pr.ShareURL = ShareIntent(pr.ShareText, p.appURL)
	return pr
}

// RegisterBest is the explicit "register best score" action. The local record is
// only replaced by a strictly better run; the remote submission is optional.
func (p *ResultPresenter) RegisterBest(ctx context.Context, pr Presentation, remote bool) RegisterOutcome {
	var out RegisterOutcome

	prior, hasPrior, err := p.best.Load(ctx)
	switch {
	case err != nil:
		out.LocalErr = err
	case IsNewBest(pr.Score, prior, hasPrior):
		if err := p.best.Save(ctx, pr.Score); err != nil {
			out.LocalErr = err
		} else {
			out.SavedLocal = true
		}
	}
	if out.LocalErr != nil {
		p.log.Warn("best score not saved locally", "error", out.LocalErr)
	}

	if remote {
		out.RemoteErr = p.submitRemote(ctx, pr)
		out.SubmittedRemote = out.RemoteErr == nil
		if out.RemoteErr != nil {
			p.log.Warn("best score not registered remotely", "error", out.RemoteErr)
		}
	}
	return out
}

func (p *ResultPresenter) submitRemote(ctx context.Context, pr Presentation) error {
	if p.scores == nil {
		return errors.New("score registration is not configured")
	}
	nickname, err := p.profile.Nickname(ctx)
	if err != nil {
		return err
	}
	browserID, err := p.profile.BrowserID(ctx)
	if err != nil {
		return err
	}
	return p.scores.SubmitBestScore(ctx, domain.ScoreSubmission{
		BrowserID:      browserID,
		Nickname:       nickname,
		CorrectCount:   pr.Score.CorrectCount,
		TotalQuestions: pr.Result.Total,
		Genre:          ExtraGenre,
		ElapsedTimeMs:  pr.Score.ElapsedTimeMs,
	})
}

// IssueCertificate renders a certificate for a passed level and records its
// metadata, which unlocks the next level.
func (p *ResultPresenter) IssueCertificate(ctx context.Context, key, genre, level string) (Certificate, error) {
	nickname, err := p.profile.Nickname(ctx)
	if err != nil {
		return Certificate{}, err
	}
	meta, err := p.progression.RecordCertificate(ctx, key, nickname, p.now())
	if err != nil {
		return Certificate{}, err
	}
	cert := Certificate{Key: key, Metadata: meta}
	if p.rasterizer == nil {
		return cert, nil
	}
	ref, err := p.rasterizer.Render(ctx, CertificateRequest{
		Key:      key,
		Nickname: meta.Nickname,
		Genre:    genre,
		Level:    level,
		Date:     meta.Date,
	})
	if err != nil {
		return cert, fmt.Errorf("render certificate: %w", err)
	}
	cert.ImageRef = ref
	p.log.Info("certificate issued", "key", key, "image", ref)
	return cert, nil
}

// IssueExtraCertificate is IssueCertificate for a perfect extra-stage run.
func (p *ResultPresenter) IssueExtraCertificate(ctx context.Context, pr Presentation) (Certificate, error) {
	if !pr.CertificateEligible {
		return Certificate{}, fmt.Errorf("run is not eligible for a certificate")
	}
	return p.IssueCertificate(ctx, ExtraCertificateKey, extraStageLabel, "")
}

// ExtraStageShareText is the literal text offered for sharing a run.
func ExtraStageShareText(res domain.ExtraStageResult) string {
	if res.Outcome == domain.OutcomePassed {
		return fmt.Sprintf("I cleared all %d questions of the %s in %s! Can you beat it?",
			res.Total, extraStageLabel, FormatElapsed(res.Elapsed))
	}
	return fmt.Sprintf("I took on the %s and cleared %d/%d questions! Give it a try!",
		extraStageLabel, res.CorrectCount, res.Total)
}

// ShareIntent builds the X (Twitter) share link for text.
func ShareIntent(text, appURL string) string {
	q := url.Values{}
	q.Set("text", text)
	if appURL != "" {
		q.Set("url", appURL)
	}
	return shareIntentURL + "?" + q.Encode()
}

// FormatElapsed renders a duration as "1m02.345s" or "9.870s".
func FormatElapsed(d time.Duration) string {
	if d <= 0 {
		return "---"
	}
	ms := d.Milliseconds()
	minutes := ms / 60000
	secs := (ms % 60000) / 1000
	frac := ms % 1000
	if minutes > 0 {
		return fmt.Sprintf("%dm%02d.%03ds", minutes, secs, frac)
	}
	return fmt.Sprintf("%d.%03ds", secs, frac)
}
