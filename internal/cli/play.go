package cli

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"quiz-gauntlet/internal/domain"
	"quiz-gauntlet/internal/infra/memory"
	"quiz-gauntlet/internal/tui"
)

var errExtraLocked = errors.New("the extra stage opens once the final level of every genre is passed (use --ignore-lock to practise)")

// NewPlayCmd plays the timed extra stage in the terminal.
func NewPlayCmd(configPath *string) *cobra.Command {
	var ignoreLock bool
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play the extra stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd.Context(), *configPath, ignoreLock)
		},
	}
	cmd.Flags().BoolVar(&ignoreLock, "ignore-lock", false, "play even if the extra stage is still locked")
	return cmd
}

func runPlay(ctx context.Context, configPath string, ignoreLock bool) error {
	b, err := openBackend(ctx, configPath, true)
	if err != nil {
		return err
	}
	defer b.Close()

	p, err := b.localPlayer(ctx)
	if err != nil {
		return err
	}
	if !ignoreLock {
		open, err := p.progression.ExtraUnlocked(ctx)
		if err != nil {
			return err
		}
		if !open {
			return errExtraLocked
		}
	}
	bank, _, err := b.questions()
	if err != nil {
		return err
	}
	browserID, err := p.profile.BrowserID(ctx)
	if err != nil {
		return err
	}

	service := b.extraService(bank, memory.NewRunStore())
	run, err := service.Start(ctx, browserID)
	if err != nil {
		return startError(err)
	}
	defer service.Release(browserID, run)

	_, err = tea.NewProgram(tui.NewExtraStage(ctx, run, p.presenter)).Run()
	return err
}

// startError turns question-source failures into something a player can act on.
func startError(err error) error {
	switch {
	case errors.Is(err, domain.ErrNoQuestions):
		return fmt.Errorf("no questions are available right now, pick another genre or try again later")
	case errors.Is(err, domain.ErrQuestionsUnavailable):
		return fmt.Errorf("questions could not be loaded: %w", err)
	case errors.Is(err, domain.ErrLocked):
		return fmt.Errorf("that level is still locked, pass the previous level first")
	}
	return err
}
