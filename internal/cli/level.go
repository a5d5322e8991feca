package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"quiz-gauntlet/internal/app"
	"quiz-gauntlet/internal/tui"
)

// NewLevelCmd plays one genre/level in standard mode.
func NewLevelCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:     "level <genre> <level>",
		Short:   "Play a genre level; genre and level are names or 1-based numbers",
		Example: "  quiz-gauntlet level 1 1\n  quiz-gauntlet level \"Genre 2\" Ultra",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLevel(cmd.Context(), *configPath, args[0], args[1])
		},
	}
}

func runLevel(ctx context.Context, configPath, genreArg, levelArg string) error {
	b, err := openBackend(ctx, configPath, true)
	if err != nil {
		return err
	}
	defer b.Close()

	genre, ok := resolveName(b.catalog.Genres, genreArg)
	if !ok {
		return fmt.Errorf("unknown genre %q, choose one of: %s", genreArg, strings.Join(b.catalog.Genres, ", "))
	}
	levels := append(append([]string(nil), b.catalog.Levels...), b.catalog.Ultra)
	level, ok := resolveName(levels, levelArg)
	if !ok {
		return fmt.Errorf("unknown level %q, choose one of: %s", levelArg, strings.Join(levels, ", "))
	}

	p, err := b.localPlayer(ctx)
	if err != nil {
		return err
	}
	bank, judge, err := b.questions()
	if err != nil {
		return err
	}
	service := app.NewLevelService(bank, judge, p.progression, p.profile, p.presenter, b.cfg.Extra.ShareURL, b.log)
	run, err := service.Start(ctx, genre, level)
	if err != nil {
		return startError(err)
	}

	_, err = tea.NewProgram(tui.NewLevel(ctx, service, run)).Run()
	return err
}

// resolveName accepts a 1-based position or a case-insensitive name.
func resolveName(names []string, arg string) (string, bool) {
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(names) {
			return "", false
		}
		return names[n-1], true
	}
	for _, name := range names {
		if strings.EqualFold(name, arg) {
			return name, true
		}
	}
	return "", false
}
