package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"quiz-gauntlet/internal/app"
	"quiz-gauntlet/internal/domain"
)

// NewBestCmd prints the local best score and, with a remote API, the leaderboards.
func NewBestCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "best",
		Short: "Show your best extra-stage score and the leaderboards",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBest(cmd.Context(), cmd.OutOrStdout(), *configPath)
		},
	}
}

func runBest(ctx context.Context, w io.Writer, configPath string) error {
	b, err := openBackend(ctx, configPath, false)
	if err != nil {
		return err
	}
	defer b.Close()

	kv, err := b.keyValueStore(ctx, "local")
	if err != nil {
		return err
	}
	rec, ok, err := app.NewBestScoreStore(kv).Load(ctx)
	switch {
	case err != nil:
		b.log.Warn("best score unavailable", "error", err)
		fmt.Fprintln(w, "Your best: could not be read")
	case !ok:
		fmt.Fprintln(w, "Your best: no extra-stage run registered yet")
	default:
		fmt.Fprintf(w, "Your best: %d correct in %s\n", rec.CorrectCount, app.FormatElapsed(time.Duration(rec.ElapsedTimeMs)*time.Millisecond))
	}

	if b.api == nil {
		return nil
	}
	top, err := b.api.TopChallengers(ctx)
	if err != nil {
		return fmt.Errorf("top challengers: %w", err)
	}
	fame, err := b.api.HallOfFame(ctx)
	if err != nil {
		return fmt.Errorf("hall of fame: %w", err)
	}
	fmt.Fprintln(w, "\nTop challengers")
	fmt.Fprintln(w, challengersTable(top))
	fmt.Fprintln(w, "\nHall of fame")
	fmt.Fprintln(w, hallOfFameTable(fame))
	return nil
}

func challengersTable(entries []domain.LeaderboardEntry) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "Nickname", "Score", "Time", "Date")
	for i, e := range entries {
		t.Row(strconv.Itoa(i+1), e.Nickname, strconv.Itoa(e.Score), app.FormatElapsed(time.Duration(e.ClearTime*float64(time.Second))), e.Date)
	}
	return t.String()
}

func hallOfFameTable(entries []domain.HallOfFameEntry) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "Nickname", "Time", "Cleared")
	for i, e := range entries {
		t.Row(strconv.Itoa(i+1), e.Nickname, app.FormatElapsed(time.Duration(e.Time)*time.Millisecond), e.CompletionDate)
	}
	return t.String()
}
