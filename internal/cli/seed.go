package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"quiz-gauntlet/internal/infra/memory"
	"quiz-gauntlet/internal/infra/postgres"
)

// NewSeedCmd loads a YAML question bank into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <questions.yaml>",
		Short: "Import a YAML question bank into Postgres",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), cmd.OutOrStdout(), *configPath, args[0])
		},
	}
}

func runSeed(ctx context.Context, w io.Writer, configPath, path string) error {
	b, err := openBackend(ctx, configPath, false)
	if err != nil {
		return err
	}
	defer b.Close()
	if b.pool == nil {
		return errors.New("postgres url not configured")
	}
	if err := runMigrationsWithConfig(ctx, b.cfg, b.log); err != nil {
		return err
	}

	file, err := memory.LoadQuestionFile(path)
	if err != nil {
		return err
	}
	loader := postgres.NewQuestionLoader(b.pool)
	sets := file.Sets()
	for _, set := range sets {
		if err := loader.SaveQuestionSet(ctx, set); err != nil {
			return err
		}
		b.log.Info("question set imported", "key", set.Key, "questions", len(set.Questions))
	}
	fmt.Fprintf(w, "imported %d question sets\n", len(sets))
	return nil
}
