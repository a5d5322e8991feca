package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"quiz-gauntlet/internal/domain"
)

// NewNicknameCmd shows or sets the nickname printed on certificates and leaderboards.
func NewNicknameCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nickname",
		Short: "Show your nickname",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNickname(cmd.Context(), cmd.OutOrStdout(), *configPath, "")
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set <nickname>",
		Short: "Set your nickname (up to 10 letters, digits or Japanese characters)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNickname(cmd.Context(), cmd.OutOrStdout(), *configPath, strings.Join(args, " "))
		},
	})
	return cmd
}

func runNickname(ctx context.Context, w io.Writer, configPath, nickname string) error {
	b, err := openBackend(ctx, configPath, false)
	if err != nil {
		return err
	}
	defer b.Close()

	p, err := b.localPlayer(ctx)
	if err != nil {
		return err
	}
	if nickname == "" {
		name, err := p.profile.Nickname(ctx)
		if errors.Is(err, domain.ErrNicknameRequired) {
			fmt.Fprintln(w, "No nickname yet. Set one with: quiz-gauntlet nickname set <name>")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(w, name)
		return nil
	}

	saved, err := p.profile.SetNickname(ctx, nickname)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Nickname set to %s\n", saved)
	return nil
}
