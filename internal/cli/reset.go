package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewResetCmd deletes every locally stored value: nickname, device id, best score and certificates.
func NewResetCmd(configPath *string) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all local progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("this deletes your nickname, best score and certificates; rerun with --yes to confirm")
			}
			return runReset(cmd.Context(), cmd.OutOrStdout(), *configPath)
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}

func runReset(ctx context.Context, w io.Writer, configPath string) error {
	b, err := openBackend(ctx, configPath, false)
	if err != nil {
		return err
	}
	defer b.Close()

	p, err := b.localPlayer(ctx)
	if err != nil {
		return err
	}
	if err := p.profile.Reset(ctx); err != nil {
		return err
	}
	b.log.Info("local data cleared", "driver", b.cfg.Storage.Driver)
	fmt.Fprintln(w, "All local data deleted.")
	return nil
}
