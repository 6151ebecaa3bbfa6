package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eringen/alchemy"
)

func cleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete expired images once and exit",
		Long: `Remove images older than IMAGE_TTL, their files first and then
their rows. Useful from cron when the server runs without its own sweep.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := alchemy.LoadConfig()
			if err != nil {
				return err
			}
			store, err := alchemy.NewStore(cfg.DBPath)
			if err != nil {
				return err
			}
			defer store.Close()

			cleaner := &alchemy.Cleaner{Store: store, Dir: cfg.UploadsDir(), TTL: cfg.ImageTTL}
			n, err := cleaner.Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired images\n", n)
			return nil
		},
	}
}
