package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/eringen/alchemy"
	"github.com/eringen/alchemy/schedule"
)

type scheduleOptions struct {
	db      string
	user    string
	otp     string
	start   string
	days    int
	perDay  int
	baseURL string
	out     string
}

func scheduleCmd() *cobra.Command {
	var o scheduleOptions
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Export a posting schedule CSV for a user's processed images",
		Long: `Spread a user's processed images over a posting calendar and write
the schedule as CSV.

Examples:
  alchemy schedule --otp 482913 --days 7 --per-day 3
  alchemy schedule --user admin_5f0c9e2a41b7d83c6e09a1f4 --start 2025-03-10 --out week.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchedule(cmd.Context(), cmd.OutOrStdout(), o)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.db, "db", "", "SQLite database (default from ALCHEMY_DB)")
	f.StringVarP(&o.user, "user", "u", "", "user id whose images are scheduled")
	f.StringVar(&o.otp, "otp", "", "passcode of the user whose images are scheduled (needs SESSION_SECRET)")
	f.StringVar(&o.start, "start", "", "first day as YYYY-MM-DD (default today)")
	f.IntVar(&o.days, "days", 7, "number of days")
	f.IntVar(&o.perDay, "per-day", 3, "posts per day")
	f.StringVar(&o.baseURL, "base-url", "", "prefix for relative image URLs (default from ALCHEMY_BASE_URL)")
	f.StringVarP(&o.out, "out", "o", "", "output file (default stdout)")
	cmd.MarkFlagsOneRequired("user", "otp")
	cmd.MarkFlagsMutuallyExclusive("user", "otp")
	return cmd
}

func runSchedule(ctx context.Context, stdout io.Writer, o scheduleOptions) error {
	cfg, err := alchemy.LoadConfig()
	if err != nil {
		return err
	}
	if o.db != "" {
		cfg.DBPath = o.db
	}
	if o.baseURL != "" {
		cfg.BaseURL = o.baseURL
	}
	user := o.user
	if o.otp != "" {
		if cfg.SessionSecret == "" {
			return fmt.Errorf("--otp needs SESSION_SECRET")
		}
		user = alchemy.UserID(cfg.SessionSecret, o.otp)
	}

	start := time.Now()
	if o.start != "" {
		start, err = time.ParseInLocation(time.DateOnly, o.start, time.Local)
		if err != nil {
			return fmt.Errorf("--start must be YYYY-MM-DD: %w", err)
		}
	}

	store, err := alchemy.NewStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	images, err := store.ListImages(ctx, user)
	if err != nil {
		return err
	}
	ready := alchemy.ReadySources(images, cfg.BaseURL)
	items, err := alchemy.BuildSchedule(ready, schedule.Cadence{Start: start, Days: o.days, PostsPerDay: o.perDay})
	if err != nil {
		return err
	}

	w := stdout
	if o.out != "" {
		f, err := os.Create(o.out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := schedule.WriteCSV(w, items); err != nil {
		return err
	}
	if o.out != "" {
		fmt.Fprintf(os.Stderr, "wrote %d posts to %s\n", len(items), o.out)
	}
	return nil
}
