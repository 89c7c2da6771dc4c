package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"AckeeVeille/internal/app"
	"AckeeVeille/internal/config"
	"AckeeVeille/internal/domain"
	"AckeeVeille/internal/logging"
)

const dateLayout = "02/01/2006"

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once for the week ending now (or at --date)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			dateFlag, _ := cmd.Flags().GetString("date")
			reference, err := parseReference(dateFlag, time.Now(), cfg.Scheduler.Location())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
			application, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer application.Close()

			summary, err := application.RunOnce(ctx, reference)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Semaine %s: %d items\n", summary.Run.Window.WeekLabel(), summary.TotalItems)
			if summary.Artifacts != nil {
				fmt.Fprintf(out, "  document: %s\n", summary.Artifacts.DocumentPath)
				fmt.Fprintf(out, "  message:  %s\n", summary.Artifacts.MessagePath)
			}
			return nil
		},
	}

	cmd.Flags().StringP("date", "d", "", "Reference date DD/MM/YYYY; the window covers the 7 days before it")

	return cmd
}

func scheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run the pipeline every configured weekday until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(ctx, cfg, logging.New(cfg.Logging.Level, cfg.Logging.Format))
			if err != nil {
				return err
			}
			defer application.Close()

			return application.Schedule(ctx)
		},
	}
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and show what a run would use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "AckeeVeille configuration")
			fmt.Fprintln(out, strings.Repeat("=", 40))
			fmt.Fprintf(out, "  Feeds:       %d\n", len(cfg.Sources.Media))
			fmt.Fprintf(out, "  Competitors: %d\n", len(cfg.CompetitorNames()))
			fmt.Fprintf(out, "  Recipients:  %d\n", len(cfg.Recipients))
			fmt.Fprintf(out, "  Reports dir: %s\n", cfg.Output.ReportsDir)
			fmt.Fprintf(out, "  Model:       %s\n", cfg.LLM.Model)
			fmt.Fprintf(out, "  Schedule:    %s %s (%s)\n", cfg.Scheduler.Weekday, cfg.Scheduler.Time, cfg.Scheduler.Location())
			fmt.Fprintln(out, "\nCredentials:")
			fmt.Fprintf(out, "  Anthropic:   %s\n", keyStatus(cfg.LLM.APIKey))
			fmt.Fprintf(out, "  Search:      %s\n", keyStatus(cfg.Search.APIKey))
			fmt.Fprintf(out, "  Funding:     %s\n", keyStatus(cfg.Funding.APIKey))

			if err := cfg.Validate(); err != nil {
				fmt.Fprintln(out, "\nStatus: INVALID")
				return err
			}
			fmt.Fprintln(out, "\nStatus: OK")
			return nil
		},
	}
}

// parseReference reads --date as a local midnight in loc; an empty value means now.
func parseReference(value string, now time.Time, loc *time.Location) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return now.In(loc), nil
	}
	reference, err := time.ParseInLocation(dateLayout, strings.TrimSpace(value), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid --date %q, expected DD/MM/YYYY", domain.ErrConfiguration, value)
	}
	return reference, nil
}

func keyStatus(key string) string {
	if strings.TrimSpace(key) == "" {
		return "missing"
	}
	return "set"
}

// exitCode maps configuration problems to a usage exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, domain.ErrConfiguration):
		return 2
	case errors.Is(err, context.Canceled):
		return 130
	default:
		return 1
	}
}
