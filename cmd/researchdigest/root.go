package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"ResearchDigest/internal/app"
	"ResearchDigest/internal/config"
	"ResearchDigest/internal/logging"
)

type rootFlags struct {
	configPath string
	logLevel   string
	dryRun     bool
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	flags := &rootFlags{}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Collect sources, select new items and deliver the digest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDigest(cmd, flags, stdout)
		},
	}
	runCmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "print the digest without delivering or tracking it")

	stateCmd := &cobra.Command{
		Use:   "state",
		Short: "Show tracked identifiers per category and the last run time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return showState(cmd, flags, stdout)
		},
	}

	root := &cobra.Command{
		Use:   "researchdigest",
		Short: "Daily research digest of papers, repositories, news and blog posts",
		Long: `researchdigest fetches configured sources, scores items against research keywords,
selects items not delivered before and sends a formatted digest to a messaging gateway.

Each invocation is one complete run; schedule it externally (cron, systemd timer).`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDigest(cmd, flags, stdout)
		},
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default $RESEARCH_DIGEST_CONFIG)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "debug, info, warn or error")
	root.Flags().BoolVar(&flags.dryRun, "dry-run", false, "print the digest without delivering or tracking it")

	root.AddCommand(runCmd, stateCmd)
	return root
}

func loadConfig(flags *rootFlags) (config.Config, error) {
	var cfg config.Config
	if flags.configPath != "" {
		cfg = config.LoadFrom(flags.configPath)
	} else {
		cfg = config.Load()
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runDigest(cmd *cobra.Command, flags *rootFlags, stdout io.Writer) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Logging.Level)

	ctx := cmd.Context()
	application, err := app.New(ctx, cfg, logger, app.Options{DryRun: flags.dryRun, Stdout: stdout})
	if err != nil {
		return err
	}
	defer application.Close()

	report, err := application.Run(ctx)
	if err != nil {
		return err
	}
	logger.Debug("run report",
		"run_id", report.RunID,
		"fetched", report.Fetched,
		"relevant", report.Relevant,
		"selected", report.Selected,
		"enriched", report.Enriched,
	)
	return nil
}

func showState(cmd *cobra.Command, flags *rootFlags, stdout io.Writer) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	application, err := app.New(cmd.Context(), cfg, logging.New(cfg.Logging.Level), app.Options{Stdout: stdout, ReadOnly: true})
	if err != nil {
		return err
	}
	defer application.Close()

	state := application.State(cmd.Context())
	for _, category := range state.Categories() {
		fmt.Fprintf(stdout, "%-12s %d tracked\n", category, len(state.Identifiers(category)))
	}
	lastRun := "never"
	if state.LastRun != nil {
		lastRun = state.LastRun.In(cfg.Digest.Location()).Format(time.RFC3339)
	}
	fmt.Fprintf(stdout, "last run: %s\n", lastRun)
	return nil
}
