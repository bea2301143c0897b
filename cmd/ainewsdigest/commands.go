package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"AINewsDigest/internal/app"
	"AINewsDigest/internal/config"
	"AINewsDigest/internal/domain"
	"AINewsDigest/internal/logging"
)

const configPathEnv = "AI_DIGEST_CONFIG"

type runtime struct {
	cfg    config.Config
	logger *slog.Logger
}

func newRootCommand() *cobra.Command {
	var (
		cfgFile string
		debug   bool
	)

	load := func() (runtime, error) {
		if cfgFile != "" {
			if err := os.Setenv(configPathEnv, cfgFile); err != nil {
				return runtime{}, fmt.Errorf("set config path: %w", err)
			}
		}
		cfg, err := config.Load()
		if err != nil {
			return runtime{}, err
		}
		if debug {
			cfg.Logging.Level = "debug"
		}
		return runtime{cfg: cfg, logger: logging.NewWithWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)}, nil
	}

	root := &cobra.Command{
		Use:           "ainewsdigest",
		Short:         "Collects AI discussions, papers and news into a daily email digest",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOnce(cmd.Context(), load)
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML config file (overrides "+configPathEnv+")")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(
		&cobra.Command{
			Use:     "run",
			Aliases: []string{"test"},
			Short:   "Run one digest cycle and exit",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runOnce(cmd.Context(), load)
			},
		},
		&cobra.Command{
			Use:   "schedule",
			Short: "Run digest cycles on the configured cron schedule",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cmd.Context(), load, func(ctx context.Context, a *app.Application, _ runtime) error {
					return a.Schedule(ctx)
				})
			},
		},
		&cobra.Command{
			Use:   "daemon",
			Short: "Run one cycle immediately, then follow the schedule",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cmd.Context(), load, func(ctx context.Context, a *app.Application, rt runtime) error {
					if _, _, err := a.Run(ctx); err != nil {
						rt.logger.Error("initial digest cycle failed", "error", err)
					}
					return a.Schedule(ctx)
				})
			},
		},
		&cobra.Command{
			Use:   "serve",
			Short: "Run the scheduler and the HTTP trigger API",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cmd.Context(), load, func(ctx context.Context, a *app.Application, _ runtime) error {
					return a.Serve(ctx)
				})
			},
		},
		&cobra.Command{
			Use:   "preview",
			Short: "Render the digest to stdout without sending it",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cmd.Context(), load, func(ctx context.Context, a *app.Application, _ runtime) error {
					body, err := a.Preview(ctx)
					if err != nil {
						return err
					}
					_, err = fmt.Fprintln(cmd.OutOrStdout(), body)
					return err
				})
			},
		},
		newSubscribeCommand(load),
		&cobra.Command{
			Use:   "check-config",
			Short: "Report which credentials are present and which strategies will be used",
			RunE: func(cmd *cobra.Command, _ []string) error {
				rt, err := load()
				if err != nil {
					return err
				}
				writeConfigReport(cmd.OutOrStdout(), rt.cfg)
				return rt.cfg.Validate()
			},
		},
	)

	return root
}

func newSubscribeCommand(load func() (runtime, error)) *cobra.Command {
	var (
		name      string
		frequency string
		inactive  bool
	)
	cmd := &cobra.Command{
		Use:   "subscribe <email>",
		Short: "Register an account for digests, or update an existing one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), load, func(ctx context.Context, a *app.Application, _ runtime) error {
				return a.Subscribe(ctx, domain.Recipient{Address: args[0], Name: name}, frequency, !inactive)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&frequency, "frequency", "", "delivery cadence (defaults to recipients.frequency)")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "store the account as paused")
	return cmd
}

func runOnce(ctx context.Context, load func() (runtime, error)) error {
	return withApp(ctx, load, func(ctx context.Context, a *app.Application, rt runtime) error {
		payload, report, err := a.Run(ctx)
		if err != nil {
			return err
		}
		rt.logger.Info("digest cycle complete", "items", payload.Total(),
			"attempts", report.Attempts(), "delivered", report.Delivered(), "failed_batches", report.Failed())
		return nil
	})
}

// withApp loads configuration, builds the application and runs fn until SIGINT/SIGTERM.
func withApp(parent context.Context, load func() (runtime, error), fn func(context.Context, *app.Application, runtime) error) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := load()
	if err != nil {
		return err
	}

	a, err := app.New(ctx, rt.cfg, rt.logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			rt.logger.Warn("close application", "error", cerr)
		}
	}()

	rt.logger.Info("ainewsdigest starting", "strategies", a.Strategies())
	return fn(ctx, a, rt)
}
