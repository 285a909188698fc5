// Command reconciler runs the match reconciliation passes outside the HTTP API.
//
// Usage:
//
//	predictor-reconciler serve
//	predictor-reconciler poll
//	predictor-reconciler sweep
//	predictor-reconciler settle --match mat-demo-1
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

	"github.com/bytedance/sonic"
	"github.com/riskibarqy/predictor-league/internal/app"
	"github.com/riskibarqy/predictor-league/internal/config"
	"github.com/riskibarqy/predictor-league/internal/platform/logging"
	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "predictor-reconciler",
		Short:         "Match reconciliation and settlement runner",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(serveCmd())
	root.AddCommand(pollCmd())
	root.AddCommand(sweepCmd())
	root.AddCommand(settleCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the fast poll, recovery sweep and state reset loops until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(func(ctx context.Context, c *app.Container) error {
				err := c.Scheduler.Run(ctx)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		},
	}
}

func pollCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "poll",
		Short: "Run one fast poll pass over matches near or in play",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(func(ctx context.Context, c *app.Container) error {
				report, err := c.Reconciliation.RunFastPoll(ctx, time.Now().UTC())
				if err != nil {
					return err
				}
				return printJSON(report)
			})
		},
	}
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one recovery sweep over recent unsettled matches",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(func(ctx context.Context, c *app.Container) error {
				report, err := c.Reconciliation.RunRecoverySweep(ctx, time.Now().UTC())
				if err != nil {
					return err
				}
				return printJSON(report)
			})
		},
	}
}

func settleCmd() *cobra.Command {
	var matchID string
	cmd := &cobra.Command{
		Use:   "settle",
		Short: "Settle the open wagers of a finished match",
		RunE: func(cmd *cobra.Command, args []string) error {
			matchID = strings.TrimSpace(matchID)
			if matchID == "" {
				return fmt.Errorf("--match is required")
			}
			return withContainer(func(ctx context.Context, c *app.Container) error {
				report, err := c.Settlement.Settle(ctx, matchID)
				if err != nil {
					return err
				}
				return printJSON(report)
			})
		},
	}
	cmd.Flags().StringVar(&matchID, "match", "", "Match ID")
	return cmd
}

func withContainer(fn func(ctx context.Context, c *app.Container) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.NewJSON(cfg.LogLevel).With("service", cfg.ServiceName+"-reconciler", "env", cfg.AppEnv)
	logging.SetDefault(logger)
	defer func() { _ = logger.Sync() }()

	c, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("build app: %w", err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Error("close app", "error", err)
		}
	}()

	return fn(ctx, c)
}

func printJSON(v any) error {
	out, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, string(out))
	return err
}
