package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"BreakScan/internal/di"
	"BreakScan/internal/trigger"
	"BreakScan/internal/usecase"
	"BreakScan/pkg/config"
	xhttp "BreakScan/pkg/http"
	applogger "BreakScan/pkg/logger"
)

type configLoader func() (*config.Config, error)

func newServeCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service (trigger, replay, history and signals endpoints)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			app, cleanup, err := di.InitializeApp(cfg)
			if err != nil {
				return fmt.Errorf("app initialization failed: %w", err)
			}
			defer cleanup()
			return app.Run(cmd.Context())
		},
	}
}

func newRunCmd(load configLoader) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:       "run <capture|classify|rollover>",
		Short:     "Execute one pipeline path in-process and print its summary",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"capture", "classify", "rollover"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := usecase.ParsePath(args[0])
			if err != nil {
				return err
			}
			cfg, err := load()
			if err != nil {
				return err
			}
			runner, cleanup, err := di.InitializeRunner(cfg)
			if err != nil {
				return fmt.Errorf("runner initialization failed: %w", err)
			}
			defer cleanup()

			sum, runErr := runner.Run(cmd.Context(), path, force)
			if sum != nil {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				_ = enc.Encode(sum)
			}
			return runErr
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "bypass market-state gating")
	return cmd
}

func newTriggerCmd(load configLoader) *cobra.Command {
	var once string
	var force bool
	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Call the cron endpoints of a running service on the configured schedules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			l, err := di.ProvideLogger(cfg)
			if err != nil {
				return err
			}
			caller := trigger.NewCaller(xhttp.NewClient(xhttp.WithTimeout(cfg.Trigger.Timeout)), cfg.Trigger.BaseURL, cfg.Auth.CronSecret)

			if once != "" {
				path, err := usecase.ParsePath(once)
				if err != nil {
					return err
				}
				sum, callErr := caller.Call(cmd.Context(), path, force)
				if sum != nil {
					_ = json.NewEncoder(os.Stdout).Encode(sum)
				}
				return callErr
			}

			cal, err := di.ProvideCalendar(cfg)
			if err != nil {
				return err
			}
			s := trigger.NewScheduler(caller, cal.Location(), cfg.Trigger.Timeout, l)
			if err := s.Register(cfg.Trigger.Schedules); err != nil {
				return err
			}
			if s.Entries() == 0 {
				return fmt.Errorf("trigger.schedules is empty")
			}
			s.Start()
			l.Info("trigger scheduler started", applogger.String("base_url", cfg.Trigger.BaseURL), applogger.Int("entries", s.Entries()))

			<-cmd.Context().Done()
			stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Trigger.Timeout)
			defer cancel()
			s.Stop(stopCtx)
			l.Info("trigger scheduler stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&once, "once", "", "call a single path immediately and exit")
	cmd.Flags().BoolVar(&force, "force", false, "with --once, bypass market-state gating")
	return cmd
}
