package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"BreakScan/pkg/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("BREAKSCAN")
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "breakscan",
		Short:         "NSE breakout/breakdown scanner",
		Long:          `Captures interval snapshots of an equity universe, classifies live prices against the previous session's range and rolls the baseline set over at the close.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			envFile := v.GetString("env_file")
			if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("load %s: %w", envFile, err)
			}
			return nil
		},
	}
	root.PersistentFlags().String("config", "config/config.yaml", "config file path (env BREAKSCAN_CONFIG)")
	root.PersistentFlags().String("env-file", ".env", "dotenv file loaded before the config")
	_ = v.BindPFlag("config", root.PersistentFlags().Lookup("config"))
	_ = v.BindPFlag("env_file", root.PersistentFlags().Lookup("env-file"))

	load := func() (*config.Config, error) {
		path := v.GetString("config")
		cfg, err := config.LoadWithEnv(path)
		if err != nil {
			return nil, fmt.Errorf("config load failed (%s): %w", path, err)
		}
		return cfg, nil
	}

	root.AddCommand(newServeCmd(load), newRunCmd(load), newTriggerCmd(load))
	return root
}
