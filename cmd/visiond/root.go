package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"visiond/internal/config"
)

// version is stamped at build time via -ldflags.
var version = "dev"

type rootFlags struct {
	configPath string
	logLevel   string
}

func buildRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "visiond",
		Short:         "Supervisor daemon for a local llama-server vision runtime",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "Path to config file (.yaml/.json/.toml)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug|info|warn|error (overrides config)")

	root.AddCommand(buildServeCmd(flags))
	root.AddCommand(buildInferCmd(flags))
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the visiond version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version)
			return nil
		},
	})
	return root
}

// loadConfig resolves the effective config: file, then env, then flags.
func loadConfig(flags *rootFlags) (config.Config, error) {
	var cfg config.Config
	if flags.configPath != "" {
		loaded, err := config.Load(flags.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	cfg = config.ApplyEnv(cfg)
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	return cfg, nil
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(lvl).
		With().Timestamp().
		Logger()
}
