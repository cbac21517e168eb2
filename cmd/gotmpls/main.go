package main

import (
	"context"
	"os"
	"runtime/debug"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	detectcmd "github.com/walteh/gotmpls-hybrid/cmd/gotmpls/detect"
	legendcmd "github.com/walteh/gotmpls-hybrid/cmd/gotmpls/legend"
	serve_lsp "github.com/walteh/gotmpls-hybrid/cmd/gotmpls/serve-lsp"
	tokenizecmd "github.com/walteh/gotmpls-hybrid/cmd/gotmpls/tokenize"
	"github.com/walteh/gotmpls-hybrid/pkg/config"
	logging "github.com/walteh/gotmpls-hybrid/pkg/debug"
	"gitlab.com/tozd/go/errors"
)

func main() {
	if err := run(); err != nil {
		println(err.Error())
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath string
		logLevel   string
		jsonLogs   bool
	)

	rootCmd := &cobra.Command{
		Use:   "gotmpls",
		Short: "Semantic highlighting for go templates embedded in other languages",
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML or HCL configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level, overrides the configuration")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "write logs as JSON")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Resolve(configPath, nil)
		if err != nil {
			return errors.Errorf("loading configuration: %w", err)
		}

		level := cfg.Level()
		if logLevel != "" {
			level, err = zerolog.ParseLevel(logLevel)
			if err != nil {
				return errors.Errorf("parsing --log-level: %w", err)
			}
			cfg.LogLevel = level.String()
		}

		// stdout may carry protocol traffic, logs always go to stderr
		logger := logging.NewLogger(os.Stderr, level, !color.NoColor, jsonLogs)

		ctx := config.WithContext(cmd.Context(), cfg)
		cmd.SetContext(logger.WithContext(ctx))
		return nil
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		rootCmd.Version = "unknown"
	} else {
		rootCmd.Version = info.Main.Version
	}

	cmdVersion := &cobra.Command{
		Use: "raw-version",
		Run: func(cmdz *cobra.Command, args []string) {
			cmdz.Println(rootCmd.Version)
		},
		Hidden: true,
	}

	rootCmd.AddCommand(cmdVersion)

	rootCmd.AddCommand(serve_lsp.NewServeLSPCommand(rootCmd.Version))
	rootCmd.AddCommand(tokenizecmd.NewTokenizeCommand())
	rootCmd.AddCommand(detectcmd.NewDetectCommand())
	rootCmd.AddCommand(legendcmd.NewLegendCommand())

	rootCmd.SilenceUsage = true

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		return errors.Errorf("failed to execute command: %w", err)
	}

	return nil
}
