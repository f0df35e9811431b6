package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/astrodl/ffibulk/internal/config"
	"github.com/astrodl/ffibulk/internal/logger"
)

var cfgPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ffibulk",
		Short:         "Bulk downloader for TESS full-frame images",
		Long:          "ffibulk fetches a sector's FFI manifest, downloads every matching file with a worker pool, deep-validates each FITS container, and places validated files atomically.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to yaml config file (optional)")

	root.AddCommand(newDownloadCmd())
	root.AddCommand(newVerifyCmd())
	root.AddCommand(newRunsCmd())

	return root
}

// loadEnv loads config plus the logger every subcommand needs.
func loadEnv() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("config error: %w", err)
	}

	log, err := logger.New(cfg.Log.Path, logger.ParseLevel(cfg.Log.Level), cfg.Log.IncludeStdout)
	if err != nil {
		return nil, nil, fmt.Errorf("logger error: %w", err)
	}

	return cfg, log, nil
}
