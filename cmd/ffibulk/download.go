package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/segmentio/ksuid"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/astrodl/ffibulk/internal/api"
	"github.com/astrodl/ffibulk/internal/domain"
	"github.com/astrodl/ffibulk/internal/engine"
	"github.com/astrodl/ffibulk/internal/fetch"
	"github.com/astrodl/ffibulk/internal/manifest"
	"github.com/astrodl/ffibulk/internal/store"
)

func newDownloadCmd() *cobra.Command {
	var (
		camera     int
		chip       int
		threads    int
		clobber    bool
		statusAddr string
	)

	cmd := &cobra.Command{
		Use:   "download OUTDIR SECTOR",
		Short: "Download every matching FFI for a sector",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			outDir := args[0]

			sector, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("sector must be an integer, got %q", args[1])
			}

			sel := domain.Selector{Sector: sector, Camera: camera, Chip: chip}
			if err := sel.Validate(); err != nil {
				return err
			}

			cfg, log, err := loadEnv()
			if err != nil {
				return err
			}
			defer log.Close()

			if cmd.Flags().Changed("threads") {
				cfg.Download.Workers = threads
			}
			if cfg.Download.Workers <= 0 {
				return fmt.Errorf("thread count must be positive, got %d", cfg.Download.Workers)
			}
			if cmd.Flags().Changed("clobber") {
				cfg.Download.Clobber = clobber
			}
			if cmd.Flags().Changed("status-addr") {
				cfg.Status.Addr = statusAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// Fetch and parse the manifest. Failure here aborts the whole
			// run before any worker starts.
			mc := manifest.NewClient(&http.Client{Timeout: 60 * time.Second}, cfg.Manifest.BaseURL)

			log.Info("Fetching manifest for sector %d from %s", sector, mc.ScriptURL(sector))
			items, err := mc.FetchItems(ctx, outDir, sel)
			if err != nil {
				return err
			}

			if len(items) == 0 {
				log.Info("No files in sector %d match the selector. Nothing to do.", sector)
				return nil
			}
			log.Info("Manifest lists %d matching files", len(items))

			// Workers assume their destination directories already exist.
			for _, item := range items {
				if err := os.MkdirAll(filepath.Dir(item.DestPath), 0755); err != nil {
					return fmt.Errorf("failed to create output directory: %w", err)
				}
			}

			ledger, err := store.NewLedger(cfg.Ledger.Path)
			if err != nil {
				return err
			}
			defer ledger.Close()

			run := &domain.Run{
				ID:        ksuid.New().String(),
				Sector:    sector,
				Camera:    camera,
				Chip:      chip,
				OutDir:    outDir,
				StartedAt: time.Now(),
				Total:     len(items),
			}
			if err := ledger.CreateRun(run); err != nil {
				return err
			}

			progress := engine.NewProgress()
			eng := engine.New(afero.NewOsFs(), fetch.NewClient(cfg.Download.Workers), log, ledger, progress)

			go progress.StartCLI(ctx)

			if cfg.Status.Addr != "" {
				srv := api.NewStatusServer(cfg.Status.Addr, progress, log)
				go srv.Start()
				defer srv.Shutdown()
				log.Info("Status endpoint listening on %s", cfg.Status.Addr)
			}

			summary, runErr := eng.Run(ctx, run.ID, items, cfg.Download.Workers, cfg.Download.Clobber)
			progress.RenderFinal()

			run.FinishedAt = time.Now()
			run.Completed = summary.Completed
			run.Failed = summary.Failed
			run.Skipped = summary.Skipped
			if err := ledger.FinishRun(run); err != nil {
				log.Warn("could not finalize run in ledger: %v", err)
			}

			log.Info("Run %s: %d completed, %d skipped, %d failed of %d",
				run.ID, summary.Completed, summary.Skipped, summary.Failed, summary.Total)

			if runErr != nil {
				return runErr
			}
			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d files failed permanently", summary.Failed, summary.Total)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&camera, "camera", 0, "restrict to one camera (1-4)")
	cmd.Flags().IntVar(&chip, "chip", 0, "restrict to one chip (1-4)")
	cmd.Flags().IntVar(&threads, "threads", 0, "worker pool size (overrides config)")
	cmd.Flags().BoolVar(&clobber, "clobber", false, "re-download files that already exist")
	cmd.Flags().StringVar(&statusAddr, "status-addr", "", "serve live progress on this address (e.g. :8311)")

	return cmd
}
