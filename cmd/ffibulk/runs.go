package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/astrodl/ffibulk/internal/store"
)

func newRunsCmd() *cobra.Command {
	var failuresOf string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs from the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadEnv()
			if err != nil {
				return err
			}
			defer log.Close()

			ledger, err := store.NewLedger(cfg.Ledger.Path)
			if err != nil {
				return err
			}
			defer ledger.Close()

			if failuresOf != "" {
				items, err := ledger.FailedItems(failuresOf)
				if err != nil {
					return err
				}
				for _, item := range items {
					fmt.Printf("%s\t%s\n", item.FileName, item.Error)
				}
				return nil
			}

			runs, err := ledger.ListRuns()
			if err != nil {
				return err
			}

			for _, run := range runs {
				finished := "running"
				if !run.FinishedAt.IsZero() {
					finished = run.FinishedAt.Format("2006-01-02 15:04:05")
				}
				fmt.Printf("%s  sector=%d camera=%d chip=%d  %d/%d completed, %d failed, %d skipped  finished=%s\n",
					run.ID, run.Sector, run.Camera, run.Chip,
					run.Completed, run.Total, run.Failed, run.Skipped, finished)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&failuresOf, "failures", "", "print the failed items of the given run ID")

	return cmd
}
