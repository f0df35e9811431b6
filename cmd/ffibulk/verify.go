package main

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/astrodl/ffibulk/internal/fits"
)

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify FILE...",
		Short: "Deep-validate local FITS files without downloading anything",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs := afero.NewOsFs()
			bad := 0

			for _, path := range args {
				hdus, err := fits.ValidateFile(fs, path)
				if err != nil {
					bad++
					fmt.Printf("FAIL %s: %v\n", path, err)
					continue
				}
				fmt.Printf("OK   %s (%d HDUs)\n", path, hdus)
			}

			if bad > 0 {
				return fmt.Errorf("%d of %d files failed validation", bad, len(args))
			}
			return nil
		},
	}
}
