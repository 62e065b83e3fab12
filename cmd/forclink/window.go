package main

import (
	"github.com/spf13/cobra"

	"github.com/kass/go-forcing-link/internal/config"
	"github.com/kass/go-forcing-link/internal/exitcode"
	"github.com/kass/go-forcing-link/pkg/nearest"
)

func newWindowCmd() *cobra.Command {
	var inputs inputFlags

	cmd := &cobra.Command{
		Use:   "window",
		Short: "Show the grid window searched for the sub-basins",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, restore, err := setup()
			if err != nil {
				return err
			}
			defer restore()
			inputs.apply(cfg)

			return runWindow(cfg)
		},
	}
	inputs.register(cmd)
	return cmd
}

func runWindow(cfg *config.Config) error {
	g, bs, err := readInputs(cfg)
	if err != nil {
		return err
	}

	w, box, err := nearest.BasinWindow(g, bs)
	if err != nil {
		return withCode(exitcode.LinkError, err)
	}

	printWindow(windowSummary{grid: g, box: box, window: w, basins: len(bs)})
	return nil
}
