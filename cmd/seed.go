package cmd

import (
	"github.com/spf13/cobra"
)

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Fill an empty database with demo data",
		Long: `Seed writes synthetic unemployment and livability series plus a small
catalog of listings and businesses. Records go through the same keyed
upserts the pipelines use, so seeding twice changes nothing.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()
			return app.Seed(cmd.Context())
		},
	}
}
