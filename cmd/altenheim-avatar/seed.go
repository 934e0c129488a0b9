package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"altenheim-avatar/internal/common/logger"
	"altenheim-avatar/internal/config"
	"altenheim-avatar/internal/seed"
)

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the demo facility, staff users and residents",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, serviceName)
			if err != nil {
				return err
			}
			defer log.Sync()

			rp, err := openPostgres(cmd.Context(), &cfg.Database)
			if err != nil {
				return err
			}
			defer rp.Close()

			tenantID, err := seed.Demo(cmd.Context(), rp.seedRepos(), 0, log)
			if err != nil {
				return err
			}
			log.Info("Seed complete", zap.String("tenant_id", tenantID))
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Admin:     admin@sonnenschein-heim.de / admin123")
			fmt.Fprintln(out, "Caregiver: pfleger@sonnenschein-heim.de / pfleger123")
			fmt.Fprintf(out, "Residents: facility %q, PINs 1234 (Gertrud), 5678 (Walter), 9999 (Helga)\n", seed.DemoFacilitySlug)
			return nil
		},
	}
}
