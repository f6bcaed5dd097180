package cli

import (
	"github.com/spf13/cobra"

	"trivia-engine/internal/config"
)

// NewSweepCmd runs one maintenance pass and exits, for cron-style
// deployments that do not keep the engine resident.
func NewSweepCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one maintenance sweep and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			eng, err := buildEngine(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer eng.Close()
			eng.sweepOnce(cmd.Context())
			return nil
		},
	}
}
