package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"trivia-engine/internal/config"
	"trivia-engine/internal/domain"
)

// NewPoolCmd reports question pool health.
func NewPoolCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "pool",
		Short: "Report question pool health",
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

			report, err := eng.questions.EnsureMinimumPool(cmd.Context(), eng.poolMinimum)
			if err != nil {
				return err
			}
			fmt.Printf("available: %d\nrecycled:  %d\nneeded:    %d\n",
				report.Available, report.Recycled, report.StillNeeded)
			if report.StillNeeded > 0 {
				fmt.Printf("pool below minimum of %d %s questions, add more\n",
					eng.poolMinimum, domain.QuestionAvailable)
			}
			return nil
		},
	}
}
