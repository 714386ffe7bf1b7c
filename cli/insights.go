package cli

import (
	"github.com/spf13/cobra"

	"car-deal-finder/services"
)

func newInsightsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "insights",
		Short: "Print aggregate statistics over stored deals",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			svc := services.NewInsightService(store, a.logger)
			report, err := svc.Report(cmd.Context())
			if err != nil {
				return err
			}
			svc.Print(cmd.OutOrStdout(), report)
			return nil
		},
	}
}
