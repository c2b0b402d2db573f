package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// healthCmd shows the last health observation for a rollup.
var healthCmd = &cobra.Command{
	Use:   "health <rollup-id>",
	Short: "Show rollup health",
	Args:  cobra.ExactArgs(1),
	RunE:  runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	api := apiClient()

	health, err := api.Health(args[0])
	if err != nil {
		return fmt.Errorf("failed to fetch health: %w", err)
	}

	fmt.Printf("Healthy:    %s\n", colorHealthy(health.Healthy))
	if health.Reason != "" {
		fmt.Printf("Reason:     %s\n", health.Reason)
	}
	if !health.CheckedAt.IsZero() {
		fmt.Printf("Checked at: %s\n", health.CheckedAt.Format("2006-01-02 15:04:05 MST"))
	}
	return nil
}
