package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	logsTail   int
	logsSource string
)

// logsCmd tails rollup logs: orchestration events or node output.
var logsCmd = &cobra.Command{
	Use:   "logs <rollup-id>",
	Short: "Show recent rollup logs",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogs,
}

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.Flags().IntVarP(&logsTail, "tail", "t", 100, "Number of lines to show")
	logsCmd.Flags().StringVar(&logsSource, "source", "events", "Log source (events, node)")
}

func runLogs(cmd *cobra.Command, args []string) error {
	api := apiClient()

	logs, err := api.TailLogs(args[0], logsSource, logsTail)
	if err != nil {
		return fmt.Errorf("failed to fetch logs: %w", err)
	}

	if len(logs.Lines) == 0 {
		fmt.Println("No log lines")
		return nil
	}
	for _, line := range logs.Lines {
		fmt.Println(line)
	}
	return nil
}
