package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/availops/orbitd/pkg/types"
)

// statusCmd shows a summary of one rollup, or all of them.
var statusCmd = &cobra.Command{
	Use:   "status [rollup-id]",
	Short: "Show rollup status",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

var statusOutput string

func init() {
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "text", "Output format (text, json, yaml)")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	api := apiClient()

	if len(args) == 1 {
		status, err := api.Status(args[0])
		if err != nil {
			return fmt.Errorf("failed to fetch status: %w", err)
		}

		if statusOutput != "text" {
			return printEncoded(status, statusOutput)
		}

		fmt.Printf("Rollup:       %s\n", status.ID)
		fmt.Printf("State:        %s\n", colorState(status.State))
		fmt.Printf("Chain ID:     %d\n", status.Chain.ChainID)
		fmt.Printf("Parent RPC:   %s\n", status.Chain.ParentChainRPC)
		fmt.Printf("Avail app:    %s\n", status.Chain.AvailAppID)
		fmt.Printf("Node image:   %s\n", status.Chain.NodeImage)
		if status.Metadata.Name != "" {
			fmt.Printf("Name:         %s\n", status.Metadata.Name)
		}
		if status.Metadata.ExplorerURL != "" {
			fmt.Printf("Explorer:     %s\n", status.Metadata.ExplorerURL)
		}
		if status.ContainerID != "" {
			fmt.Printf("Container:    %s\n", shortID(status.ContainerID))
		}
		fmt.Printf("Healthy:      %s\n", colorHealthy(status.Health.Healthy))
		if status.Health.Reason != "" {
			fmt.Printf("Reason:       %s\n", status.Health.Reason)
		}
		return nil
	}

	rollups, err := api.List()
	if err != nil {
		return fmt.Errorf("failed to list rollups: %w", err)
	}
	if statusOutput != "text" {
		return printEncoded(rollups, statusOutput)
	}
	if len(rollups) == 0 {
		fmt.Println("No rollups registered")
		return nil
	}

	fmt.Printf("%-24s %-14s %-12s %-8s\n", "ID", "STATE", "CHAIN", "HEALTHY")
	for _, r := range rollups {
		fmt.Printf("%-24s %-14s %-12d %-8s\n",
			r.ID, colorState(r.State), r.Chain.ChainID, colorHealthy(r.Health.Healthy))
	}
	return nil
}

func colorState(state types.RollupState) string {
	switch state {
	case types.RollupStateRunning:
		return color.GreenString(string(state))
	case types.RollupStateFailed:
		return color.RedString(string(state))
	case types.RollupStateDeploying, types.RollupStateRestarting, types.RollupStateUpdating:
		return color.YellowString(string(state))
	default:
		return string(state)
	}
}

func colorHealthy(healthy bool) string {
	if healthy {
		return color.GreenString("yes")
	}
	return color.RedString("no")
}

func printEncoded(v interface{}, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		return yaml.NewEncoder(os.Stdout).Encode(v)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
