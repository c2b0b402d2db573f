package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/availops/orbitd/pkg/types"
)

var (
	metaName        string
	metaDescription string
	metaExplorer    string
	metaLocalRPC    string
	metaFallbackS3  string

	bridgeAddress string
	bridgeChainID string
	bridgeEnabled string
)

var restartCmd = &cobra.Command{
	Use:   "restart <rollup-id>",
	Short: "Restart a rollup node",
	Long: `Restart stops and starts the rollup node container. On-chain
deployment artifacts are reused; nothing is redeployed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return submitJob(args[0], types.OperationRestart, nil)
	},
}

var deployCmd = &cobra.Command{
	Use:   "deploy <rollup-id>",
	Short: "Deploy a rollup",
	Long: `Deploy brings a rollup up from the Uninitialized or Failed state:
chain artifacts, node container, readiness. A retry after a partial
failure reuses the chain deployment steps that already completed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return submitJob(args[0], types.OperationDeploy, nil)
	},
}

var updateMetadataCmd = &cobra.Command{
	Use:   "update-metadata <rollup-id>",
	Short: "Update a rollup's public metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		args2 := map[string]string{}
		setIfFlagged(cmd, "name", &args2, metaName)
		setIfFlagged(cmd, "description", &args2, metaDescription)
		setIfFlagged(cmd, "explorer-url", &args2, metaExplorer)
		setIfFlagged(cmd, "local-rpc-endpoint", &args2, metaLocalRPC)
		setIfFlagged(cmd, "fallback-s3", &args2, metaFallbackS3)
		if len(args2) == 0 {
			return fmt.Errorf("no metadata fields given")
		}
		return submitJob(args[0], types.OperationUpdateMetadata, args2)
	},
}

var updateBridgeCmd = &cobra.Command{
	Use:   "update-bridge <rollup-id>",
	Short: "Update a rollup's token bridge configuration",
	Long: `Update the token bridge configuration. The node is reloaded as
part of the update so the change takes effect immediately.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		args2 := map[string]string{}
		setIfFlagged(cmd, "address", &args2, bridgeAddress)
		setIfFlagged(cmd, "parent-chain-id", &args2, bridgeChainID)
		setIfFlagged(cmd, "enabled", &args2, bridgeEnabled)
		if len(args2) == 0 {
			return fmt.Errorf("no bridge fields given")
		}
		return submitJob(args[0], types.OperationUpdateBridge, args2)
	},
}

// flagToArg maps CLI flag names onto job argument keys.
var flagToArg = map[string]string{
	"name":               "name",
	"description":        "description",
	"explorer-url":       "explorerUrl",
	"local-rpc-endpoint": "localRpcEndpoint",
	"fallback-s3":        "fallbackS3Enable",
	"address":            "address",
	"parent-chain-id":    "parentChainId",
	"enabled":            "enabled",
}

func setIfFlagged(cmd *cobra.Command, flagName string, args *map[string]string, value string) {
	if cmd.Flags().Changed(flagName) {
		(*args)[flagToArg[flagName]] = value
	}
}

func init() {
	rootCmd.AddCommand(restartCmd)
	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(updateMetadataCmd)
	rootCmd.AddCommand(updateBridgeCmd)

	updateMetadataCmd.Flags().StringVar(&metaName, "name", "", "Display name")
	updateMetadataCmd.Flags().StringVar(&metaDescription, "description", "", "Description")
	updateMetadataCmd.Flags().StringVar(&metaExplorer, "explorer-url", "", "Explorer URL")
	updateMetadataCmd.Flags().StringVar(&metaLocalRPC, "local-rpc-endpoint", "", "Advertised local RPC endpoint")
	updateMetadataCmd.Flags().StringVar(&metaFallbackS3, "fallback-s3", "", "Enable the S3 DA fallback (true/false)")

	updateBridgeCmd.Flags().StringVar(&bridgeAddress, "address", "", "Bridge contract address")
	updateBridgeCmd.Flags().StringVar(&bridgeChainID, "parent-chain-id", "", "Parent chain ID")
	updateBridgeCmd.Flags().StringVar(&bridgeEnabled, "enabled", "", "Enable the bridge (true/false)")
}

func submitJob(rollupID string, op types.Operation, args map[string]string) error {
	api := apiClient()

	fmt.Printf("Submitting %s for %s...\n", op, rollupID)
	result, err := api.SubmitJob(rollupID, op, args)
	if err != nil {
		return fmt.Errorf("failed to submit job: %w", err)
	}

	switch result.Outcome {
	case types.OutcomeSucceeded:
		fmt.Printf("%s  state: %s\n", color.GreenString("Succeeded"), result.State)
	case types.OutcomeFailed:
		fmt.Printf("%s  state: %s\n", color.RedString("Failed"), result.State)
		fmt.Printf("Reason: %s\n", result.Reason)
	default:
		fmt.Printf("%s\n", color.YellowString("Rejected"))
		fmt.Printf("Reason: %s\n", result.Reason)
	}
	return nil
}
