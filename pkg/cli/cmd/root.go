package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/availops/orbitd/pkg/cli/client"
	"github.com/availops/orbitd/pkg/version"
)

var (
	apiAddr string
	apiKey  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "orbitctl",
	Short: "orbitctl - control a local orbitd rollup orchestrator",
	Long: `orbitctl talks to a running orbitd daemon over its HTTP API to
inspect managed Orbit rollups and submit lifecycle jobs: restart,
metadata updates and bridge updates.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			cmd.Help()
			return
		}
	},
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiAddr, "api-server", "", "Address of the orbitd API (default http://localhost:8080)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key for job submissions")

	viper.SetEnvPrefix("ORBITD")
	viper.AutomaticEnv()
}

// apiClient builds a client from flags and environment.
func apiClient() *client.Client {
	options := client.DefaultOptions()
	if apiAddr != "" {
		options.Address = apiAddr
	} else if addr := viper.GetString("api_server"); addr != "" {
		options.Address = addr
	}
	if apiKey != "" {
		options.APIKey = apiKey
	} else if key := viper.GetString("api_key"); key != "" {
		options.APIKey = key
	}
	return client.New(options)
}
