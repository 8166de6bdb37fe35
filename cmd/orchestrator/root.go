// cmd/orchestrator/root.go
package main

import (
	"github.com/spf13/cobra"

	"mfg-orchestrator/internal/common/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "orchestrator",
	Short: "Conversational front office for a job shop",
	Long: `orchestrator answers plain-language requests about quotes, jobs,
inventory, estimates and machine schedules. It runs as an HTTP service
(serve), answers a single message from the shell (chat), or applies the
database schema (migrate).`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is configs/config.yaml)")
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.LoadFromFile(cfgFile)
	}
	return config.Load()
}
