// cmd/orchestrator/workers.go
package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"mfg-orchestrator/internal/common/config"
	"mfg-orchestrator/pkg/registry"
)

var workersCmd = &cobra.Command{
	Use:   "workers",
	Short: "List the Zeebe job types and check them against the activity registry",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("config load failed: %w", err)
		}
		path, _ := cmd.Flags().GetString("registry")
		reg, err := registry.LoadRegistry(path)
		if err != nil {
			return fmt.Errorf("load activity registry: %w", err)
		}
		return describeWorkers(cmd.OutOrStdout(), cfg, reg, workerTaskTypes)
	},
}

func init() {
	rootCmd.AddCommand(workersCmd)

	workersCmd.Flags().String("registry", "configs/activity-registry.json", "activity registry file")
}

func describeWorkers(w io.Writer, cfg *config.Config, reg *registry.ActivityRegistry, taskTypes []string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TASK TYPE\tCATEGORY\tENABLED\tMAX JOBS\tTIMEOUT\tDESCRIPTION")
	for _, tt := range taskTypes {
		wcfg := config.GetWorkerConfig(cfg, tt)
		category, description := "-", "-"
		if a, ok := reg.Find(tt); ok {
			category, description = a.Category, a.Description
		}
		fmt.Fprintf(tw, "%s\t%s\t%t\t%d\t%s\t%s\n",
			tt, category, config.IsWorkerEnabled(cfg, tt), wcfg.MaxJobsActive, config.GetDuration(wcfg.Timeout), description)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if problems := reg.Validate(taskTypes); len(problems) > 0 {
		return fmt.Errorf("activity registry is inconsistent:\n  %s", strings.Join(problems, "\n  "))
	}
	if !cfg.Camunda.Enabled {
		fmt.Fprintln(w, "\ncamunda is disabled; serve will not open these workers")
	}
	return nil
}
