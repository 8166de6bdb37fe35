// cmd/orchestrator/chat.go
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"mfg-orchestrator/internal/common/logger"
	"mfg-orchestrator/internal/models"
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Dispatch a single message and print the reply",
	Example: `  orchestrator chat "quote 10 aluminum brackets for Acme" --thread shop-floor
  orchestrator chat "accept the balanced option" --thread shop-floor`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("config load failed: %w", err)
		}

		level := "warn"
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			level = cfg.Logging.Level
		}
		zapLog := logger.New(level, "console")
		defer zapLog.Sync()

		a, err := newApp(cmd.Context(), cfg, zapLog, appOptions{retries: 1})
		if err != nil {
			return err
		}
		defer a.Close()

		thread, _ := cmd.Flags().GetString("thread")
		env := a.dispatcher.Dispatch(cmd.Context(), strings.Join(args, " "), thread)

		asJSON, _ := cmd.Flags().GetBool("json")
		return printEnvelope(cmd.OutOrStdout(), env, asJSON)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().String("thread", "", "conversation thread id (generated when empty)")
	chatCmd.Flags().Bool("json", false, "print the full response envelope as JSON")
	chatCmd.Flags().BoolP("verbose", "v", false, "log at the configured level instead of warn")
}

func printEnvelope(w io.Writer, env *models.ResponseEnvelope, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(env)
	}
	if _, err := fmt.Fprintln(w, env.Text); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n[thread %s | %s | %s]\n", env.ThreadID, env.Intent, strings.Join(env.Trace, " > "))
	return err
}
