package main

import (
	"errors"
	"fmt"

	"ipscope/internal/ai"
	"ipscope/internal/credential"
	"ipscope/internal/logger"

	"github.com/spf13/cobra"
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage the AI service credential",
	Long: `The credential enables the privacy critique and the postcard.

A key from the environment (API_KEY by default, .env is honored) always wins.
Otherwise a stored key is used after it passes validation; a stored key that
fails validation is removed.`,
}

var keySetCmd = &cobra.Command{
	Use:   "set <key>",
	Short: "Validate and store a credential",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s := setup()
		defer s.Close()

		if err := s.creds.Save(cmd.Context(), args[0]); err != nil {
			if errors.Is(err, ai.ErrInvalidCredential) {
				s.fatalf("❌ The key was rejected by the AI service and was not stored.")
			}
			s.fatalf("Failed to store key: %v", err)
		}
		logger.Log.Info("✅ Key validated and stored.")
		if s.creds.FromEnv() {
			logger.Log.Warnf("The %s environment variable is set and takes precedence.", s.cfg.AI.EnvVar)
		}
	},
}

var keyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored credential",
	Run: func(cmd *cobra.Command, args []string) {
		s := setup()
		defer s.Close()

		if err := s.creds.Clear(); err != nil {
			s.fatalf("Failed to clear key: %v", err)
		}
		logger.Log.Info("🗑️  Stored key removed.")
	},
}

var keyStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Resolve the credential and report where it comes from",
	Run: func(cmd *cobra.Command, args []string) {
		s := setup()
		defer s.Close()

		_, status := s.creds.Resolve(cmd.Context())
		fmt.Println(describeStatus(status))
	},
}

func describeStatus(st credential.Status) string {
	switch st {
	case credential.StatusFromEnv:
		return "🔵 AI enabled (key from environment)"
	case credential.StatusValid:
		return "🟢 AI enabled (stored key)"
	case credential.StatusInvalid:
		return "🔴 Stored key was invalid and has been removed"
	}
	return "⚪ AI disabled (no key)"
}

func init() {
	keyCmd.AddCommand(keySetCmd)
	keyCmd.AddCommand(keyClearCmd)
	keyCmd.AddCommand(keyStatusCmd)
	rootCmd.AddCommand(keyCmd)
}
