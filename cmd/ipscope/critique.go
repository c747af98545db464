package main

import (
	"errors"
	"fmt"

	"ipscope/internal/app"
	"ipscope/internal/model"

	"github.com/spf13/cobra"
)

var critiqueJSON bool

var critiqueCmd = &cobra.Command{
	Use:   "critique",
	Short: "Analyze your own connection and ask the AI service for a privacy critique",
	Run: func(cmd *cobra.Command, args []string) {
		s := setup()
		defer s.Close()

		if _, err := runWithSpinner("Analyzing...", func() (*model.LogEntry, error) {
			return s.app.Analyze(cmd.Context(), "")
		}); err != nil {
			s.fatalf("❌ %v", err)
		}

		res, err := s.app.Critique(cmd.Context())
		if err != nil {
			if errors.Is(err, app.ErrCredentialRequired) {
				s.fatalf("❌ No usable AI key. Set one with 'ipscope key set <key>'.")
			}
			s.fatalf("❌ %v", err)
		}

		if critiqueJSON {
			printJSON(res)
			return
		}
		printCritique(res)
	},
}

func printCritique(res *model.PrivacyAnalysis) {
	p := res.Personality
	fmt.Printf("\n%s \033[1m%s\033[0m\n", p.Emoji, p.Title)
	fmt.Println(p.Description)
	fmt.Println("────────────────────────────────────────")
	for _, tip := range res.Tips {
		fmt.Printf("%s \033[1m%s\033[0m\n   %s\n", severityIcon(tip.Severity), tip.Title, tip.Description)
	}
	fmt.Println("")
}

func severityIcon(s model.TipSeverity) string {
	switch s {
	case model.SeverityCritical:
		return "🚨"
	case model.SeverityWarning:
		return "⚠️ "
	}
	return "ℹ️ "
}

func init() {
	critiqueCmd.Flags().BoolVar(&critiqueJSON, "json", false, "Print the critique as JSON")
	rootCmd.AddCommand(critiqueCmd)
}
