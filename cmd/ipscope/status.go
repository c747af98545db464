package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"ipscope/internal/credential"
	"ipscope/internal/history"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a dashboard of the local history",
	Long:  `Displays the store location and size, history counts, the average security score and the most analyzed countries.`,
	Run: func(cmd *cobra.Command, args []string) {
		s := setup()
		defer s.Close()

		sum := history.Summarize(s.history.List(), 5)

		dbSize := getFileSize(s.cfg.Database.Path)
		walSize := getFileSize(s.cfg.Database.Path + "-wal")

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

		fmt.Println("\n📊 \033[1mIPSCOPE STATUS DASHBOARD\033[0m")
		fmt.Println("────────────────────────────────────────")

		fmt.Fprintln(w, "\033[1;36m[ SYSTEM ]\033[0m\t")
		fmt.Fprintf(w, "  Database Path:\t%s\n", s.cfg.Database.Path)
		fmt.Fprintf(w, "  DB Size:\t%s\n", formatBytes(dbSize))
		if walSize > 0 {
			fmt.Fprintf(w, "  WAL Size:\t%s (pending checkpoint)\n", formatBytes(walSize))
		}
		fmt.Fprintf(w, "  Geo Provider:\t%s\n", s.provider.Name())
		fmt.Fprintf(w, "  AI Key:\t%s\n", keySource(s))
		fmt.Fprintln(w, "\t")

		fmt.Fprintln(w, "\033[1;36m[ HISTORY ]\033[0m\t")
		fmt.Fprintf(w, "  Entries:\t%d / %d\n", sum.Entries, s.cfg.History.MaxEntries)
		fmt.Fprintf(w, "  With Trace:\t%d\n", sum.WithTrace)
		if sum.WithTrace > 0 {
			fmt.Fprintf(w, "  Average Score:\t%.1f\n", sum.AverageScore)
			for _, g := range []string{"strong", "moderate", "weak"} {
				fmt.Fprintf(w, "  %s:\t%d\n", cases.Title(language.English).String(g), sum.Grades[g])
			}
		}
		fmt.Fprintln(w, "\t")

		fmt.Fprintln(w, "\033[1;36m[ TOP LOCATIONS ]\033[0m\t")
		if len(sum.TopCountries) == 0 {
			fmt.Fprintln(w, "  (No analyses recorded)")
		}
		for _, c := range sum.TopCountries {
			fmt.Fprintf(w, "  %s %s:\t%d\n", getFlagEmoji(c.Code), c.Code, c.Count)
		}

		w.Flush()
		fmt.Println("")
	},
}

// keySource reports where a key would come from without validating it.
func keySource(s *services) string {
	if s.creds.FromEnv() {
		return "environment (" + s.cfg.AI.EnvVar + ")"
	}
	if _, ok, _ := s.kv.Get(credential.StorageKey); ok {
		return "stored"
	}
	return "none"
}

// Helpers

func getFileSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.Size()
}

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}

func getFlagEmoji(countryCode string) string {
	if len(countryCode) != 2 {
		return "🌐"
	}
	countryCode = strings.ToUpper(countryCode)
	return string(rune(countryCode[0])+127397) + string(rune(countryCode[1])+127397)
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
