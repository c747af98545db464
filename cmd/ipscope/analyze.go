package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"ipscope/internal/geo"
	"ipscope/internal/logger"
	"ipscope/internal/model"
	"ipscope/internal/score"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var analyzeJSON bool
var analyzeReport bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze [ip]",
	Short: "Analyze an IP address, or your own connection when none is given",
	Long: `Looks up geolocation and network owner for an IP address.

Without an argument your own connection is analyzed: the edge trace is fetched
first, which adds TLS/HTTP details and a security score. Successful results are
recorded in the local history.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s := setup()
		defer s.Close()

		ip := ""
		if len(args) > 0 {
			ip = args[0]
		}

		entry, err := runWithSpinner("Analyzing...", func() (*model.LogEntry, error) {
			return s.app.Analyze(cmd.Context(), ip)
		})
		if err != nil {
			s.fatalf("❌ %v", err)
		}

		if analyzeJSON {
			printJSON(entry)
		} else {
			printEntry(entry, s.cfg.Geo.Locale)
		}
		if analyzeReport {
			s.metrics.PrintReport(os.Stdout)
		}
	},
}

// runWithSpinner shows an indeterminate spinner on stderr while fn runs.
func runWithSpinner(desc string, fn func() (*model.LogEntry, error)) (*model.LogEntry, error) {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetDescription("[cyan]"+desc+"[reset]"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				bar.Add(1)
			}
		}
	}()

	entry, err := fn()
	close(done)
	bar.Finish()
	return entry, err
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		logger.Log.Fatalf("Failed to encode output: %v", err)
	}
}

// printEntry renders the detail view of one analysis.
func printEntry(e *model.LogEntry, locale string) {
	g := e.Result.Geo
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	fmt.Printf("\n🔎 \033[1mANALYSIS OF %s\033[0m\n", g.Query)
	fmt.Println("────────────────────────────────────────")

	country := g.Country
	if country == "" && g.CountryCode != "" {
		country = geo.CountryName(g.CountryCode, locale)
	}

	fmt.Fprintln(w, "\033[1;36m[ LOCATION ]\033[0m\t")
	fmt.Fprintf(w, "  Country:\t%s %s (%s)\n", getFlagEmoji(g.CountryCode), orDash(country), orDash(g.CountryCode))
	fmt.Fprintf(w, "  City:\t%s\n", joinNonEmpty(g.City, g.Region))
	fmt.Fprintln(w, "\t")

	fmt.Fprintln(w, "\033[1;36m[ NETWORK ]\033[0m\t")
	fmt.Fprintf(w, "  ISP:\t%s\n", orDash(g.ISP))
	fmt.Fprintf(w, "  Organization:\t%s\n", orDash(g.Org))
	fmt.Fprintf(w, "  ASN:\t%s\n", orDash(g.ASN))
	fmt.Fprintln(w, "\t")

	if t := e.Result.Trace; t != nil {
		fmt.Fprintln(w, "\033[1;36m[ CONNECTION ]\033[0m\t")
		fmt.Fprintf(w, "  Data Center:\t%s\n", orDash(t.DataCenter))
		fmt.Fprintf(w, "  HTTP:\t%s\n", orDash(t.HTTPVersion))
		fmt.Fprintf(w, "  TLS:\t%s\n", orDash(t.TLSVersion))
		fmt.Fprintf(w, "  WARP:\t%s\n", orDash(t.WarpStatus))
		fmt.Fprintf(w, "  Scheme:\t%s\n", orDash(t.VisitScheme))
		fmt.Fprintf(w, "  User Agent:\t%s\n", orDash(t.UserAgent))
		fmt.Fprintln(w, "\t")
	}

	if e.SecurityScore != nil {
		fmt.Fprintln(w, "\033[1;36m[ SECURITY SCORE ]\033[0m\t")
		fmt.Fprintf(w, "  Score:\t%d / 100 (%s)\n", *e.SecurityScore, score.Grade(*e.SecurityScore))
		fmt.Fprintln(w, "\t")
	}

	fmt.Fprintf(w, "  Recorded:\t%s\n", e.Timestamp)
	w.Flush()
	fmt.Println("")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func joinNonEmpty(a, b string) string {
	switch {
	case a != "" && b != "":
		return a + ", " + b
	case a != "":
		return a
	}
	return orDash(b)
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Print the result as JSON")
	analyzeCmd.Flags().BoolVar(&analyzeReport, "report", false, "Print the upstream call report after the analysis")
	rootCmd.AddCommand(analyzeCmd)
}

