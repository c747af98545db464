package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"ipscope/internal/logger"

	"github.com/spf13/cobra"
)

var historyJSON bool

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past analyses, newest first",
	Run: func(cmd *cobra.Command, args []string) {
		s := setup()
		defer s.Close()

		entries := s.history.List()
		if historyJSON {
			printJSON(entries)
			return
		}
		if len(entries) == 0 {
			fmt.Println("No analyses recorded yet.")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "#\tTIME\tIP\tLOCATION\tORG\tSCORE")
		for i, e := range entries {
			g := e.Result.Geo
			sc := "-"
			if e.SecurityScore != nil {
				sc = strconv.Itoa(*e.SecurityScore)
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s %s\t%s\t%s\n",
				i+1, e.Timestamp, g.Query, getFlagEmoji(g.CountryCode), joinNonEmpty(g.City, g.CountryCode), orDash(g.Org), sc)
		}
		w.Flush()
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <n>",
	Short: "Show the details of history entry n (1 is the newest)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			logger.Log.Fatalf("Invalid entry number: %v", err)
		}

		s := setup()
		defer s.Close()

		entries := s.history.List()
		if n < 1 || n > len(entries) {
			s.fatalf("No history entry %d (have %d)", n, len(entries))
		}
		if historyJSON {
			printJSON(entries[n-1])
			return
		}
		printEntry(&entries[n-1], s.cfg.Geo.Locale)
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every recorded analysis",
	Run: func(cmd *cobra.Command, args []string) {
		s := setup()
		defer s.Close()

		if err := s.history.Clear(); err != nil {
			s.fatalf("Failed to clear history: %v", err)
		}
		logger.Log.Info("🗑️  History cleared.")
	},
}

func init() {
	historyCmd.PersistentFlags().BoolVar(&historyJSON, "json", false, "Print entries as JSON")
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyClearCmd)
	rootCmd.AddCommand(historyCmd)
}
