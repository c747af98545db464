package main

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	"ipscope/internal/app"
	"ipscope/internal/logger"
	"ipscope/internal/model"

	"github.com/spf13/cobra"
)

var postcardOut string

var postcardCmd = &cobra.Command{
	Use:   "postcard [ip]",
	Short: "Generate a postcard image of the country an IP is located in",
	Long: `Analyzes the IP (your own connection when none is given) and asks the AI
service for a postcard of its country. With --out the JPEG is written to a file,
otherwise the data URI is printed.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s := setup()
		defer s.Close()

		ip := ""
		if len(args) > 0 {
			ip = args[0]
		}
		if _, err := runWithSpinner("Analyzing...", func() (*model.LogEntry, error) {
			return s.app.Analyze(cmd.Context(), ip)
		}); err != nil {
			s.fatalf("❌ %v", err)
		}

		logger.Log.Info("🎨 Generating postcard...")
		img, err := s.app.Postcard(cmd.Context())
		if err != nil {
			if errors.Is(err, app.ErrCredentialRequired) {
				s.fatalf("❌ No usable AI key. Set one with 'ipscope key set <key>'.")
			}
			s.fatalf("❌ %v", err)
		}

		if postcardOut == "" {
			fmt.Println(img.DataURI())
			return
		}

		data, err := base64.StdEncoding.DecodeString(img.Data)
		if err != nil {
			s.fatalf("Failed to decode image: %v", err)
		}
		if err := os.WriteFile(postcardOut, data, 0644); err != nil {
			s.fatalf("Failed to write image: %v", err)
		}
		logger.Log.Infof("✅ Postcard saved to %s", postcardOut)
	},
}

func init() {
	postcardCmd.Flags().StringVarP(&postcardOut, "out", "o", "", "Write the image to this file")
	rootCmd.AddCommand(postcardCmd)
}
