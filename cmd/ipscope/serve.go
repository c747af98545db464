package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ipscope/internal/logger"
	"ipscope/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON API for the dashboard front end",
	Run: func(cmd *cobra.Command, args []string) {
		s := setup()
		defer s.Close()

		addr := s.cfg.Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}

		if !verbose {
			gin.SetMode(gin.ReleaseMode)
		}
		router := server.NewRouter(&server.Handler{
			App:      s.app,
			Creds:    s.creds,
			Gatherer: s.registry,
		})
		srv := &http.Server{Addr: addr, Handler: router}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			logger.Log.Infof("🌐 Listening on http://%s", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.fatalf("Server failed: %v", err)
			}
		}()

		<-ctx.Done()
		logger.Log.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Log.Errorf("Shutdown failed: %v", err)
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}
