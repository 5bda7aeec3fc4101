package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Eric-A99/discogs-preview/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the lookup API server",
	Long:  `Start the HTTP server exposing the price lookup API consumed by the browser extension`,
	Run:   runServeCommand,
}

func runServeCommand(cmd *cobra.Command, args []string) {
	srv := server.NewServer(&conf)

	// Start server in a goroutine
	go func() {
		if err := srv.Start(); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Stop(ctx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	log.Info("Server exited")
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
