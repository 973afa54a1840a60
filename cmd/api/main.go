package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"critical-duration/internal/api"
	"critical-duration/internal/api/handlers"
	"critical-duration/internal/data"
	"critical-duration/internal/log"

	"github.com/gin-gonic/gin"
)

func main() {
	if err := log.Init(os.Getenv("LOG_DEBUG") == "true"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	// Get configuration from environment
	port := os.Getenv("API_PORT")
	if port == "" {
		port = "8080"
	}
	if os.Getenv("API_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	nwis := data.NewNWISClient(os.Getenv("NWIS_BASE_URL"))
	ttl := data.ResultTTL()
	reservoirHandler := handlers.NewReservoirHandler(nwis, ttl)
	defer reservoirHandler.Close()

	router := api.NewRouter(handlers.NewAnalysisHandler(nwis), reservoirHandler)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Infow("starting API server", "addr", srv.Addr, "nwis", nwis.BaseURL, "result_ttl", ttl)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("shutdown failed", "error", err)
	}
}
