package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tinoosan/contentd/internal/content"
	"github.com/tinoosan/contentd/internal/downloader"
	"github.com/tinoosan/contentd/internal/fetch"
	"github.com/tinoosan/contentd/internal/metrics"
	"github.com/tinoosan/contentd/internal/notify"
	"github.com/tinoosan/contentd/internal/observability"
	"github.com/tinoosan/contentd/internal/reconciler"
	"github.com/tinoosan/contentd/internal/repo"
	"github.com/tinoosan/contentd/internal/router"
)

func main() {
	logger := observability.NewLoggerFromEnv()
	metrics.Register()

	var runs repo.RunRepo
	if os.Getenv("CONTENTD_POSTGRES") == "1" {
		pg, err := repo.NewPostgresRunRepoFromEnv()
		if err != nil {
			logger.Error("connect postgres run repo", "err", err)
			os.Exit(1)
		}
		defer pg.Close()
		runs = pg
		logger.Info("using postgres run history")
	} else {
		runs = repo.NewInMemoryRunRepo()
	}

	events := make(chan downloader.Event, 64)
	hub := notify.NewHub(logger)

	rec := reconciler.New(logger, runs, events, hub)
	rec.Run()

	facade := content.NewFacade(logger, fetch.NewClientFromEnv(), downloader.NewChanReporter(events))
	facade.Start()

	addr := os.Getenv("CONTENTD_ADDR")
	if addr == "" {
		addr = ":9390"
	}

	r := router.New(logger, facade, runs, hub, os.Getenv("CONTENTD_API_TOKEN"))

	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		IdleTimeout:  120 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("starting contentd API", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info("received terminate, graceful shutdown", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "err", err)
	}

	// Providers finish their in-flight runs before Stop returns; only then
	// is the event pipeline torn down.
	facade.Stop()
	rec.Stop()
	hub.Close()
}
