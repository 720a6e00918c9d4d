package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chanlock/chanlock/internal/chanlock/platform"
	"github.com/chanlock/chanlock/internal/chanlock/service"
	"github.com/chanlock/chanlock/internal/chanlock/store"
	sqlitestore "github.com/chanlock/chanlock/internal/chanlock/store/sqlite"
	"github.com/chanlock/chanlock/internal/config"
	"github.com/chanlock/chanlock/internal/db"
	"github.com/chanlock/chanlock/internal/httpapi"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := log.New(os.Stdout, "chanlock-server ", log.LstdFlags|log.LUTC)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Durable state
	conn, err := db.Open(ctx, db.Config{Path: cfg.DBPath, Env: cfg.Env})
	if err != nil {
		logger.Fatalf("open db: %v", err)
	}
	defer conn.Close()

	writer := db.NewWorker(conn)
	defer writer.Close()

	credStore := sqlitestore.NewCredentialStore(conn, writer)
	grantStore := sqlitestore.NewGrantStore(conn, writer)
	eventStore := sqlitestore.NewUnlockEventStore(conn, writer)

	// Platform adapter (in-memory directory until a real chat platform
	// binding is deployed alongside).
	adapter := platform.NewDirectory(cfg.Channels)

	// Expiry scheduler: the catch-up pass inside Start revokes everything
	// that expired while the process was down, before we serve requests.
	scheduler := service.NewExpiryScheduler(grantStore, func(ctx context.Context, g store.Grant) error {
		return adapter.RevokeRevealTo(ctx, g.ResourceID, g.SubjectID)
	}, service.SchedulerConfig{SweepInterval: cfg.SweepInterval}, logger)
	if err := scheduler.Start(ctx); err != nil {
		logger.Fatalf("start scheduler: %v", err)
	}
	defer scheduler.Stop()

	controller := service.NewAccessController(
		credStore, grantStore, eventStore, adapter, scheduler,
		service.ControllerConfig{
			GrantTTL:       cfg.GrantTTL,
			AdapterTimeout: cfg.AdapterTimeout,
		},
		logger,
	)

	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:     logger,
		Addr:       cfg.HTTPAddr,
		Controller: controller,
	})

	go func() {
		logger.Printf("listening on %s", cfg.HTTPAddr)
		if err := srv.Start(); err != nil {
			logger.Printf("server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
