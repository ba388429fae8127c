package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clusterml/master/internal/audit"
	"github.com/clusterml/master/internal/config"
	"github.com/clusterml/master/internal/httpapi"
	"github.com/clusterml/master/internal/jobs"
	"github.com/clusterml/master/internal/nodes"
	"github.com/clusterml/master/internal/scheduler"
	"github.com/clusterml/master/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var auditSink *audit.Sink
	if cfg.StorageBackend == "postgres" {
		if cfg.DatabaseURL == "" {
			log.Fatal("STORAGE_BACKEND=postgres requires DATABASE_URL")
		}
		auditSink, err = audit.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to connect audit sink: %v", err)
		}
		defer auditSink.Close()
		log.Println("audit sink connected")
	}

	clusterStore := store.New()
	jobSupervisor := jobs.New(clusterStore)
	nodeSupervisor := nodes.New(clusterStore, cfg.NodeTimeout, cfg.SchedulerInterval, cfg.MaxConcurrentJobs)
	sched := scheduler.New(clusterStore, jobSupervisor, nodeSupervisor, cfg.SchedulerInterval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.Start(ctx)
	defer sched.Stop()

	apiKey := cfg.APIKey
	if cfg.DevMode {
		apiKey = ""
	}
	srv := httpapi.NewServer(jobSupervisor, nodeSupervisor, sched, auditSink, apiKey)

	server := &http.Server{
		Addr:    cfg.Host + ":" + cfg.Port,
		Handler: srv.Router(cfg.CORSOrigins),
	}

	go func() {
		log.Printf("master listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}
	log.Println("master exited")
}
