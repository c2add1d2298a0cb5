package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"leadadmin/api/internal/app"
	"leadadmin/api/internal/config"
	"leadadmin/api/internal/idempotency"
	"leadadmin/api/internal/search"
	"leadadmin/api/internal/store"
	"leadadmin/api/internal/telegram"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	dataStore := store.NewPostgresStore(db)

	router, err := telegram.NewChannelRouter(cfg)
	if err != nil {
		log.Fatalf("channel routing misconfigured: %v", err)
	}

	gateway, err := telegram.NewBotGateway(cfg.RequestBotToken)
	if err != nil {
		log.Fatalf("request bot init failed: %v", err)
	}
	notifier, err := telegram.NewBotNotifier(cfg.SpecBotToken)
	if err != nil {
		log.Fatalf("specialist bot init failed: %v", err)
	}

	pgSearch := search.NewPgSearch(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, pgSearch)
	if meiliClient != nil {
		go searchService.ReindexAllFromPG(ctx)
	}

	var replay *idempotency.RedisStore
	if strings.TrimSpace(cfg.RedisURL) != "" {
		log.Printf("Using Redis for idempotent publishing")
		replay, err = idempotency.NewRedisStore(cfg.RedisURL, time.Duration(cfg.IdempotencyTTLSeconds)*time.Second)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer replay.Close()
	}

	service := app.New(cfg, dataStore, gateway, notifier, router, searchService)
	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin, replay)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Lead admin API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
