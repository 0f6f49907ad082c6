package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"borneostock-sync/internal/config"
	"borneostock-sync/internal/connectivity"
	"borneostock-sync/internal/handler"
	"borneostock-sync/internal/queue"
	"borneostock-sync/internal/remote"
	"borneostock-sync/internal/router"
	"borneostock-sync/internal/service"
	"borneostock-sync/internal/session"
	"borneostock-sync/internal/store"
	"borneostock-sync/internal/syncer"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting BorneoStock sync agent...")

	cfg := config.MustLoad()
	log.Printf("Environment: %s", cfg.App.Environment)

	// Durable local store: the cache and pending queue must survive restarts.
	var kv store.KV
	switch cfg.LocalStore.Type {
	case "redis":
		redisStore, err := store.NewRedisStore(store.RedisConfig{
			Addr:      cfg.LocalStore.RedisAddress(),
			Password:  cfg.LocalStore.RedisPassword,
			DB:        cfg.LocalStore.RedisDB,
			KeyPrefix: cfg.LocalStore.RedisKeyPrefix,
		})
		if err != nil {
			log.Fatalf("Failed to initialize Redis store: %v", err)
		}
		kv = redisStore
		log.Println("Redis local store initialized")
	case "memory":
		kv = store.NewMemoryStore()
		log.Println("Warning: in-memory local store; offline state will not survive restart")
	default: // sqlite
		if err := os.MkdirAll(filepath.Dir(cfg.LocalStore.Path), 0o755); err != nil {
			log.Fatalf("Failed to create data directory: %v", err)
		}
		sqliteStore, err := store.NewSQLiteStore(cfg.LocalStore.Path)
		if err != nil {
			log.Fatalf("Failed to initialize SQLite store: %v", err)
		}
		kv = sqliteStore
		log.Println("SQLite local store initialized")
	}
	defer kv.Close()

	queueManager := queue.NewManager(kv)

	// Remote document store. A failed connection is not fatal: the agent
	// starts offline and syncs once connectivity and the remote come back.
	var remoteStore remote.Store
	if cfg.Remote.MongoURI != "" {
		mongoStore, err := remote.NewMongoStore(cfg.Remote.MongoURI, cfg.Remote.MongoDatabase, cfg.Remote.ItemsCollection)
		if err != nil {
			log.Printf("Warning: MongoDB connection failed, running offline: %v", err)
		} else {
			remoteStore = mongoStore
			defer mongoStore.Close(context.Background())
			log.Println("MongoDB remote store initialized")
		}
	} else {
		log.Println("Warning: MONGODB_URI not set, running offline-only")
	}

	prober := connectivity.NewHTTPProber(cfg.Sync.ProbeURL, cfg.Sync.ProbeTimeout)
	monitor := connectivity.NewMonitor(prober, cfg.Sync.ProbeInterval)
	monitor.Start()
	defer monitor.Stop()

	engine := syncer.NewEngine(remoteStore, queueManager, syncer.Config{
		MaxAttempts:   cfg.Sync.MaxAttempts,
		LogCollection: cfg.Remote.LogsCollection,
	})

	controller := session.NewController(queueManager, engine, monitor, cfg.Sync.DrainTimeout)
	controller.Start(context.Background())
	defer controller.Stop()

	inventoryService := service.NewInventoryService(queueManager, remoteStore, monitor, controller, service.Config{
		Collection:    cfg.Remote.ItemsCollection,
		LogCollection: cfg.Remote.LogsCollection,
	})

	r := router.New(router.Config{
		Handler:      handler.New(cfg.App.Version),
		ItemsHandler: handler.NewItemsHandler(inventoryService),
		SyncHandler:  handler.NewSyncHandler(controller),
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("Server listening on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Stopped. Pending changes remain queued for the next start.")
}
