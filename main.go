package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"gopkg.in/natefinch/lumberjack.v2"

	"watchsync/api"
	"watchsync/config"
	"watchsync/handlers"
	"watchsync/services/library"
	"watchsync/services/localstore"
	"watchsync/services/player"
	"watchsync/services/remote"
	"watchsync/services/session"
	"watchsync/services/syncer"
)

func main() {
	portOverride := flag.Int("port", 0, "override server port from config")
	flag.Parse()

	// Optional .env for local development; missing file is fine.
	_ = godotenv.Load()

	configPath := os.Getenv("WATCHSYNC_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("state", "settings.json")
	}

	cfgManager := config.NewManager(configPath)
	settings, err := cfgManager.Load()
	if err != nil {
		log.Fatalf("failed to load settings: %v", err)
	}

	// Set up file logging with rotation
	if settings.Log.File != "" {
		logDir := filepath.Dir(settings.Log.File)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			log.Printf("Warning: could not create log directory %s: %v", logDir, err)
		} else {
			fileWriter := &lumberjack.Logger{
				Filename:   settings.Log.File,
				MaxSize:    settings.Log.MaxSize,
				MaxBackups: settings.Log.MaxBackups,
				MaxAge:     settings.Log.MaxAge,
				Compress:   settings.Log.Compress,
			}
			multiWriter := io.MultiWriter(os.Stdout, fileWriter)
			log.SetOutput(multiWriter)
			log.SetFlags(log.LstdFlags | log.Lshortfile)
			log.Printf("Logging to file: %s", settings.Log.File)
		}
	}

	if *portOverride > 0 {
		settings.Server.Port = *portOverride
	}

	if baseURL := os.Getenv("WATCHSYNC_ACCOUNT_URL"); baseURL != "" {
		settings.Account.BaseURL = baseURL
	}

	store, err := localstore.NewStore(afero.NewOsFs(), settings.State.Directory)
	if err != nil {
		log.Fatalf("failed to initialise local state store: %v", err)
	}

	libraryService := library.NewService(store)

	remoteClient, err := remote.NewClient(
		settings.Account.BaseURL,
		time.Duration(settings.Account.TimeoutSeconds)*time.Second,
		settings.Sync.FetchRetryAttempts,
	)
	if err != nil {
		log.Fatalf("failed to initialise account client: %v", err)
	}

	observer := session.NewObserver(remoteClient, time.Duration(settings.Sync.SessionPollSeconds)*time.Second)
	syncService := syncer.NewService(
		libraryService,
		remoteClient,
		observer,
		store,
		time.Duration(settings.Sync.PushIntervalSeconds)*time.Second,
	)

	playerBridge := player.NewBridge(libraryService, settings.Player.AllowedOrigins)

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	if err := store.Watch(rootCtx); err != nil {
		log.Printf("warning: external state watch disabled: %v", err)
	}

	if err := syncService.Start(rootCtx); err != nil {
		log.Fatalf("failed to start sync service: %v", err)
	}

	slog.Info("watchsync starting",
		"account_url", settings.Account.BaseURL,
		"state_dir", settings.State.Directory,
		"push_interval_s", settings.Sync.PushIntervalSeconds,
	)

	r := mux.NewRouter()
	api.Register(
		r,
		handlers.NewFavoritesHandler(libraryService),
		handlers.NewProgressHandler(libraryService),
		handlers.NewAuthHandler(syncService, libraryService),
		handlers.NewSyncHandler(syncService),
		handlers.NewPlayerHandler(playerBridge),
	)

	addr := fmt.Sprintf("%s:%d", settings.Server.Host, settings.Server.Port)
	fmt.Printf("Server starting on %s\n", addr)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-shutdownChan
	log.Println("shutdown signal received, cleaning up...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop the sync loop before the server so no push fires mid-teardown.
	if err := syncService.Stop(shutdownCtx); err != nil {
		log.Printf("sync service shutdown error: %v", err)
	}
	rootCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("shutdown complete")
}
