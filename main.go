package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"gopkg.in/natefinch/lumberjack.v2"

	"dramastream/api"
	"dramastream/config"
	"dramastream/handlers"
	"dramastream/models"
	"dramastream/services/progress"
	"dramastream/services/providers"
	syncsvc "dramastream/services/sync"
	"dramastream/upstream"
)

func main() {
	portOverride := flag.Int("port", 0, "override server port from config")
	flag.Parse()

	// Optional .env for local development; absence is fine.
	_ = godotenv.Load()

	configPath := os.Getenv("DRAMASTREAM_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("cache", "settings.json")
	}

	cfgManager := config.NewManager(configPath)
	settings, err := cfgManager.Load()
	if err != nil {
		log.Fatalf("failed to load settings: %v", err)
	}

	// Set up file logging with rotation
	if settings.Log.File != "" {
		logDir := filepath.Dir(settings.Log.File)
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			log.Printf("warning: could not create log directory %s: %v", logDir, err)
		} else {
			fileWriter := &lumberjack.Logger{
				Filename:   settings.Log.File,
				MaxSize:    settings.Log.MaxSize,
				MaxBackups: settings.Log.MaxBackups,
				MaxAge:     settings.Log.MaxAge,
				Compress:   settings.Log.Compress,
			}
			log.SetOutput(io.MultiWriter(os.Stdout, fileWriter))
			log.SetFlags(log.LstdFlags | log.Lshortfile)
			log.Printf("logging to file: %s", settings.Log.File)
		}
	}

	if *portOverride > 0 {
		settings.Server.Port = *portOverride
	}

	// One process-wide homepage cache shared by all adapters.
	pageCache := upstream.NewPageCache()
	lang := settings.Providers.Language

	var adapters []providers.Adapter
	if p := settings.Providers.Dramabox; p.Enabled {
		adapters = append(adapters, providers.NewDramabox(p.BaseURL, lang, nil, pageCache))
	}
	if p := settings.Providers.Melolo; p.Enabled {
		adapters = append(adapters, providers.NewMelolo(p.BaseURL, p.APICode, lang, nil, pageCache))
	}
	if p := settings.Providers.Netshort; p.Enabled {
		adapters = append(adapters, providers.NewNetshort(p.BaseURL, lang, nil, pageCache))
	}
	if p := settings.Providers.Reelife; p.Enabled {
		adapters = append(adapters, providers.NewReelife(p.BaseURL, lang, nil, pageCache))
	}
	registry := providers.NewRegistry(adapters...)
	multiSearch := providers.NewMultiSearch(registry)

	// Sync bridge: remote store when configured, no-op otherwise.
	var bridge syncsvc.Bridge = syncsvc.NopBridge{}
	if settings.Sync.Enabled && settings.Sync.Endpoint != "" {
		bridge = syncsvc.NewClient(settings.Sync.Endpoint, settings.Sync.APIKey, nil)
		log.Printf("cloud sync enabled against %s", settings.Sync.Endpoint)
	}
	outbox := syncsvc.NewOutbox(bridge)

	progressService, err := progress.NewService(settings.Cache.Directory)
	if err != nil {
		log.Fatalf("failed to initialise progress store: %v", err)
	}
	progressService.SetRemoteQueue(outbox)

	// Session-start pull: merge the remote ledger for the persisted
	// profile before any requests land.
	if user := progressService.CurrentUser(); user != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if entries, err := bridge.Pull(ctx, user.Key()); err != nil {
			log.Printf("[sync] startup pull failed: %v", err)
		} else if len(entries) > 0 {
			progressService.ReplaceContinueWatchingForCurrentUser(entries)
		}
		cancel()
	}

	catalogHandler := handlers.NewCatalogHandler(registry, multiSearch)
	progressHandler := handlers.NewProgressHandler(progressService, bridge, outbox)
	myListHandler := handlers.NewMyListHandler(progressService)
	sessionHandler := handlers.NewSessionHandler(progressService)

	r := mux.NewRouter()
	api.Register(r, catalogHandler, progressHandler, myListHandler, sessionHandler)

	addr := fmt.Sprintf("%s:%d", settings.Server.Host, settings.Server.Port)
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
		log.Printf("server listening on %s (default platform %s)", addr, models.ParsePlatform(settings.DefaultPlatform))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownChan
	log.Println("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	// Drain pending cloud pushes, then force the final state write.
	outbox.Close()
	if err := progressService.Flush(); err != nil {
		log.Printf("state flush error: %v", err)
	}

	log.Println("shutdown complete")
}
