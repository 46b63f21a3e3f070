// Package main implements the chess server: a JSON API over the rules engine with
// optional persistence and restore of unfinished games at startup.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chessarena/cmd/chess-server/cli"
	"chessarena/internal/server/http"
	"chessarena/internal/server/processor"
	"chessarena/internal/server/service"
	"chessarena/internal/server/storage"
)

const (
	gracefulShutdownTimeout = time.Second * 5
	restoreTimeout          = time.Minute
)

func main() {
	// Check for CLI database commands
	if len(os.Args) > 1 && os.Args[1] == "db" {
		if err := cli.Run(os.Args[2:]); err != nil {
			log.Fatalf("CLI error: %v", err)
		}
		os.Exit(0)
	}

	// Command-line flags
	var (
		apiHost       = flag.String("api-host", "localhost", "API server host")
		apiPort       = flag.Int("api-port", 8080, "API server port")
		dev           = flag.Bool("dev", false, "Development mode (relaxed rate limits)")
		storagePath   = flag.String("storage-path", "", "Path to the database (disables persistence if empty)")
		storageDriver = flag.String("storage-driver", "sqlite", "Storage backend: sqlite or badger")
		replayWorkers = flag.Int("replay-workers", 4, "Workers replaying persisted games at startup")
		pidPath       = flag.String("pid", "", "Optional path to write PID file")
		pidLock       = flag.Bool("pid-lock", false, "Lock PID file to allow only one instance (requires -pid)")
	)
	flag.Parse()

	// Validate PID flags
	if *pidLock && *pidPath == "" {
		log.Fatal("Error: -pid-lock flag requires the -pid flag to be set")
	}

	// Manage PID file if requested
	if *pidPath != "" {
		cleanup, err := managePIDFile(*pidPath, *pidLock)
		if err != nil {
			log.Fatalf("Failed to manage PID file: %v", err)
		}
		defer cleanup()
		log.Printf("PID file created at: %s (lock: %v)", *pidPath, *pidLock)
	}

	// 1. Initialize Storage (optional); the service closes it on shutdown
	var store storage.Store
	if *storagePath != "" {
		log.Printf("Initializing %s storage at: %s", *storageDriver, *storagePath)
		var err error
		store, err = storage.Open(*storageDriver, *storagePath, *dev)
		if err != nil {
			log.Fatalf("Failed to initialize storage: %v", err)
		}
		if err := store.InitDB(); err != nil {
			log.Fatalf("Failed to initialize schema: %v", err)
		}
	} else {
		log.Printf("Persistent storage disabled (use -storage-path to enable)")
	}

	// 2. Initialize the Service with optional storage
	svc := service.New(store)

	// 3. Initialize the Processor, injecting the service
	proc := processor.New(svc, *replayWorkers)

	// 4. Bring back unfinished games before accepting traffic
	if store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), restoreTimeout)
		restored, failed, err := proc.RestoreGames(ctx)
		cancel()
		if err != nil {
			log.Printf("Restore skipped: %v", err)
		} else {
			log.Printf("Restored %d game(s), %d unrecoverable", restored, failed)
		}
	}

	// 5. Initialize the Fiber App/HTTP Handler, injecting processor and service
	app := http.NewFiberApp(proc, svc, *dev)

	// API Server configuration
	apiAddr := fmt.Sprintf("%s:%d", *apiHost, *apiPort)

	// Start API server in a goroutine
	go func() {
		log.Printf("Chess API Server starting...")
		log.Printf("API Listening on: http://%s", apiAddr)
		log.Printf("API Version: v1")
		if *dev {
			log.Printf("Rate Limit: 20 requests/second per IP (DEV MODE)")
		} else {
			log.Printf("Rate Limit: 10 requests/second per IP")
		}
		if *storagePath != "" {
			log.Printf("Storage: Enabled (%s, %s)", *storageDriver, *storagePath)
		} else {
			log.Printf("Storage: Disabled")
		}
		log.Printf("API Endpoints: http://%s/api/v1/games", apiAddr)
		log.Printf("Spectators: ws://%s/api/v1/games/:id/ws", apiAddr)
		log.Printf("Health: http://%s/health", apiAddr)

		if err := app.Listen(apiAddr); err != nil {
			log.Printf("API server listen error: %v", err)
		}
	}()

	// Wait for an interrupt signal to gracefully shut down
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer shutdownCancel()

	// Release parked long-polls and spectator streams before the listener drains
	if err := svc.ReleaseWaiters(gracefulShutdownTimeout); err != nil {
		log.Printf("Wait registry shutdown error: %v", err)
	}

	// Graceful shutdown of HTTP server with timeout
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	if err := proc.Close(); err != nil {
		log.Printf("Processor close error: %v", err)
	}

	// Flush pending writes and close storage
	if err := svc.Shutdown(gracefulShutdownTimeout); err != nil {
		log.Printf("Service shutdown error: %v", err)
	}

	log.Println("Server exited")
}
