/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the library circulation engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize SQLite store
  3. Optionally load a policy file into settings
  4. Wire the lifecycle manager, bulk coordinator and stats service
  5. Start the background overdue sweeper
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080)
  -db      SQLite database path (default: library.db)
           Use ":memory:" for an in-memory database
  -policy  Optional JSON policy file; when set, replaces the stored
           circulation policy on startup

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/library.db"

  # Run with in-memory database and a policy file
  ./server -db=":memory:" -policy=./policy.json

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
  - factory/policy.go: Policy file parsing
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/library-engine/api"
	"github.com/warp/library-engine/factory"
	"github.com/warp/library-engine/library"
	"github.com/warp/library-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "library.db", "SQLite database path")
	policyPath := flag.String("policy", "", "JSON policy file to load on startup")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Optionally replace the stored policy from a file
	if *policyPath != "" {
		raw, err := os.ReadFile(*policyPath)
		if err != nil {
			log.Fatalf("Failed to read policy file: %v", err)
		}
		cfg, err := factory.ParsePolicy(raw)
		if err != nil {
			log.Fatalf("Failed to parse policy file: %v", err)
		}
		if err := store.SavePolicy(context.Background(), cfg); err != nil {
			log.Fatalf("Failed to save policy: %v", err)
		}
		log.Printf("Loaded policy: borrow limit %d, penalty threshold %d", cfg.MaxBorrowLimit, cfg.MaxPenaltyPoints)
	}

	// Wire services
	students := store.Students()
	manager := library.NewManager(store, students, store, store)
	coordinator := library.NewCoordinator(manager)
	stats := library.NewStats(store, students, store)

	handler := api.NewHandler(manager, coordinator, stats, store)
	router := api.NewRouter(handler)

	// Background overdue sweep
	sweeper := api.NewOverdueSweeper(store)
	sweeper.Start()
	defer sweeper.Stop()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
		log.Printf("API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
