package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-hive/auth"
	"chat-hive/infrastructure/storage"
	"chat-hive/moderation"
	"chat-hive/observability"
	"chat-hive/realtime"
	"chat-hive/repositories"
	"chat-hive/transport/httpapi"
	"chat-hive/transport/ws"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting, so every defer (database close, index close)
// executes before the process exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Stores: BadgerDB documents, bluge search index, attachment blobs
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	indexWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return fmt.Errorf("search index opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing search index...")
		_ = indexWriter.Close()
	}()

	blobs, err := storage.NewLocalBlobStore(log, config.BlobDir, config.BlobBaseURL)
	if err != nil {
		return fmt.Errorf("blob store init failed: %w", err)
	}

	users := repositories.NewUserRepository(db)
	chats := repositories.NewChatRepository(db)
	messages := repositories.NewMessageRepository(db, log, config.LimitMessages)
	index := repositories.NewUserIndex(indexWriter, log)

	// 3. Moderation
	words, err := moderation.LoadWords()
	if err != nil {
		return fmt.Errorf("loading censored words failed: %w", err)
	}
	moderator, err := moderation.NewModerator(words.Words, config.ModerationCharReplacement)
	if err != nil {
		return fmt.Errorf("moderator init failed: %w", err)
	}

	// 4. Realtime core
	registry := realtime.NewRegistry(log)
	presence := realtime.NewPresence()
	monitor := observability.NewMonitor(log, users, chats, messages, presence)
	broadcaster := realtime.NewBroadcaster(log, registry, monitor)

	persist := make(chan realtime.PersistRequest, config.PersistBufferSize)
	ingestor := realtime.NewIngestor(log, broadcaster, &moderator, persist)
	polls := realtime.NewPollCoordinator(log, messages, chats, broadcaster)
	hub := realtime.NewHub(log, registry, presence, broadcaster, ingestor, polls,
		&moderator, users, chats, messages, blobs)

	// 5. Supervised background workers
	sup := realtime.NewSupervisor(log)
	for i := 0; i < config.NumberOfPersistWorkers; i++ {
		sup.Add(realtime.NewPersistWorker(log, messages, registry, persist))
	}
	sup.Add(observability.NewHealthWorker(log, monitor, config.HealthInterval))

	// 6. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	supDone := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(supDone)
	}()

	// 7. HTTP server: websocket endpoint plus the REST surface
	gate := auth.NewGate([]byte(config.JWTSecret), users, log)
	wsServer := ws.NewServer(log, gate, hub, config.SendBufferSize)
	router := httpapi.NewRouter(httpapi.Deps{
		Log:      log,
		Gate:     gate,
		Hub:      hub,
		WS:       wsServer,
		Messages: messages,
		Chats:    chats,
		Index:    index,
		Monitor:  monitor,
		Blobs:    blobs,
		BlobDir:  blobs.Dir(),
		AdminKey: config.AdminKey,
	})

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{Addr: address, Handler: router}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	// 8. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 9. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("Server shutdown was not clean", "error", err)
	}
	sup.Stop()
	<-supDone
	log.Info("Program stopped cleanly")

	return nil
}
