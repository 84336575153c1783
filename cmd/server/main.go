package main

import (
	"context"
	"database/sql"
	goerrors "errors"
	"fmt"
	"livechat/contract"
	"livechat/infrastructure/grpc/chatrpc"
	"livechat/infrastructure/grpc/server"
	index "livechat/infrastructure/search"
	"livechat/infrastructure/session"
	"livechat/infrastructure/storage"
	"livechat/infrastructure/ws"
	"livechat/internal"
	"livechat/moderation"
	"livechat/observability"
	"livechat/projection"
	"livechat/runtime"
	"livechat/runtime/workers"
	"livechat/services"
	"livechat/sink"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	grpc3 "github.com/mama165/sdk-go/grpc"
	"github.com/mama165/sdk-go/logs"
	"google.golang.org/grpc"
)

// Exit codes of the server.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component and blocks until a termination signal.
// Deferred cleanups run before main exits.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Store
	var (
		store    contract.MessageStore
		badgerDB *badger.DB
	)
	switch config.StoreDriver {
	case internal.StoreSQLite:
		db, err := storage.OpenSQLite(config.SQLitePath)
		if err != nil {
			return exitRuntime, fmt.Errorf("sqlite opening failed: %w", err)
		}
		defer closeSQLite(log, db)
		store = storage.NewSQLiteMessageRepository(db, log)
	default:
		db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).WithLoggingLevel(badger.WARNING))
		if err != nil {
			return exitRuntime, fmt.Errorf("database opening failed: %w", err)
		}
		defer func() {
			log.Info("Closing BadgerDB...")
			_ = db.Close()
		}()
		badgerDB = db
		store = storage.NewMessageRepository(db, log)
	}

	// 3. Search index
	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return exitRuntime, fmt.Errorf("search index opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing search index...")
		_ = blugeWriter.Close()
	}()
	searchIndex := index.NewIndex(blugeWriter, log)

	// 4. Moderation
	var censor contract.Censor
	if config.EnableModeration {
		charReplacement, err := internal.CharacterRune(config.CharReplacement)
		if err != nil {
			return exitConfig, err
		}
		moderator, err := moderation.NewDefaultModerator(charReplacement, log)
		if err != nil {
			return exitRuntime, fmt.Errorf("moderation setup failed: %w", err)
		}
		censor = moderator
	}

	// 5. Supervision & Orchestration
	supervisor := workers.NewSupervisor(log, config.RestartInterval)
	orchestrator := runtime.NewOrchestrator(log, supervisor, runtime.NewRegistry(), store, censor, runtime.Settings{
		BufferSize:       config.BufferSize,
		SinkTimeout:      config.SinkTimeout,
		LimitMessages:    config.LimitMessages,
		MaxContentLength: config.MaxContentLength,
		DefaultSender:    config.DefaultSender,
	})
	monitoring := observability.NewMonitoringManager(log, orchestrator.Gauges, config.MetricInterval)
	mirror := projection.NewTimeline("server")
	orchestrator.Add(sink.NewSearchSink(searchIndex, log), monitoring, mirror)
	supervisor.Add(monitoring)

	if err := reindex(context.Background(), store, searchIndex); err != nil {
		log.Warn("Initial indexing failed", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	running := make(chan struct{})
	go func() {
		orchestrator.Start(ctx)
		close(running)
	}()

	// 6. Transports
	chatService := services.NewChatService(log, orchestrator, store, searchIndex)
	pump := session.NewPump(log, chatService, config.ConnectionBufferSize)
	errChan := make(chan error, 2)

	grpcAddress := fmt.Sprintf("%s:%d", config.Host, config.GRPCPort)
	listener, err := net.Listen("tcp", grpcAddress)
	if err != nil {
		orchestrator.Stop()
		<-running
		return exitRuntime, fmt.Errorf("failed to listen on %s: %w", grpcAddress, err)
	}
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(grpc3.UnaryLoggingInterceptor(log)))
	chatrpc.RegisterChatServiceServer(grpcServer, server.NewChatServer(log, chatService, pump))
	go func() {
		log.Info("Starting gRPC server", "address", grpcAddress, "at", time.Now().UTC())
		if err := grpcServer.Serve(listener); err != nil && !goerrors.Is(err, grpc.ErrServerStopped) {
			errChan <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	var extra []func(r *mux.Router)
	if config.DebugEnabled {
		debug := internal.NewDebugServer(log, badgerDB, nil, func() any {
			return map[string]any{
				"monitoring":       monitoring.GetLatest(),
				"mirrored_records": mirror.Len(),
			}
		})
		extra = append(extra, debug.Register)
	}
	httpAddress := fmt.Sprintf("%s:%d", config.Host, config.HTTPPort)
	httpServer := &http.Server{
		Addr:              httpAddress,
		Handler:           ws.NewServer(log, chatService, pump).Router(extra...),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("Starting HTTP server", "address", httpAddress, "debug", config.DebugEnabled)
		if err := httpServer.ListenAndServe(); err != nil && !goerrors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	code := exitOK
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err = <-errChan:
		code = exitRuntime
	}

	// 8. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	grpcServer.Stop()
	orchestrator.Stop()
	<-running
	log.Info("Program stopped", "exit_code", code)

	return code, err
}

// reindex rebuilds the search index from the store, the index is derived data.
func reindex(ctx context.Context, store contract.MessageStore, searchIndex *index.Index) error {
	messages, err := store.FindAll(ctx)
	if err != nil {
		return err
	}
	return searchIndex.Index(ctx, messages...)
}

func closeSQLite(log *slog.Logger, db *sql.DB) {
	log.Info("Closing SQLite...")
	_ = db.Close()
}
