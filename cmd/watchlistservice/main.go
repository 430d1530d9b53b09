package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	httpAPI "watchlist-service/internal/api"
	"watchlist-service/internal/catalog"
	"watchlist-service/internal/clients"
	"watchlist-service/internal/config"
	grpcServer "watchlist-service/internal/grpc"
	"watchlist-service/internal/ingest"
	"watchlist-service/internal/store"
)

// redactDSN hides the password of a connection URL for logging.
func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "<unparseable>"
	}
	return u.Redacted()
}

// connectToDB opens the database and checks that it answers.
func connectToDB(ctx context.Context, dbURL string, logger *slog.Logger) (*sqlx.DB, error) {
	logger.Info("Attempting to connect to database", slog.String("dbURL_used", redactDSN(dbURL)))

	db, err := sqlx.ConnectContext(ctx, "postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	logger.Info("Successfully connected to PostgreSQL database.")
	return db, nil
}

type stores struct {
	titles      store.TitleStore
	reviews     store.ReviewStore
	discussions store.DiscussionStore
	close       func()
}

// openStores returns the configured stores and a function that releases
// them.
func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*stores, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		logger.Warn("Using in-memory stores, data is lost on restart")
		return &stores{
			titles:      store.NewMemoryTitleStore(logger),
			reviews:     store.NewMemoryReviewStore(logger),
			discussions: store.NewMemoryDiscussionStore(logger),
			close:       func() {},
		}, nil
	}

	db, err := connectToDB(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, err
	}
	closeDB := func() {
		logger.Info("Closing PostgreSQL database connection...")
		if err := db.Close(); err != nil {
			logger.Error("Failed to close PostgreSQL connection", slog.String("error", err.Error()))
		}
	}
	if cfg.AutoMigrate {
		if err := store.Migrate(ctx, db, logger); err != nil {
			closeDB()
			return nil, err
		}
	}

	opened := &stores{close: closeDB}
	if opened.titles, err = store.NewPostgresTitleStore(db, logger); err != nil {
		closeDB()
		return nil, err
	}
	if opened.reviews, err = store.NewPostgresReviewStore(db, logger); err != nil {
		closeDB()
		return nil, err
	}
	if opened.discussions, err = store.NewPostgresDiscussionStore(db, logger); err != nil {
		closeDB()
		return nil, err
	}
	return opened, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	storage, err := openStores(startCtx, cfg, logger)
	cancelStart()
	if err != nil {
		logger.Error("Failed to initialize stores", slog.String("driver", cfg.StoreDriver), slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer storage.close()
	titleStorage, reviewStorage := storage.titles, storage.reviews
	logger.Info("Stores initialized", slog.String("driver", cfg.StoreDriver))

	catalogClient, err := catalog.NewClient(catalog.Config{
		BaseURL: cfg.Catalog.BaseURL,
		APIKey:  cfg.Catalog.APIKey,
		Timeout: cfg.Catalog.Timeout,
	}, logger)
	if err != nil {
		logger.Error("Failed to create catalog client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer catalogClient.Close()

	ingester := ingest.NewIngester(titleStorage, catalogClient, logger, cfg.Catalog.MaxConcurrency)

	var titleDirectory httpAPI.TitleDirectory = httpAPI.StoreTitleDirectory{Titles: titleStorage}
	if cfg.TitleServiceAddr != "" {
		peer, err := clients.NewTitleServiceGRPCClient(cfg.TitleServiceAddr, logger)
		if err != nil {
			logger.Error("Failed to create title service client", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer peer.Close()
		titleDirectory = peer
	}

	// --- gRPC server ---
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		logger.Error("Failed to listen for gRPC", slog.String("port", cfg.GRPCPort), slog.String("error", err.Error()))
		os.Exit(1)
	}
	grpcSrv := grpc.NewServer()
	grpcServer.RegisterTitleInterServiceServer(grpcSrv, grpcServer.NewServer(titleStorage, logger))
	reflection.Register(grpcSrv)

	go func() {
		logger.Info("gRPC server starting", slog.String("port", cfg.GRPCPort))
		if err := grpcSrv.Serve(lis); err != nil {
			logger.Error("gRPC server Serve() failed", slog.String("error", err.Error()))
		}
	}()

	// --- HTTP server ---
	router := httpAPI.NewRouter(
		httpAPI.NewWatchlistHandler(ingester, catalogClient, titleStorage, reviewStorage, logger),
		httpAPI.NewTitleHandler(titleStorage, logger),
		httpAPI.NewReviewHandler(reviewStorage, logger, validator.New(), titleDirectory),
		httpAPI.NewDiscussionHandler(storage.discussions, logger, validator.New(), titleDirectory),
	)
	httpSrv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("HTTP server starting", slog.String("port", cfg.HTTPPort))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server ListenAndServe() failed", slog.String("error", err.Error()))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Watchlist service shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown failed", slog.String("error", err.Error()))
	} else {
		logger.Info("HTTP server gracefully stopped.")
	}

	grpcSrv.GracefulStop()
	logger.Info("gRPC server gracefully stopped.")
}
