package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/httpserver"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/pkg/authclient"
	"github.com/Skotchmaster/storefront/pkg/config"
	pkgdb "github.com/Skotchmaster/storefront/pkg/db"
	"github.com/Skotchmaster/storefront/pkg/hash"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/tokens"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: could not load .env: %v", err)
	}

	cfg := config.MustLoad()

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := pkgdb.Open(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	if err := repo.Migrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	store := &repo.GormRepo{DB: db}
	if err := ensureAdmin(context.Background(), store, cfg); err != nil {
		log.Fatalf("admin bootstrap: %v", err)
	}

	var (
		publisher service.Publisher
		indexer   service.ProductIndexer
		producer  *events.Producer
	)
	if len(cfg.KafkaBrokers) > 0 {
		producer, err = events.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			log.Fatalf("kafka producer: %v", err)
		}
		publisher = producer
	} else {
		logger.Warn("kafka_disabled", "reason", "KAFKA_BROKERS is empty")
	}
	if cfg.ElasticURL != "" {
		esCtx, esCancel := context.WithTimeout(context.Background(), 10*time.Second)
		es, err := search.NewClient(esCtx, cfg, logger)
		esCancel()
		if err != nil {
			log.Fatalf("elasticsearch: %v", err)
		}
		indexer = search.NewIndexer(es, cfg.ElasticIndex)
	} else {
		logger.Warn("search_index_disabled", "reason", "ELASTIC_URL is empty")
	}

	var authClient *authclient.Client
	if cfg.AuthHTTPURL != "" {
		authClient = authclient.NewClient(cfg.AuthHTTPURL)
	}

	e := echo.New()
	e.HideBanner = true
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(httpserver.Common(logger)...)

	httpserver.Register(e, &httpserver.Deps{
		OrderHandler:   &httpserver.OrderHTTP{Svc: &service.OrderService{Repo: store, Publisher: publisher, Indexer: indexer}},
		CatalogHandler: &httpserver.CatalogHTTP{Svc: &service.CatalogService{Repo: store, Publisher: publisher, Indexer: indexer}},
		ReviewHandler:  &httpserver.ReviewHTTP{Svc: &service.ReviewService{Repo: store, Publisher: publisher, Indexer: indexer}},
		Repo:           store,
		JWTSecret:      cfg.JWTAccessSecret,
		AuthClient:     authClient,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("http_listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting_down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server_shutdown_failed", "error", err)
	}
	if err := pkgdb.Close(db); err != nil {
		logger.Error("db_close_failed", "error", err)
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("kafka_close_failed", "error", err)
		}
	}

	logger.Info("shutdown_complete")
}

// ensureAdmin creates the configured admin account on first start.
func ensureAdmin(ctx context.Context, store *repo.GormRepo, cfg config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}
	pwHash, err := hash.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}
	admin, err := store.EnsureUser(ctx, &models.User{
		Username:     "admin",
		Email:        cfg.AdminEmail,
		PasswordHash: pwHash,
		Role:         tokens.RoleAdmin,
	})
	if err != nil {
		return err
	}
	slog.Info("admin_ready", "user_id", admin.ID, "email", admin.Email)
	return nil
}
