package main

import (
	"context"
	"errors"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"vieux-grimoire-api/configs"
	"vieux-grimoire-api/internal/auth"
	"vieux-grimoire-api/internal/constants"
	"vieux-grimoire-api/internal/daemon"
	"vieux-grimoire-api/internal/db"
	"vieux-grimoire-api/internal/handlers"
	"vieux-grimoire-api/internal/images"
	"vieux-grimoire-api/internal/logger"
	"vieux-grimoire-api/internal/middleware"
	"vieux-grimoire-api/internal/services"
	"vieux-grimoire-api/internal/utils"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := configs.LoadConfig()
	if err != nil {
		stdlog.Fatal(err)
	}
	log := logger.Get(cfg.Debug)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	verifier, err := auth.NewVerifier(cfg.JWTSecret)
	if err != nil {
		log.Fatal().Err(err).Msg("token verifier")
	}

	janitor := daemon.NewJanitor(cfg.CleanupInterval)
	processor, err := images.NewProcessor(cfg.ImagesDir, cfg.MaxImageDimension, cfg.ImageQuality, janitor)
	if err != nil {
		log.Fatal().Err(err).Msg("image processor")
	}

	group, gCtx := errgroup.WithContext(ctx)

	var (
		store   db.BookStore
		auditor utils.Auditor
	)
	switch cfg.StoreDriver {
	case configs.DriverMongo:
		client, err := db.Connect(ctx, cfg.MongoURI)
		if err != nil {
			log.Fatal().Err(err).Msg("connecting to MongoDB failed")
		}
		defer func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.Error().Err(err).Msg("mongo disconnect")
			}
		}()

		bookColl := db.GetCollection(client, cfg.DBName, constants.BooksCollection)
		if err := db.EnsureIndexes(ctx, bookColl); err != nil {
			log.Warn().Err(err).Msg("creating indexes failed")
		}
		auditColl := db.GetCollection(client, cfg.DBName, constants.AuditLogsCollection)

		store = db.NewMongoBookStore(bookColl)
		auditor = &utils.Logger{Collection: auditColl}

		exporter := &daemon.LogExporter{Coll: auditColl, Interval: cfg.AuditExportInterval}
		group.Go(func() error {
			return exporter.Run(gCtx)
		})
	default:
		log.Warn().Msg("using in-memory book store, data is lost on restart")
		store = db.NewMemoryBookStore()
		auditor = utils.LogOnlyAuditor{}
	}

	service := services.NewBookService(store, processor, auditor, janitor)
	uploads := &handlers.UploadReader{TempDir: cfg.TempDir, MaxBytes: cfg.MaxUploadBytes, Remover: janitor}
	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	r := mux.NewRouter()
	r.Use(middleware.RequestLogger, limiter.Middleware, middleware.JSONMiddleware)
	handlers.RegisterRoutes(r,
		handlers.NewBookHandler(service, uploads, cfg.PublicBaseURL, cfg.RequestTimeout),
		handlers.NewMetricsHandler(service, cfg.RequestTimeout),
		verifier, cfg.ImagesDir)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	group.Go(func() error {
		log.Info().Str("port", cfg.Port).Str("store", cfg.StoreDriver).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		return janitor.Run(gCtx)
	})
	group.Go(func() error {
		return limiter.Run(gCtx)
	})
	group.Go(func() error {
		<-gCtx.Done()
		log.Info().Msg("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped")
		return
	}
	log.Info().Msg("server stopped")
}
