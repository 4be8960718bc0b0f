package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	api "github.com/mind-engage/examvault/internal/api/http"
	"github.com/mind-engage/examvault/internal/attempt"
	auth "github.com/mind-engage/examvault/internal/auth/middleware"
	"github.com/mind-engage/examvault/internal/config"
	"github.com/mind-engage/examvault/internal/db"
	"github.com/mind-engage/examvault/internal/exam"
	"github.com/mind-engage/examvault/internal/grading"
	"github.com/mind-engage/examvault/internal/logger"
	"github.com/mind-engage/examvault/internal/metrics"
	"github.com/mind-engage/examvault/internal/notify"
	"github.com/mind-engage/examvault/internal/results"
	"github.com/mind-engage/examvault/internal/storage"
	syncx "github.com/mind-engage/examvault/internal/sync"
	"github.com/mind-engage/examvault/internal/vault"
)

func main() {
	cfg, err := config.Load()
	log := logger.New("examvault", cfg.LogLevel)
	if err != nil {
		log.WithError(err).Fatal("config")
	}

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	driver := db.Normalize(cfg.DBDriver)
	dbh, err := db.Open(ctx, driver, cfg.DBDSN)
	if err != nil {
		log.WithError(err).Fatal("db open failed")
	}
	defer dbh.Close()
	store := exam.NewSQLStore(dbh, string(driver))
	events := syncx.NewEventRepo(dbh, string(driver))

	m := metrics.New(prometheus.DefaultRegisterer)

	// --- Content ---
	var fetcher storage.Fetcher
	switch cfg.BlobDriver {
	case "gateway":
		fetcher = storage.NewGateway(cfg.GatewayURL, cfg.ContentTimeout, m)
	default:
		fs, err := storage.NewFSStore(cfg.BlobBasePath, m)
		if err != nil {
			log.WithError(err).Fatal("blob store")
		}
		fetcher = fs
	}
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		fetcher = storage.NewCachedFetcher(fetcher, rdb, cfg.EnvelopeTTL, log)
	} else {
		fetcher = storage.NewCachedFetcher(fetcher, nil, cfg.EnvelopeTTL, log)
	}
	docs := vault.NewLoader(fetcher)

	// --- Notifications ---
	var sender notify.Sender = notify.NewLogSender(log)
	if cfg.SMTPEnabled() {
		sender = notify.NewSMTPSender(notify.SMTPConfig{
			Host:      cfg.SMTPHost,
			Port:      cfg.SMTPPort,
			User:      cfg.SMTPUser,
			Password:  cfg.SMTPPassword,
			FromEmail: cfg.SMTPFromEmail,
			FromName:  cfg.SMTPFromName,
		})
	}
	dir := notify.NewSQLDirectory(dbh, string(driver))

	// --- Services ---
	catalog := exam.NewCatalog(store, store)
	svc := api.Services{
		Catalog: catalog,
		Builder: attempt.NewBuilder(catalog, store, docs, log, m),
		Engine:  grading.NewEngine(catalog, store, docs, log, m, grading.WithEvents(events)),
		Gate: results.NewGate(catalog, store, dir, sender, log, m,
			results.WithEvents(events), results.WithConcurrency(cfg.NotifyConcurrency)),
	}

	// --- Router ---
	authSvc := auth.NewAuthService(cfg.AuthHMACSecret)
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, api.RequestLogger(log), middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	api.MountHealth(r, func(ctx context.Context) error {
		if err := dbh.PingContext(ctx); err != nil {
			return err
		}
		if rdb != nil {
			return rdb.Ping(ctx).Err()
		}
		return nil
	})
	r.Handle("/metrics", promhttp.Handler())
	api.Mount(r, svc,
		auth.JWTMiddleware(authSvc),
		auth.AttachRoleFromDB(dbh, string(driver), cfg.RoleClaimFallback),
	)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	run(srv, log, cfg)
}

func run(srv *http.Server, log logrus.FieldLogger, cfg config.Config) {
	stop, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go func() {
		log.WithFields(logrus.Fields{
			"addr": cfg.HTTPAddr,
			"mode": cfg.Mode,
			"db":   cfg.DBDriver,
			"blob": cfg.BlobDriver,
		}).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server")
		}
	}()

	<-stop.Done()
	ctx, done := context.WithTimeout(context.Background(), 15*time.Second)
	defer done()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("shutdown")
	}
}
