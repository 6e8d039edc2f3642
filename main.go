package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/NomadCrew/formflow-backend/config"
	"github.com/NomadCrew/formflow-backend/db"
	_ "github.com/NomadCrew/formflow-backend/docs"
	"github.com/NomadCrew/formflow-backend/handlers"
	"github.com/NomadCrew/formflow-backend/internal/audit"
	"github.com/NomadCrew/formflow-backend/internal/events"
	"github.com/NomadCrew/formflow-backend/internal/publicflow"
	"github.com/NomadCrew/formflow-backend/internal/state"
	"github.com/NomadCrew/formflow-backend/internal/storage"
	"github.com/NomadCrew/formflow-backend/internal/store"
	"github.com/NomadCrew/formflow-backend/internal/store/postgres"
	"github.com/NomadCrew/formflow-backend/internal/store/reports"
	supastore "github.com/NomadCrew/formflow-backend/internal/store/supabase"
	"github.com/NomadCrew/formflow-backend/logger"
	"github.com/NomadCrew/formflow-backend/middleware"
	formmodel "github.com/NomadCrew/formflow-backend/models/form"
	"github.com/NomadCrew/formflow-backend/router"
	"github.com/NomadCrew/formflow-backend/services"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/supabase-community/supabase-go"
)

// @title FormFlow API
// @version 1.0
// @description Form builder backend: form review workflow, public submissions and audit history.
// @BasePath /v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	logger.InitLogger()
	log := logger.GetLogger()
	defer func() { _ = logger.Close() }()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	health := services.NewHealthService(cfg.Server.Version)

	// Persistence boundary.
	var (
		st       store.Store
		searcher store.FormSearcher
	)
	switch cfg.Database.Backend {
	case config.BackendPostgres:
		if cfg.Database.RunMigrations {
			if err := db.RunMigrations(cfg.Database.URL()); err != nil {
				log.Fatalf("Failed to run migrations: %v", err)
			}
		}
		pool, err := config.InitPool(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer pool.Close()
		pg := postgres.NewStore(pool)
		st = pg
		if cfg.Search.Remote {
			searcher = pg
		}
		log.Infow("Using postgres store", "host", cfg.Database.Host, "database", cfg.Database.Name)
	default:
		client, err := supabase.NewClient(cfg.ExternalServices.SupabaseURL, supabaseKey(cfg), nil)
		if err != nil {
			log.Fatalf("Failed to create Supabase client: %v", err)
		}
		st = supastore.NewStore(client)
		log.Infow("Using Supabase store", "url", cfg.ExternalServices.SupabaseURL)
	}
	health.AddCheck("store", true, st.Ping)

	var rep handlers.Reports
	if cfg.Database.ReportingEnabled {
		reportingDB, err := config.InitReportingDB(&cfg.Database)
		if err != nil {
			log.Warnw("Reporting database unavailable, falling back to in-memory stats", "error", err)
		} else {
			defer reportingDB.Close()
			rs := reports.NewStore(reportingDB)
			rep = rs
			health.AddCheck("reporting", false, rs.Ping)
		}
	}

	// Redis backs the outbox, drafts, rate limits and cross-instance events.
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = config.InitRedis(ctx, &cfg.Redis)
		if err != nil {
			log.Warnw("Redis unavailable, using in-process fallbacks", "error", err)
			rdb = nil
		} else {
			defer func() { _ = rdb.Close() }()
			health.AddCheck("redis", false, func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		}
	}

	mgr := state.NewManager()
	source, err := formmodel.Hydrate(ctx, st, mgr)
	if err != nil {
		log.Fatalf("Failed to load initial data: %v", err)
	}
	log.Infow("Loaded initial data", "source", source)

	var outbox audit.Outbox = audit.NewMemoryOutbox()
	if rdb != nil {
		outbox = audit.NewRedisOutbox(rdb, cfg.Audit.OutboxKey)
	}
	recorder := audit.NewRecorder(mgr, outbox, st, audit.Config{
		BatchSize:     cfg.Audit.BatchSize,
		MaxAttempts:   cfg.Audit.MaxAttempts,
		DrainInterval: cfg.Audit.DrainInterval(),
	})
	recorder.Start()
	health.SetOutboxDepth(recorder.Depth)

	pool := services.NewWorkerPool(cfg.WorkerPool)
	pool.Start()

	var broker events.Broker
	if rdb != nil {
		broker = events.NewRedisPublisher(rdb, events.Config{
			Channel:         cfg.EventService.Channel,
			PublishTimeout:  time.Duration(cfg.EventService.PublishTimeoutSeconds) * time.Second,
			EventBufferSize: cfg.EventService.EventBufferSize,
		})
	} else {
		broker = events.NewLocalBroker(cfg.EventService.EventBufferSize)
	}

	mc := &formmodel.ModelContext{
		Store:    st,
		State:    mgr,
		Audit:    recorder,
		Events:   broker,
		Jobs:     pool,
		Searcher: searcher,
	}
	if cfg.Email.Enabled() {
		mc.Email = services.NewEmailService(&cfg.Email)
	} else {
		log.Warn("Email is not configured; confirmations and invitations are disabled")
	}
	forms := formmodel.NewFormModel(mc)
	submissions := formmodel.NewSubmissionModel(mc)

	var drafts publicflow.DraftStore = publicflow.NewMemoryDraftStore(cfg.Public.DraftTTL())
	if rdb != nil {
		drafts = publicflow.NewRedisDraftStore(rdb, cfg.Public.DraftTTL())
	}
	autosaver := publicflow.NewAutosaver(drafts, cfg.Public.AutosaveDebounce())
	sessions := publicflow.NewSessionIssuer(cfg.Public.SessionSecret, cfg.Public.SessionTTL())

	// Auth.
	jwks := middleware.NewJWKSCache(
		strings.TrimRight(cfg.ExternalServices.SupabaseURL, "/")+"/auth/v1/.well-known/jwks.json",
		cfg.ExternalServices.SupabaseAnonKey,
		10*time.Minute,
	)
	validator, err := middleware.NewJWTValidator(cfg.ExternalServices.SupabaseJWTSecret, jwks)
	if err != nil {
		log.Fatalf("Failed to create JWT validator: %v", err)
	}
	authClient, err := supabase.NewClient(cfg.ExternalServices.SupabaseURL, supabaseKey(cfg), nil)
	if err != nil {
		log.Fatalf("Failed to create Supabase auth client: %v", err)
	}
	users := services.NewUserService(authClient.Auth.WithToken(cfg.ExternalServices.SupabaseServiceKey), st, cfg.Auth.AdminEmails)

	var exporter handlers.Exporter
	if cfg.Storage.Enabled {
		fs, err := storage.NewS3Storage(ctx, storage.Options{
			Bucket:          cfg.Storage.Bucket,
			Region:          cfg.Storage.Region,
			Endpoint:        cfg.Storage.Endpoint,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
		})
		if err != nil {
			log.Warnw("Export storage unavailable", "error", err)
		} else {
			exporter = services.NewExportService(fs)
		}
	}

	var limiter middleware.Limiter
	if rdb != nil {
		limiter = services.NewRateLimitService(rdb)
	}

	r := router.SetupRouter(router.Dependencies{
		Config:            cfg,
		JWTValidator:      validator,
		Roles:             users,
		RateLimiter:       limiter,
		FormHandler:       handlers.NewFormHandler(forms, submissions, mc.Email, pool, exporter),
		SubmissionHandler: handlers.NewSubmissionHandler(forms, submissions),
		PublicHandler:     handlers.NewPublicFormHandler(forms, submissions, sessions, autosaver, drafts, cfg.Public.StepsPerPage),
		AdminHandler:      handlers.NewAdminHandler(forms, users, rep),
		HealthHandler:     handlers.NewHealthHandler(health),
		EventStream:       handlers.NewEventStreamHandler(broker, &cfg.Server),
	})
	if err := r.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		log.Fatalf("Invalid trusted proxies: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infow("Starting server", "port", cfg.Server.Port, "environment", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownTimeout := time.Duration(cfg.WorkerPool.ShutdownTimeoutSeconds) * time.Second
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("HTTP server shutdown failed", "error", err)
	}
	if err := autosaver.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Autosave flush failed", "error", err)
	}
	if err := pool.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Worker pool shutdown failed", "error", err)
	}
	if err := recorder.Stop(shutdownCtx); err != nil {
		log.Errorw("Audit flush failed", "error", err)
	}
	if err := broker.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Event broker shutdown failed", "error", err)
	}
	log.Info("Shutdown complete")
}

// supabaseKey prefers the service role key so server-side writes bypass row
// level security.
func supabaseKey(cfg *config.Config) string {
	if cfg.ExternalServices.SupabaseServiceKey != "" {
		return cfg.ExternalServices.SupabaseServiceKey
	}
	return cfg.ExternalServices.SupabaseAnonKey
}
