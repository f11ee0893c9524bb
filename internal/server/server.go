// Package server wires the TiltCheck service together: stores, scoring
// engine, alert dispatch, HTTP API, and background workers.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"

	"github.com/jmenichole/tiltcheck/internal/alerts"
	"github.com/jmenichole/tiltcheck/internal/config"
	"github.com/jmenichole/tiltcheck/internal/dashboard"
	"github.com/jmenichole/tiltcheck/internal/health"
	"github.com/jmenichole/tiltcheck/internal/idgen"
	"github.com/jmenichole/tiltcheck/internal/ingest"
	"github.com/jmenichole/tiltcheck/internal/logging"
	"github.com/jmenichole/tiltcheck/internal/metrics"
	"github.com/jmenichole/tiltcheck/internal/ratelimit"
	"github.com/jmenichole/tiltcheck/internal/realtime"
	"github.com/jmenichole/tiltcheck/internal/stats"
	"github.com/jmenichole/tiltcheck/internal/tilt"
	"github.com/jmenichole/tiltcheck/internal/validation"
)

const shutdownTimeout = 10 * time.Second

// Server is the assembled TiltCheck service.
type Server struct {
	cfg     *config.Config
	logger  *slog.Logger
	router  *gin.Engine
	http    *http.Server
	db      *sql.DB
	hub     *realtime.Hub
	engine  *tilt.Engine
	sweeper *tilt.Sweeper
	limiter *ratelimit.Limiter
	checks  *health.Registry

	alertStore alerts.Store
	statsStore stats.Store
}

// fanout feeds engine events to the websocket hub and the daily aggregates.
type fanout struct {
	hub      *realtime.Hub
	recorder *stats.Recorder
	logger   *slog.Logger
}

func (f *fanout) ScoreUpdated(s *tilt.Session) {
	f.hub.ScoreUpdated(s)
}

func (f *fanout) AlertTriggered(a *alerts.Alert) {
	f.hub.AlertTriggered(a)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := f.recorder.CountAlert(ctx, a.Platform, a.Level); err != nil {
		f.logger.Error("failed to count alert", "alert", a.ID, "error", err)
	}
}

// New builds the service from configuration. Sessions always live in
// memory; the alert log and daily aggregates move to Postgres when
// DATABASE_URL is set.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	sessionStore := tilt.NewMemoryStore()
	var (
		alertStore alerts.Store
		statsStore stats.Store
		db         *sql.DB
	)

	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return nil, fmt.Errorf("ping database: %w", err)
		}

		alertStore = alerts.NewPostgresStore(db)
		statsStore = stats.NewPostgresStore(db)
		logger.Info("using postgres for alerts and daily stats")
	} else {
		alertStore = alerts.NewMemoryStore()
		statsStore = stats.NewMemoryStore()
		logger.Info("using in-memory stores")
	}

	adapters, err := buildAdapters(cfg, logger)
	if err != nil {
		return nil, err
	}
	dispatcher := alerts.NewDispatcher(logger, adapters...).WithTimeout(cfg.AdapterTimeout)

	configs := &alerts.StaticSource{
		Default: alerts.Config{
			EnabledLevels: cfg.EnabledLevels,
			Adapters:      cfg.Adapters,
			Cooldown:      cfg.AlertCooldown,
		},
	}

	hub := realtime.NewHub(logger)
	recorder := stats.NewRecorder(statsStore)

	engine := tilt.NewEngine(sessionStore, alertStore, dispatcher, configs, logger, tilt.EngineConfig{
		SignalWindow: cfg.SignalWindow,
		Broadcaster:  &fanout{hub: hub, recorder: recorder, logger: logger},
	})

	sweeper := tilt.NewSweeper(engine, cfg.SessionTTL, cfg.SweepInterval, logger)
	sweeper.OnEvict = func(ctx context.Context, s *tilt.Session) {
		if err := recorder.FoldSession(ctx, s); err != nil {
			logger.Error("failed to fold session stats", "session", s.ID, "error", err)
		}
	}

	checks := health.NewRegistry()
	if db != nil {
		checks.Register("database", func(ctx context.Context) health.Status {
			if err := db.PingContext(ctx); err != nil {
				return health.Status{Name: "database", Healthy: false, Detail: err.Error()}
			}
			return health.Status{Name: "database", Healthy: true}
		})
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		hub:     hub,
		engine:  engine,
		sweeper: sweeper,
		limiter: ratelimit.New(ratelimit.Config{
			RequestsPerMinute: cfg.RateLimitRPM,
			BurstSize:         cfg.RateLimitRPM / 6,
			CleanupInterval:   time.Minute,
		}),
		checks:     checks,
		alertStore: alertStore,
		statsStore: statsStore,
	}
	s.router = s.buildRouter()
	s.http = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func buildAdapters(cfg *config.Config, logger *slog.Logger) ([]alerts.Adapter, error) {
	var out []alerts.Adapter
	for _, name := range cfg.Adapters {
		switch name {
		case "console":
			out = append(out, alerts.NewConsoleAdapter(logger))
		case "webhook":
			out = append(out, alerts.NewWebhookAdapter(cfg.WebhookURL, cfg.WebhookSecret))
		case "discord":
			out = append(out, alerts.NewDiscordAdapter(cfg.DiscordWebhookURL))
		case "email":
			out = append(out, alerts.NewEmailAdapter(cfg.SMTPAddr, cfg.SMTPFrom, cfg.SMTPTo))
		default:
			return nil, fmt.Errorf("unknown alert adapter %q", name)
		}
	}
	return out, nil
}

func (s *Server) buildRouter() *gin.Engine {
	if s.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.requestContext())
	router.Use(metrics.Middleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/readyz", func(c *gin.Context) {
		healthy, statuses := s.checks.CheckAll(c.Request.Context())
		code := http.StatusOK
		if !healthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"healthy": healthy, "checks": statuses})
	})
	router.GET("/metrics", metrics.Handler())

	v1 := router.Group("/v1")
	v1.Use(validation.RequestSizeMiddleware(validation.MaxRequestSize))
	v1.Use(s.limiter.Middleware())

	ingest.NewHandlers(s.engine, s.cfg.MonitoredPlatforms).RegisterRoutes(v1)
	dashboard.NewHandlers(s.engine, s.alertStore, s.statsStore).RegisterRoutes(v1)
	v1.GET("/ws", s.hub.ServeWS)

	return router
}

// requestContext tags each request with an ID and a request-scoped logger.
func (s *Server) requestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = idgen.New()
		}
		ctx := logging.WithRequestID(c.Request.Context(), reqID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Request-ID", reqID)
		c.Next()
	}
}

// Run starts the server and blocks until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.hub.Run(runCtx)
	s.sweeper.Start(runCtx)
	if s.db != nil {
		go metrics.StartDBStatsCollector(runCtx, s.db, 15*time.Second)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "port", s.cfg.Port, "env", s.cfg.Env)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	err := s.http.Shutdown(shutdownCtx)
	s.sweeper.Stop()
	s.limiter.Stop()
	if s.db != nil {
		s.db.Close()
	}
	return err
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler { return s.router }
