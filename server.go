package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/shopify_budget/api"
	"github.com/mmdatafocus/shopify_budget/config"
	"github.com/mmdatafocus/shopify_budget/middlewares"
	"github.com/mmdatafocus/shopify_budget/models"
	"github.com/mmdatafocus/shopify_budget/models/reports"
	"github.com/mmdatafocus/shopify_budget/shopifysync"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("shopify-budget")

type dependencies struct {
	settings *config.Settings
	db       *gorm.DB
	redis    *config.Redis
	topic    *pubsub.Topic
	logger   *logrus.Logger
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

// readinessGate answers /healthz itself and returns 503 for everything else
// until the application router has been installed.
type readinessGate struct {
	app atomic.Pointer[http.Handler]
}

func (g *readinessGate) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/healthz" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	app := g.app.Load()
	if app == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	(*app).ServeHTTP(w, r)
}

func (g *readinessGate) ready(h http.Handler) {
	g.app.Store(&h)
}

func corsConfig(s *config.Settings) cors.Config {
	cfg := cors.DefaultConfig()
	// In production an explicit allowlist is required; otherwise allow all.
	if s.IsProduction() {
		if len(s.CorsAllowedOrigin) == 0 {
			// deny all if not configured
			cfg.AllowOriginFunc = func(string) bool { return false }
		} else {
			cfg.AllowOrigins = s.CorsAllowedOrigin
		}
	} else {
		cfg.AllowAllOrigins = true
	}
	cfg.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	cfg.AddAllowHeaders("Origin", "Content-Type", "Authorization", middlewares.CorrelationHeader)
	cfg.AddExposeHeaders("Content-Length", "Content-Disposition", middlewares.CorrelationHeader)
	cfg.AllowCredentials = true
	return cfg
}

func newRouter(deps dependencies) *gin.Engine {
	s := deps.settings
	r := gin.New()
	r.Use(middlewares.CorrelationMiddleware())
	r.Use(cors.New(corsConfig(s)))
	if s.RateLimitEnabled && deps.redis.Ready() {
		r.Use(middlewares.NewRateLimiter(deps.redis.Client(), s.RateLimitMax, s.RateLimitWindow).Middleware())
	}
	r.Use(middlewares.RequestLogger(deps.logger))
	r.Use(gin.Recovery())

	reporter := reports.NewReporter(
		reports.NewStore(deps.db),
		reports.NewStore(deps.db),
		deps.redis,
		reports.ReporterConfig{
			CacheEnabled: s.ReportCache,
			CacheTTL:     s.ReportCacheTTL,
			SlowMs:       s.ReportSlowMs,
		},
		deps.logger,
		tracer,
	)
	api.NewHandler(deps.db, reporter, deps.redis, s.ReportExportBucket, deps.logger).Register(r)

	intake := shopifysync.NewOrderIntake(deps.db, deps.topic, reporter, deps.logger)
	r.POST("/webhooks/shopify/orders", intake.WebhookHandler())
	r.POST("/pubsub/shopify-orders", intake.PubSubPushHandler())

	r.NoRoute(customNotFoundHandler)
	return r
}

func main() {
	settings := config.LoadSettings()
	logger := config.NewLogger(settings.LogLvl)
	if settings.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start listening immediately; app routes return 503 until dependencies are up.
	gate := &readinessGate{}
	srv := &http.Server{
		Addr:    ":" + settings.Port,
		Handler: gate,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	db := config.ConnectDatabaseWithRetry(settings)
	defer config.CloseDatabase(db)

	// Redis is optional: cache, locks and rate limiting degrade to no-ops.
	rdb := config.ConnectRedisWithRetry(sigCtx, settings.RedisAddress, 5)
	defer rdb.Close()

	// AutoMigrate can block tables; production runs migrations as a separate job.
	if !settings.SkipMigrations {
		if err := models.MigrateTable(db, !settings.IsProduction()); err != nil {
			logger.WithFields(logrus.Fields{"field": "migrations"}).Fatal(err.Error())
		}
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	deps := dependencies{settings: settings, db: db, redis: rdb, logger: logger}
	if settings.ShopifyEventsTopic != "" {
		client, err := config.NewPubSubClient(sigCtx, settings, 5)
		if err != nil {
			logger.WithFields(logrus.Fields{"field": "pubsub"}).Warn("webhooks will be applied inline: " + err.Error())
		} else {
			defer client.Close()
			topic, err := config.CreateTopicIfNotExists(sigCtx, client, settings.ShopifyEventsTopic)
			if err != nil {
				logger.WithFields(logrus.Fields{"field": "pubsub"}).Warn("webhooks will be applied inline: " + err.Error())
			} else {
				defer topic.Stop()
				deps.topic = topic
			}
		}
	}

	gate.ready(newRouter(deps))
	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on :", settings.Port)
	log.Println("Server started successfully")

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}
}
