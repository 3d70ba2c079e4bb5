package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Skufu/GlucoRisk/internal/logging"
	"github.com/Skufu/GlucoRisk/internal/metrics"
	"github.com/Skufu/GlucoRisk/internal/model"
	"github.com/Skufu/GlucoRisk/internal/prediction"
	"github.com/Skufu/GlucoRisk/internal/store"
	"github.com/Skufu/GlucoRisk/internal/web"
)

type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Config struct {
	Port            string
	DatabaseURL     string
	EnableDB        bool
	ModelBackend    string
	ModelPath       string
	ModelServiceURL string
	ModelTimeout    time.Duration
	LogLevel        string
	LogFormat       string
}

func main() {
	gin.SetMode(getEnv("GIN_MODE", "release"))

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	metrics.Register()

	ctx := context.Background()
	holder := loadModel(ctx, cfg, logger)

	var (
		db       HealthChecker
		recorder prediction.History
		reader   web.HistoryReader
	)
	if cfg.EnableDB {
		if err := store.Migrate(cfg.DatabaseURL); err != nil {
			logger.Fatal("database migration failed", zap.Error(err))
		}
		pg, err := store.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("database connection failed", zap.Error(err))
		}
		defer pg.Close()
		db, recorder, reader = pg, pg, pg
	}

	svc := prediction.NewService(holder, recorder, logger)
	handler, err := web.NewHandler(svc, reader, logger)
	if err != nil {
		logger.Fatal("handler setup failed", zap.Error(err))
	}

	router, err := setupRouter(db, holder, handler)
	if err != nil {
		logger.Fatal("router setup failed", zap.Error(err))
	}
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second + cfg.ModelTimeout,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	logger.Info("server listening", zap.String("port", cfg.Port))
	waitForShutdown(server, logger)
}

func loadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		EnableDB:        strings.EqualFold(getEnv("ENABLE_DB", "false"), "true"),
		ModelBackend:    strings.ToLower(getEnv("MODEL_BACKEND", "file")),
		ModelPath:       getEnv("MODEL_PATH", "best_rf.json"),
		ModelServiceURL: os.Getenv("MODEL_SERVICE_URL"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "json"),
	}

	timeout, err := time.ParseDuration(getEnv("MODEL_TIMEOUT", "10s"))
	if err != nil || timeout <= 0 {
		return nil, fmt.Errorf("MODEL_TIMEOUT must be a positive duration, got %q", os.Getenv("MODEL_TIMEOUT"))
	}
	cfg.ModelTimeout = timeout

	if cfg.EnableDB && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required when ENABLE_DB=true")
	}

	switch cfg.ModelBackend {
	case "file":
	case "remote":
		if cfg.ModelServiceURL == "" {
			return nil, fmt.Errorf("MODEL_SERVICE_URL is required when MODEL_BACKEND=remote")
		}
	default:
		return nil, fmt.Errorf("MODEL_BACKEND must be file or remote, got %q", cfg.ModelBackend)
	}

	return cfg, nil
}

// loadModel runs once at startup. A failure is logged and leaves prediction
// disabled; the server still starts so the form can report it.
func loadModel(ctx context.Context, cfg *Config, logger *zap.Logger) *model.Holder {
	loader := model.ForestLoader(cfg.ModelPath)
	if cfg.ModelBackend == "remote" {
		loader = model.RemoteLoader(cfg.ModelServiceURL, cfg.ModelTimeout)
	}

	loadCtx, cancel := context.WithTimeout(ctx, cfg.ModelTimeout)
	defer cancel()

	holder := model.Load(loadCtx, loader)
	metrics.RecordModelLoaded(cfg.ModelBackend, holder.Ready())

	info := holder.Info()
	if !holder.Ready() {
		logger.Error("model unavailable, predictions disabled",
			zap.String("backend", info.Backend),
			zap.String("source", info.Source),
			zap.Error(holder.Err()),
		)
		return holder
	}
	logger.Info("model loaded",
		zap.String("backend", info.Backend),
		zap.String("source", info.Source),
		zap.Int("members", info.Members),
		zap.Int("trees", info.Trees),
	)
	return holder
}

func setupRouter(db HealthChecker, holder *model.Holder, handler *web.Handler) (*gin.Engine, error) {
	router := gin.New()
	router.Use(
		gin.Logger(),
		gin.Recovery(),
		limitBodySize(1<<20), // 1MB max body
		cors.New(cors.Config{
			AllowOrigins: []string{"*"},
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
			MaxAge:       12 * time.Hour,
		}),
	)

	if err := handler.Register(router); err != nil {
		return nil, fmt.Errorf("register handlers: %w", err)
	}

	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/readyz", func(c *gin.Context) {
		status := http.StatusOK
		body := gin.H{"status": "ok", "model": "ok", "db": "disabled"}

		if err := holder.Err(); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body["model"] = fmt.Sprintf("unavailable: %v", err)
		}

		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()

			body["db"] = "ok"
			if err := db.Ping(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body["db"] = fmt.Sprintf("unhealthy: %v", err)
			}
		}

		c.JSON(status, body)
	})

	return router, nil
}

func waitForShutdown(server *http.Server, logger *zap.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func limitBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
