package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	aicore "github.com/ava-verify/ava/src/ai/core"
	_ "github.com/ava-verify/ava/src/ai/providers"
	"github.com/ava-verify/ava/src/bot"
	"github.com/ava-verify/ava/src/core/admission"
	"github.com/ava-verify/ava/src/core/pipeline"
	"github.com/ava-verify/ava/src/core/worker"
	"github.com/ava-verify/ava/src/data"
	"github.com/ava-verify/ava/src/data/rediscache"
	"github.com/ava-verify/ava/src/factcheckd/config"
	"github.com/ava-verify/ava/src/logging"
	searchcore "github.com/ava-verify/ava/src/search/core"
	_ "github.com/ava-verify/ava/src/search/providers"
	"github.com/ava-verify/ava/src/webserver"
)

func main() {
	logger := logging.Init(zapcore.InfoLevel)
	defer logger.Sync()

	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "ava:ava@tcp(127.0.0.1:3306)/ava"
	}
	db, err := data.ConnectMySQL(dsn)
	if err != nil {
		zap.S().Fatalw("mysql connect", "err", err)
	}
	if err := data.Migrate(db); err != nil {
		zap.S().Fatalw("mysql migrate", "err", err)
	}

	cfg := config.Load(db)
	if cfg.Token == "" {
		zap.S().Fatal("discord token not configured")
	}

	aiClient, err := aicore.NewClient(aicore.FactoryConfig{
		Provider:     cfg.AIProvider,
		Model:        cfg.AIModel,
		OpenAIKey:    cfg.OpenAIKey,
		AnthropicKey: cfg.AnthropicKey,
		GeminiKey:    cfg.GeminiKey,
	})
	if err != nil {
		zap.S().Fatalw("ai provider", "provider", cfg.AIProvider, "err", err)
	}

	backends, err := searchcore.NewBackends(searchcore.FactoryConfig{
		TavilyKey:  cfg.TavilyKey,
		BraveKey:   cfg.BraveKey,
		MaxResults: cfg.MaxEvidence,
	}, cfg.SearchBackends)
	if err != nil {
		zap.S().Fatalw("search backends", "err", err)
	}
	aggregator := searchcore.NewAggregator(backends, cfg.SearchTimeout)
	zap.S().Infow("search ready", "backends", aggregator.Backends())

	gate := admission.NewGate(admission.Config{
		Cooldown:        time.Duration(cfg.CooldownSeconds * float64(time.Second)),
		BucketCapacity:  cfg.BucketCapacity,
		RefillRate:      cfg.RefillRate,
		DailyGuildLimit: cfg.DailyGuildLimit,
		QueueSize:       cfg.QueueMaxSize,
	})

	orch := pipeline.New(aiClient, aggregator, gate.Breaker(), pipeline.Config{
		StageTimeout:     cfg.StageTimeout,
		StageRetries:     cfg.StageRetries,
		SynthesisRetries: cfg.SynthesisRetries,
		MaxEvidence:      cfg.MaxEvidence,
	})

	recorder := data.NewRecorder(db)

	svc := worker.NewService(gate, orch, cfg.WorkerPoolSize)
	svc.SetRecorder(recorder)

	ropts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		zap.S().Warnw("redis url invalid, verdict cache disabled", "err", err)
	} else {
		svc.SetCache(rediscache.New(redis.NewClient(ropts), cfg.CacheTTL))
	}

	discordBot, err := bot.New(bot.Config{
		Token:         cfg.Token,
		ContextWindow: cfg.ContextWindow,
	}, db, svc)
	if err != nil {
		zap.S().Fatalw("discord init", "err", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc.Start(ctx)
	if err := discordBot.Start(); err != nil {
		zap.S().Fatalw("discord connect", "err", err)
	}
	zap.S().Infow("bot online", "workers", cfg.WorkerPoolSize, "queue", cfg.QueueMaxSize)

	engine := webserver.New(webserver.Config{
		Addr:      cfg.HTTPAddr,
		JWTSecret: []byte(cfg.JWTSecret),
	}, db, svc, recorder)
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: engine}
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zap.S().Errorw("http server", "err", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	zap.S().Info("shutting down")
	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	httpSrv.Shutdown(shutCtx)
	discordBot.Stop()
	cancel()
	svc.Stop()
}
