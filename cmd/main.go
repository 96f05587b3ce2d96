package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"

	"github.com/charukaonline/uninest-sub000/internal/cache"
	"github.com/charukaonline/uninest-sub000/internal/config"
	"github.com/charukaonline/uninest-sub000/internal/directory"
	"github.com/charukaonline/uninest-sub000/internal/handlers"
	"github.com/charukaonline/uninest-sub000/internal/logger"
	"github.com/charukaonline/uninest-sub000/internal/middleware"
	"github.com/charukaonline/uninest-sub000/internal/notify"
	"github.com/charukaonline/uninest-sub000/internal/repository"
	"github.com/charukaonline/uninest-sub000/internal/routes"
	"github.com/charukaonline/uninest-sub000/internal/service"
	"github.com/charukaonline/uninest-sub000/internal/ws"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}
	if cfg.App.JWTSecret == "" {
		log.Fatal("app.jwt_secret is required")
	}

	zlog, err := logger.New(cfg.App.Env)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	// Durable store.
	mc, err := repository.NewMongoClient(cfg)
	if err != nil {
		zlog.Fatalw("mongo init", "err", err)
	}
	defer func() { _ = mc.Disconnect(context.Background()) }()

	repo, err := repository.NewChatRepository(mc, cfg.Mongo.Database, cfg.Mongo.ConversationsCollection, cfg.Mongo.MessagesCollection)
	if err != nil {
		zlog.Fatalw("repository init", "err", err)
	}

	// Cache: optional. Chat stays correct without it, just slower.
	var chatCache cache.ChatCache = cache.Disabled{}
	rdb, err := cache.NewRedis(cfg)
	if err != nil {
		zlog.Warnw("redis unavailable, running without cache", "err", err)
	} else {
		defer rdb.Close()
		if cfg.Cache.Enabled {
			chatCache = cache.NewChatCache(rdb, cfg, zlog)
		}
	}

	dir := directory.NewHTTPDirectory(cfg)
	notifier := notify.NewKafkaNotifier(cfg, zlog)
	defer func() { _ = notifier.Close() }()

	hub := ws.NewHub(zlog)
	chatSvc := service.NewChatService(repo, chatCache, dir, notifier, hub, zlog, cfg.StoreTimeout)
	wsServer := ws.NewServer(hub, chatSvc, cfg.App.JWTSecret)
	chatHandler := handlers.NewChatHandler(chatSvc, zlog)
	limiter := middleware.NewRateLimiter(rdb, "ratelimit:chat:send", cfg.RateLimit.Limit, cfg.RateLimit.Window)

	app := fiber.New(fiber.Config{
		AppName:               "messaging-service",
		DisableStartupMessage: cfg.App.Env != "development",
	})
	routes.Register(app, chatHandler, wsServer, cfg.App.JWTSecret, limiter)

	go func() {
		if err := app.Listen(fmt.Sprintf(":%d", cfg.App.Port)); err != nil {
			zlog.Fatalw("server listen", "err", err)
		}
	}()
	zlog.Infow("messaging-service started", "port", cfg.App.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = app.ShutdownWithContext(ctx)
	zlog.Info("messaging-service stopped")
}
