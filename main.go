package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"edabot/bot"
	"edabot/config"
	"edabot/db"
	"edabot/events"
	"edabot/flow"
	"edabot/livefeed"
	"edabot/orders"
	"edabot/ratelim"
	"edabot/rdx"
	"edabot/receipts"
	"edabot/tg"
	"edabot/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Config error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := db.Open(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatalf("❌ MongoDB connection failed: %v", err)
	}
	defer store.Close(context.Background())

	cache, err := rdx.Open(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatalf("❌ Redis connection failed: %v", err)
	}
	defer cache.Close()

	tgClient, err := tg.New(cfg.BotToken)
	if err != nil {
		log.Fatalf("❌ Telegram connection failed: %v", err)
	}

	hub := livefeed.NewHub()
	go hub.Run()
	go events.StartRelay(ctx, cache, hub)

	// a /setgroup binding from a previous run wins over an unset env var
	groupID := cfg.AdminGroupID
	if groupID == 0 {
		if raw, err := store.GetSetting(ctx, bot.SettingAdminGroup); err != nil {
			log.Println("Read staff group setting error:", err)
		} else if raw != "" {
			if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
				groupID = id
			}
		}
	}

	engine := &orders.Engine{
		Store:       store,
		Channel:     tgClient,
		GroupChatID: groupID,
		Events:      &events.Emitter{Cache: cache},
		Receipt:     receipts.Build,
	}
	controller := flow.NewController(store, cache, tgClient, engine)
	dispatcher := &bot.Dispatcher{
		Cfg:    cfg,
		TG:     tgClient,
		Flow:   controller,
		Engine: engine,
		Store:  store,
	}

	server := &http.Server{
		Addr: cfg.Port,
		Handler: web.Router(&web.Server{
			Store:         store,
			Hub:           hub,
			JWTSecret:     cfg.JWTSecret,
			AdminUser:     cfg.AdminUser,
			AdminPassHash: cfg.AdminPassHash,
		}, ratelim.NewRateLimiter()),
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	go func() {
		log.Printf("🚀 Staff API listening on %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ ListenAndServe error: %v", err)
		}
	}()

	go func() {
		log.Println("🤖 Bot polling started")
		dispatcher.Run(ctx, tgClient.Updates())
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("🛑 Shutdown signal received; shutting down gracefully...")
	tgClient.Stop()
	hub.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("❌ Graceful shutdown failed: %v", err)
	}

	log.Println("✅ Stopped cleanly")
}
