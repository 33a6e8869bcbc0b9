package main

import (
	"fmt"
	"log"
	"log/slog"
	"marketplace-gateway/internal/client"
	"marketplace-gateway/internal/config"
	"marketplace-gateway/internal/handler"
	"marketplace-gateway/internal/provider"
	"marketplace-gateway/internal/repository"
	"marketplace-gateway/internal/server"
	"marketplace-gateway/internal/service"
	"marketplace-gateway/internal/webhook"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	setupLogger(cfg)

	db := client.InitDBClient(cfg.DatabaseURL)

	apiKeyRepo := repository.NewAPIKeyRepository(db)
	webhookRepo := repository.NewWebhookRepository(db)
	deliveryRepo := repository.NewDeliveryRepository(db)
	usageRepo := repository.NewUsageLogRepository(db)

	router := provider.NewRouter(
		provider.RoutingConfig{
			Default:       cfg.Routing.Default,
			Crypto:        cfg.Routing.Crypto,
			International: cfg.Routing.International,
			InPerson:      cfg.Routing.InPerson,
			POS:           cfg.Routing.POS,
			FallbackChain: cfg.Routing.FallbackChain,
		},
		provider.NewBraintreeAdapter(&cfg.Braintree),
		provider.NewPaypalAdapter(&cfg.Paypal, cfg.BaseURL),
		provider.NewSquareAdapter(&cfg.Square),
		provider.NewCoinbaseAdapter(&cfg.Coinbase),
	)

	dispatcher := webhook.NewDispatcher(webhookRepo, deliveryRepo)

	apiKeyService := service.NewAPIKeyService(apiKeyRepo)
	webhookService := service.NewWebhookService(webhookRepo, deliveryRepo)
	checkoutService := service.NewCheckoutService(router, dispatcher)

	checkoutHandler := handler.NewCheckoutHandler(checkoutService, router)
	apiKeyHandler := handler.NewAPIKeyHandler(apiKeyService)
	webhookHandler := handler.NewWebhookHandler(webhookService, apiKeyService, dispatcher)

	srv := server.NewServer(cfg, checkoutHandler, apiKeyHandler, webhookHandler, apiKeyService, usageRepo)

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	log.Println("Starting HTTP server on", serverAddr)
	go func() {
		if err := srv.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	log.Println("Signal received, starting graceful shutdown...")

	if err := srv.Shutdown(); err != nil {
		log.Fatal("HTTP server shutdown error")
	}

	// abort pending delivery retries, wait for in-flight attempts
	dispatcher.Close()
}

func setupLogger(cfg *config.Config) {
	level := slog.LevelInfo
	if cfg.Log.Level == "debug" {
		level = slog.LevelDebug
	}

	var h slog.Handler
	if cfg.Log.Format == "json" {
		h = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		h = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(h))
}
