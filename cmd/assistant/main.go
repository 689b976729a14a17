package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lbatal/storefront-assistant-go/internal/catalog"
	chatinfra "github.com/lbatal/storefront-assistant-go/internal/chat/infra"
	chatservice "github.com/lbatal/storefront-assistant-go/internal/chat/service"
	"github.com/lbatal/storefront-assistant-go/internal/config"
	"github.com/lbatal/storefront-assistant-go/internal/handler"
	"github.com/lbatal/storefront-assistant-go/internal/infra/mailer"
	"github.com/lbatal/storefront-assistant-go/internal/infra/observability"
	"github.com/lbatal/storefront-assistant-go/internal/infra/resilience"
	"github.com/lbatal/storefront-assistant-go/internal/port"
	"github.com/lbatal/storefront-assistant-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to read .env: %v\n", err)
	}

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("completion_base_url", cfg.CompletionBaseURL),
		zap.String("chat_model", cfg.ChatModel),
		zap.String("intent_classifier", cfg.IntentClassifier),
		zap.Float64("form_confidence_threshold", cfg.FormConfidenceThreshold),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Duration("conversation_ttl", cfg.ConversationTTL),
		zap.Bool("email_enabled", cfg.EmailEnabled()),
		zap.Strings("allowed_origins", cfg.AllowedOrigins),
	)

	if cfg.CompletionAPIKey == "" {
		logger.Warn("OPENROUTER_API_KEY not set, every reply will use the fallback text")
	}

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, observability.ServiceName)
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Catalog ---
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		logger.Fatal("failed to load catalog", zap.String("path", cfg.CatalogPath), zap.Error(err))
	}
	logger.Info("catalog loaded",
		zap.String("store", cat.Store().Name),
		zap.Int("products", cat.Len()),
	)

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxBackoff:     cfg.MaxBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			metrics.IncrRetry(chatinfra.CompletionService)
			logger.Warn("retrying completion call",
				zap.Int("attempt", attempt+1),
				zap.Duration("wait", wait),
				zap.Error(err),
			)
		},
	}
	cb := resilience.NewCircuitBreaker(chatinfra.CompletionService, logger)

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	completionClient := chatinfra.NewCompletionClient(httpClient, cfg.CompletionBaseURL, cfg.CompletionAPIKey, cb, resilienceCfg)

	var orderMailer port.Mailer
	if cfg.EmailEnabled() {
		orderMailer = mailer.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.GmailUser, cfg.GmailAppPassword)
		logger.Info("order notifications enabled", zap.String("recipient", cfg.NotificationRecipient()))
	} else {
		logger.Warn("GMAIL_USER / GMAIL_APP_PASSWORD not set, order notifications disabled")
	}

	// --- Services ---
	conversations := chatinfra.NewConversationStore(cfg.ConversationTTL)

	classifier := chatservice.SelectClassifier(
		cfg.IntentClassifier,
		cfg.CompletionAPIKey != "",
		completionClient,
		cfg.IntentModel,
		logger,
	)

	gateway, err := chatservice.NewGateway(completionClient, cat, cfg.ChatModel, logger)
	if err != nil {
		logger.Fatal("failed to build system prompt", zap.Error(err))
	}

	chatSvc := chatservice.NewChatService(
		conversations,
		classifier,
		gateway,
		chatservice.NewResolver(chatservice.DefaultRules(cat)...),
		cat.Store(),
		cfg.FormConfidenceThreshold,
		metrics,
		logger,
	)

	orderSvc := service.NewOrderService(orderMailer, cfg.NotificationRecipient(), cfg.EmailTimeout, metrics, logger)

	// --- Router ---
	router := handler.NewRouter(chatSvc, orderSvc, cat, handler.HealthInfo{
		LLMConfigured:   cfg.CompletionAPIKey != "",
		EmailConfigured: cfg.EmailEnabled(),
		Conversations:   conversations.Len,
	}, cfg.AllowedOrigins, metrics, logger)

	// --- Server ---
	// A chat turn may wait on the classifier and gateway, each with retries.
	writeTimeout := time.Duration(cfg.MaxRetries+1)*cfg.HTTPTimeout + 10*time.Second

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
