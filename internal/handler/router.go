package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/lbatal/storefront-assistant-go/internal/catalog"
	chathandler "github.com/lbatal/storefront-assistant-go/internal/chat/handler"
	"github.com/lbatal/storefront-assistant-go/internal/domain"
	"github.com/lbatal/storefront-assistant-go/internal/infra/observability"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// HealthInfo describes the optional dependencies reported by /healthz.
type HealthInfo struct {
	LLMConfigured   bool
	EmailConfigured bool
	// Conversations returns the number of live conversations. Optional.
	Conversations func() int
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(
	chatSvc chathandler.ChatProcessor,
	orders OrderNotifier,
	cat *catalog.Catalog,
	health HealthInfo,
	allowedOrigins []string,
	metrics *observability.Metrics,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(health))
	r.Get("/readyz", readyzHandler(cat))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- Storefront page contract ---
	chat := chathandler.ChatHandler(chatSvc, logger)
	order := orderHandler(orders, logger)

	r.Post("/api/ai_chat", chat)
	r.Post("/api/orders", order)

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// 1. 💬 Chat
		// POST /v1/chat
		// =============================================
		r.Post("/chat", chat)

		// =============================================
		// 2. 🛒 Pedidos
		// POST /v1/orders
		// =============================================
		r.Post("/orders", order)

		// =============================================
		// 3. 📱 Catálogo
		// GET /v1/catalog
		// =============================================
		r.Get("/catalog", catalogHandler(cat))

		// =============================================
		// 4. 📊 Métricas
		// GET /v1/metrics/assistant
		// =============================================
		r.Get("/metrics/assistant", assistantMetricsHandler(metrics))
	})

	return r
}

// ============================================================
// 3. Catálogo
// ============================================================

func catalogHandler(cat *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /v1/catalog")
		defer span.End()

		writeJSON(w, http.StatusOK, domain.CatalogResponse{
			Store:    cat.Store(),
			Products: cat.Products(),
		})
	}
}

// ============================================================
// 4. Métricas
// ============================================================

func assistantMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetAssistantSnapshot())
	}
}

// ============================================================
// Operational
// ============================================================

func healthzHandler(info HealthInfo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		api := domain.ServiceHealth{Name: "storefront-api", Status: "healthy", LastChecked: now}
		if info.Conversations != nil {
			api.Detail = formatConversations(info.Conversations())
		}

		llm := domain.ServiceHealth{Name: "llm", Status: "healthy", LastChecked: now}
		if !info.LLMConfigured {
			llm.Status = "degraded"
			llm.Detail = "OPENROUTER_API_KEY not set, replies use the fallback text"
		}

		email := domain.ServiceHealth{Name: "email", Status: "healthy", LastChecked: now}
		if !info.EmailConfigured {
			email.Status = "disabled"
			email.Detail = "GMAIL_USER / GMAIL_APP_PASSWORD not set"
		}

		services := []domain.ServiceHealth{api, llm, email}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler(cat *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cat == nil || cat.Len() == 0 {
			writeError(w, http.StatusServiceUnavailable, "catalog not loaded")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func formatConversations(n int) string {
	if n == 1 {
		return "1 conversation"
	}
	return fmt.Sprintf("%d conversations", n)
}
