package observability

import (
	"time"

	"github.com/lbatal/storefront-assistant-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Reply kinds recorded by IncrReply.
const (
	ReplyModel    = "model"
	ReplyWelcome  = "welcome"
	ReplyFallback = "fallback"
)

// Intent outcomes recorded by IncrIntent.
const (
	IntentBuy     = "buy"
	IntentNoBuy   = "no_buy"
	IntentFailed  = "failed"
	IntentSkipped = "skipped"
)

// Email outcomes recorded by IncrOrder.
const (
	EmailSent    = "sent"
	EmailFailed  = "failed"
	EmailSkipped = "skipped"
)

// Metrics holds all Prometheus metrics for the storefront assistant.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	retries         *prometheus.CounterVec
	resolverRules   *prometheus.CounterVec
	intentOutcomes  *prometheus.CounterVec
	formDecisions   *prometheus.CounterVec
	replies         *prometheus.CounterVec
	tokensUsed      *prometheus.CounterVec
	orders          *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "storefront_request_duration_seconds",
				Help:    "Duration of operations by name.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		retries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_external_retries_total",
				Help: "Retried calls to external services.",
			},
			[]string{"service"},
		),
		resolverRules: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_resolver_rule_total",
				Help: "Product resolver matches by winning rule.",
			},
			[]string{"rule"},
		),
		intentOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_intent_outcomes_total",
				Help: "Buying intent classifications by outcome.",
			},
			[]string{"outcome"},
		),
		formDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_form_decisions_total",
				Help: "Order form show decisions.",
			},
			[]string{"shown"},
		),
		replies: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_chat_replies_total",
				Help: "Chat replies by kind (model, welcome, fallback).",
			},
			[]string{"kind"},
		),
		tokensUsed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_llm_tokens_total",
				Help: "Total LLM tokens consumed.",
			},
			[]string{"type"},
		),
		orders: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_orders_total",
				Help: "Orders received by email notification outcome.",
			},
			[]string{"email"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrRetry counts one retry of an external call.
func (m *Metrics) IncrRetry(service string) {
	m.retries.WithLabelValues(service).Inc()
}

// IncrResolverRule counts the rule that produced a resolver result.
func (m *Metrics) IncrResolverRule(rule string) {
	m.resolverRules.WithLabelValues(rule).Inc()
}

// IncrIntent counts an intent classification outcome.
func (m *Metrics) IncrIntent(outcome string) {
	m.intentOutcomes.WithLabelValues(outcome).Inc()
}

// IncrFormDecision counts whether the order form was requested.
func (m *Metrics) IncrFormDecision(shown bool) {
	label := "false"
	if shown {
		label = "true"
	}
	m.formDecisions.WithLabelValues(label).Inc()
}

// IncrReply counts a chat reply by kind.
func (m *Metrics) IncrReply(kind string) {
	m.replies.WithLabelValues(kind).Inc()
}

// RecordTokens records prompt and completion token usage.
func (m *Metrics) RecordTokens(prompt, completion int) {
	m.tokensUsed.WithLabelValues("prompt").Add(float64(prompt))
	m.tokensUsed.WithLabelValues("completion").Add(float64(completion))
}

// IncrOrder counts a received order by email outcome.
func (m *Metrics) IncrOrder(emailOutcome string) {
	m.orders.WithLabelValues(emailOutcome).Inc()
}

// GetAssistantSnapshot returns a snapshot suitable for GET /v1/metrics/assistant.
func (m *Metrics) GetAssistantSnapshot() *domain.AssistantMetrics {
	model := getCounterValue(m.replies, ReplyModel)
	welcome := getCounterValue(m.replies, ReplyWelcome)
	fallback := getCounterValue(m.replies, ReplyFallback)
	totalChats := model + welcome + fallback

	shown := getCounterValue(m.formDecisions, "true")
	notShown := getCounterValue(m.formDecisions, "false")

	intentFailed := getCounterValue(m.intentOutcomes, IntentFailed)
	intentTotal := intentFailed +
		getCounterValue(m.intentOutcomes, IntentBuy) +
		getCounterValue(m.intentOutcomes, IntentNoBuy)

	tokens := getCounterValue(m.tokensUsed, "prompt") + getCounterValue(m.tokensUsed, "completion")

	emailFailed := getCounterValue(m.orders, EmailFailed)
	orders := emailFailed + getCounterValue(m.orders, EmailSent) + getCounterValue(m.orders, EmailSkipped)

	snap := &domain.AssistantMetrics{
		TotalChats:     int64(totalChats),
		WelcomeReplies: int64(welcome),
		OrdersReceived: int64(orders),
		EmailFailures:  int64(emailFailed),
		Period:         "all_time",
	}
	if totalChats-welcome > 0 {
		snap.FallbackRate = fallback / (totalChats - welcome)
	}
	if model > 0 {
		snap.AvgTokensPerRequest = tokens / model
	}
	if shown+notShown > 0 {
		snap.FormShownRate = shown / (shown + notShown)
	}
	if intentTotal > 0 {
		snap.IntentFailureRate = intentFailed / intentTotal
	}
	return snap
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
