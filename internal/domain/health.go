package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	Detail      string `json:"detail,omitempty"`
	LastChecked string `json:"lastChecked"`
}

// AssistantMetrics is returned by GET /v1/metrics/assistant.
type AssistantMetrics struct {
	TotalChats          int64   `json:"totalChats"`
	WelcomeReplies      int64   `json:"welcomeReplies"`
	FallbackRate        float64 `json:"fallbackRate"`
	FormShownRate       float64 `json:"formShownRate"`
	IntentFailureRate   float64 `json:"intentFailureRate"`
	AvgTokensPerRequest float64 `json:"avgTokensPerRequest"`
	OrdersReceived      int64   `json:"ordersReceived"`
	EmailFailures       int64   `json:"emailFailures"`
	Period              string  `json:"period"`
}
