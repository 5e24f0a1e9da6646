package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

// ChatMetrics is returned by GET /v1/metrics/chat.
type ChatMetrics struct {
	TotalRequests       int64              `json:"totalRequests"`
	ErrorRate           float64            `json:"errorRate"`
	AvgTokensPerRequest float64            `json:"avgTokensPerRequest"`
	PromptTokens        int64              `json:"promptTokens"`
	CompletionTokens    int64              `json:"completionTokens"`
	KnowledgeHitRate    float64            `json:"knowledgeHitRate"`
	MalformedPayloads   int64              `json:"malformedPayloads"`
	Classifications     map[string]float64 `json:"classifications"`
	Period              string             `json:"period"`
}

// SuccessResponse wraps a successful single-entity response.
type SuccessResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}
