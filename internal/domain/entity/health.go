package entity

// HealthStatus mirrors the backend's GET /health payload.
type HealthStatus struct {
	Status          string `json:"status"`
	Version         string `json:"version"`
	OpenAIConnected bool   `json:"openai_connected"`
}

// Healthy reports whether the backend considers itself fully operational.
func (h HealthStatus) Healthy() bool {
	return h.Status == "healthy"
}

// ConnectionStatus is the outcome of a connectivity probe against the
// backend, shaped for direct display in the panel.
type ConnectionStatus struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
