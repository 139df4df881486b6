package repository

import (
	"context"
	"time"

	"rnetagent/internal/domain/entity"
)

// BackendClient talks to the remote r-net code-generation service.
// Implementations translate every transport or status failure into a
// ClassifiedError; callers never see raw HTTP errors.
type BackendClient interface {
	// CheckHealth probes GET /health.
	CheckHealth(ctx context.Context) (entity.HealthStatus, error)
	// GenerateCode posts a request to POST /generate. It does not validate
	// the request; that is the generation service's job.
	GenerateCode(ctx context.Context, req entity.GenerationRequest) (entity.GenerationResponse, error)
	// TestConnection succeeds iff the health status is "healthy"; any error
	// is reported through the status, never returned.
	TestConnection(ctx context.Context) entity.ConnectionStatus
	// Rebuild replaces the underlying connection wholesale with one built
	// from the given parameters. In-flight calls keep the connection they
	// started with.
	Rebuild(baseURL string, timeout time.Duration)
}
