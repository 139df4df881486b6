package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"rnetagent/app/config"
	"rnetagent/internal/domain/entity"
	"rnetagent/internal/domain/repository"
	"rnetagent/internal/infrastructure/metrics"
)

// SettingsSource is the slice of the settings provider the generation
// service needs: fresh snapshots and change notifications.
type SettingsSource interface {
	Snapshot() config.Configuration
	OnChange(fn func(config.Configuration)) func()
}

type GenerationUsecase interface {
	Generate(ctx context.Context, req entity.GenerationRequest) (entity.GenerationResult, error)
	CheckBackend(ctx context.Context) entity.ConnectionStatus
	BackendHealth(ctx context.Context) (entity.HealthStatus, error)
}

var _ GenerationUsecase = (*GenerationService)(nil)

// GenerationService drives one user-initiated generation end to end:
// validate the request, call the backend, persist the returned files,
// report the outcome. Exactly one ClassifiedError surfaces per failed run;
// nothing is swallowed and nothing is retried.
type GenerationService struct {
	client    repository.BackendClient
	workspace repository.WorkspaceWriter
	settings  SettingsSource
	logger    *slog.Logger

	dispose func()
}

func NewGenerationService(
	client repository.BackendClient,
	workspace repository.WorkspaceWriter,
	settings SettingsSource,
	logger *slog.Logger,
) *GenerationService {
	s := &GenerationService{
		client:    client,
		workspace: workspace,
		settings:  settings,
		logger:    logger,
	}

	// Rebuild the backend connection whenever settings change. The swap is
	// wholesale; an in-flight call finishes on the old connection.
	s.dispose = settings.OnChange(func(cfg config.Configuration) {
		client.Rebuild(cfg.BackendURL, cfg.BackendTimeout)
		logger.Info("backend client rebuilt",
			"url", cfg.BackendURL, "timeout", cfg.BackendTimeout)
	})

	return s
}

// Close unsubscribes from settings notifications.
func (s *GenerationService) Close() {
	if s.dispose != nil {
		s.dispose()
	}
}

func (s *GenerationService) Generate(ctx context.Context, req entity.GenerationRequest) (entity.GenerationResult, error) {
	start := time.Now()
	requestID := uuid.NewString()

	if err := req.Validate(); err != nil {
		return entity.GenerationResult{}, s.fail(requestID, "validation", err)
	}

	metrics.IncGenerationRequest()
	cfg := s.settings.Snapshot()

	s.logger.Info("generation started",
		"request_id", requestID,
		"project", req.ProjectName,
		"stack", req.TechStack)

	resp, err := s.client.GenerateCode(ctx, req)
	if err != nil {
		return entity.GenerationResult{}, s.fail(requestID, "generation", err)
	}

	if !resp.Success {
		// error_details is the authoritative reason; files are not trusted.
		msg := resp.ErrorDetails
		if msg == "" {
			msg = resp.Message
		}
		if msg == "" {
			msg = "The backend reported a failed generation."
		}
		ce := entity.NewAPIError(msg, "backend returned success=false",
			"Review the project description and try again")
		return entity.GenerationResult{}, s.fail(requestID, "generation", ce)
	}

	written, err := s.workspace.WriteGeneration(ctx, req.ProjectName, resp, cfg.CreateProjectFolder)
	if err != nil {
		return entity.GenerationResult{}, s.fail(requestID, "workspace", err)
	}
	metrics.AddFilesWritten(len(written))

	s.logger.Info("generation complete",
		"request_id", requestID,
		"files", len(written),
		"duration", time.Since(start))
	metrics.ObserveGenerationDuration(time.Since(start))

	return entity.GenerationResult{
		RequestID:    requestID,
		Message:      resp.Message,
		WrittenPaths: written,
		AutoOpen:     cfg.AutoOpenGeneratedFile,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

func (s *GenerationService) CheckBackend(ctx context.Context) entity.ConnectionStatus {
	return s.client.TestConnection(ctx)
}

func (s *GenerationService) BackendHealth(ctx context.Context) (entity.HealthStatus, error) {
	return s.client.CheckHealth(ctx)
}

// fail classifies, logs once and counts the single error a failed run
// surfaces. Already-classified errors pass through unchanged.
func (s *GenerationService) fail(requestID, stage string, err error) error {
	ce := entity.Classify(err, "code generation failed")
	metrics.IncError(stage, string(ce.Kind))
	s.logger.Warn("generation failed",
		"request_id", requestID,
		"stage", stage,
		"kind", ce.Kind,
		"message", ce.Message)
	return ce
}
