package repository

import (
	"context"

	"rnetagent/internal/domain/entity"
)

// WorkspaceWriter persists a generation response into the local workspace.
type WorkspaceWriter interface {
	// WriteGeneration writes every generated file verbatim, creating
	// directories as needed, and synthesizes SETUP.md when the response
	// carries setup instructions. It returns the written paths in order.
	WriteGeneration(ctx context.Context, projectName string, resp entity.GenerationResponse, createFolder bool) ([]string, error)
	// Root is the workspace root directory.
	Root() string
}
