package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"rnetagent/internal/domain/entity"
	"rnetagent/internal/domain/repository"
)

// SetupFileName is the synthesized instructions file written alongside the
// generated project when the backend supplies setup steps.
const SetupFileName = "SETUP.md"

// WorkspaceRepository writes generation responses under a workspace root.
type WorkspaceRepository struct {
	root string
}

var _ repository.WorkspaceWriter = (*WorkspaceRepository)(nil)

func NewWorkspaceRepository(root string) (*WorkspaceRepository, error) {
	if root == "" {
		return nil, entity.NewFileSystemError(
			"No workspace folder is open.",
			"a workspace root is required before generated files can be written")
	}

	info, err := os.Stat(root)
	if os.IsNotExist(err) {
		if mkErr := os.MkdirAll(root, 0755); mkErr != nil {
			return nil, entity.NewFileSystemError(
				fmt.Sprintf("Failed to create workspace directory %s.", root), mkErr.Error())
		}
	} else if err != nil {
		return nil, entity.NewFileSystemError(
			fmt.Sprintf("Failed to check workspace directory %s.", root), err.Error())
	} else if !info.IsDir() {
		return nil, entity.NewFileSystemError(
			fmt.Sprintf("Workspace path %s exists but is not a directory.", root), "")
	}

	return &WorkspaceRepository{root: root}, nil
}

func (r *WorkspaceRepository) Root() string {
	return r.root
}

// WriteGeneration writes each generated file verbatim (UTF-8, 0644) in
// response order, then SETUP.md when setup instructions are present. File
// paths are relative to the project directory; anything escaping it is
// rejected.
func (r *WorkspaceRepository) WriteGeneration(ctx context.Context, projectName string, resp entity.GenerationResponse, createFolder bool) ([]string, error) {
	targetDir := r.root
	if createFolder {
		if projectName == "" {
			projectName = entity.DefaultProjectName
		}
		targetDir = filepath.Join(r.root, projectName)
	}
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return nil, entity.NewFileSystemError(
			fmt.Sprintf("Failed to create project directory %s.", targetDir), err.Error())
	}

	written := make([]string, 0, len(resp.Files)+1)
	for _, f := range resp.Files {
		if err := ctx.Err(); err != nil {
			return written, entity.NewFileSystemError("File writing was interrupted.", err.Error())
		}

		path, err := r.resolve(targetDir, f.Path)
		if err != nil {
			return written, err
		}
		if dir := filepath.Dir(path); dir != targetDir {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return written, entity.NewFileSystemError(
					fmt.Sprintf("Failed to create directory for %s.", f.Path), err.Error())
			}
		}
		if err := os.WriteFile(path, []byte(f.Content), 0644); err != nil {
			return written, entity.NewFileSystemError(
				fmt.Sprintf("Failed to write %s.", f.Path), err.Error())
		}
		written = append(written, path)
	}

	if len(resp.SetupInstructions) > 0 {
		setupPath := filepath.Join(targetDir, SetupFileName)
		if err := os.WriteFile(setupPath, []byte(renderSetup(resp)), 0644); err != nil {
			return written, entity.NewFileSystemError(
				fmt.Sprintf("Failed to write %s.", SetupFileName), err.Error())
		}
		written = append(written, setupPath)
	}

	return written, nil
}

// resolve joins a backend-supplied relative path under dir and rejects
// anything that would land outside it.
func (r *WorkspaceRepository) resolve(dir, relPath string) (string, error) {
	path := filepath.Join(dir, filepath.FromSlash(relPath))
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", entity.NewFileSystemError(
			fmt.Sprintf("Generated file path %q escapes the project directory.", relPath), "")
	}
	return path, nil
}

func renderSetup(resp entity.GenerationResponse) string {
	var b strings.Builder
	b.WriteString("# Setup Instructions\n\n")
	for i, step := range resp.SetupInstructions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}

	if len(resp.Dependencies) > 0 {
		b.WriteString("\n## Dependencies\n")
		groups := make([]string, 0, len(resp.Dependencies))
		for g := range resp.Dependencies {
			groups = append(groups, g)
		}
		sort.Strings(groups)
		for _, g := range groups {
			fmt.Fprintf(&b, "\n### %s\n\n", g)
			for _, name := range resp.Dependencies[g] {
				fmt.Fprintf(&b, "- %s\n", name)
			}
		}
	}

	return b.String()
}
