package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rnetagent/internal/domain/entity"
)

func sampleResponse() entity.GenerationResponse {
	return entity.GenerationResponse{
		Success: true,
		Message: "Generated 3 files",
		Files: []entity.GeneratedFile{
			{Path: "package.json", Content: `{"name":"demo"}`, Description: "manifest"},
			{Path: "src/App.tsx", Content: "export default function App() {}", Description: "entry"},
			{Path: "src/components/Button.tsx", Content: "export {}", Description: "button"},
		},
		Dependencies: map[string][]string{
			"frontend": {"react", "react-dom"},
			"backend":  {"fastapi"},
		},
		SetupInstructions: []string{"npm install", "npm start"},
	}
}

func TestNewWorkspaceRepository_EmptyRoot(t *testing.T) {
	_, err := NewWorkspaceRepository("")

	var ce *entity.ClassifiedError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, entity.ErrorKindFileSystem, ce.Kind)
	assert.Contains(t, ce.Message, "No workspace folder")
}

func TestNewWorkspaceRepository_CreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "workspace")

	repo, err := NewWorkspaceRepository(root)
	require.NoError(t, err)
	assert.Equal(t, root, repo.Root())
	assert.DirExists(t, root)
}

func TestNewWorkspaceRepository_RootIsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	_, err := NewWorkspaceRepository(path)

	var ce *entity.ClassifiedError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, entity.ErrorKindFileSystem, ce.Kind)
}

func TestWriteGeneration_WritesFilesAndSetup(t *testing.T) {
	root := t.TempDir()
	repo, err := NewWorkspaceRepository(root)
	require.NoError(t, err)

	resp := sampleResponse()
	written, err := repo.WriteGeneration(context.Background(), "demo-app", resp, true)
	require.NoError(t, err)

	// N files plus exactly one SETUP.md
	require.Len(t, written, len(resp.Files)+1)
	assert.Equal(t, filepath.Join(root, "demo-app", "SETUP.md"), written[len(written)-1])

	content, err := os.ReadFile(filepath.Join(root, "demo-app", "src", "App.tsx"))
	require.NoError(t, err)
	assert.Equal(t, "export default function App() {}", string(content))

	setup, err := os.ReadFile(filepath.Join(root, "demo-app", "SETUP.md"))
	require.NoError(t, err)
	assert.Contains(t, string(setup), "1. npm install")
	assert.Contains(t, string(setup), "2. npm start")
	assert.Contains(t, string(setup), "### frontend")
	assert.Contains(t, string(setup), "- react")
}

func TestWriteGeneration_NoSetupWhenNoInstructions(t *testing.T) {
	root := t.TempDir()
	repo, err := NewWorkspaceRepository(root)
	require.NoError(t, err)

	resp := sampleResponse()
	resp.SetupInstructions = nil
	resp.Dependencies = nil

	written, err := repo.WriteGeneration(context.Background(), "demo-app", resp, true)
	require.NoError(t, err)

	assert.Len(t, written, len(resp.Files), "no extra files without instructions")
	assert.NoFileExists(t, filepath.Join(root, "demo-app", "SETUP.md"))
}

func TestWriteGeneration_WithoutProjectFolder(t *testing.T) {
	root := t.TempDir()
	repo, err := NewWorkspaceRepository(root)
	require.NoError(t, err)

	resp := sampleResponse()
	_, err = repo.WriteGeneration(context.Background(), "demo-app", resp, false)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(root, "package.json"))
	assert.NoDirExists(t, filepath.Join(root, "demo-app"))
}

func TestWriteGeneration_DefaultProjectName(t *testing.T) {
	root := t.TempDir()
	repo, err := NewWorkspaceRepository(root)
	require.NoError(t, err)

	_, err = repo.WriteGeneration(context.Background(), "", sampleResponse(), true)
	require.NoError(t, err)

	assert.DirExists(t, filepath.Join(root, entity.DefaultProjectName))
}

func TestWriteGeneration_RejectsEscapingPaths(t *testing.T) {
	root := t.TempDir()
	repo, err := NewWorkspaceRepository(root)
	require.NoError(t, err)

	resp := entity.GenerationResponse{
		Success: true,
		Files: []entity.GeneratedFile{
			{Path: "../outside.txt", Content: "nope"},
		},
	}

	_, err = repo.WriteGeneration(context.Background(), "demo-app", resp, true)

	var ce *entity.ClassifiedError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, entity.ErrorKindFileSystem, ce.Kind)
	assert.NoFileExists(t, filepath.Join(root, "outside.txt"))
}

func TestWriteGeneration_ContentWrittenVerbatim(t *testing.T) {
	root := t.TempDir()
	repo, err := NewWorkspaceRepository(root)
	require.NoError(t, err)

	content := "line one\n\tline two\nnon-ascii: héllo 世界\n"
	resp := entity.GenerationResponse{
		Success: true,
		Files:   []entity.GeneratedFile{{Path: "notes.txt", Content: content}},
	}

	written, err := repo.WriteGeneration(context.Background(), "p", resp, true)
	require.NoError(t, err)
	require.Len(t, written, 1)

	got, err := os.ReadFile(written[0])
	require.NoError(t, err)
	assert.Equal(t, content, string(got))
}
