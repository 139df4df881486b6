package entity

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_NetworkMarkers(t *testing.T) {
	for _, msg := range []string{
		"dial tcp: ECONNREFUSED",
		"lookup backend: ENOTFOUND",
		"request timeout exceeded",
		"network is unreachable",
	} {
		ce := Classify(errors.New(msg), "health check failed")
		assert.Equal(t, ErrorKindNetwork, ce.Kind, "message %q", msg)
		assert.Contains(t, ce.Message, msg)
		assert.Contains(t, ce.Suggestions, "Verify the backend service is running")
		assert.Contains(t, ce.Suggestions, "Check the backend URL in settings")
	}
}

func TestClassify_APIMarkers(t *testing.T) {
	for _, msg := range []string{
		"server returned 401 Unauthorized",
		"got 403 from upstream",
		"invalid API key provided",
	} {
		ce := Classify(errors.New(msg), "generation failed")
		assert.Equal(t, ErrorKindAPI, ce.Kind, "message %q", msg)
		assert.Contains(t, ce.Suggestions, "Check the API key configuration on the backend")
	}
}

func TestClassify_FileSystemMarkers(t *testing.T) {
	for _, msg := range []string{
		"open src/App.tsx: ENOENT",
		"write SETUP.md: EACCES",
		"permission denied",
	} {
		ce := Classify(errors.New(msg), "write failed")
		assert.Equal(t, ErrorKindFileSystem, ce.Kind, "message %q", msg)
		assert.Contains(t, ce.Suggestions, "Check file permissions in the workspace")
		assert.Contains(t, ce.Suggestions, "Check available disk space")
	}
}

func TestClassify_Unknown(t *testing.T) {
	ce := Classify(errors.New("something odd happened"), "operation failed")
	assert.Equal(t, ErrorKindUnknown, ce.Kind)
	assert.Equal(t, "operation failed: something odd happened", ce.Message)
	assert.Contains(t, ce.Suggestions, "Retry the operation or report the issue")
}

// Network markers win over status markers when both are present. This is
// the documented precedence; a message mentioning both a timeout and a 401
// is treated as a connectivity problem.
func TestClassify_PrecedenceNetworkOverAPI(t *testing.T) {
	ce := Classify(errors.New("timeout waiting for 401 handshake"), "call failed")
	assert.Equal(t, ErrorKindNetwork, ce.Kind)
}

func TestClassify_CaseInsensitive(t *testing.T) {
	ce := Classify(errors.New("DIAL TCP: CONNECTION TIMEOUT"), "call failed")
	assert.Equal(t, ErrorKindNetwork, ce.Kind)
}

func TestClassify_PassesThroughClassifiedErrors(t *testing.T) {
	orig := NewValidationError("bad input", "fix it")
	ce := Classify(orig, "outer context")
	assert.Same(t, orig, ce, "already classified errors must not be re-wrapped")

	wrapped := fmt.Errorf("stage failed: %w", orig)
	ce = Classify(wrapped, "outer context")
	assert.Same(t, orig, ce, "classified errors inside a wrap chain must surface unchanged")
}

func TestNewValidationError(t *testing.T) {
	ce := NewValidationError("description too short", "add more detail", "describe the flows")
	require.Equal(t, ErrorKindValidation, ce.Kind)
	assert.Equal(t, "description too short", ce.Message)
	assert.Equal(t, []string{"add more detail", "describe the flows"}, ce.Suggestions)
	assert.EqualError(t, ce, "description too short")
}

func TestNewFileSystemError(t *testing.T) {
	ce := NewFileSystemError("no workspace open", "a folder must be opened first")
	require.Equal(t, ErrorKindFileSystem, ce.Kind)
	assert.Equal(t, "no workspace open", ce.Message)
	assert.Equal(t, "a folder must be opened first", ce.Details)
	assert.NotEmpty(t, ce.Suggestions)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, ErrorKindAPI, KindOf(NewAPIError("boom", "")))
	assert.Equal(t, ErrorKindUnknown, KindOf(errors.New("plain")))
}
