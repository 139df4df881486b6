package entity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() GenerationRequest {
	return GenerationRequest{
		ImageData:   "iVBORw0KGgoAAAANSUhEUg==",
		Description: "A task manager with authentication and realtime updates.",
		TechStack: TechStack{
			Frontend: "React",
			Backend:  "FastAPI",
			Database: "PostgreSQL",
		},
		ProjectName: "task-manager",
	}
}

func TestGenerationRequest_ValidateAcceptsCompleteRequest(t *testing.T) {
	assert.NoError(t, validRequest().Validate())
}

func TestGenerationRequest_ValidateRejectsMissingFields(t *testing.T) {
	cases := map[string]func(*GenerationRequest){
		"missing image":       func(r *GenerationRequest) { r.ImageData = "" },
		"missing description": func(r *GenerationRequest) { r.Description = "" },
		"missing frontend":    func(r *GenerationRequest) { r.TechStack.Frontend = "" },
		"missing backend":     func(r *GenerationRequest) { r.TechStack.Backend = "" },
		"missing database":    func(r *GenerationRequest) { r.TechStack.Database = "" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := validRequest()
			mutate(&req)

			err := req.Validate()
			require.Error(t, err)

			var ce *ClassifiedError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, ErrorKindValidation, ce.Kind)
			assert.NotEmpty(t, ce.Suggestions)
		})
	}
}

func TestGenerationRequest_ValidateRejectsShortDescription(t *testing.T) {
	req := validRequest()
	req.Description = strings.Repeat("x", MinDescriptionLength-1)

	err := req.Validate()
	require.Error(t, err)

	var ce *ClassifiedError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrorKindValidation, ce.Kind)
	assert.Contains(t, ce.Message, "too short")

	req.Description = strings.Repeat("x", MinDescriptionLength)
	assert.NoError(t, req.Validate())
}
