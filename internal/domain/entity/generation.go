package entity

import (
	"fmt"
	"time"
)

// MinDescriptionLength is the shortest project description the backend accepts.
const MinDescriptionLength = 10

// DefaultProjectName is used when the panel submits a request without one.
const DefaultProjectName = "generated-app"

// TechStack is the technology selection the panel submits with a request.
type TechStack struct {
	Frontend string `json:"frontend"`
	Backend  string `json:"backend"`
	Database string `json:"database"`
}

type GenerationRequest struct {
	ImageData   string    `json:"image_data"`
	Description string    `json:"description"`
	TechStack   TechStack `json:"tech_stack"`
	ProjectName string    `json:"project_name,omitempty"`
}

// Validate performs the presence checks the backend would otherwise reject
// on, so a bad request never reaches the network. Failures are Validation
// classified errors.
func (r GenerationRequest) Validate() error {
	if r.ImageData == "" {
		return NewValidationError("No design image was provided.",
			"Attach a UI mockup or screenshot before generating")
	}
	if r.Description == "" {
		return NewValidationError("No project description was provided.",
			"Describe what the application should do")
	}
	if len(r.Description) < MinDescriptionLength {
		return NewValidationError(
			fmt.Sprintf("Project description is too short (minimum %d characters).", MinDescriptionLength),
			"Add more detail about features, data and user flows")
	}
	if r.TechStack.Frontend == "" || r.TechStack.Backend == "" || r.TechStack.Database == "" {
		return NewValidationError("The technology stack is incomplete.",
			"Select a frontend, backend and database technology")
	}
	return nil
}

// GeneratedFile is one file returned by the backend, path relative to the
// project root.
type GeneratedFile struct {
	Path        string `json:"path"`
	Content     string `json:"content"`
	Description string `json:"description"`
}

type GenerationResponse struct {
	Success           bool                `json:"success"`
	Message           string              `json:"message"`
	ProjectStructure  map[string]any      `json:"project_structure,omitempty"`
	Files             []GeneratedFile     `json:"files"`
	Dependencies      map[string][]string `json:"dependencies,omitempty"`
	SetupInstructions []string            `json:"setup_instructions,omitempty"`
	ErrorDetails      string              `json:"error_details,omitempty"`
}

// GenerationResult is what the panel gets back after a successful run:
// the files that landed on disk plus how the UI should follow up.
type GenerationResult struct {
	RequestID    string    `json:"request_id"`
	Message      string    `json:"message"`
	WrittenPaths []string  `json:"written_paths"`
	AutoOpen     bool      `json:"auto_open"`
	CreatedAt    time.Time `json:"created_at"`
}
