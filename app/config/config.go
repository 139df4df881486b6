package config

import "time"

// Defaults for the rnet-ai settings namespace. Absent keys always fall
// back to these values; no error is raised for an unset key.
const (
	DefaultBackendURL     = "http://127.0.0.1:8000"
	DefaultBackendTimeout = 60 * time.Second
)

const (
	DefaultAutoOpenGeneratedFile = true
	DefaultCreateProjectFolder   = true
)

type UITheme string

const (
	ThemeAuto  UITheme = "auto"
	ThemeLight UITheme = "light"
	ThemeDark  UITheme = "dark"
)

// Configuration is an immutable snapshot of the rnet-ai settings, re-read
// from the provider on demand. Changes are observed through the provider's
// OnChange subscription, not by polling a shared struct.
type Configuration struct {
	BackendURL            string        `json:"backend_url"`
	BackendTimeout        time.Duration `json:"backend_timeout"`
	AutoOpenGeneratedFile bool          `json:"auto_open_generated_file"`
	CreateProjectFolder   bool          `json:"create_project_folder"`
	UITheme               UITheme       `json:"ui_theme"`
}

func Default() Configuration {
	return Configuration{
		BackendURL:            DefaultBackendURL,
		BackendTimeout:        DefaultBackendTimeout,
		AutoOpenGeneratedFile: DefaultAutoOpenGeneratedFile,
		CreateProjectFolder:   DefaultCreateProjectFolder,
		UITheme:               ThemeAuto,
	}
}

// NormalizeTheme maps unknown theme values to ThemeAuto.
func NormalizeTheme(s string) UITheme {
	switch UITheme(s) {
	case ThemeLight, ThemeDark:
		return UITheme(s)
	default:
		return ThemeAuto
	}
}

// HTTPServerConfig configures the local panel server.
type HTTPServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}
