package settings

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"rnetagent/app/config"
)

// Settings keys under the rnet-ai namespace. Viper treats keys
// case-insensitively, so the camel-cased originals resolve fine.
const (
	KeyBackendURL   = "backend.url"
	KeyTimeout      = "backend.timeout" // milliseconds
	KeyAutoOpen     = "generation.autoOpen"
	KeyCreateFolder = "generation.createFolder"
	KeyTheme        = "ui.theme"
)

// Scope selects which settings file a write lands in. Workspace values
// override global ones when both are present.
type Scope string

const (
	ScopeGlobal    Scope = "global"
	ScopeWorkspace Scope = "workspace"
)

// Provider reads the rnet-ai settings with documented defaults and fans
// change notifications out to registered listeners. Snapshots are re-read
// on every call; nothing is cached between operations.
type Provider struct {
	log *slog.Logger

	mu            sync.Mutex
	global        *viper.Viper
	workspace     *viper.Viper // nil when no workspace settings file is configured
	workspacePath string

	listeners map[int]func(config.Configuration)
	nextID    int
}

// NewProvider builds a provider over a global settings file and an optional
// workspace override file. A missing file is not an error; defaults apply.
// RNET_* environment variables override file values.
func NewProvider(globalPath, workspacePath string, log *slog.Logger) (*Provider, error) {
	g := viper.New()
	g.SetConfigFile(globalPath)
	g.SetDefault(KeyBackendURL, config.DefaultBackendURL)
	g.SetDefault(KeyTimeout, int(config.DefaultBackendTimeout/time.Millisecond))
	g.SetDefault(KeyAutoOpen, config.DefaultAutoOpenGeneratedFile)
	g.SetDefault(KeyCreateFolder, config.DefaultCreateProjectFolder)
	g.SetDefault(KeyTheme, string(config.ThemeAuto))
	g.SetEnvPrefix("RNET")
	g.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	g.AutomaticEnv()

	p := &Provider{
		log:           log,
		global:        g,
		workspacePath: workspacePath,
		listeners:     make(map[int]func(config.Configuration)),
	}

	if err := g.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read settings file %s: %w", globalPath, err)
			}
		}
		log.Info("no global settings file, using defaults", "path", globalPath)
	} else {
		g.OnConfigChange(func(fsnotify.Event) { p.notify() })
		g.WatchConfig()
	}

	if workspacePath != "" {
		if err := p.loadWorkspace(); err != nil {
			return nil, err
		}
	}

	return p, nil
}

func (p *Provider) loadWorkspace() error {
	w := viper.New()
	w.SetConfigFile(p.workspacePath)
	if err := w.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read workspace settings file %s: %w", p.workspacePath, err)
	}
	w.OnConfigChange(func(fsnotify.Event) { p.notify() })
	w.WatchConfig()
	p.workspace = w
	return nil
}

// Snapshot returns the current configuration with defaults filled in for
// absent keys. Workspace values take precedence over global ones.
func (p *Provider) Snapshot() config.Configuration {
	p.mu.Lock()
	defer p.mu.Unlock()

	timeoutMs := p.getInt(KeyTimeout)
	timeout := time.Duration(timeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = config.DefaultBackendTimeout
	}

	url := p.getString(KeyBackendURL)
	if url == "" {
		url = config.DefaultBackendURL
	}

	return config.Configuration{
		BackendURL:            url,
		BackendTimeout:        timeout,
		AutoOpenGeneratedFile: p.getBool(KeyAutoOpen),
		CreateProjectFolder:   p.getBool(KeyCreateFolder),
		UITheme:               config.NormalizeTheme(p.getString(KeyTheme)),
	}
}

func (p *Provider) getString(key string) string {
	if p.workspace != nil && p.workspace.IsSet(key) {
		return p.workspace.GetString(key)
	}
	return p.global.GetString(key)
}

func (p *Provider) getInt(key string) int {
	if p.workspace != nil && p.workspace.IsSet(key) {
		return p.workspace.GetInt(key)
	}
	return p.global.GetInt(key)
}

func (p *Provider) getBool(key string) bool {
	if p.workspace != nil && p.workspace.IsSet(key) {
		return p.workspace.GetBool(key)
	}
	return p.global.GetBool(key)
}

// OnChange registers a listener for settings changes and returns a disposer
// that removes it. Listeners fire on explicit writes through Set and on
// external edits to a watched settings file.
func (p *Provider) OnChange(fn func(config.Configuration)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	p.listeners[id] = fn

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

// Set persists a key through the settings file for the given scope
// (global unless stated otherwise) and notifies listeners. No format
// validation happens here; the transport layer guards the URL prefix.
func (p *Provider) Set(key string, value any, scope Scope) error {
	p.mu.Lock()
	switch scope {
	case ScopeWorkspace:
		if p.workspacePath == "" {
			p.mu.Unlock()
			return fmt.Errorf("no workspace settings file configured")
		}
		if p.workspace == nil {
			w := viper.New()
			w.SetConfigFile(p.workspacePath)
			p.workspace = w
		}
		p.workspace.Set(key, value)
		if err := p.workspace.WriteConfigAs(p.workspacePath); err != nil {
			p.mu.Unlock()
			return fmt.Errorf("write workspace settings: %w", err)
		}
	case ScopeGlobal, "":
		p.global.Set(key, value)
		if err := p.global.WriteConfigAs(p.global.ConfigFileUsed()); err != nil {
			p.mu.Unlock()
			return fmt.Errorf("write global settings: %w", err)
		}
	default:
		p.mu.Unlock()
		return fmt.Errorf("unknown settings scope %q", scope)
	}
	p.mu.Unlock()

	p.log.Info("setting updated", "key", key, "scope", scope)
	p.notify()
	return nil
}

func (p *Provider) notify() {
	cfg := p.Snapshot()

	p.mu.Lock()
	fns := make([]func(config.Configuration), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(cfg)
	}
}
