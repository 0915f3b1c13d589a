package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"

	"github.com/bryanchriswhite/livewindow/internal/logger"
	"github.com/bryanchriswhite/livewindow/internal/source"
	"github.com/bryanchriswhite/livewindow/internal/source/label"
	"github.com/bryanchriswhite/livewindow/internal/window"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var (
	ErrSourceExists   = errors.New("source already exists")
	ErrSourceNotFound = errors.New("source not found")
	ErrSceneNotFound  = errors.New("scene not found")
	ErrUnknownKey     = errors.New("unknown configuration key")
)

// DefaultSceneName is the scene created for a fresh config
const DefaultSceneName = "Scene"

// Config is the persisted application configuration
type Config struct {
	ServerPort  int            `json:"server_port" yaml:"server_port"`
	LogLevel    string         `json:"log_level" yaml:"log_level"`
	Canvas      CanvasConfig   `json:"canvas" yaml:"canvas"`
	Sources     []SourceConfig `json:"sources" yaml:"sources"`
	Scenes      []SceneConfig  `json:"scenes" yaml:"scenes"`
	ActiveScene string         `json:"active_scene" yaml:"active_scene"`
}

// CanvasConfig sizes the composed output
type CanvasConfig struct {
	Width   int `json:"width" yaml:"width"`
	Height  int `json:"height" yaml:"height"`
	FPS     int `json:"fps" yaml:"fps"`
	Quality int `json:"quality" yaml:"quality"`
}

// SourceConfig describes one source. Which fields apply depends on Type.
type SourceConfig struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`

	// live_window_capture
	Window        string `json:"window,omitempty" yaml:"window,omitempty"`
	Priority      string `json:"priority,omitempty" yaml:"priority,omitempty"`
	Border        bool   `json:"border,omitempty" yaml:"border,omitempty"`
	Cursor        *bool  `json:"cursor,omitempty" yaml:"cursor,omitempty"`
	Compatibility bool   `json:"compatibility,omitempty" yaml:"compatibility,omitempty"`

	// text_label
	Text       string   `json:"text,omitempty" yaml:"text,omitempty"`
	Color      string   `json:"color,omitempty" yaml:"color,omitempty"`
	Background string   `json:"background,omitempty" yaml:"background,omitempty"`
	Opacity    *float64 `json:"opacity,omitempty" yaml:"opacity,omitempty"`
}

// CursorEnabled reports the cursor option, which defaults to on
func (sc SourceConfig) CursorEnabled() bool {
	return sc.Cursor == nil || *sc.Cursor
}

// Validate checks the fields relevant to the source's type
func (sc SourceConfig) Validate() error {
	if sc.Name == "" {
		return fmt.Errorf("source name is required")
	}
	switch sc.Type {
	case source.TypeLiveWindow:
		if _, err := window.ParsePriority(sc.Priority); err != nil {
			return err
		}
	case label.Type:
		for _, c := range []string{sc.Color, sc.Background} {
			if c == "" {
				continue
			}
			if _, err := label.ParseColor(c); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unknown source type %q", sc.Type)
	}
	return nil
}

// SceneConfig lists a scene's items bottom first
type SceneConfig struct {
	Name  string       `json:"name" yaml:"name"`
	Items []ItemConfig `json:"items" yaml:"items"`
}

// ItemConfig places a source in a scene
type ItemConfig struct {
	Source string `json:"source" yaml:"source"`
	X      int    `json:"x" yaml:"x"`
	Y      int    `json:"y" yaml:"y"`
	Hidden bool   `json:"hidden,omitempty" yaml:"hidden,omitempty"`
}

// Manager loads, mutates and persists the configuration
type Manager struct {
	configPath string
	config     *Config
	mu         sync.RWMutex
}

// DefaultPath returns $HOME/.config/livewindow/config.yaml
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "livewindow", "config.yaml"), nil
}

// NewManager loads configFile, or the default path when empty. A missing
// file is created with defaults.
func NewManager(configFile string) (*Manager, error) {
	path := configFile
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	m := &Manager{configPath: path}
	log := logger.WithComponent("config")

	if err := m.load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		log.Info().
			Str("path", m.configPath).
			Msg("Config file not found, creating new config")
		m.config = Defaults()
		if err := m.Save(); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	log.Info().
		Str("path", m.configPath).
		Int("sources", len(m.config.Sources)).
		Int("scenes", len(m.config.Scenes)).
		Msg("Config loaded")

	return m, nil
}

// Defaults returns the configuration used when no file exists
func Defaults() *Config {
	return &Config{
		ServerPort: 8080,
		LogLevel:   "info",
		Canvas: CanvasConfig{
			Width:   1920,
			Height:  1080,
			FPS:     30,
			Quality: 85,
		},
		Sources:     []SourceConfig{},
		Scenes:      []SceneConfig{{Name: DefaultSceneName, Items: []ItemConfig{}}},
		ActiveScene: DefaultSceneName,
	}
}

func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return err
	}

	cfg := Defaults()
	cfg.Scenes = nil
	cfg.ActiveScene = ""
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Sources == nil {
		cfg.Sources = []SourceConfig{}
	}
	if len(cfg.Scenes) == 0 {
		cfg.Scenes = []SceneConfig{{Name: DefaultSceneName}}
	}
	for i := range cfg.Scenes {
		if cfg.Scenes[i].Items == nil {
			cfg.Scenes[i].Items = []ItemConfig{}
		}
	}
	if cfg.ActiveScene == "" || cfg.sceneIndex(cfg.ActiveScene) < 0 {
		cfg.ActiveScene = cfg.Scenes[0].Name
	}

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return nil
}

// Get returns a deep copy of the current configuration
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.config == nil {
		return Defaults()
	}
	return m.config.clone()
}

func (c *Config) clone() *Config {
	cp := *c
	cp.Sources = slices.Clone(c.Sources)
	cp.Scenes = make([]SceneConfig, len(c.Scenes))
	for i, s := range c.Scenes {
		cp.Scenes[i] = SceneConfig{Name: s.Name, Items: slices.Clone(s.Items)}
	}
	return &cp
}

func (c *Config) sourceIndex(name string) int {
	return slices.IndexFunc(c.Sources, func(s SourceConfig) bool { return s.Name == name })
}

func (c *Config) sceneIndex(name string) int {
	return slices.IndexFunc(c.Scenes, func(s SceneConfig) bool { return s.Name == name })
}

// Save writes the configuration to disk
func (m *Manager) Save() error {
	m.mu.RLock()
	cfg := m.config
	if cfg == nil {
		cfg = Defaults()
	}
	data, err := yaml.Marshal(cfg)
	m.mu.RUnlock()

	log := logger.WithComponent("config")
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal config")
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	configDir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		log.Error().
			Err(err).
			Str("config_dir", configDir).
			Msg("Failed to create config directory")
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		log.Error().
			Err(err).
			Str("path", m.configPath).
			Msg("Failed to write config")
		return err
	}

	log.Debug().Str("path", m.configPath).Msg("Config saved")
	return nil
}

// mutate applies fn under the write lock and saves when it succeeds
func (m *Manager) mutate(fn func(*Config) error) error {
	m.mu.Lock()
	if err := fn(m.config); err != nil {
		m.mu.Unlock()
		return err
	}
	m.mu.Unlock()
	return m.Save()
}

// Source returns the named source
func (m *Manager) Source(name string) (SourceConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i := m.config.sourceIndex(name)
	if i < 0 {
		return SourceConfig{}, fmt.Errorf("%w: %s", ErrSourceNotFound, name)
	}
	return m.config.Sources[i], nil
}

// AddSource registers a source and places it on top of the active scene
func (m *Manager) AddSource(sc SourceConfig, item ItemConfig) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	return m.mutate(func(c *Config) error {
		if c.sourceIndex(sc.Name) >= 0 {
			return fmt.Errorf("%w: %s", ErrSourceExists, sc.Name)
		}
		c.Sources = append(c.Sources, sc)

		item.Source = sc.Name
		if i := c.sceneIndex(c.ActiveScene); i >= 0 {
			c.Scenes[i].Items = append(c.Scenes[i].Items, item)
		}
		return nil
	})
}

// UpdateSource replaces a source's settings. The name cannot change.
func (m *Manager) UpdateSource(name string, sc SourceConfig) error {
	sc.Name = name
	if err := sc.Validate(); err != nil {
		return err
	}
	return m.mutate(func(c *Config) error {
		i := c.sourceIndex(name)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrSourceNotFound, name)
		}
		c.Sources[i] = sc
		return nil
	})
}

// RemoveSource deletes a source and every scene item referencing it
func (m *Manager) RemoveSource(name string) error {
	return m.mutate(func(c *Config) error {
		i := c.sourceIndex(name)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrSourceNotFound, name)
		}
		c.Sources = slices.Delete(c.Sources, i, i+1)
		for s := range c.Scenes {
			c.Scenes[s].Items = slices.DeleteFunc(c.Scenes[s].Items, func(it ItemConfig) bool {
				return it.Source == name
			})
		}
		return nil
	})
}

// SetActiveScene switches the scene that is output
func (m *Manager) SetActiveScene(name string) error {
	return m.mutate(func(c *Config) error {
		if c.sceneIndex(name) < 0 {
			return fmt.Errorf("%w: %s", ErrSceneNotFound, name)
		}
		c.ActiveScene = name
		return nil
	})
}

// SetPort sets the server port
func (m *Manager) SetPort(port int) error {
	return m.mutate(func(c *Config) error {
		c.ServerPort = port
		return nil
	})
}

// SetLogLevel sets the log level
func (m *Manager) SetLogLevel(level string) error {
	if !logger.ValidLevel(level) {
		return fmt.Errorf("invalid log level: %s (use: debug, info, warn, error)", level)
	}
	return m.mutate(func(c *Config) error {
		c.LogLevel = level
		return nil
	})
}

// SetValue sets a scalar key from its string form, as typed on the command line
func (m *Manager) SetValue(key, value string) error {
	switch key {
	case "server_port", "canvas.width", "canvas.height", "canvas.fps", "canvas.quality":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid number for %s: %s", key, value)
		}
		return m.mutate(func(c *Config) error {
			switch key {
			case "server_port":
				c.ServerPort = n
			case "canvas.width":
				c.Canvas.Width = n
			case "canvas.height":
				c.Canvas.Height = n
			case "canvas.fps":
				c.Canvas.FPS = n
			case "canvas.quality":
				c.Canvas.Quality = min(n, 100)
			}
			return nil
		})
	case "log_level":
		return m.SetLogLevel(value)
	case "active_scene":
		return m.SetActiveScene(value)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
}

// Lookup reads a dotted key from the file on disk
func (m *Manager) Lookup(key string) (any, error) {
	v := viper.New()
	v.SetConfigFile(m.configPath)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if !v.IsSet(key) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return v.Get(key), nil
}

// GetConfigPath returns the path to the config file
func (m *Manager) GetConfigPath() string {
	return m.configPath
}
