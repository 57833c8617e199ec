// Package config provides configuration management for the Tempocut Agent.
// Configuration is loaded from environment variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	// Default values
	DefaultPort     = 8794
	DefaultLogLevel = "info"
	DefaultDataDir  = ".tempocut"

	// Environment variable names
	EnvPort       = "TEMPOCUT_PORT"
	EnvLogLevel   = "TEMPOCUT_LOG_LEVEL"
	EnvDataDir    = "TEMPOCUT_DATA_DIR"
	EnvHeadless   = "TEMPOCUT_HEADLESS"
	EnvInboxDir   = "TEMPOCUT_INBOX_DIR"
	EnvPresetPath = "TEMPOCUT_PRESET_PATH"
	EnvCacheSize  = "TEMPOCUT_PLAN_CACHE_SIZE"

	// Analyzer environment variable names
	EnvAnalyzersPython = "TEMPOCUT_ANALYZERS_PYTHON"
	EnvAnalyzersModule = "TEMPOCUT_ANALYZERS_MODULE"

	// Cloud environment variable names
	EnvCloudURL     = "TEMPOCUT_CLOUD_URL"
	EnvCloudToken   = "TEMPOCUT_CLOUD_TOKEN"
	EnvCloudOrg     = "TEMPOCUT_CLOUD_ORG"
	EnvCloudProject = "TEMPOCUT_CLOUD_PROJECT"

	// Database filename
	DBFilename = "tempocut.db"

	// Plan result cache entries kept in memory
	DefaultPlanCacheSize = 32

	// Analyzer defaults
	DefaultAnalyzersModule        = "tempocut_media_analyzers"
	DefaultAnalyzersTimeoutDoctor = 30   // seconds
	DefaultAnalyzersTimeoutAudio  = 600  // 10 minutes
	DefaultAnalyzersTimeoutScenes = 1200 // 20 minutes
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	Headless() bool
	InboxDir() string
	PresetPath() string
	PlanCacheSize() int
	AnalyzersPython() string
	AnalyzersModule() string
	AnalyzersTimeoutDoctor() time.Duration
	AnalyzersTimeoutAudio() time.Duration
	AnalyzersTimeoutScenes() time.Duration
	CloudURL() string
	CloudToken() string
	CloudOrg() string
	CloudProject() string
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port          int
	logLevel      string
	dataDir       string
	headless      bool
	inboxDir      string
	presetPath    string
	planCacheSize int

	analyzersPython string
	analyzersModule string

	cloudURL     string
	cloudToken   string
	cloudOrg     string
	cloudProject string
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:          DefaultPort,
		logLevel:      DefaultLogLevel,
		dataDir:       defaultDataDir(),
		planCacheSize: DefaultPlanCacheSize,
	}

	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	if h := os.Getenv(EnvHeadless); h != "" {
		headless, err := strconv.ParseBool(h)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvHeadless, err)
		}
		cfg.headless = headless
	}

	cfg.inboxDir = os.Getenv(EnvInboxDir)
	cfg.presetPath = os.Getenv(EnvPresetPath)

	if cs := os.Getenv(EnvCacheSize); cs != "" {
		size, err := strconv.Atoi(cs)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvCacheSize, err)
		}
		if size < 1 {
			return nil, fmt.Errorf("invalid %s: must be at least 1", EnvCacheSize)
		}
		cfg.planCacheSize = size
	}

	cfg.analyzersPython = os.Getenv(EnvAnalyzersPython)
	cfg.analyzersModule = os.Getenv(EnvAnalyzersModule)

	cfg.cloudURL = os.Getenv(EnvCloudURL)
	cfg.cloudToken = os.Getenv(EnvCloudToken)
	cfg.cloudOrg = os.Getenv(EnvCloudOrg)
	cfg.cloudProject = os.Getenv(EnvCloudProject)

	return cfg, nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// Headless reports whether the agent runs without the system tray.
func (c *EnvConfig) Headless() bool {
	return c.headless
}

// InboxDir returns the watched directory for analyzer output drops, empty
// when the watcher is disabled.
func (c *EnvConfig) InboxDir() string {
	return c.inboxDir
}

// PresetPath returns the optional YAML preset overlaying the engine
// defaults, empty for built-in defaults.
func (c *EnvConfig) PresetPath() string {
	return c.presetPath
}

// PlanCacheSize returns how many generated results are kept in memory.
func (c *EnvConfig) PlanCacheSize() int {
	return c.planCacheSize
}

func (c *EnvConfig) AnalyzersPython() string {
	return c.analyzersPython
}

func (c *EnvConfig) AnalyzersModule() string {
	if c.analyzersModule != "" {
		return c.analyzersModule
	}
	return DefaultAnalyzersModule
}

func (c *EnvConfig) AnalyzersTimeoutDoctor() time.Duration {
	return time.Duration(DefaultAnalyzersTimeoutDoctor) * time.Second
}

func (c *EnvConfig) AnalyzersTimeoutAudio() time.Duration {
	return time.Duration(DefaultAnalyzersTimeoutAudio) * time.Second
}

func (c *EnvConfig) AnalyzersTimeoutScenes() time.Duration {
	return time.Duration(DefaultAnalyzersTimeoutScenes) * time.Second
}

func (c *EnvConfig) CloudURL() string {
	return c.cloudURL
}

func (c *EnvConfig) CloudToken() string {
	return c.cloudToken
}

func (c *EnvConfig) CloudOrg() string {
	return c.cloudOrg
}

func (c *EnvConfig) CloudProject() string {
	return c.cloudProject
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
