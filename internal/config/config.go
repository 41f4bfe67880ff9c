// Package config provides configuration loading for the orchestrator.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/tidwall/jsonc"
)

// Notes backend selection. Remote pages notes through the notes endpoint;
// local mirrors each session's collection into the data directory.
const (
	NotesBackendRemote = "remote"
	NotesBackendLocal  = "local"
)

// Config holds endpoint addresses, credentials and client behavior.
type Config struct {
	// Endpoints
	InferenceURL   string `json:"inferenceURL"`
	DeploymentsURL string `json:"deploymentsURL"`
	NotesURL       string `json:"notesURL,omitempty"`
	TelemetryURL   string `json:"telemetryURL,omitempty"`

	// Auth. BearerToken is session-scoped and takes precedence over the
	// long-lived APIKey when both are set.
	APIKey      string `json:"apiKey,omitempty"`
	BearerToken string `json:"bearerToken,omitempty"`

	// NotesBackend selects "remote" or "local". Defaults to local when no
	// notes endpoint is configured.
	NotesBackend string `json:"notesBackend,omitempty"`

	// DataDir is where session snapshots and local note mirrors live.
	DataDir string `json:"dataDir,omitempty"`

	LogLevel string `json:"logLevel,omitempty"`

	// Stream timeouts, seconds. Connect covers the window before the first
	// byte; Stall covers gaps between bytes once streaming has started.
	ConnectTimeout int `json:"connectTimeout,omitempty"`
	StallTimeout   int `json:"stallTimeout,omitempty"`
}

// Default timeout values, seconds.
const (
	DefaultConnectTimeout = 10
	DefaultStallTimeout   = 30
)

// Load loads configuration from multiple sources (priority order):
//  1. Global config (~/.multichat/multichat.json or .jsonc)
//  2. MULTICHAT_CONFIG file
//  3. Environment variables
func Load() (*Config, error) {
	config := &Config{}

	home := os.Getenv("HOME")
	if home != "" {
		dir := filepath.Join(home, ".multichat")
		loadFile(filepath.Join(dir, "multichat.json"), config)
		loadFile(filepath.Join(dir, "multichat.jsonc"), config)
	}

	if path := os.Getenv("MULTICHAT_CONFIG"); path != "" {
		loadFile(path, config)
	}

	applyEnvOverrides(config)
	applyDefaults(config)

	if err := validate(config); err != nil {
		return nil, err
	}

	return config, nil
}

// loadFile merges a single config file into config. Missing files are
// skipped silently.
func loadFile(path string, config *Config) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	// Strip JSONC comments, then resolve {env:VAR} placeholders
	data = jsonc.ToJSON(data)
	data = interpolate(data)

	var fileConfig Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return
	}

	merge(config, &fileConfig)
}

var envPattern = regexp.MustCompile(`\{env:([^}]+)\}`)

// interpolate replaces {env:VAR_NAME} placeholders with environment values.
func interpolate(data []byte) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		varName := envPattern.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(varName)))
	})
}

func merge(target, source *Config) {
	if source.InferenceURL != "" {
		target.InferenceURL = source.InferenceURL
	}
	if source.DeploymentsURL != "" {
		target.DeploymentsURL = source.DeploymentsURL
	}
	if source.NotesURL != "" {
		target.NotesURL = source.NotesURL
	}
	if source.TelemetryURL != "" {
		target.TelemetryURL = source.TelemetryURL
	}
	if source.APIKey != "" {
		target.APIKey = source.APIKey
	}
	if source.BearerToken != "" {
		target.BearerToken = source.BearerToken
	}
	if source.NotesBackend != "" {
		target.NotesBackend = source.NotesBackend
	}
	if source.DataDir != "" {
		target.DataDir = source.DataDir
	}
	if source.LogLevel != "" {
		target.LogLevel = source.LogLevel
	}
	if source.ConnectTimeout > 0 {
		target.ConnectTimeout = source.ConnectTimeout
	}
	if source.StallTimeout > 0 {
		target.StallTimeout = source.StallTimeout
	}
}

// applyEnvOverrides applies environment variables (highest priority).
func applyEnvOverrides(config *Config) {
	envMap := map[string]*string{
		"MULTICHAT_INFERENCE_URL":   &config.InferenceURL,
		"MULTICHAT_DEPLOYMENTS_URL": &config.DeploymentsURL,
		"MULTICHAT_NOTES_URL":       &config.NotesURL,
		"MULTICHAT_TELEMETRY_URL":   &config.TelemetryURL,
		"MULTICHAT_API_KEY":         &config.APIKey,
		"MULTICHAT_BEARER_TOKEN":    &config.BearerToken,
		"MULTICHAT_NOTES_BACKEND":   &config.NotesBackend,
		"MULTICHAT_DATA_DIR":        &config.DataDir,
		"MULTICHAT_LOG_LEVEL":       &config.LogLevel,
	}

	for envVar, field := range envMap {
		if v := os.Getenv(envVar); v != "" {
			*field = v
		}
	}
}

func applyDefaults(config *Config) {
	if config.DataDir == "" {
		config.DataDir = filepath.Join(os.Getenv("HOME"), ".multichat", "data")
	}
	if config.NotesBackend == "" {
		if config.NotesURL != "" {
			config.NotesBackend = NotesBackendRemote
		} else {
			config.NotesBackend = NotesBackendLocal
		}
	}
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = DefaultConnectTimeout
	}
	if config.StallTimeout <= 0 {
		config.StallTimeout = DefaultStallTimeout
	}
}

func validate(config *Config) error {
	switch config.NotesBackend {
	case NotesBackendRemote:
		if config.NotesURL == "" {
			return fmt.Errorf("notes backend %q requires a notes endpoint", NotesBackendRemote)
		}
	case NotesBackendLocal:
	default:
		return fmt.Errorf("unknown notes backend %q", config.NotesBackend)
	}
	return nil
}

// Save writes the configuration to a file.
func Save(config *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
