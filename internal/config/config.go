package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir        string   `toml:"data_dir"`
	UploadsDir     string   `toml:"uploads_dir"`
	OutputsDir     string   `toml:"outputs_dir"`
	AssetsDir      string   `toml:"assets_dir"`
	LogDir         string   `toml:"log_dir"`
	APIBind        string   `toml:"api_bind"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// Store selects the job store backend.
type Store struct {
	Driver string `toml:"driver"`
	// DSN is the PostgreSQL connection string, or an explicit SQLite file path.
	DSN string `toml:"dsn"`
}

// Media contains the external transcoder binaries.
type Media struct {
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
}

// Speech contains configuration for the text-to-speech stage.
type Speech struct {
	Engine            string `toml:"engine"`
	Command           string `toml:"command"`
	Rate              int    `toml:"rate"`
	ElevenLabsAPIKey  string `toml:"elevenlabs_api_key"`
	ElevenLabsVoiceID string `toml:"elevenlabs_voice_id"`
	ElevenLabsModel   string `toml:"elevenlabs_model"`
	ElevenLabsBaseURL string `toml:"elevenlabs_base_url"`
	RequestTimeout    int    `toml:"request_timeout"`
}

// Animation selects the talking-head strategy.
type Animation struct {
	Mode string `toml:"mode"`
}

// Workflow contains configuration for the job runner.
type Workflow struct {
	MaxConcurrentJobs    int  `toml:"max_concurrent_jobs"`
	ShutdownGraceSeconds int  `toml:"shutdown_grace_seconds"`
	RecoverOnStart       bool `toml:"recover_on_start"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Ready          bool   `toml:"ready"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for facephrase.
//
// Configuration sections by subsystem:
//   - Paths: data, upload, output and asset directories plus the API bind address
//   - Store: job store driver (sqlite or postgres)
//   - Media: ffmpeg/ffprobe binaries
//   - Speech: text-to-speech engine selection
//   - Animation: talking-head mode
//   - Workflow: runner concurrency and shutdown behavior
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
//
// A loaded Config is treated as read-only; components receive a pointer to it
// once at construction time.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Store         Store         `toml:"store"`
	Media         Media         `toml:"media"`
	Speech        Speech        `toml:"speech"`
	Animation     Animation     `toml:"animation"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. Environment files (.env, .env.local) in the
// working directory are loaded first so their values participate in env fallbacks.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	if err := loadDotEnv(); err != nil {
		return nil, "", false, err
	}

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// loadDotEnv never overrides variables that are already set.
func loadDotEnv() error {
	var files []string
	for _, name := range []string{".env", ".env.local"} {
		if info, err := os.Stat(name); err == nil && !info.IsDir() {
			files = append(files, name)
		}
	}
	if len(files) == 0 {
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("facephrase.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// The assets directory is optional; a missing watermark simply disables the overlay.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.UploadsDir, c.Paths.OutputsDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database file used when the sqlite driver is selected.
func (c *Config) DatabasePath() string {
	if c.Store.Driver == DriverSQLite && strings.TrimSpace(c.Store.DSN) != "" {
		return c.Store.DSN
	}
	return filepath.Join(c.Paths.DataDir, "jobs.db")
}

// LockPath returns the single-instance lock file for the daemon.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "facephrased.lock")
}

// WatermarkPath returns the optional watermark image location.
func (c *Config) WatermarkPath() string {
	return filepath.Join(c.Paths.AssetsDir, "watermark.png")
}

// APIBaseURL returns the HTTP base URL clients use to reach the daemon.
func (c *Config) APIBaseURL() string {
	bind := c.Paths.APIBind
	if strings.HasPrefix(bind, ":") {
		bind = "127.0.0.1" + bind
	}
	if strings.HasPrefix(bind, "0.0.0.0:") {
		bind = "127.0.0.1:" + strings.TrimPrefix(bind, "0.0.0.0:")
	}
	return "http://" + bind
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
