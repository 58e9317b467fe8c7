package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeStore(); err != nil {
		return err
	}
	c.normalizeMedia()
	c.normalizeSpeech()
	c.normalizeAnimation()
	c.normalizeWorkflow()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.UploadsDir) == "" {
		c.Paths.UploadsDir = filepath.Join(c.Paths.DataDir, "uploads")
	}
	if c.Paths.UploadsDir, err = expandPath(c.Paths.UploadsDir); err != nil {
		return fmt.Errorf("paths.uploads_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputsDir) == "" {
		c.Paths.OutputsDir = filepath.Join(c.Paths.DataDir, "outputs")
	}
	if c.Paths.OutputsDir, err = expandPath(c.Paths.OutputsDir); err != nil {
		return fmt.Errorf("paths.outputs_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.AssetsDir) == "" {
		c.Paths.AssetsDir = defaultAssetsDir
	}
	if c.Paths.AssetsDir, err = expandPath(c.Paths.AssetsDir); err != nil {
		return fmt.Errorf("paths.assets_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}

	if value, ok := os.LookupEnv("FACEPHRASE_API_BIND"); ok && strings.TrimSpace(value) != "" {
		c.Paths.APIBind = value
	} else if value, ok := os.LookupEnv("PORT"); ok && strings.TrimSpace(value) != "" {
		c.Paths.APIBind = "0.0.0.0:" + strings.TrimSpace(value)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}

	if value, ok := os.LookupEnv("ALLOWED_ORIGINS"); ok && len(c.Paths.AllowedOrigins) == 0 {
		c.Paths.AllowedOrigins = strings.Split(value, ",")
	}
	origins := make([]string, 0, len(c.Paths.AllowedOrigins))
	seen := make(map[string]struct{}, len(c.Paths.AllowedOrigins))
	for _, origin := range c.Paths.AllowedOrigins {
		trimmed := strings.TrimRight(strings.TrimSpace(origin), "/")
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		origins = append(origins, trimmed)
	}
	c.Paths.AllowedOrigins = origins
	return nil
}

func (c *Config) normalizeStore() error {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	c.Store.DSN = strings.TrimSpace(c.Store.DSN)
	if c.Store.DSN == "" {
		if value, ok := os.LookupEnv("DATABASE_URL"); ok {
			c.Store.DSN = strings.TrimSpace(value)
			if c.Store.Driver == "" && c.Store.DSN != "" {
				c.Store.Driver = DriverPostgres
			}
		}
	}
	switch c.Store.Driver {
	case "", "sqlite3":
		c.Store.Driver = DriverSQLite
	case "pgx", "postgresql":
		c.Store.Driver = DriverPostgres
	}
	if c.Store.Driver == DriverSQLite && c.Store.DSN != "" {
		var err error
		if c.Store.DSN, err = expandPath(c.Store.DSN); err != nil {
			return fmt.Errorf("store.dsn: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeMedia() {
	if value, ok := os.LookupEnv("FFMPEG_BIN"); ok && strings.TrimSpace(value) != "" {
		c.Media.FFmpegBinary = value
	}
	if value, ok := os.LookupEnv("FFPROBE_BIN"); ok && strings.TrimSpace(value) != "" {
		c.Media.FFprobeBinary = value
	}
	c.Media.FFmpegBinary = strings.TrimSpace(c.Media.FFmpegBinary)
	if c.Media.FFmpegBinary == "" {
		c.Media.FFmpegBinary = defaultFFmpegBinary
	}
	c.Media.FFprobeBinary = strings.TrimSpace(c.Media.FFprobeBinary)
	if c.Media.FFprobeBinary == "" || c.Media.FFprobeBinary == defaultFFprobeBinary {
		c.Media.FFprobeBinary = siblingBinary(c.Media.FFmpegBinary, defaultFFprobeBinary)
	}
}

// siblingBinary resolves ffprobe next to an explicitly located ffmpeg.
func siblingBinary(ffmpeg, name string) string {
	if !strings.ContainsRune(ffmpeg, filepath.Separator) {
		return name
	}
	return filepath.Join(filepath.Dir(ffmpeg), name)
}

func (c *Config) normalizeSpeech() {
	c.Speech.Engine = strings.ToLower(strings.TrimSpace(c.Speech.Engine))
	if c.Speech.Engine == "" {
		c.Speech.Engine = defaultSpeechEngine
	}
	c.Speech.Command = strings.TrimSpace(c.Speech.Command)
	if c.Speech.Command == "" {
		c.Speech.Command = defaultSpeechCommand
	}
	if c.Speech.Rate <= 0 {
		c.Speech.Rate = defaultSpeechRate
	}
	c.Speech.ElevenLabsAPIKey = strings.TrimSpace(c.Speech.ElevenLabsAPIKey)
	if c.Speech.ElevenLabsAPIKey == "" {
		if value, ok := os.LookupEnv("ELEVENLABS_API_KEY"); ok {
			c.Speech.ElevenLabsAPIKey = strings.TrimSpace(value)
		}
	}
	if value, ok := os.LookupEnv("ELEVENLABS_VOICE_ID"); ok && strings.TrimSpace(value) != "" {
		c.Speech.ElevenLabsVoiceID = strings.TrimSpace(value)
	}
	c.Speech.ElevenLabsVoiceID = strings.TrimSpace(c.Speech.ElevenLabsVoiceID)
	if c.Speech.ElevenLabsVoiceID == "" {
		c.Speech.ElevenLabsVoiceID = defaultElevenLabsVoiceID
	}
	c.Speech.ElevenLabsModel = strings.TrimSpace(c.Speech.ElevenLabsModel)
	if c.Speech.ElevenLabsModel == "" {
		c.Speech.ElevenLabsModel = defaultElevenLabsModel
	}
	c.Speech.ElevenLabsBaseURL = strings.TrimRight(strings.TrimSpace(c.Speech.ElevenLabsBaseURL), "/")
	if c.Speech.ElevenLabsBaseURL == "" {
		c.Speech.ElevenLabsBaseURL = defaultElevenLabsBaseURL
	}
	if c.Speech.RequestTimeout <= 0 {
		c.Speech.RequestTimeout = defaultSpeechRequestTimeout
	}
}

func (c *Config) normalizeAnimation() {
	if value, ok := os.LookupEnv("TALKING_HEAD_MODE"); ok && strings.TrimSpace(value) != "" {
		c.Animation.Mode = value
	}
	c.Animation.Mode = strings.ToLower(strings.TrimSpace(c.Animation.Mode))
	if c.Animation.Mode == "" {
		c.Animation.Mode = defaultAnimationMode
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.MaxConcurrentJobs == 0 {
		c.Workflow.MaxConcurrentJobs = defaultMaxConcurrentJobs
	}
	if c.Workflow.ShutdownGraceSeconds == 0 {
		c.Workflow.ShutdownGraceSeconds = defaultShutdownGrace
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout == 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
