package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateSpeech(); err != nil {
		return err
	}
	if err := c.validateAnimation(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.UploadsDir == c.Paths.OutputsDir {
		return errors.New("paths.uploads_dir and paths.outputs_dir must differ")
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Driver {
	case DriverSQLite:
		return nil
	case DriverPostgres:
		if c.Store.DSN == "" {
			return errors.New("store.dsn must be set when store.driver is postgres (or set DATABASE_URL)")
		}
		return nil
	default:
		return fmt.Errorf("store.driver: unsupported value %q (want sqlite or postgres)", c.Store.Driver)
	}
}

func (c *Config) validateSpeech() error {
	switch c.Speech.Engine {
	case SpeechEngineAuto, SpeechEngineEspeak:
	case SpeechEngineElevenLabs:
		if c.Speech.ElevenLabsAPIKey == "" {
			return errors.New("speech.elevenlabs_api_key must be set when speech.engine is elevenlabs (or set ELEVENLABS_API_KEY)")
		}
	default:
		return fmt.Errorf("speech.engine: unsupported value %q (want auto, espeak or elevenlabs)", c.Speech.Engine)
	}
	if c.Speech.RequestTimeout < 0 {
		return errors.New("speech.request_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateAnimation() error {
	if c.Animation.Mode != AnimationKenBurns {
		return fmt.Errorf("animation.mode: unsupported value %q (only %q is available)", c.Animation.Mode, AnimationKenBurns)
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.MaxConcurrentJobs < 1 {
		return errors.New("workflow.max_concurrent_jobs must be >= 1")
	}
	if c.Workflow.ShutdownGraceSeconds < 0 {
		return errors.New("workflow.shutdown_grace_seconds must be >= 0")
	}
	if c.Notifications.RequestTimeout < 0 {
		return errors.New("notifications.request_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
