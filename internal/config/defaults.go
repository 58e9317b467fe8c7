package config

const (
	defaultConfigPath           = "~/.config/facephrase/config.toml"
	defaultDataDir              = "~/.local/share/facephrase"
	defaultAssetsDir            = "~/.config/facephrase/assets"
	defaultAPIBind              = "127.0.0.1:8001"
	defaultFFmpegBinary         = "ffmpeg"
	defaultFFprobeBinary        = "ffprobe"
	defaultSpeechEngine         = SpeechEngineAuto
	defaultSpeechCommand        = "espeak-ng"
	defaultSpeechRate           = 175
	defaultElevenLabsVoiceID    = "pNInz6obpgDQGcFmaJgB"
	defaultElevenLabsModel      = "eleven_monolingual_v1"
	defaultElevenLabsBaseURL    = "https://api.elevenlabs.io/v1"
	defaultSpeechRequestTimeout = 60
	defaultAnimationMode        = AnimationKenBurns
	defaultMaxConcurrentJobs    = 2
	defaultShutdownGrace        = 120
	defaultNotifyTimeout        = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Speech engines.
const (
	SpeechEngineAuto       = "auto"
	SpeechEngineEspeak     = "espeak"
	SpeechEngineElevenLabs = "elevenlabs"
)

// AnimationKenBurns is the pan/zoom talking-head fallback and the only supported mode.
const AnimationKenBurns = "kenburns"

// Default returns a Config populated with repository defaults. Paths are left
// unexpanded; Load normalizes them.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			AssetsDir: defaultAssetsDir,
			APIBind:   defaultAPIBind,
		},
		Store: Store{
			Driver: DriverSQLite,
		},
		Media: Media{
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
		},
		Speech: Speech{
			Engine:            defaultSpeechEngine,
			Command:           defaultSpeechCommand,
			Rate:              defaultSpeechRate,
			ElevenLabsVoiceID: defaultElevenLabsVoiceID,
			ElevenLabsModel:   defaultElevenLabsModel,
			ElevenLabsBaseURL: defaultElevenLabsBaseURL,
			RequestTimeout:    defaultSpeechRequestTimeout,
		},
		Animation: Animation{
			Mode: defaultAnimationMode,
		},
		Workflow: Workflow{
			MaxConcurrentJobs:    defaultMaxConcurrentJobs,
			ShutdownGraceSeconds: defaultShutdownGrace,
			RecoverOnStart:       true,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Ready:          true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
