package config

const (
	defaultConfigPath      = "~/.config/callqa/config.toml"
	defaultBaseURL         = "http://localhost:8000"
	defaultRequestTimeout  = 120
	defaultTokenFile       = "~/.config/callqa/token.json"
	defaultPollIntervalMS  = 2500
	defaultMaxPollAttempts = 480
	defaultMaxFileMB       = 50
	defaultStateDir        = "~/.local/share/callqa"
	defaultLogDir          = "~/.local/share/callqa/logs"
	defaultNotifyTimeout   = 10
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	minPollIntervalMS      = 100
	envBaseURL             = "CALLQA_API_URL"
	envToken               = "CALLQA_TOKEN"
	envNtfyTopic           = "CALLQA_NTFY_TOPIC"
	envLogLevel            = "CALLQA_LOG_LEVEL"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		API: API{
			BaseURL:        defaultBaseURL,
			RequestTimeout: defaultRequestTimeout,
		},
		Auth: Auth{
			TokenFile: defaultTokenFile,
		},
		Upload: Upload{
			PollIntervalMS:  defaultPollIntervalMS,
			MaxPollAttempts: defaultMaxPollAttempts,
			MaxFileMB:       defaultMaxFileMB,
		},
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Completed:      true,
			Failed:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
