package config

const (
	defaultDataDir             = "~/.local/share/signalwatch"
	defaultDigestDir           = "~/.local/share/signalwatch/digests"
	defaultLogDir              = "~/.local/share/signalwatch/logs"
	defaultAPIBind             = "127.0.0.1:8787"
	defaultFeedBaseURL         = "https://www.youtube.com/feeds/videos.xml"
	defaultFeedTimeout         = 30
	defaultTranscriptBaseURL   = "http://localhost:8090"
	defaultTranscriptTimeout   = 60
	defaultSummarizerBaseURL   = "http://localhost:11434"
	defaultSummarizerModel     = "llama3.1:8b"
	defaultSummarizerTimeout   = 120
	defaultTemperature         = 0.3
	defaultMaxTranscriptChars  = 15000
	defaultPollIntervalMinutes = 15
	defaultMaxVideosPerPoll    = 10
	defaultWorkers             = 3
	defaultRunTimeoutMinutes   = 10
	defaultStageAttempts       = 2
	defaultRetryBackoffMillis  = 500
	defaultStageTimeoutSeconds = 90
	defaultDigestHour          = 6
	defaultDigestWindowHours   = 24
	defaultNotifyTimeout       = 10
	defaultLogFormat           = "auto"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			DigestDir: defaultDigestDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		Feed: Feed{
			BaseURL:        defaultFeedBaseURL,
			TimeoutSeconds: defaultFeedTimeout,
		},
		Transcript: Transcript{
			BaseURL:        defaultTranscriptBaseURL,
			Languages:      []string{"en"},
			TimeoutSeconds: defaultTranscriptTimeout,
		},
		Summarizer: Summarizer{
			BaseURL:            defaultSummarizerBaseURL,
			Model:              defaultSummarizerModel,
			Temperature:        defaultTemperature,
			MaxTranscriptChars: defaultMaxTranscriptChars,
			TimeoutSeconds:     defaultSummarizerTimeout,
		},
		Workflow: Workflow{
			PollIntervalMinutes: defaultPollIntervalMinutes,
			MaxVideosPerPoll:    defaultMaxVideosPerPoll,
			Workers:             defaultWorkers,
			RunTimeoutMinutes:   defaultRunTimeoutMinutes,
			StageAttempts:       defaultStageAttempts,
			RetryBackoffMillis:  defaultRetryBackoffMillis,
			StageTimeoutSeconds: defaultStageTimeoutSeconds,
			DigestHour:          defaultDigestHour,
			DigestWindowHours:   defaultDigestWindowHours,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Runs:           true,
			Digests:        true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
