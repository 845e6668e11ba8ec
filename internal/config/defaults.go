package config

const (
	defaultDataDir              = "~/.local/share/podforge"
	defaultLogDir               = "~/.local/share/podforge/logs"
	defaultDBPath               = "~/.local/share/podforge/podforge.db"
	defaultSocketPath           = "~/.local/share/podforge/podforged.sock"
	defaultAPIBind              = "127.0.0.1:7910"
	defaultEngineBaseURL        = "http://127.0.0.1:8787"
	defaultEngineTimeoutSeconds = 900
	defaultEngineMaxRetries     = 2
	defaultExecutorWorkers      = 2
	defaultQueueCapacity        = 16
	defaultRequeueInterval      = 15
	defaultPresignTTLSeconds    = 3600
	defaultUploadPartMB         = 8
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			LogDir:     defaultLogDir,
			DBPath:     defaultDBPath,
			SocketPath: defaultSocketPath,
			APIBind:    defaultAPIBind,
		},
		Engine: Engine{
			BaseURL:        defaultEngineBaseURL,
			TimeoutSeconds: defaultEngineTimeoutSeconds,
			MaxRetries:     defaultEngineMaxRetries,
		},
		ObjectStore: ObjectStore{
			PresignTTL:   defaultPresignTTLSeconds,
			UploadPartMB: defaultUploadPartMB,
		},
		Executor: Executor{
			Workers:         defaultExecutorWorkers,
			QueueCapacity:   defaultQueueCapacity,
			RequeueInterval: defaultRequeueInterval,
		},
		Notifications: Notifications{
			RequestTimeout: 10,
			Completed:      true,
			Failed:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
