package config

const (
	defaultAudioDir     = "~/.local/share/podpirate/audio"
	defaultProcessedDir = "~/.local/share/podpirate/processed"
	defaultLogDir       = "~/.local/share/podpirate/logs"
	defaultAPIBind      = "127.0.0.1:8080"

	defaultWhisperURL            = "http://127.0.0.1:8000"
	defaultWhisperTimeoutSeconds = 3600

	defaultOllamaURL            = "http://127.0.0.1:11434"
	defaultOllamaModel          = "llama3.2"
	defaultOllamaTimeoutSeconds = 600

	defaultDownloadWorkers         = 4
	defaultTranscriptionWorkers    = 2
	defaultDetectionWorkers        = 2
	defaultProcessingWorkers       = 2
	defaultQueueSize               = 64
	defaultQueuePollInterval       = 15
	defaultFeedPollInterval        = 600
	defaultTranscriptFlushSegments = 10

	defaultFFmpegBinary  = "ffmpeg"
	defaultFFmpegThreads = 2

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			AudioDir:     defaultAudioDir,
			ProcessedDir: defaultProcessedDir,
			LogDir:       defaultLogDir,
			APIBind:      defaultAPIBind,
		},
		Whisper: Whisper{
			URL:            defaultWhisperURL,
			TimeoutSeconds: defaultWhisperTimeoutSeconds,
		},
		Ollama: Ollama{
			URL:            defaultOllamaURL,
			Model:          defaultOllamaModel,
			TimeoutSeconds: defaultOllamaTimeoutSeconds,
		},
		Pipeline: Pipeline{
			DownloadWorkers:         defaultDownloadWorkers,
			TranscriptionWorkers:    defaultTranscriptionWorkers,
			DetectionWorkers:        defaultDetectionWorkers,
			ProcessingWorkers:       defaultProcessingWorkers,
			QueueSize:               defaultQueueSize,
			QueuePollInterval:       defaultQueuePollInterval,
			FeedPollInterval:        defaultFeedPollInterval,
			TranscriptFlushSegments: defaultTranscriptFlushSegments,
		},
		FFmpeg: FFmpeg{
			Binary:  defaultFFmpegBinary,
			Threads: defaultFFmpegThreads,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
