package config

const (
	defaultOutputDir = "~/.local/share/clipforge/output"
	defaultTempDir   = "~/.local/share/clipforge/tmp"
	defaultLogDir    = "~/.local/share/clipforge/logs"
	defaultCachePath = "~/.cache/clipforge/features.db"

	defaultInferenceBaseURL        = "https://openrouter.ai/api/v1/chat/completions"
	defaultInferenceModel          = "google/gemini-3-flash-preview"
	defaultInferenceTimeoutSeconds = 30
	defaultInferenceRetryAttempts  = 3
	defaultInferenceMaxConcurrent  = 3

	defaultEnrichDetailLevel = "standard"

	defaultSamplingInterval = 1.0
	defaultSamplingStrategy = "uniform"
	defaultMaxFrames        = 600
	defaultSamplingWorkers  = 4

	defaultSegmentThreshold  = 0.3
	defaultMinSceneLength    = 2.0
	defaultBrightnessWeight  = 0.4
	defaultMotionWeight      = 0.3
	defaultColorWeight       = 0.3

	defaultObjective            = "highlight"
	defaultPacing               = "medium"
	defaultTransitionStyle      = "subtle"
	defaultColorGrade           = "none"
	defaultTrimImportanceFloor  = 0.3
	defaultMaxTransitionSeconds = 1.5
	defaultHardCutThreshold     = 0.6

	defaultTargetVersion = "13.0.0"

	defaultLogFormat = "console"
	defaultLogLevel  = "info"

	defaultFFmpegBinary  = "ffmpeg"
	defaultFFprobeBinary = "ffprobe"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			TempDir:   defaultTempDir,
			LogDir:    defaultLogDir,
		},
		Inference: Inference{
			BaseURL:        defaultInferenceBaseURL,
			Model:          defaultInferenceModel,
			TimeoutSeconds: defaultInferenceTimeoutSeconds,
			RetryAttempts:  defaultInferenceRetryAttempts,
			MaxConcurrent:  defaultInferenceMaxConcurrent,
		},
		Enrichment: Enrichment{
			DetailLevel: defaultEnrichDetailLevel,
		},
		Sampling: Sampling{
			IntervalSeconds: defaultSamplingInterval,
			Strategy:        defaultSamplingStrategy,
			MaxFrames:       defaultMaxFrames,
			Workers:         defaultSamplingWorkers,
		},
		Segmentation: Segmentation{
			Threshold:             defaultSegmentThreshold,
			MinSceneLengthSeconds: defaultMinSceneLength,
			BrightnessWeight:      defaultBrightnessWeight,
			MotionWeight:          defaultMotionWeight,
			ColorWeight:           defaultColorWeight,
		},
		Editing: Editing{
			Objective:            defaultObjective,
			Pacing:               defaultPacing,
			TransitionStyle:      defaultTransitionStyle,
			ColorGrade:           defaultColorGrade,
			TrimImportanceFloor:  defaultTrimImportanceFloor,
			MaxTransitionSeconds: defaultMaxTransitionSeconds,
			HardCutThreshold:     defaultHardCutThreshold,
		},
		Project: Project{
			TargetVersion: defaultTargetVersion,
		},
		FeatureCache: FeatureCache{
			Enabled: true,
			Path:    defaultCachePath,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Tools: Tools{
			FFmpeg:  defaultFFmpegBinary,
			FFprobe: defaultFFprobeBinary,
		},
	}
}
