package sampler

import "time"

// FrameAnalysis captures the numeric and categorical features computed for a
// single sampled frame. Values are immutable once produced; the slice a run
// receives is owned by that run alone.
type FrameAnalysis struct {
	Timestamp       float64  `json:"timestamp"`
	FrameIndex      int      `json:"frame_index"`
	SceneType       string   `json:"scene_type"`
	DominantColors  []string `json:"dominant_colors"`
	Brightness      float64  `json:"brightness"`
	MotionIntensity float64  `json:"motion_intensity"`
	FaceCount       int      `json:"face_count"`
	Objects         []string `json:"objects"`
	Composition     string   `json:"composition"`
	EmotionalTone   string   `json:"emotional_tone"`
}

// AudioSpan describes a contiguous stretch of the asset's audio classified by
// kind. Spans feed subtitle and music cue decisions downstream.
type AudioSpan struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Kind  string  `json:"kind"` // speech, music, silence, noise
	Level float64 `json:"level"`
}

// Result is the complete sampling output for one asset.
type Result struct {
	AssetPath     string          `json:"asset_path"`
	TotalDuration float64         `json:"total_duration"`
	FrameRate     float64         `json:"frame_rate"`
	Width         int             `json:"width"`
	Height        int             `json:"height"`
	Frames        []FrameAnalysis `json:"frames"`
	AudioSpans    []AudioSpan     `json:"audio_spans"`
	Elapsed       time.Duration   `json:"-"`
}

// Options controls a sampling pass.
type Options struct {
	// IntervalSeconds is the uniform sampling cadence. When zero it is
	// derived from the asset duration, bounded by MaxFrames.
	IntervalSeconds float64
	// Strategy selects how timestamps are chosen: uniform, scenes, keyframe.
	Strategy string
	// MaxFrames bounds the number of sampled frames.
	MaxFrames int
	// Workers bounds the frame decoding pool.
	Workers int
	// TempDir receives decoded frame caches; the caller owns its lifetime.
	TempDir string
}

const (
	StrategyUniform  = "uniform"
	StrategyScenes   = "scenes"
	StrategyKeyframe = "keyframe"
)

const (
	AudioSpeech  = "speech"
	AudioMusic   = "music"
	AudioSilence = "silence"
	AudioNoise   = "noise"
)
