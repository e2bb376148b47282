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

// Paths contains directory configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	TempDir   string `toml:"temp_dir"`
	LogDir    string `toml:"log_dir"`
}

// Inference contains connection settings for the external inference capability.
type Inference struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	RetryAttempts  int    `toml:"retry_attempts"`
	MaxConcurrent  int    `toml:"max_concurrent"`
}

// Enrichment tunes the semantic annotation pass.
type Enrichment struct {
	FocusAreas  []string `toml:"focus_areas"`
	DetailLevel string   `toml:"detail_level"`
}

// Sampling contains frame sampling settings.
type Sampling struct {
	IntervalSeconds float64 `toml:"interval_seconds"`
	Strategy        string  `toml:"strategy"`
	MaxFrames       int     `toml:"max_frames"`
	Workers         int     `toml:"workers"`
}

// Segmentation contains scene segmentation thresholds.
type Segmentation struct {
	Threshold             float64 `toml:"threshold"`
	MinSceneLengthSeconds float64 `toml:"min_scene_length_seconds"`
	BrightnessWeight      float64 `toml:"brightness_weight"`
	MotionWeight          float64 `toml:"motion_weight"`
	ColorWeight           float64 `toml:"color_weight"`
}

// Editing contains the objective and style preferences driving plan synthesis.
type Editing struct {
	Objective            string  `toml:"objective"`
	Pacing               string  `toml:"pacing"`
	TransitionStyle      string  `toml:"transition_style"`
	ColorGrade           string  `toml:"color_grade"`
	TrimImportanceFloor  float64 `toml:"trim_importance_floor"`
	MaxTransitionSeconds float64 `toml:"max_transition_seconds"`
	HardCutThreshold     float64 `toml:"hard_cut_threshold"`
}

// Project contains target document settings.
type Project struct {
	TargetVersion string `toml:"target_version"`
	Name          string `toml:"name"`
}

// FeatureCache contains configuration for the cross-run frame analysis cache.
type FeatureCache struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Tools names the external binaries invoked for media inspection and decoding.
type Tools struct {
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
}

// Config encapsulates all configuration values for clipforge.
//
// Configuration sections by subsystem:
//   - Paths: output, temp, and log directories
//   - Inference: external inference capability connection settings
//   - Enrichment: semantic annotation focus areas and detail level
//   - Sampling: frame sampling cadence, strategy, and worker bound
//   - Segmentation: scene boundary threshold and dissimilarity weights
//   - Editing: objective and style preferences for plan synthesis
//   - Project: target editor version and project naming
//   - FeatureCache: cross-run frame analysis cache
//   - Logging: log format and level
//   - Tools: ffmpeg/ffprobe binary names
type Config struct {
	Paths        Paths        `toml:"paths"`
	Inference    Inference    `toml:"inference"`
	Enrichment   Enrichment   `toml:"enrichment"`
	Sampling     Sampling     `toml:"sampling"`
	Segmentation Segmentation `toml:"segmentation"`
	Editing      Editing      `toml:"editing"`
	Project      Project      `toml:"project"`
	FeatureCache FeatureCache `toml:"feature_cache"`
	Logging      Logging      `toml:"logging"`
	Tools        Tools        `toml:"tools"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/clipforge/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	// Environment fallbacks may live in a local .env file.
	_ = godotenv.Load()

	cfg := Default()

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

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("clipforge.toml")
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

// EnsureDirectories creates the directories a run needs before any stage
// starts writing.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.TempDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.FeatureCache.Enabled && strings.TrimSpace(c.FeatureCache.Path) != "" {
		if err := os.MkdirAll(filepath.Dir(c.FeatureCache.Path), 0o755); err != nil {
			return fmt.Errorf("create cache directory: %w", err)
		}
	}
	return nil
}

// SampleConfig returns the embedded sample configuration document.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes the embedded sample configuration to the target path.
func CreateSample(path string) error {
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// ExpandPath resolves a leading tilde against the current user's home
// directory.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
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
