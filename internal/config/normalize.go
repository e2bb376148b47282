package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeInference(); err != nil {
		return err
	}
	c.normalizeEnrichment()
	c.normalizeSampling()
	c.normalizeEditing()
	if err := c.normalizeFeatureCache(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.normalizeTools()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.TempDir, err = expandPath(c.Paths.TempDir); err != nil {
		return fmt.Errorf("paths.temp_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeInference() error {
	if c.Inference.APIKey == "" {
		if value, ok := os.LookupEnv("CLIPFORGE_API_KEY"); ok {
			c.Inference.APIKey = value
		}
	}
	c.Inference.BaseURL = strings.TrimSpace(c.Inference.BaseURL)
	if c.Inference.BaseURL == "" {
		c.Inference.BaseURL = defaultInferenceBaseURL
	}
	c.Inference.Model = strings.TrimSpace(c.Inference.Model)
	if c.Inference.Model == "" {
		c.Inference.Model = defaultInferenceModel
	}
	if c.Inference.TimeoutSeconds <= 0 {
		c.Inference.TimeoutSeconds = defaultInferenceTimeoutSeconds
	}
	if c.Inference.RetryAttempts <= 0 {
		c.Inference.RetryAttempts = defaultInferenceRetryAttempts
	}
	if c.Inference.MaxConcurrent <= 0 {
		c.Inference.MaxConcurrent = defaultInferenceMaxConcurrent
	}
	return nil
}

func (c *Config) normalizeEnrichment() {
	c.Enrichment.DetailLevel = strings.ToLower(strings.TrimSpace(c.Enrichment.DetailLevel))
	if c.Enrichment.DetailLevel == "" {
		c.Enrichment.DetailLevel = defaultEnrichDetailLevel
	}
	areas := c.Enrichment.FocusAreas[:0]
	for _, a := range c.Enrichment.FocusAreas {
		if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
			areas = append(areas, a)
		}
	}
	c.Enrichment.FocusAreas = areas
}

func (c *Config) normalizeSampling() {
	if c.Sampling.IntervalSeconds <= 0 {
		c.Sampling.IntervalSeconds = defaultSamplingInterval
	}
	c.Sampling.Strategy = strings.ToLower(strings.TrimSpace(c.Sampling.Strategy))
	if c.Sampling.Strategy == "" {
		c.Sampling.Strategy = defaultSamplingStrategy
	}
	if c.Sampling.MaxFrames <= 0 {
		c.Sampling.MaxFrames = defaultMaxFrames
	}
	if c.Sampling.Workers <= 0 {
		c.Sampling.Workers = defaultSamplingWorkers
	}
}

func (c *Config) normalizeEditing() {
	c.Editing.Objective = strings.ToLower(strings.TrimSpace(c.Editing.Objective))
	if c.Editing.Objective == "" {
		c.Editing.Objective = defaultObjective
	}
	c.Editing.Pacing = strings.ToLower(strings.TrimSpace(c.Editing.Pacing))
	if c.Editing.Pacing == "" {
		c.Editing.Pacing = defaultPacing
	}
	c.Editing.TransitionStyle = strings.ToLower(strings.TrimSpace(c.Editing.TransitionStyle))
	if c.Editing.TransitionStyle == "" {
		c.Editing.TransitionStyle = defaultTransitionStyle
	}
	c.Editing.ColorGrade = strings.ToLower(strings.TrimSpace(c.Editing.ColorGrade))
	if c.Editing.ColorGrade == "" {
		c.Editing.ColorGrade = defaultColorGrade
	}
	if c.Editing.MaxTransitionSeconds <= 0 {
		c.Editing.MaxTransitionSeconds = defaultMaxTransitionSeconds
	}
	if c.Editing.HardCutThreshold <= 0 {
		c.Editing.HardCutThreshold = defaultHardCutThreshold
	}
}

func (c *Config) normalizeFeatureCache() error {
	if strings.TrimSpace(c.FeatureCache.Path) == "" {
		c.FeatureCache.Path = defaultCachePath
	}
	var err error
	if c.FeatureCache.Path, err = expandPath(c.FeatureCache.Path); err != nil {
		return fmt.Errorf("feature_cache.path: %w", err)
	}
	return nil
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

func (c *Config) normalizeTools() {
	if strings.TrimSpace(c.Tools.FFmpeg) == "" {
		c.Tools.FFmpeg = defaultFFmpegBinary
	}
	if strings.TrimSpace(c.Tools.FFprobe) == "" {
		c.Tools.FFprobe = defaultFFprobeBinary
	}
}
