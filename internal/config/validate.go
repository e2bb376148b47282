package config

import (
	"errors"
	"fmt"
)

var validStrategies = map[string]struct{}{
	"uniform":  {},
	"scenes":   {},
	"keyframe": {},
}

var validPacings = map[string]struct{}{
	"slow":   {},
	"medium": {},
	"fast":   {},
}

var validTransitionStyles = map[string]struct{}{
	"subtle":   {},
	"standard": {},
	"dramatic": {},
}

var validColorGrades = map[string]struct{}{
	"none":      {},
	"warm":      {},
	"cool":      {},
	"cinematic": {},
}

var validDetailLevels = map[string]struct{}{
	"brief":    {},
	"standard": {},
	"detailed": {},
}

var validObjectives = map[string]struct{}{
	"highlight": {},
	"full":      {},
	"trailer":   {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSampling(); err != nil {
		return err
	}
	if err := c.validateSegmentation(); err != nil {
		return err
	}
	if err := c.validateEditing(); err != nil {
		return err
	}
	if err := c.validateEnrichment(); err != nil {
		return err
	}
	if err := c.validateInference(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSampling() error {
	if _, ok := validStrategies[c.Sampling.Strategy]; !ok {
		return fmt.Errorf("sampling.strategy must be one of uniform, scenes, keyframe (got %q)", c.Sampling.Strategy)
	}
	return nil
}

func (c *Config) validateSegmentation() error {
	if c.Segmentation.Threshold <= 0 || c.Segmentation.Threshold > 1 {
		return errors.New("segmentation.threshold must be in (0, 1]")
	}
	if c.Segmentation.MinSceneLengthSeconds < 0 {
		return errors.New("segmentation.min_scene_length_seconds must not be negative")
	}
	sum := c.Segmentation.BrightnessWeight + c.Segmentation.MotionWeight + c.Segmentation.ColorWeight
	if sum <= 0 {
		return errors.New("segmentation weights must sum to a positive value")
	}
	return nil
}

func (c *Config) validateEditing() error {
	if _, ok := validObjectives[c.Editing.Objective]; !ok {
		return fmt.Errorf("editing.objective must be one of highlight, full, trailer (got %q)", c.Editing.Objective)
	}
	if _, ok := validPacings[c.Editing.Pacing]; !ok {
		return fmt.Errorf("editing.pacing must be one of slow, medium, fast (got %q)", c.Editing.Pacing)
	}
	if _, ok := validTransitionStyles[c.Editing.TransitionStyle]; !ok {
		return fmt.Errorf("editing.transition_style must be one of subtle, standard, dramatic (got %q)", c.Editing.TransitionStyle)
	}
	if _, ok := validColorGrades[c.Editing.ColorGrade]; !ok {
		return fmt.Errorf("editing.color_grade must be one of none, warm, cool, cinematic (got %q)", c.Editing.ColorGrade)
	}
	if c.Editing.TrimImportanceFloor < 0 || c.Editing.TrimImportanceFloor > 1 {
		return errors.New("editing.trim_importance_floor must be between 0 and 1")
	}
	if c.Editing.HardCutThreshold <= 0 || c.Editing.HardCutThreshold > 1 {
		return errors.New("editing.hard_cut_threshold must be in (0, 1]")
	}
	return nil
}

func (c *Config) validateEnrichment() error {
	if _, ok := validDetailLevels[c.Enrichment.DetailLevel]; !ok {
		return fmt.Errorf("enrichment.detail_level must be one of brief, standard, detailed (got %q)", c.Enrichment.DetailLevel)
	}
	return nil
}

func (c *Config) validateInference() error {
	if c.Inference.BaseURL == "" {
		return errors.New("inference.base_url must be set")
	}
	if c.Inference.Model == "" {
		return errors.New("inference.model must be set")
	}
	return nil
}
