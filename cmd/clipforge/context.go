package main

import (
	"fmt"
	"strings"
	"sync"

	"clipforge/internal/config"
	"clipforge/internal/enrich"
	"clipforge/internal/featurecache"
	"clipforge/internal/logging"
	"clipforge/internal/sampler"
	"clipforge/internal/services/llm"
	"clipforge/internal/workflow"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *logging.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*logging.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.New(logging.Options{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
		})
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) newSampler() (*sampler.Sampler, *config.Config, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, nil, err
	}
	return sampler.New(logging.NewComponentLogger(logger, "sampler"), cfg.Tools.FFmpeg, cfg.Tools.FFprobe), cfg, nil
}

// newRunner assembles the full pipeline from configuration.
func (c *commandContext) newRunner() (*workflow.Runner, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, nil, err
	}

	frames := sampler.New(logging.NewComponentLogger(logger, "sampler"), cfg.Tools.FFmpeg, cfg.Tools.FFprobe)
	client := llm.NewClient(llm.Config{
		APIKey:         cfg.Inference.APIKey,
		BaseURL:        cfg.Inference.BaseURL,
		Model:          cfg.Inference.Model,
		TimeoutSeconds: cfg.Inference.TimeoutSeconds,
		RetryAttempts:  cfg.Inference.RetryAttempts,
	})
	enricher := enrich.New(logging.NewComponentLogger(logger, "enricher"), client)

	cleanup := func() {}
	var cache *featurecache.Store
	if cfg.FeatureCache.Enabled {
		cache, err = featurecache.Open(cfg.FeatureCache.Path, logging.NewComponentLogger(logger, "featurecache"))
		if err != nil {
			return nil, nil, fmt.Errorf("open feature cache: %w", err)
		}
		cleanup = func() { _ = cache.Close() }
	}

	runner := workflow.NewRunner(cfg, logging.NewComponentLogger(logger, "workflow"), frames, enricher, cache)
	return runner, cleanup, nil
}
