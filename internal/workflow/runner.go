package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"clipforge/internal/compat"
	"clipforge/internal/config"
	"clipforge/internal/enrich"
	"clipforge/internal/featurecache"
	"clipforge/internal/fileutil"
	"clipforge/internal/logging"
	"clipforge/internal/plan"
	"clipforge/internal/project"
	"clipforge/internal/sampler"
	"clipforge/internal/segmenter"
	"clipforge/internal/services"
)

// FrameSource produces sampling results for an asset. *sampler.Sampler is
// the production implementation; tests substitute fakes.
type FrameSource interface {
	Sample(ctx context.Context, assetPath string, opts sampler.Options) (*sampler.Result, error)
}

// Manifest records what a run produced and what degraded along the way.
type Manifest struct {
	RunID       string        `json:"run_id"`
	AssetPath   string        `json:"asset_path"`
	ProjectPath string        `json:"project_path"`
	Segments    int           `json:"segments"`
	Clips       int           `json:"clips"`
	Degraded    []string      `json:"degraded,omitempty"`
	Warnings    []string      `json:"warnings,omitempty"`
	CacheHit    bool          `json:"cache_hit"`
	Compat      compat.Result `json:"compat"`
	Elapsed     time.Duration `json:"elapsed"`
}

// Runner drives a full pipeline run: sample, segment, enrich, plan,
// serialize, check.
type Runner struct {
	cfg      *config.Config
	logger   *logging.Logger
	frames   FrameSource
	enricher *enrich.Enricher
	cache    *featurecache.Store
}

func NewRunner(cfg *config.Config, logger *logging.Logger, frames FrameSource, enricher *enrich.Enricher, cache *featurecache.Store) *Runner {
	return &Runner{cfg: cfg, logger: logger, frames: frames, enricher: enricher, cache: cache}
}

// Run executes every stage for one asset and writes the project document
// under the configured output directory. Cancellation aborts between stages
// and removes the partially written output directory.
func (r *Runner) Run(ctx context.Context, assetPath string) (*Manifest, error) {
	started := time.Now()
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := r.logger.With(logging.String(logging.FieldRunID, runID))

	absAsset, err := filepath.Abs(assetPath)
	if err != nil {
		return nil, services.Wrap(services.ErrAsset, "workflow", "resolve", "resolve asset path", err)
	}
	outDir := filepath.Join(r.cfg.Paths.OutputDir, projectDirName(absAsset, runID))
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrAsset, "workflow", "prepare", "create output directory", err)
	}
	manifest := &Manifest{RunID: runID, AssetPath: absAsset}
	failed := true
	defer func() {
		if failed {
			// Never leave a half-written project behind.
			_ = os.RemoveAll(outDir)
		}
	}()

	logger.Info("run started", logging.String("asset", filepath.Base(absAsset)))

	sampled, cacheHit, err := r.sampleStage(ctx, absAsset, logger)
	if err != nil {
		return nil, err
	}
	manifest.CacheHit = cacheHit

	if err := ctx.Err(); err != nil {
		return nil, services.Wrap(services.ErrCancelled, "workflow", "segment", "run cancelled", err)
	}
	sg := segmenter.New(logger, segmenter.Options{
		Threshold:             r.cfg.Segmentation.Threshold,
		MinSceneLengthSeconds: r.cfg.Segmentation.MinSceneLengthSeconds,
		BrightnessWeight:      r.cfg.Segmentation.BrightnessWeight,
		MotionWeight:          r.cfg.Segmentation.MotionWeight,
		ColorWeight:           r.cfg.Segmentation.ColorWeight,
	})
	segments, err := sg.Segment(sampled)
	if err != nil {
		return nil, err
	}
	manifest.Segments = len(segments)

	enriched, err := r.enricher.Enrich(ctx, segments, enrich.Options{
		MaxConcurrent: r.cfg.Inference.MaxConcurrent,
		AssetName:     filepath.Base(absAsset),
		Objective:     r.cfg.Editing.Objective,
		FocusAreas:    r.cfg.Enrichment.FocusAreas,
		DetailLevel:   r.cfg.Enrichment.DetailLevel,
	})
	if err != nil {
		return nil, err
	}
	if enriched.Failed > 0 {
		manifest.Degraded = append(manifest.Degraded,
			fmt.Sprintf("%d of %d segments carry sentinel annotations", enriched.Failed, len(segments)))
	}

	if err := ctx.Err(); err != nil {
		return nil, services.Wrap(services.ErrCancelled, "workflow", "plan", "run cancelled", err)
	}
	sy := plan.New(logger, plan.Options{
		Objective:            r.cfg.Editing.Objective,
		Pacing:               r.cfg.Editing.Pacing,
		TransitionStyle:      r.cfg.Editing.TransitionStyle,
		ColorGrade:           r.cfg.Editing.ColorGrade,
		TrimImportanceFloor:  r.cfg.Editing.TrimImportanceFloor,
		MaxTransitionSeconds: r.cfg.Editing.MaxTransitionSeconds,
		HardCutThreshold:     r.cfg.Editing.HardCutThreshold,
	})
	editPlan, err := sy.Synthesize(plan.Input{
		AssetPath:  absAsset,
		Duration:   sampled.TotalDuration,
		Segments:   enriched.Segments,
		AudioSpans: sampled.AudioSpans,
		Profile:    enriched.Profile,
	})
	if err != nil {
		return nil, err
	}

	name := r.cfg.Project.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(absAsset), filepath.Ext(absAsset))
	}
	ser := project.New(logger, name, r.cfg.Project.TargetVersion)
	doc, warnings, err := ser.Build(editPlan, project.Source{
		Width:  sampled.Width,
		Height: sampled.Height,
		FPS:    sampled.FrameRate,
	})
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		manifest.Warnings = append(manifest.Warnings, w.Message)
	}
	manifest.Clips = len(editPlan.Clips())

	check, err := compat.Check(doc, r.cfg.Project.TargetVersion)
	if err != nil {
		return nil, err
	}
	manifest.Compat = check
	if !check.Valid {
		return nil, services.Wrap(services.ErrSchema, "workflow", "check",
			fmt.Sprintf("document violates %s limits: %s",
				r.cfg.Project.TargetVersion, check.Issues[0].Message), nil)
	}

	projectPath := filepath.Join(outDir, "draft_content.json")
	if err := ser.Write(doc, projectPath); err != nil {
		return nil, err
	}
	manifest.ProjectPath = projectPath

	if err := writeManifest(manifest, filepath.Join(outDir, "manifest.json")); err != nil {
		return nil, err
	}
	failed = false
	manifest.Elapsed = time.Since(started)
	logger.Info("run complete",
		logging.String("project", projectPath),
		logging.Int("clips", manifest.Clips),
		logging.Bool("compatible", check.Valid),
		logging.Duration("elapsed", manifest.Elapsed))
	return manifest, nil
}

// sampleStage consults the feature cache before running the sampler.
func (r *Runner) sampleStage(ctx context.Context, assetPath string, logger *logging.Logger) (*sampler.Result, bool, error) {
	opts := sampler.Options{
		IntervalSeconds: r.cfg.Sampling.IntervalSeconds,
		Strategy:        r.cfg.Sampling.Strategy,
		MaxFrames:       r.cfg.Sampling.MaxFrames,
		Workers:         r.cfg.Sampling.Workers,
		TempDir:         r.cfg.Paths.TempDir,
	}
	if r.cache == nil || !r.cfg.FeatureCache.Enabled {
		res, err := r.frames.Sample(ctx, assetPath, opts)
		return res, false, err
	}
	assetFP, err := featurecache.AssetFingerprint(assetPath)
	if err != nil {
		return nil, false, services.Wrap(services.ErrAsset, "workflow", "fingerprint", "fingerprint asset", err)
	}
	optsFP := featurecache.OptionsFingerprint(opts)
	res, cached, err := r.cache.GetOrCompute(ctx, assetFP, optsFP, func(ctx context.Context) (*sampler.Result, error) {
		return r.frames.Sample(ctx, assetPath, opts)
	})
	if err != nil {
		return nil, false, err
	}
	if cached {
		logger.Info("feature cache hit", logging.String("asset", filepath.Base(assetPath)))
	}
	return res, cached, nil
}

// projectDirName keeps output directories readable and unique: asset stem
// plus the short run ID.
func projectDirName(assetPath, runID string) string {
	stem := strings.TrimSuffix(filepath.Base(assetPath), filepath.Ext(assetPath))
	short := runID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("%s-%s", sanitizeStem(stem), short)
}

// sanitizeStem lowercases an asset stem into a directory-safe token. Runs of
// unsafe characters collapse into a single underscore.
func sanitizeStem(stem string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(strings.TrimSpace(stem)) {
		safe := r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-'
		if !safe {
			pending = b.Len() > 0
			continue
		}
		if pending {
			b.WriteByte('_')
			pending = false
		}
		b.WriteRune(r)
	}
	out := strings.Trim(b.String(), "_-")
	if out == "" {
		return "asset"
	}
	return out
}

func writeManifest(m *Manifest, path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrSchema, "workflow", "manifest", "encode manifest", err)
	}
	if err := fileutil.WriteFileAtomic(path, append(data, '\n'), 0o644); err != nil {
		return services.Wrap(services.ErrAsset, "workflow", "manifest", "write manifest", err)
	}
	return nil
}
