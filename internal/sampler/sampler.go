package sampler

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"
	"golang.org/x/sys/unix"

	"clipforge/internal/logging"
	"clipforge/internal/media/ffprobe"
	"clipforge/internal/services"
)

const (
	defaultWorkers   = 4
	defaultMaxFrames = 600
	// minFreeBytes is the floor of free scratch space required before a
	// sampling pass starts writing frame caches.
	minFreeBytes = 256 << 20
)

// frameExtractor decodes the frame nearest a timestamp. Split from the
// sampler so tests can run against synthetic images without ffmpeg.
type frameExtractor interface {
	Extract(ctx context.Context, timestamp float64) (image.Image, error)
}

// Detector supplies face and object evidence for a frame. The default
// implementation derives weak heuristic labels from the frame features; a
// vision-backed detector can be injected when one is available.
type Detector interface {
	Detect(frame image.Image) (faces int, objects []string)
}

// Sampler extracts evenly spaced or content-driven frames from an asset and
// computes their mechanical features.
type Sampler struct {
	logger      *logging.Logger
	ffmpegBin   string
	ffprobeBin  string
	detector    Detector
	newExtract  func(assetPath, tempDir, ffmpegBin string) frameExtractor
	audioProbe  func(ctx context.Context, ffmpegBin, assetPath string) (string, error)
	sceneProbe  func(ctx context.Context, ffmpegBin, assetPath string, threshold float64) (string, error)
	statfsFree  func(path string) (uint64, error)
	inspectFunc func(ctx context.Context, binary, path string) (ffprobe.Result, error)
}

// New returns a Sampler bound to the given tool binaries.
func New(logger *logging.Logger, ffmpegBin, ffprobeBin string) *Sampler {
	return &Sampler{
		logger:      logger,
		ffmpegBin:   ffmpegBin,
		ffprobeBin:  ffprobeBin,
		detector:    heuristicDetector{},
		newExtract:  newFFmpegExtractor,
		audioProbe:  runAudioProbe,
		sceneProbe:  runSceneProbe,
		statfsFree:  statfsFree,
		inspectFunc: ffprobe.Inspect,
	}
}

// WithDetector replaces the default heuristic detector.
func (s *Sampler) WithDetector(d Detector) *Sampler {
	if d != nil {
		s.detector = d
	}
	return s
}

// Sample probes the asset, plans sample timestamps per the strategy, decodes
// the frames through a bounded worker pool, and computes per-frame features.
// Frames in the result are ordered by strictly increasing frame index
// regardless of worker completion order.
func (s *Sampler) Sample(ctx context.Context, assetPath string, opts Options) (*Result, error) {
	started := time.Now()
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.MaxFrames <= 0 {
		opts.MaxFrames = defaultMaxFrames
	}
	if opts.Strategy == "" {
		opts.Strategy = StrategyUniform
	}

	info, err := s.probe(ctx, assetPath)
	if err != nil {
		return nil, err
	}

	if opts.TempDir != "" {
		if err := s.preflightSpace(opts.TempDir); err != nil {
			return nil, err
		}
	}
	scratch, err := os.MkdirTemp(opts.TempDir, "clipforge-frames-")
	if err != nil {
		return nil, services.Wrap(services.ErrAsset, "sampler", "scratch", "create frame cache directory", err)
	}
	defer os.RemoveAll(scratch)

	timestamps, err := s.planTimestamps(ctx, assetPath, info, opts)
	if err != nil {
		return nil, err
	}
	s.logger.Info("sampling asset",
		logging.String("asset", filepath.Base(assetPath)),
		logging.String("strategy", opts.Strategy),
		logging.Int("frames", len(timestamps)),
		logging.Int("workers", opts.Workers))

	extractor := s.newExtract(assetPath, scratch, s.ffmpegBin)
	frames, err := s.analyzeFrames(ctx, extractor, timestamps, opts.Workers)
	if err != nil {
		return nil, err
	}

	spans, err := s.sampleAudio(ctx, assetPath, info)
	if err != nil {
		return nil, err
	}

	res := &Result{
		AssetPath:     assetPath,
		TotalDuration: info.duration,
		FrameRate:     info.frameRate,
		Width:         info.width,
		Height:        info.height,
		Frames:        frames,
		AudioSpans:    spans,
		Elapsed:       time.Since(started),
	}
	s.logger.Info("sampling complete",
		logging.String("asset", filepath.Base(assetPath)),
		logging.Int("frames", len(res.Frames)),
		logging.Int("audio_spans", len(res.AudioSpans)),
		logging.Duration("elapsed", res.Elapsed))
	return res, nil
}

type assetInfo struct {
	duration  float64
	frameRate float64
	width     int
	height    int
	hasAudio  bool
}

func (s *Sampler) probe(ctx context.Context, assetPath string) (*assetInfo, error) {
	if _, err := os.Stat(assetPath); err != nil {
		return nil, services.Wrap(services.ErrAsset, "sampler", "probe", "asset not accessible", err)
	}
	result, err := s.inspectFunc(ctx, s.ffprobeBin, assetPath)
	if err != nil {
		return nil, services.Wrap(services.ErrAsset, "sampler", "probe", "unreadable container", err)
	}
	if _, ok := result.VideoStream(); !ok {
		return nil, services.Wrap(services.ErrAsset, "sampler", "probe", "no video stream", nil)
	}
	duration := result.DurationSeconds()
	if duration <= 0 {
		return nil, services.Wrap(services.ErrAsset, "sampler", "probe", "asset has no reported duration", nil)
	}
	w, h := result.Resolution()
	return &assetInfo{
		duration:  duration,
		frameRate: result.FrameRate(),
		width:     w,
		height:    h,
		hasAudio:  result.HasAudio(),
	}, nil
}

func (s *Sampler) preflightSpace(dir string) error {
	free, err := s.statfsFree(dir)
	if err != nil {
		// Statfs failures are advisory; extraction surfaces real errors.
		s.logger.Warn("scratch space probe failed", logging.String("dir", dir), logging.Error(err))
		return nil
	}
	if free < minFreeBytes {
		return services.Wrap(services.ErrAsset, "sampler", "preflight",
			fmt.Sprintf("insufficient scratch space: %d MiB free", free>>20), nil)
	}
	return nil
}

func statfsFree(path string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, err
	}
	return st.Bavail * uint64(st.Bsize), nil
}

// planTimestamps selects the timestamps to decode. Uniform spacing is the
// baseline; scenes and keyframe strategies ask ffmpeg for candidate points
// and fall back to uniform when the probe yields nothing usable.
func (s *Sampler) planTimestamps(ctx context.Context, assetPath string, info *assetInfo, opts Options) ([]float64, error) {
	switch opts.Strategy {
	case StrategyUniform:
		return uniformTimestamps(info.duration, opts.IntervalSeconds, opts.MaxFrames), nil
	case StrategyScenes:
		out, err := s.sceneProbe(ctx, s.ffmpegBin, assetPath, 0.3)
		if err != nil {
			s.logger.Warn("scene probe failed, falling back to uniform sampling", logging.Error(err))
			return uniformTimestamps(info.duration, opts.IntervalSeconds, opts.MaxFrames), nil
		}
		ts := parseShowinfoTimes(out)
		if len(ts) == 0 {
			return uniformTimestamps(info.duration, opts.IntervalSeconds, opts.MaxFrames), nil
		}
		return capTimestamps(ts, opts.MaxFrames), nil
	case StrategyKeyframe:
		out, err := s.sceneProbe(ctx, s.ffmpegBin, assetPath, -1)
		if err != nil {
			s.logger.Warn("keyframe probe failed, falling back to uniform sampling", logging.Error(err))
			return uniformTimestamps(info.duration, opts.IntervalSeconds, opts.MaxFrames), nil
		}
		ts := parseShowinfoTimes(out)
		if len(ts) == 0 {
			return uniformTimestamps(info.duration, opts.IntervalSeconds, opts.MaxFrames), nil
		}
		return capTimestamps(ts, opts.MaxFrames), nil
	default:
		return nil, services.Wrap(services.ErrValidation, "sampler", "plan",
			fmt.Sprintf("unknown sampling strategy %q", opts.Strategy), nil)
	}
}

// uniformTimestamps spaces samples evenly across the duration. The first
// sample lands at half an interval in so very short assets still yield at
// least one frame.
func uniformTimestamps(duration, interval float64, maxFrames int) []float64 {
	if interval <= 0 {
		interval = 1.0
	}
	count := int(math.Floor(duration / interval))
	if count < 1 {
		count = 1
	}
	if count > maxFrames {
		interval = duration / float64(maxFrames)
		count = maxFrames
	}
	out := make([]float64, 0, count)
	for i := 0; i < count; i++ {
		ts := float64(i)*interval + interval/2
		if ts >= duration {
			ts = duration * 0.99
		}
		out = append(out, ts)
	}
	return out
}

func capTimestamps(ts []float64, maxFrames int) []float64 {
	sort.Float64s(ts)
	if len(ts) <= maxFrames {
		return ts
	}
	// Keep an even subsample across the full range rather than truncating
	// the tail of the asset.
	out := make([]float64, 0, maxFrames)
	step := float64(len(ts)) / float64(maxFrames)
	for i := 0; i < maxFrames; i++ {
		out = append(out, ts[int(float64(i)*step)])
	}
	return out
}

type frameJob struct {
	index     int
	timestamp float64
}

type frameOutcome struct {
	analysis FrameAnalysis
	err      error
}

// analyzeFrames drives the bounded worker pool. Cancellation is observed at
// the per-frame boundary: in-flight decodes finish, no new jobs start.
func (s *Sampler) analyzeFrames(ctx context.Context, extractor frameExtractor, timestamps []float64, workers int) ([]FrameAnalysis, error) {
	jobs := make(chan frameJob)
	outcomes := make([]frameOutcome, len(timestamps))
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				outcomes[job.index] = s.analyzeOne(ctx, extractor, job)
			}
		}()
	}

	cancelled := false
	for i, ts := range timestamps {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		jobs <- frameJob{index: i, timestamp: ts}
	}
	close(jobs)
	wg.Wait()

	if cancelled || ctx.Err() != nil {
		return nil, services.Wrap(services.ErrCancelled, "sampler", "frames", "sampling cancelled", ctx.Err())
	}

	frames := make([]FrameAnalysis, 0, len(outcomes))
	failed := 0
	for _, oc := range outcomes {
		if oc.err != nil {
			failed++
			s.logger.Warn("frame analysis failed", logging.Error(oc.err))
			continue
		}
		frames = append(frames, oc.analysis)
	}
	if len(frames) == 0 {
		return nil, services.Wrap(services.ErrAsset, "sampler", "frames", "no frames could be decoded", nil)
	}
	if failed > 0 {
		s.logger.Warn("some frames skipped", logging.Int("failed", failed), logging.Int("kept", len(frames)))
	}
	sort.Slice(frames, func(i, j int) bool { return frames[i].Timestamp < frames[j].Timestamp })
	for i := range frames {
		frames[i].FrameIndex = i
	}
	return frames, nil
}

func (s *Sampler) analyzeOne(ctx context.Context, extractor frameExtractor, job frameJob) frameOutcome {
	img, err := extractor.Extract(ctx, job.timestamp)
	if err != nil {
		return frameOutcome{err: services.Wrap(services.ErrAsset, "sampler", "decode",
			fmt.Sprintf("frame at %.2fs", job.timestamp), err)}
	}
	analysis := AnalyzeFrame(img)
	analysis.Timestamp = job.timestamp
	analysis.FrameIndex = job.index
	faces, objects := s.detector.Detect(img)
	analysis.FaceCount = faces
	analysis.Objects = objects
	if faces > 0 && analysis.SceneType == "wide_shot" {
		analysis.SceneType = "medium_shot"
	}
	return frameOutcome{analysis: analysis}
}

// ffmpegExtractor decodes single frames to JPEG files under a scratch
// directory and reads them back.
type ffmpegExtractor struct {
	assetPath string
	tempDir   string
	ffmpegBin string
	seq       int
	mu        sync.Mutex
}

func newFFmpegExtractor(assetPath, tempDir, ffmpegBin string) frameExtractor {
	return &ffmpegExtractor{assetPath: assetPath, tempDir: tempDir, ffmpegBin: ffmpegBin}
}

func (e *ffmpegExtractor) Extract(ctx context.Context, timestamp float64) (image.Image, error) {
	e.mu.Lock()
	e.seq++
	out := filepath.Join(e.tempDir, fmt.Sprintf("frame-%06d.jpg", e.seq))
	e.mu.Unlock()

	err := ffmpeg.Input(e.assetPath, ffmpeg.KwArgs{"ss": fmt.Sprintf("%.3f", timestamp)}).
		Output(out, ffmpeg.KwArgs{"vframes": 1, "q:v": 2}).
		OverWriteOutput().
		Silent(true).
		SetFfmpegPath(e.ffmpegBin).
		Run()
	if err != nil {
		return nil, fmt.Errorf("extract frame: %w", err)
	}
	defer os.Remove(out)

	f, err := os.Open(out)
	if err != nil {
		return nil, fmt.Errorf("open extracted frame: %w", err)
	}
	defer f.Close()
	img, err := jpeg.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode extracted frame: %w", err)
	}
	return img, nil
}
