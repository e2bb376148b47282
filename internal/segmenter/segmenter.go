package segmenter

import (
	"fmt"
	"math"

	"clipforge/internal/logging"
	"clipforge/internal/sampler"
	"clipforge/internal/services"
)

// Segment is a contiguous scene span with the mechanical evidence summarized
// from its member frames. Semantic fields are filled by enrichment later.
type Segment struct {
	Index          int      `json:"index"`
	Start          float64  `json:"start"`
	End            float64  `json:"end"`
	Confidence     float64  `json:"confidence"`
	SceneType      string   `json:"scene_type"`
	DominantColors []string `json:"dominant_colors"`
	AvgBrightness  float64  `json:"avg_brightness"`
	AvgMotion      float64  `json:"avg_motion"`
	FaceCount      int      `json:"face_count"`
	FrameCount     int      `json:"frame_count"`

	// Filled by enrichment.
	Description     string   `json:"description,omitempty"`
	Location        string   `json:"location,omitempty"`
	Characters      []string `json:"characters,omitempty"`
	Actions         []string `json:"actions,omitempty"`
	DialogueSummary string   `json:"dialogue_summary,omitempty"`
	EmotionalArc    []string `json:"emotional_arc,omitempty"`
	VisualStyle     string   `json:"visual_style,omitempty"`
	Mood            string   `json:"mood,omitempty"`
	Importance      float64  `json:"importance,omitempty"`
	Keywords        []string `json:"keywords,omitempty"`
	EnrichFailed    bool     `json:"enrich_failed,omitempty"`
}

// Duration returns the segment length in seconds.
func (s Segment) Duration() float64 { return s.End - s.Start }

// Options tunes boundary detection.
type Options struct {
	// Threshold is the dissimilarity score above which a frame pair opens a
	// new segment. Must sit in (0, 1].
	Threshold float64
	// MinSceneLengthSeconds merges segments shorter than this into their
	// less dissimilar neighbor.
	MinSceneLengthSeconds float64
	// Component weights for the dissimilarity score. They are normalized
	// over their sum, so only the ratio matters.
	BrightnessWeight float64
	MotionWeight     float64
	ColorWeight      float64
}

// Defaults mirrors the configuration defaults.
func Defaults() Options {
	return Options{
		Threshold:             0.3,
		MinSceneLengthSeconds: 2.0,
		BrightnessWeight:      0.4,
		MotionWeight:          0.3,
		ColorWeight:           0.3,
	}
}

// Segmenter converts a sampled frame sequence into non-overlapping segments
// covering the asset's full duration.
type Segmenter struct {
	logger *logging.Logger
	opts   Options
}

func New(logger *logging.Logger, opts Options) *Segmenter {
	return &Segmenter{logger: logger, opts: opts}
}

// Segment partitions the asset. The output always covers [0, duration] with
// no gaps and no overlaps; a single-frame input yields one segment spanning
// the whole asset.
func (sg *Segmenter) Segment(result *sampler.Result) ([]Segment, error) {
	if err := sg.validate(result); err != nil {
		return nil, err
	}
	frames := result.Frames
	duration := result.TotalDuration

	if len(frames) == 1 {
		seg := summarize(frames, 0, duration)
		seg.Confidence = 1
		return []Segment{seg}, nil
	}

	type boundary struct {
		index int // frame index that opens the new segment
		score float64
	}
	var boundaries []boundary
	for i := 1; i < len(frames); i++ {
		score := sg.dissimilarity(frames[i-1], frames[i])
		if score > sg.opts.Threshold {
			boundaries = append(boundaries, boundary{index: i, score: score})
		}
	}

	// Build segments from boundaries. Each segment starts at the midpoint
	// between the boundary frame and its predecessor so the cut lands
	// between samples rather than on one.
	segs := make([]Segment, 0, len(boundaries)+1)
	cutScores := make([]float64, 0, len(boundaries)+1)
	startFrame := 0
	startTime := 0.0
	for _, b := range boundaries {
		cut := (frames[b.index-1].Timestamp + frames[b.index].Timestamp) / 2
		seg := summarize(frames[startFrame:b.index], startTime, cut)
		seg.Confidence = confidence(b.score, sg.opts.Threshold)
		segs = append(segs, seg)
		cutScores = append(cutScores, b.score)
		startFrame = b.index
		startTime = cut
	}
	last := summarize(frames[startFrame:], startTime, duration)
	last.Confidence = 1
	segs = append(segs, last)

	segs = sg.mergeShort(segs, cutScores, frames)
	for i := range segs {
		segs[i].Index = i
	}
	sg.logger.Info("segmentation complete",
		logging.Int("segments", len(segs)),
		logging.Int("boundaries", len(boundaries)),
		logging.Float64("threshold", sg.opts.Threshold))
	return segs, nil
}

func (sg *Segmenter) validate(result *sampler.Result) error {
	if result == nil || len(result.Frames) == 0 {
		return services.Wrap(services.ErrValidation, "segmenter", "input", "no frames to segment", nil)
	}
	if result.TotalDuration <= 0 {
		return services.Wrap(services.ErrValidation, "segmenter", "input", "non-positive asset duration", nil)
	}
	if sg.opts.Threshold <= 0 || sg.opts.Threshold > 1 {
		return services.Wrap(services.ErrValidation, "segmenter", "options",
			fmt.Sprintf("threshold %.2f outside (0, 1]", sg.opts.Threshold), nil)
	}
	if sg.opts.BrightnessWeight+sg.opts.MotionWeight+sg.opts.ColorWeight <= 0 {
		return services.Wrap(services.ErrValidation, "segmenter", "options", "component weights sum to zero", nil)
	}
	return nil
}

// dissimilarity scores how different two adjacent frames look, in [0, 1].
// Brightness and motion contribute their absolute deltas; color contributes
// the Jaccard distance of the dominant color sets.
func (sg *Segmenter) dissimilarity(a, b sampler.FrameAnalysis) float64 {
	wSum := sg.opts.BrightnessWeight + sg.opts.MotionWeight + sg.opts.ColorWeight
	wb := sg.opts.BrightnessWeight / wSum
	wm := sg.opts.MotionWeight / wSum
	wc := sg.opts.ColorWeight / wSum
	return wb*math.Abs(a.Brightness-b.Brightness) +
		wm*math.Abs(a.MotionIntensity-b.MotionIntensity) +
		wc*jaccardDistance(a.DominantColors, b.DominantColors)
}

func jaccardDistance(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	set := make(map[string]int, len(a)+len(b))
	for _, v := range a {
		set[v] |= 1
	}
	for _, v := range b {
		set[v] |= 2
	}
	inter := 0
	for _, m := range set {
		if m == 3 {
			inter++
		}
	}
	union := len(set)
	if union == 0 {
		return 0
	}
	return 1 - float64(inter)/float64(union)
}

// confidence maps a boundary score to [0, 1] relative to the threshold. A
// score at exactly the threshold reads as zero confidence margin; twice the
// threshold or more saturates at one.
func confidence(score, threshold float64) float64 {
	c := score / threshold
	if c > 1 {
		c = 1
	}
	if c < 0 {
		c = 0
	}
	return c
}

// mergeShort folds segments shorter than the minimum into a neighbor. The
// neighbor across the weaker cut wins; on a tie the segment merges into the
// preceding one.
func (sg *Segmenter) mergeShort(segs []Segment, cutScores []float64, frames []sampler.FrameAnalysis) []Segment {
	minLen := sg.opts.MinSceneLengthSeconds
	if minLen <= 0 || len(segs) < 2 {
		return segs
	}
	for {
		shortest := -1
		for i, s := range segs {
			if s.Duration() < minLen {
				if shortest == -1 || segs[i].Duration() < segs[shortest].Duration() {
					shortest = i
				}
			}
		}
		if shortest == -1 || len(segs) == 1 {
			return segs
		}
		i := shortest
		// cutScores[i-1] is the cut before segment i, cutScores[i] the one
		// after. Merge across the weaker cut; ties go to the predecessor.
		mergeLeft := true
		switch {
		case i == 0:
			mergeLeft = false
		case i == len(segs)-1:
			mergeLeft = true
		case cutScores[i] < cutScores[i-1]:
			mergeLeft = false
		}
		if mergeLeft {
			segs[i-1] = fuse(segs[i-1], segs[i], frames)
			segs = append(segs[:i], segs[i+1:]...)
			cutScores = append(cutScores[:i-1], cutScores[i:]...)
		} else {
			segs[i] = fuse(segs[i], segs[i+1], frames)
			segs = append(segs[:i+1], segs[i+2:]...)
			cutScores = append(cutScores[:i], cutScores[i+1:]...)
		}
	}
}

func fuse(a, b Segment, frames []sampler.FrameAnalysis) Segment {
	members := framesIn(frames, a.Start, b.End)
	seg := summarize(members, a.Start, b.End)
	seg.Confidence = math.Min(a.Confidence, b.Confidence)
	return seg
}

func framesIn(frames []sampler.FrameAnalysis, start, end float64) []sampler.FrameAnalysis {
	var out []sampler.FrameAnalysis
	for _, f := range frames {
		if f.Timestamp >= start && f.Timestamp < end {
			out = append(out, f)
		}
	}
	if len(out) == 0 && len(frames) > 0 {
		// A merged span can fall between samples; keep the nearest frame so
		// the summary never runs on empty evidence.
		nearest := frames[0]
		mid := (start + end) / 2
		for _, f := range frames[1:] {
			if math.Abs(f.Timestamp-mid) < math.Abs(nearest.Timestamp-mid) {
				nearest = f
			}
		}
		out = []sampler.FrameAnalysis{nearest}
	}
	return out
}

// summarize aggregates member frames into the segment's evidence fields.
func summarize(frames []sampler.FrameAnalysis, start, end float64) Segment {
	seg := Segment{Start: start, End: end, FrameCount: len(frames)}
	if len(frames) == 0 {
		seg.SceneType = "unknown"
		return seg
	}
	var brightness, motion float64
	colorCounts := make(map[string]int)
	typeCounts := make(map[string]int)
	maxFaces := 0
	for _, f := range frames {
		brightness += f.Brightness
		motion += f.MotionIntensity
		typeCounts[f.SceneType]++
		for _, c := range f.DominantColors {
			colorCounts[c]++
		}
		if f.FaceCount > maxFaces {
			maxFaces = f.FaceCount
		}
	}
	n := float64(len(frames))
	seg.AvgBrightness = brightness / n
	seg.AvgMotion = motion / n
	seg.FaceCount = maxFaces
	seg.SceneType = modal(typeCounts)
	seg.DominantColors = topKeys(colorCounts, 3)
	return seg
}

func modal(counts map[string]int) string {
	best := ""
	bestN := -1
	for k, v := range counts {
		if v > bestN || (v == bestN && k < best) {
			best, bestN = k, v
		}
	}
	if best == "" {
		return "unknown"
	}
	return best
}

func topKeys(counts map[string]int, n int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	// Stable order: count desc, then name.
	for i := 0; i < len(keys); i++ {
		for j := i + 1; j < len(keys); j++ {
			ci, cj := counts[keys[i]], counts[keys[j]]
			if cj > ci || (cj == ci && keys[j] < keys[i]) {
				keys[i], keys[j] = keys[j], keys[i]
			}
		}
	}
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
