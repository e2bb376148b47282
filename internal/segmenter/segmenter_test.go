package segmenter

import (
	"errors"
	"math"
	"testing"

	"clipforge/internal/logging"
	"clipforge/internal/sampler"
	"clipforge/internal/services"
)

func frame(ts, brightness, motion float64, colors ...string) sampler.FrameAnalysis {
	return sampler.FrameAnalysis{
		Timestamp:       ts,
		Brightness:      brightness,
		MotionIntensity: motion,
		DominantColors:  colors,
		SceneType:       "wide_shot",
	}
}

func result(duration float64, frames ...sampler.FrameAnalysis) *sampler.Result {
	return &sampler.Result{TotalDuration: duration, Frames: frames}
}

func newTest(opts Options) *Segmenter {
	return New(logging.NewNop(), opts)
}

func checkCoverage(t *testing.T, segs []Segment, duration float64) {
	t.Helper()
	if len(segs) == 0 {
		t.Fatal("no segments")
	}
	if segs[0].Start != 0 {
		t.Errorf("first segment starts at %.2f, want 0", segs[0].Start)
	}
	if math.Abs(segs[len(segs)-1].End-duration) > 1e-9 {
		t.Errorf("last segment ends at %.2f, want %.2f", segs[len(segs)-1].End, duration)
	}
	for i := 1; i < len(segs); i++ {
		if segs[i].Start != segs[i-1].End {
			t.Errorf("gap or overlap at segment %d: prev end %.2f, start %.2f", i, segs[i-1].End, segs[i].Start)
		}
		if segs[i].Index != i {
			t.Errorf("segment %d has index %d", i, segs[i].Index)
		}
	}
}

func TestSegmentSingleFrame(t *testing.T) {
	sg := newTest(Defaults())
	segs, err := sg.Segment(result(12.0, frame(0.5, 0.5, 0.2, "gray")))
	if err != nil {
		t.Fatal(err)
	}
	if len(segs) != 1 {
		t.Fatalf("got %d segments, want 1", len(segs))
	}
	if segs[0].Start != 0 || segs[0].End != 12.0 {
		t.Errorf("segment = [%.2f, %.2f], want [0, 12]", segs[0].Start, segs[0].End)
	}
	if segs[0].Confidence != 1 {
		t.Errorf("confidence = %.2f, want 1", segs[0].Confidence)
	}
}

func TestSegmentUniformContentIsOneSegment(t *testing.T) {
	sg := newTest(Defaults())
	var frames []sampler.FrameAnalysis
	for i := 0; i < 20; i++ {
		frames = append(frames, frame(float64(i), 0.5, 0.2, "gray", "blue"))
	}
	segs, err := sg.Segment(result(20.0, frames...))
	if err != nil {
		t.Fatal(err)
	}
	if len(segs) != 1 {
		t.Fatalf("got %d segments, want 1 for identical frames", len(segs))
	}
	checkCoverage(t, segs, 20.0)
}

func TestSegmentHardCut(t *testing.T) {
	sg := newTest(Defaults())
	var frames []sampler.FrameAnalysis
	for i := 0; i < 10; i++ {
		frames = append(frames, frame(float64(i), 0.2, 0.1, "black", "gray"))
	}
	for i := 10; i < 20; i++ {
		frames = append(frames, frame(float64(i), 0.9, 0.8, "white", "blue"))
	}
	segs, err := sg.Segment(result(20.0, frames...))
	if err != nil {
		t.Fatal(err)
	}
	if len(segs) != 2 {
		t.Fatalf("got %d segments, want 2", len(segs))
	}
	checkCoverage(t, segs, 20.0)
	// Cut lands at the midpoint between samples 9 and 10.
	if math.Abs(segs[0].End-9.5) > 1e-9 {
		t.Errorf("cut at %.2f, want 9.5", segs[0].End)
	}
	if segs[0].Confidence != 1 {
		t.Errorf("hard cut confidence = %.2f, want saturated 1", segs[0].Confidence)
	}
}

func TestSegmentMinLengthMerge(t *testing.T) {
	opts := Defaults()
	opts.MinSceneLengthSeconds = 4.0
	sg := newTest(opts)
	var frames []sampler.FrameAnalysis
	for i := 0; i < 10; i++ {
		frames = append(frames, frame(float64(i), 0.2, 0.1, "black"))
	}
	// Two-second flash.
	for i := 10; i < 12; i++ {
		frames = append(frames, frame(float64(i), 0.95, 0.9, "white"))
	}
	for i := 12; i < 22; i++ {
		frames = append(frames, frame(float64(i), 0.2, 0.1, "black"))
	}
	segs, err := sg.Segment(result(22.0, frames...))
	if err != nil {
		t.Fatal(err)
	}
	checkCoverage(t, segs, 22.0)
	for _, s := range segs {
		if s.Duration() < opts.MinSceneLengthSeconds && len(segs) > 1 {
			t.Errorf("segment [%.2f, %.2f] shorter than minimum after merge", s.Start, s.End)
		}
	}
}

func TestSegmentMergeTieGoesToPredecessor(t *testing.T) {
	opts := Defaults()
	opts.MinSceneLengthSeconds = 3.0
	sg := newTest(opts)
	// Three blocks, cuts of identical strength around the short middle one.
	var frames []sampler.FrameAnalysis
	for i := 0; i < 8; i++ {
		frames = append(frames, frame(float64(i), 0.2, 0.1, "black"))
	}
	for i := 8; i < 10; i++ {
		frames = append(frames, frame(float64(i), 0.9, 0.8, "white"))
	}
	for i := 10; i < 18; i++ {
		frames = append(frames, frame(float64(i), 0.2, 0.1, "black"))
	}
	segs, err := sg.Segment(result(18.0, frames...))
	if err != nil {
		t.Fatal(err)
	}
	checkCoverage(t, segs, 18.0)
	// The flash merges left: the first segment absorbs it.
	if len(segs) != 2 {
		t.Fatalf("got %d segments, want 2", len(segs))
	}
	if math.Abs(segs[0].End-9.5) > 1e-9 {
		t.Errorf("predecessor should absorb the short segment; boundary at %.2f, want 9.5", segs[0].End)
	}
}

func TestDissimilarityWeights(t *testing.T) {
	sg := newTest(Options{Threshold: 0.3, BrightnessWeight: 1, MotionWeight: 0, ColorWeight: 0})
	a := frame(0, 0.1, 0.0, "black")
	b := frame(1, 0.9, 1.0, "white")
	got := sg.dissimilarity(a, b)
	if math.Abs(got-0.8) > 1e-9 {
		t.Errorf("brightness-only dissimilarity = %.3f, want 0.8", got)
	}
}

func TestJaccardDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
		want float64
	}{
		{"identical", []string{"red", "blue"}, []string{"blue", "red"}, 0},
		{"disjoint", []string{"red"}, []string{"blue"}, 1},
		{"half overlap", []string{"red", "blue"}, []string{"blue", "green"}, 1 - 1.0/3.0},
		{"both empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := jaccardDistance(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("got %.4f, want %.4f", got, tt.want)
			}
		})
	}
}

func TestConfidence(t *testing.T) {
	if c := confidence(0.3, 0.3); c != 1 {
		t.Errorf("score at threshold: confidence = %.2f, want 1", c)
	}
	if c := confidence(0.15, 0.3); math.Abs(c-0.5) > 1e-9 {
		t.Errorf("half threshold: confidence = %.2f, want 0.5", c)
	}
	if c := confidence(0.9, 0.3); c != 1 {
		t.Errorf("above threshold saturates: confidence = %.2f, want 1", c)
	}
}

func TestSegmentValidation(t *testing.T) {
	tests := []struct {
		name string
		in   *sampler.Result
		opts Options
	}{
		{"nil input", nil, Defaults()},
		{"no frames", result(10.0), Defaults()},
		{"zero duration", result(0, frame(0, 0.5, 0.5)), Defaults()},
		{"bad threshold", result(10, frame(0, 0.5, 0.5)), Options{Threshold: 1.5, BrightnessWeight: 1}},
		{"zero weights", result(10, frame(0, 0.5, 0.5)), Options{Threshold: 0.3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTest(tt.opts).Segment(tt.in)
			if !errors.Is(err, services.ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestSummarizeEvidence(t *testing.T) {
	frames := []sampler.FrameAnalysis{
		frame(0, 0.2, 0.4, "red", "black"),
		frame(1, 0.4, 0.6, "red", "gray"),
	}
	frames[0].FaceCount = 2
	frames[1].FaceCount = 1
	seg := summarize(frames, 0, 2)
	if math.Abs(seg.AvgBrightness-0.3) > 1e-9 {
		t.Errorf("avg brightness = %.3f, want 0.3", seg.AvgBrightness)
	}
	if math.Abs(seg.AvgMotion-0.5) > 1e-9 {
		t.Errorf("avg motion = %.3f, want 0.5", seg.AvgMotion)
	}
	if seg.FaceCount != 2 {
		t.Errorf("face count = %d, want max 2", seg.FaceCount)
	}
	if len(seg.DominantColors) == 0 || seg.DominantColors[0] != "red" {
		t.Errorf("dominant colors = %v, want red first", seg.DominantColors)
	}
}
