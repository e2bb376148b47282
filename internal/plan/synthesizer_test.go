package plan

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"clipforge/internal/enrich"
	"clipforge/internal/logging"
	"clipforge/internal/sampler"
	"clipforge/internal/segmenter"
	"clipforge/internal/services"
)

func seg(index int, start, end, importance float64, desc string) segmenter.Segment {
	return segmenter.Segment{
		Index: index, Start: start, End: end,
		Importance: importance, Description: desc,
		SceneType: "wide_shot", Mood: "calm", Confidence: 0.9,
	}
}

func input(duration float64, segs ...segmenter.Segment) Input {
	return Input{
		AssetPath: "/media/clip.mp4",
		Duration:  duration,
		Segments:  segs,
		AudioSpans: []sampler.AudioSpan{
			{Start: 0, End: duration, Kind: sampler.AudioSpeech, Level: -20},
		},
		Profile: enrich.AssetProfile{Genre: "travel", OverallMood: "calm"},
	}
}

func newTest(opts Options) *Synthesizer {
	return New(logging.NewNop(), opts)
}

func TestSynthesizeOrdering(t *testing.T) {
	sy := newTest(Options{Objective: "full", ColorGrade: "warm", TrimImportanceFloor: 0.3})
	p, err := sy.Synthesize(input(30,
		seg(0, 0, 10, 0.8, "opening"),
		seg(1, 10, 20, 0.6, "middle"),
		seg(2, 20, 30, 0.9, "finale"),
	))
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(p.Decisions); i++ {
		a, b := p.Decisions[i-1], p.Decisions[i]
		if a.Start > b.Start {
			t.Fatalf("decisions out of order at %d: %.2f after %.2f", i, b.Start, a.Start)
		}
		if a.Start == b.Start && typePriority[a.Type] > typePriority[b.Type] {
			t.Fatalf("tie at %.2f broken wrong: %s before %s", a.Start, a.Type, b.Type)
		}
	}
}

func TestSynthesizeDeterministic(t *testing.T) {
	sy := newTest(Options{Objective: "highlight", TrimImportanceFloor: 0.3})
	in := input(60,
		seg(0, 0, 20, 0.9, "a"),
		seg(1, 20, 40, 0.5, "b"),
		seg(2, 40, 60, 0.7, "c"),
	)
	p1, err := sy.Synthesize(in)
	if err != nil {
		t.Fatal(err)
	}
	p2, err := sy.Synthesize(in)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(p1, p2) {
		t.Error("same input produced different plans")
	}
}

func TestSynthesizeImportanceFloor(t *testing.T) {
	sy := newTest(Options{Objective: "full", TrimImportanceFloor: 0.5})
	p, err := sy.Synthesize(input(30,
		seg(0, 0, 10, 0.8, "keep"),
		seg(1, 10, 20, 0.6, "keep"),
		seg(2, 20, 30, 0.2, "drop"),
	))
	if err != nil {
		t.Fatal(err)
	}
	clips := p.Clips()
	if len(clips) != 2 {
		t.Fatalf("got %d clips, want 2", len(clips))
	}
	for _, c := range clips {
		if c.Segment == 2 {
			t.Error("trailing segment below floor was kept")
		}
	}
}

func TestSynthesizeFullKeepsInterior(t *testing.T) {
	sy := newTest(Options{Objective: "full", TrimImportanceFloor: 0.5})
	p, err := sy.Synthesize(input(30,
		seg(0, 0, 10, 0.8, "opening"),
		seg(1, 10, 20, 0.2, "lull"),
		seg(2, 20, 30, 0.6, "finale"),
	))
	if err != nil {
		t.Fatal(err)
	}
	if clips := p.Clips(); len(clips) != 3 {
		t.Fatalf("got %d clips, want the interior lull kept under full", len(clips))
	}

	sy = newTest(Options{Objective: "highlight", TrimImportanceFloor: 0.5})
	p, err = sy.Synthesize(input(100,
		seg(0, 0, 10, 0.8, "opening"),
		seg(1, 10, 20, 0.2, "lull"),
		seg(2, 20, 30, 0.6, "finale"),
	))
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range p.Clips() {
		if c.Segment == 1 {
			t.Error("highlight kept an interior segment below the floor")
		}
	}
}

func TestSynthesizeKeepsAtLeastOne(t *testing.T) {
	sy := newTest(Options{Objective: "highlight", TrimImportanceFloor: 0.9})
	p, err := sy.Synthesize(input(20,
		seg(0, 0, 10, 0.1, "weak"),
		seg(1, 10, 20, 0.3, "stronger"),
	))
	if err != nil {
		t.Fatal(err)
	}
	clips := p.Clips()
	if len(clips) != 1 {
		t.Fatalf("got %d clips, want the single best", len(clips))
	}
	if clips[0].Segment != 1 {
		t.Errorf("kept segment %d, want the highest importance", clips[0].Segment)
	}
}

func TestSynthesizePacingTruncates(t *testing.T) {
	sy := newTest(Options{Objective: "full", Pacing: "fast"})
	p, err := sy.Synthesize(input(40, seg(0, 0, 40, 0.9, "long take")))
	if err != nil {
		t.Fatal(err)
	}
	clips := p.Clips()
	if len(clips) != 1 {
		t.Fatalf("got %d clips", len(clips))
	}
	if clips[0].Duration() > 6+1e-9 {
		t.Errorf("fast pacing clip is %.1fs, cap is 6s", clips[0].Duration())
	}
	mid := (clips[0].Start + clips[0].End) / 2
	if math.Abs(mid-20) > 1e-9 {
		t.Errorf("truncation should keep the segment middle; clip midpoint %.1f, want 20", mid)
	}
}

func TestSynthesizeTransitions(t *testing.T) {
	sy := newTest(Options{Objective: "full", TransitionStyle: "dramatic", MaxTransitionSeconds: 1.0})
	p, err := sy.Synthesize(input(30,
		seg(0, 0, 10, 0.8, "a"),
		seg(1, 10, 20, 0.8, "b"),
		seg(2, 20, 30, 0.8, "c"),
	))
	if err != nil {
		t.Fatal(err)
	}
	var transitions []Decision
	for _, d := range p.Decisions {
		if d.Type == DecisionTransition {
			transitions = append(transitions, d)
		}
	}
	if len(transitions) != 2 {
		t.Fatalf("got %d transitions for 3 clips, want 2", len(transitions))
	}
	for _, tr := range transitions {
		if tr.Params["kind"] != "wipe" {
			t.Errorf("dramatic style kind = %q, want wipe", tr.Params["kind"])
		}
		if tr.Duration() > 1.0+1e-9 {
			t.Errorf("transition %.2fs exceeds the 1.0s cap", tr.Duration())
		}
	}
}

func TestSynthesizeTransitionFitsShortLastClip(t *testing.T) {
	sy := newTest(Options{Objective: "full", Pacing: "fast", TransitionStyle: "dramatic"})
	p, err := sy.Synthesize(input(11,
		seg(0, 0, 10, 0.8, "body"),
		seg(1, 10, 11, 0.8, "tail"),
	))
	if err != nil {
		t.Fatal(err)
	}
	var found bool
	for _, d := range p.Decisions {
		if d.Type != DecisionTransition {
			continue
		}
		found = true
		if d.Duration() > 1.0+1e-9 {
			t.Errorf("transition %.2fs outlasts the 1.0s tail clip", d.Duration())
		}
		if d.End > 11+1e-9 {
			t.Errorf("transition ends at %.2f, past the 11.0s source", d.End)
		}
	}
	if !found {
		t.Fatal("no transition emitted between the two clips")
	}
}

func TestSynthesizeHardCutBelowThreshold(t *testing.T) {
	sy := newTest(Options{Objective: "full", HardCutThreshold: 0.6})
	soft := seg(1, 10, 20, 0.8, "b")
	soft.Confidence = 0.4
	p, err := sy.Synthesize(input(30,
		seg(0, 0, 10, 0.8, "a"),
		soft,
		seg(2, 20, 30, 0.8, "c"),
	))
	if err != nil {
		t.Fatal(err)
	}
	var cuts, transitions []Decision
	for _, d := range p.Decisions {
		switch d.Type {
		case DecisionCut:
			cuts = append(cuts, d)
		case DecisionTransition:
			transitions = append(transitions, d)
		}
	}
	if len(cuts) != 1 || cuts[0].Start != 10 {
		t.Errorf("cuts = %+v, want one hard cut at 10", cuts)
	}
	if len(cuts) == 1 && cuts[0].Confidence != 0.4 {
		t.Errorf("cut confidence = %.2f, want the boundary confidence", cuts[0].Confidence)
	}
	if len(transitions) != 1 || transitions[0].Start != 20 {
		t.Errorf("transitions = %+v, want one at 20", transitions)
	}
}

func TestSynthesizeSharpBoundaryGetsSubtleTransition(t *testing.T) {
	sy := newTest(Options{Objective: "full", Pacing: "slow", TransitionStyle: "subtle", MaxTransitionSeconds: 1.5})
	second := seg(1, 15.2, 32.8, 0.8, "b")
	second.Confidence = 0.95
	p, err := sy.Synthesize(input(32.8, seg(0, 0, 15.2, 0.8, "a"), second))
	if err != nil {
		t.Fatal(err)
	}
	var tr *Decision
	for i, d := range p.Decisions {
		if d.Type == DecisionTransition {
			tr = &p.Decisions[i]
		}
	}
	if tr == nil {
		t.Fatal("no transition emitted at a 0.95-confidence boundary")
	}
	if tr.Start != 15.2 {
		t.Errorf("transition start = %.2f, want 15.2", tr.Start)
	}
	if tr.Params["kind"] != "fade" {
		t.Errorf("subtle style kind = %q, want fade", tr.Params["kind"])
	}
	if tr.Duration() > 1.5+1e-9 {
		t.Errorf("transition %.2fs exceeds the configured cap", tr.Duration())
	}
}

func TestSynthesizeHighlightBudget(t *testing.T) {
	sy := newTest(Options{Objective: "highlight", Pacing: "slow"})
	var segsIn []segmenter.Segment
	for i := 0; i < 10; i++ {
		segsIn = append(segsIn, seg(i, float64(i)*10, float64(i+1)*10, 0.5+float64(i)*0.05, "s"))
	}
	p, err := sy.Synthesize(input(100, segsIn...))
	if err != nil {
		t.Fatal(err)
	}
	if p.EstimatedDuration > 100*0.3+20+1e-9 {
		t.Errorf("highlight estimated %.1fs from a 100s source", p.EstimatedDuration)
	}
	if p.EstimatedDuration <= 0 {
		t.Error("empty highlight")
	}
}

func TestSynthesizeSubtitlesNeedSpeech(t *testing.T) {
	sy := newTest(Options{Objective: "full"})
	in := input(20, seg(0, 0, 10, 0.8, "talking"), seg(1, 10, 20, 0.8, "montage"))
	in.AudioSpans = []sampler.AudioSpan{
		{Start: 0, End: 10, Kind: sampler.AudioSpeech, Level: -20},
		{Start: 10, End: 20, Kind: sampler.AudioMusic, Level: -10},
	}
	p, err := sy.Synthesize(in)
	if err != nil {
		t.Fatal(err)
	}
	var subs []Decision
	for _, d := range p.Decisions {
		if d.Type == DecisionSubtitle {
			subs = append(subs, d)
		}
	}
	if len(subs) != 1 || subs[0].Segment != 0 {
		t.Errorf("subtitles = %+v, want one over the speech span", subs)
	}
}

func TestSynthesizeMusicSkippedForMusicDominantSource(t *testing.T) {
	sy := newTest(Options{Objective: "full"})
	in := input(20, seg(0, 0, 20, 0.8, "concert"))
	in.AudioSpans = []sampler.AudioSpan{{Start: 0, End: 18, Kind: sampler.AudioMusic, Level: -8}}
	p, err := sy.Synthesize(in)
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range p.Decisions {
		if d.Type == DecisionMusic {
			t.Error("music cue added over a music-dominant source")
		}
	}
}

func TestSynthesizeDegradedSegments(t *testing.T) {
	failed := seg(1, 10, 20, 0.0, "")
	failed.EnrichFailed = true
	failed.Description = "unknown"
	sy := newTest(Options{Objective: "full", TrimImportanceFloor: 0})
	p, err := sy.Synthesize(input(20, seg(0, 0, 10, 0.8, "good"), failed))
	if err != nil {
		t.Fatal(err)
	}
	if p.Degraded != 1 {
		t.Errorf("degraded = %d, want 1", p.Degraded)
	}
	for _, d := range p.Decisions {
		if d.Type == DecisionSubtitle && d.Segment == 1 {
			t.Error("subtitle emitted for a sentinel-filled segment")
		}
	}
}

func TestSynthesizeValidation(t *testing.T) {
	tests := []struct {
		name string
		in   Input
		opts Options
	}{
		{"no segments", Input{Duration: 10}, Options{}},
		{"zero duration", input(0, seg(0, 0, 5, 0.5, "x")), Options{}},
		{"bad objective", input(10, seg(0, 0, 10, 0.5, "x")), Options{Objective: "vlog"}},
		{"bad pacing", input(10, seg(0, 0, 10, 0.5, "x")), Options{Pacing: "frantic"}},
		{"bad transition style", input(10, seg(0, 0, 10, 0.5, "x")), Options{TransitionStyle: "explosive"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTest(tt.opts).Synthesize(tt.in)
			if !errors.Is(err, services.ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestComplexity(t *testing.T) {
	if c := complexity(nil, 0); c != 0 {
		t.Errorf("empty plan complexity = %.2f", c)
	}
	cuts := make([]Decision, 60)
	for i := range cuts {
		cuts[i].Type = DecisionCut
	}
	wipes := make([]Decision, 60)
	for i := range wipes {
		wipes[i].Type = DecisionTransition
	}
	base := complexity(cuts, 60)
	busy := complexity(wipes, 60)
	if busy <= base {
		t.Errorf("transition-heavy plan scored %.2f vs %.2f; transitions should weigh in", busy, base)
	}
	if busy != 1 {
		t.Errorf("saturated all-transition plan = %.2f, want 1", busy)
	}
}
