package plan

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"clipforge/internal/enrich"
	"clipforge/internal/logging"
	"clipforge/internal/sampler"
	"clipforge/internal/segmenter"
	"clipforge/internal/services"
)

// Options tunes synthesis. Zero values fall back to the documented defaults.
type Options struct {
	// Objective selects the selection policy: highlight, full, trailer.
	Objective string
	// Pacing bounds per-clip length: slow, medium, fast.
	Pacing string
	// TransitionStyle selects the transition family: subtle, standard, dramatic.
	TransitionStyle string
	// ColorGrade applies a whole-timeline grade: none, warm, cool, cinematic.
	ColorGrade string
	// TrimImportanceFloor drops segments whose importance falls below it.
	TrimImportanceFloor float64
	// MaxTransitionSeconds caps every transition duration.
	MaxTransitionSeconds float64
	// HardCutThreshold splits boundaries into transitions (confidence above)
	// and plain cuts (at or below).
	HardCutThreshold float64
}

// Input is everything synthesis runs on.
type Input struct {
	AssetPath  string
	Duration   float64
	Segments   []segmenter.Segment
	AudioSpans []sampler.AudioSpan
	Profile    enrich.AssetProfile
}

type pacingRule struct {
	maxClipSeconds float64
	minClipSeconds float64
}

var pacingRules = map[string]pacingRule{
	"slow":   {maxClipSeconds: 20, minClipSeconds: 2.0},
	"medium": {maxClipSeconds: 12, minClipSeconds: 1.5},
	"fast":   {maxClipSeconds: 6, minClipSeconds: 1.0},
}

type transitionRule struct {
	kind    string
	seconds float64
}

var transitionRules = map[string]transitionRule{
	"subtle":   {kind: "fade", seconds: 0.5},
	"standard": {kind: "dissolve", seconds: 0.8},
	"dramatic": {kind: "wipe", seconds: 1.2},
}

// objectiveTarget returns the output duration budget for an objective as a
// fraction of the source, or an absolute cap when fraction is zero.
type objectiveRule struct {
	fraction float64
	capSecs  float64
}

var objectiveRules = map[string]objectiveRule{
	"highlight": {fraction: 0.3},
	"full":      {fraction: 1.0},
	"trailer":   {capSecs: 60},
}

// Synthesizer turns enriched segments into an ordered edit decision list.
type Synthesizer struct {
	logger *logging.Logger
	opts   Options
}

func New(logger *logging.Logger, opts Options) *Synthesizer {
	return &Synthesizer{logger: logger, opts: opts}
}

// Synthesize builds the plan. Synthesis is pure: the same input and options
// always yield the same decision list.
func (sy *Synthesizer) Synthesize(in Input) (*Plan, error) {
	if err := sy.validate(in); err != nil {
		return nil, err
	}
	opts := sy.normalized()

	kept := selectSegments(in.Segments, in.Duration, opts)
	var decisions []Decision

	degraded := 0
	for _, k := range kept {
		if k.seg.EnrichFailed {
			degraded++
		}
		decisions = append(decisions, Decision{
			Type:       DecisionTrim,
			Start:      k.start,
			End:        k.end,
			Segment:    k.seg.Index,
			Reason:     trimReason(k.seg),
			Confidence: trimConfidence(k.seg),
		})
	}

	decisions = append(decisions, sy.transitions(kept, opts)...)
	decisions = append(decisions, sy.subtitles(kept, in.AudioSpans)...)
	decisions = append(decisions, sy.music(kept, in)...)
	decisions = append(decisions, sy.colorGrades(kept, opts)...)

	sortDecisions(decisions)

	p := &Plan{
		AssetPath:       in.AssetPath,
		SourceDuration:  in.Duration,
		Objective:       opts.Objective,
		Pacing:          opts.Pacing,
		TransitionStyle: opts.TransitionStyle,
		ColorGrade:      opts.ColorGrade,
		Profile:         in.Profile,
		Decisions:       decisions,
		Degraded:        degraded,
	}
	p.EstimatedDuration = estimateDuration(decisions)
	p.Complexity = complexity(decisions, p.EstimatedDuration)

	sy.logger.Info("plan synthesized",
		logging.String("objective", opts.Objective),
		logging.Int("clips", len(kept)),
		logging.Int("decisions", len(decisions)),
		logging.Float64("estimated_duration", p.EstimatedDuration))
	return p, nil
}

func (sy *Synthesizer) validate(in Input) error {
	if len(in.Segments) == 0 {
		return services.Wrap(services.ErrValidation, "planner", "input", "no segments to plan from", nil)
	}
	if in.Duration <= 0 {
		return services.Wrap(services.ErrValidation, "planner", "input", "non-positive source duration", nil)
	}
	if _, ok := objectiveRules[orDefault(sy.opts.Objective, "highlight")]; !ok {
		return services.Wrap(services.ErrValidation, "planner", "options",
			fmt.Sprintf("unknown objective %q", sy.opts.Objective), nil)
	}
	if _, ok := pacingRules[orDefault(sy.opts.Pacing, "medium")]; !ok {
		return services.Wrap(services.ErrValidation, "planner", "options",
			fmt.Sprintf("unknown pacing %q", sy.opts.Pacing), nil)
	}
	if _, ok := transitionRules[orDefault(sy.opts.TransitionStyle, "subtle")]; !ok {
		return services.Wrap(services.ErrValidation, "planner", "options",
			fmt.Sprintf("unknown transition style %q", sy.opts.TransitionStyle), nil)
	}
	return nil
}

func (sy *Synthesizer) normalized() Options {
	opts := sy.opts
	opts.Objective = orDefault(opts.Objective, "highlight")
	opts.Pacing = orDefault(opts.Pacing, "medium")
	opts.TransitionStyle = orDefault(opts.TransitionStyle, "subtle")
	opts.ColorGrade = orDefault(opts.ColorGrade, "none")
	if opts.MaxTransitionSeconds <= 0 {
		opts.MaxTransitionSeconds = 1.5
	}
	if opts.HardCutThreshold <= 0 {
		opts.HardCutThreshold = 0.6
	}
	return opts
}

func orDefault(v, d string) string {
	if v == "" {
		return d
	}
	return v
}

// keptClip is a selected source span plus the segment it came from. A clip
// can be shorter than its segment when pacing truncates it.
type keptClip struct {
	start, end float64
	seg        segmenter.Segment
}

// selectSegments ranks segments by importance and keeps the best within the
// objective's duration budget, then applies pacing bounds. The full objective
// skips the budget and only trims low-importance ends. At least one segment
// always survives, whatever the floor and budget say.
func selectSegments(segments []segmenter.Segment, duration float64, opts Options) []keptClip {
	rule := objectiveRules[opts.Objective]
	budget := rule.capSecs
	if rule.fraction > 0 {
		budget = duration * rule.fraction
	}
	pacing := pacingRules[opts.Pacing]
	full := rule.fraction >= 1

	var candidates []segmenter.Segment
	if full {
		// Full cuts keep the interior intact; the floor only trims the ends.
		candidates = trimEnds(segments, opts.TrimImportanceFloor)
	} else {
		for _, s := range segments {
			if s.Importance >= opts.TrimImportanceFloor {
				candidates = append(candidates, s)
			}
		}
	}
	if len(candidates) == 0 {
		best := segments[0]
		for _, s := range segments[1:] {
			if s.Importance > best.Importance {
				best = s
			}
		}
		candidates = []segmenter.Segment{best}
	}

	// Rank by importance, tie-break on earlier position so ranking is total.
	ranked := make([]segmenter.Segment, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Importance != ranked[j].Importance {
			return ranked[i].Importance > ranked[j].Importance
		}
		return ranked[i].Index < ranked[j].Index
	})

	var kept []keptClip
	var total float64
	for _, s := range ranked {
		clip := truncateToPacing(s, pacing)
		length := clip.end - clip.start
		if !full {
			if length < pacing.minClipSeconds && len(kept) > 0 {
				continue
			}
			if total > 0 && total+length > budget {
				continue
			}
		}
		kept = append(kept, clip)
		total += length
	}
	// Timeline order, not rank order.
	sort.Slice(kept, func(i, j int) bool { return kept[i].start < kept[j].start })
	return kept
}

// trimEnds drops leading and trailing segments below the importance floor,
// leaving the interior intact.
func trimEnds(segments []segmenter.Segment, floor float64) []segmenter.Segment {
	lo, hi := 0, len(segments)
	for lo < hi && segments[lo].Importance < floor {
		lo++
	}
	for hi > lo && segments[hi-1].Importance < floor {
		hi--
	}
	return segments[lo:hi]
}

// truncateToPacing caps a clip at the pacing maximum, keeping the middle of
// the segment where the summarized evidence is most representative.
func truncateToPacing(s segmenter.Segment, rule pacingRule) keptClip {
	if s.Duration() <= rule.maxClipSeconds {
		return keptClip{start: s.Start, end: s.End, seg: s}
	}
	mid := (s.Start + s.End) / 2
	half := rule.maxClipSeconds / 2
	return keptClip{start: mid - half, end: mid + half, seg: s}
}

// trimConfidence reads how sure the plan is about keeping a span. Sentinel
// segments were kept on mechanical evidence alone.
func trimConfidence(s segmenter.Segment) float64 {
	if s.EnrichFailed {
		return 0.5
	}
	return s.Importance
}

func trimReason(s segmenter.Segment) string {
	if s.EnrichFailed {
		return "kept on mechanical evidence"
	}
	if s.Description != "" && s.Description != "unknown" {
		return s.Description
	}
	return fmt.Sprintf("%s scene", s.SceneType)
}

// transitions emits one decision per adjacent clip pair, anchored at the cut
// point between them in source time. Boundaries whose confidence clears the
// hard-cut threshold get a styled transition; the rest stay hard cuts.
func (sy *Synthesizer) transitions(kept []keptClip, opts Options) []Decision {
	rule := transitionRules[opts.TransitionStyle]
	base := math.Min(rule.seconds, opts.MaxTransitionSeconds)
	var out []Decision
	for i := 1; i < len(kept); i++ {
		conf := kept[i].seg.Confidence
		if conf <= opts.HardCutThreshold {
			out = append(out, Decision{
				Type:       DecisionCut,
				Start:      kept[i].start,
				End:        kept[i].start,
				Segment:    kept[i].seg.Index,
				Confidence: conf,
			})
			continue
		}
		// A transition can never outlast either clip it joins.
		dur := base
		if span := kept[i-1].end - kept[i-1].start; span < dur {
			dur = span
		}
		if span := kept[i].end - kept[i].start; span < dur {
			dur = span
		}
		out = append(out, Decision{
			Type:       DecisionTransition,
			Start:      kept[i].start,
			End:        kept[i].start + dur,
			Segment:    kept[i].seg.Index,
			Params:     map[string]string{"kind": rule.kind, "duration": fmt.Sprintf("%.2f", dur)},
			Confidence: conf,
		})
	}
	return out
}

// subtitles places a caption over each kept clip that overlaps speech,
// using the segment description as text.
func (sy *Synthesizer) subtitles(kept []keptClip, spans []sampler.AudioSpan) []Decision {
	var out []Decision
	for _, k := range kept {
		if k.seg.EnrichFailed || k.seg.Description == "" || k.seg.Description == "unknown" {
			continue
		}
		if !overlapsKind(spans, k.start, k.end, sampler.AudioSpeech) {
			continue
		}
		out = append(out, Decision{
			Type:       DecisionSubtitle,
			Start:      k.start,
			End:        k.end,
			Segment:    k.seg.Index,
			Params:     map[string]string{"text": k.seg.Description},
			Confidence: k.seg.Importance,
		})
	}
	return out
}

// music lays one background cue across the whole output, keyed to the asset
// mood, unless the source is already music-dominant.
func (sy *Synthesizer) music(kept []keptClip, in Input) []Decision {
	if len(kept) == 0 {
		return nil
	}
	musicSeconds := 0.0
	for _, sp := range in.AudioSpans {
		if sp.Kind == sampler.AudioMusic {
			musicSeconds += sp.End - sp.Start
		}
	}
	if in.Duration > 0 && musicSeconds/in.Duration > 0.5 {
		return nil
	}
	mood := in.Profile.OverallMood
	if mood == "" || mood == "unknown" {
		mood = "neutral"
	}
	return []Decision{{
		Type:       DecisionMusic,
		Start:      kept[0].start,
		End:        kept[len(kept)-1].end,
		Segment:    kept[0].seg.Index,
		Params:     map[string]string{"mood": mood, "volume": "0.3"},
		Confidence: 0.5,
	}}
}

func (sy *Synthesizer) colorGrades(kept []keptClip, opts Options) []Decision {
	if opts.ColorGrade == "none" || len(kept) == 0 {
		return nil
	}
	var out []Decision
	for _, k := range kept {
		out = append(out, Decision{
			Type:       DecisionColorGrade,
			Start:      k.start,
			End:        k.end,
			Segment:    k.seg.Index,
			Params:     map[string]string{"grade": opts.ColorGrade},
			Confidence: 1,
		})
	}
	return out
}

func overlapsKind(spans []sampler.AudioSpan, start, end float64, kind string) bool {
	for _, sp := range spans {
		if sp.Kind == kind && sp.Start < end && sp.End > start {
			return true
		}
	}
	return false
}

// sortDecisions orders by start time; ties fall back to type priority, then
// segment index so the order is total.
func sortDecisions(decisions []Decision) {
	sort.SliceStable(decisions, func(i, j int) bool {
		if decisions[i].Start != decisions[j].Start {
			return decisions[i].Start < decisions[j].Start
		}
		pi, pj := typePriority[decisions[i].Type], typePriority[decisions[j].Type]
		if pi != pj {
			return pi < pj
		}
		return decisions[i].Segment < decisions[j].Segment
	})
}

func estimateDuration(decisions []Decision) float64 {
	var total float64
	for _, d := range decisions {
		if d.Type == DecisionTrim {
			total += d.Duration()
		}
	}
	return total
}

// complexity scores how busy the edit is in [0, 1]: decision density per
// output minute against an empirical ceiling of 30, weighted with the
// transition share of the decision list.
func complexity(decisions []Decision, outputSeconds float64) float64 {
	if outputSeconds <= 0 || len(decisions) == 0 {
		return 0
	}
	transitions := 0
	for _, d := range decisions {
		if d.Type == DecisionTransition {
			transitions++
		}
	}
	perMinute := float64(len(decisions)) / (outputSeconds / 60)
	density := math.Min(1, perMinute/30)
	share := float64(transitions) / float64(len(decisions))
	return 0.7*density + 0.3*share
}

// Describe renders a short human summary of the plan for logs and CLI
// output.
func (p *Plan) Describe() string {
	counts := map[string]int{}
	for _, d := range p.Decisions {
		counts[d.Type]++
	}
	parts := make([]string, 0, len(counts))
	for _, t := range []string{DecisionTrim, DecisionCut, DecisionTransition, DecisionSubtitle, DecisionMusic, DecisionColorGrade} {
		if counts[t] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[t], t))
		}
	}
	return fmt.Sprintf("%s edit, %.1fs from %.1fs source (%s)",
		p.Objective, p.EstimatedDuration, p.SourceDuration, strings.Join(parts, ", "))
}
