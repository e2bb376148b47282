package enrich

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"clipforge/internal/logging"
	"clipforge/internal/segmenter"
	"clipforge/internal/services"
	"clipforge/internal/services/llm"
)

const defaultMaxConcurrent = 3

// Client is the inference surface the enricher needs. *llm.Client satisfies
// it; tests inject fakes.
type Client interface {
	GenerateJSON(ctx context.Context, systemPrompt, userPrompt string, params llm.Params) (llm.Response, error)
}

// AssetProfile is the asset-level semantic summary produced after all
// segments are enriched.
type AssetProfile struct {
	Genre       string `json:"genre"`
	OverallMood string `json:"overall_mood"`
	Summary     string `json:"summary"`
	Title       string `json:"title"`
}

// Result carries the enriched segments plus the asset profile and failure
// accounting.
type Result struct {
	Segments []segmenter.Segment `json:"segments"`
	Profile  AssetProfile        `json:"profile"`
	Failed   int                 `json:"failed"`
}

// Options tunes the enrichment pass.
type Options struct {
	// MaxConcurrent bounds in-flight inference calls.
	MaxConcurrent int
	// AssetName seeds the prompts with the source file's name.
	AssetName string
	// Objective biases descriptions toward the editing goal.
	Objective string
	// FocusAreas steer annotation attention, e.g. "characters", "dialogue".
	FocusAreas []string
	// DetailLevel selects response depth: brief, standard, detailed.
	DetailLevel string
}

// Enricher fills the semantic fields of segments through an inference
// backend. Segment order never affects output: each prompt is built from
// the mechanical evidence of the segment and its neighbors only, so
// segments can be processed in any order by the worker pool.
type Enricher struct {
	logger *logging.Logger
	client Client
}

func New(logger *logging.Logger, client Client) *Enricher {
	return &Enricher{logger: logger, client: client}
}

// Enrich annotates every segment and derives the asset profile. Individual
// segment failures degrade to sentinel values and set EnrichFailed; the run
// only aborts when the backend rejects authentication or when every single
// segment fails.
func (e *Enricher) Enrich(ctx context.Context, segments []segmenter.Segment, opts Options) (*Result, error) {
	if len(segments) == 0 {
		return nil, services.Wrap(services.ErrValidation, "enricher", "input", "no segments to enrich", nil)
	}
	workers := opts.MaxConcurrent
	if workers <= 0 {
		workers = defaultMaxConcurrent
	}
	if workers > len(segments) {
		workers = len(segments)
	}

	out := make([]segmenter.Segment, len(segments))
	copy(out, segments)

	jobs := make(chan int)
	errs := make([]error, len(segments))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				errs[i] = e.enrichOne(ctx, out, i, opts)
			}
		}()
	}
	for i := range out {
		if ctx.Err() != nil {
			break
		}
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if ctx.Err() != nil {
		return nil, services.Wrap(services.ErrCancelled, "enricher", "segments", "enrichment cancelled", ctx.Err())
	}

	failed := 0
	for i, err := range errs {
		if err == nil {
			continue
		}
		if errors.Is(err, llm.ErrAuthentication) {
			return nil, services.Wrap(services.ErrConfiguration, "enricher", "segments", "inference backend rejected credentials", err)
		}
		failed++
		e.logger.Warn("segment enrichment degraded",
			logging.Int("segment", i),
			logging.Error(err))
		fillSentinels(&out[i])
	}
	if failed == len(out) {
		return nil, services.Wrap(services.ErrInference, "enricher", "segments", "all segments failed enrichment", nil)
	}

	profile, err := e.profileAsset(ctx, out, opts)
	if err != nil {
		if errors.Is(err, llm.ErrAuthentication) {
			return nil, services.Wrap(services.ErrConfiguration, "enricher", "profile", "inference backend rejected credentials", err)
		}
		e.logger.Warn("asset profile degraded to evidence-derived defaults", logging.Error(err))
		profile = fallbackProfile(out, opts.AssetName)
	}

	e.logger.Info("enrichment complete",
		logging.Int("segments", len(out)),
		logging.Int("failed", failed),
		logging.String("genre", profile.Genre))
	return &Result{Segments: out, Profile: profile, Failed: failed}, nil
}

// segmentAnnotation is the JSON shape the model is asked to return for one
// segment. Responses sometimes arrive wrapped; see parseAnnotation.
type segmentAnnotation struct {
	Description     string   `json:"description"`
	Location        string   `json:"location"`
	Characters      []string `json:"characters"`
	Actions         []string `json:"actions"`
	DialogueSummary string   `json:"dialogue_summary"`
	EmotionalArc    []string `json:"emotional_arc"`
	VisualStyle     string   `json:"visual_style"`
	Mood            string   `json:"mood"`
	Importance      float64  `json:"importance"`
	Keywords        []string `json:"keywords"`
}

func (e *Enricher) enrichOne(ctx context.Context, segs []segmenter.Segment, i int, opts Options) error {
	system := segmentSystemPrompt(opts)
	user := segmentUserPrompt(segs, i, opts.AssetName)
	resp, err := e.client.GenerateJSON(ctx, system, user, llm.Params{Temperature: 0.4, MaxTokens: 400})
	if err != nil {
		return err
	}
	ann, err := parseAnnotation(resp.Text)
	if err != nil {
		return fmt.Errorf("parse annotation: %w (payload %s)", err, llm.PayloadSnippet(resp.Text))
	}
	applyAnnotation(&segs[i], ann)
	return nil
}

func applyAnnotation(seg *segmenter.Segment, ann segmentAnnotation) {
	seg.Description = strings.TrimSpace(ann.Description)
	seg.Location = normalizeLabel(ann.Location)
	seg.Characters = labelSet(ann.Characters)
	seg.Actions = labelSequence(ann.Actions)
	seg.DialogueSummary = strings.TrimSpace(ann.DialogueSummary)
	seg.EmotionalArc = labelSequence(ann.EmotionalArc)
	seg.VisualStyle = normalizeLabel(ann.VisualStyle)
	seg.Mood = normalizeLabel(ann.Mood)
	seg.Importance = clamp01(ann.Importance)
	seg.Keywords = labelSet(ann.Keywords)
	if seg.Description == "" {
		seg.Description = "unknown"
	}
	if seg.Location == "" {
		seg.Location = "unknown"
	}
	if seg.VisualStyle == "" {
		seg.VisualStyle = "unknown"
	}
	if seg.Mood == "" {
		seg.Mood = "unknown"
	}
	if len(seg.EmotionalArc) == 0 {
		seg.EmotionalArc = []string{seg.Mood}
	}
}

// labelSet normalizes an unordered label collection: lowercase, deduplicated,
// sorted, never nil.
func labelSet(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = normalizeLabel(v); v != "" && v != "unknown" {
			if _, dup := seen[v]; !dup {
				seen[v] = struct{}{}
				out = append(out, v)
			}
		}
	}
	sort.Strings(out)
	return out
}

// labelSequence normalizes an ordered label collection, preserving order.
func labelSequence(values []string) []string {
	var out []string
	for _, v := range values {
		if v = normalizeLabel(v); v != "" && v != "unknown" {
			out = append(out, v)
		}
	}
	return out
}

// fillSentinels marks a segment whose enrichment failed. Downstream stages
// treat sentinel segments as low importance but never drop them.
func fillSentinels(seg *segmenter.Segment) {
	seg.Description = "unknown"
	seg.Location = "unknown"
	seg.Characters = []string{}
	seg.Actions = nil
	seg.DialogueSummary = ""
	seg.EmotionalArc = nil
	seg.VisualStyle = "unknown"
	seg.Mood = "unknown"
	seg.Importance = 0
	seg.Keywords = nil
	seg.EnrichFailed = true
}

// parseAnnotation decodes the model's reply, tolerating the wrapper shapes
// observed in the wild: a bare object, {"segment": {...}}, or a one-element
// array.
func parseAnnotation(payload string) (segmentAnnotation, error) {
	var direct segmentAnnotation
	if err := llm.DecodeJSON(payload, &direct); err == nil && (direct.Description != "" || direct.Mood != "") {
		return direct, nil
	}
	var wrapped struct {
		Segment    *segmentAnnotation `json:"segment"`
		Annotation *segmentAnnotation `json:"annotation"`
		Result     *segmentAnnotation `json:"result"`
	}
	if err := llm.DecodeJSON(payload, &wrapped); err == nil {
		for _, cand := range []*segmentAnnotation{wrapped.Segment, wrapped.Annotation, wrapped.Result} {
			if cand != nil && (cand.Description != "" || cand.Mood != "") {
				return *cand, nil
			}
		}
	}
	var list []segmentAnnotation
	if err := llm.DecodeJSON(payload, &list); err == nil && len(list) > 0 {
		return list[0], nil
	}
	return segmentAnnotation{}, errors.New("no recognizable annotation shape")
}

func (e *Enricher) profileAsset(ctx context.Context, segs []segmenter.Segment, opts Options) (AssetProfile, error) {
	resp, err := e.client.GenerateJSON(ctx, profileSystemPrompt(), profileUserPrompt(segs, opts.AssetName), llm.Params{Temperature: 0.4, MaxTokens: 300})
	if err != nil {
		return AssetProfile{}, err
	}
	var profile AssetProfile
	if err := llm.DecodeJSON(resp.Text, &profile); err != nil {
		return AssetProfile{}, fmt.Errorf("parse profile: %w (payload %s)", err, llm.PayloadSnippet(resp.Text))
	}
	profile.Genre = normalizeLabel(profile.Genre)
	profile.OverallMood = normalizeLabel(profile.OverallMood)
	profile.Summary = strings.TrimSpace(profile.Summary)
	profile.Title = strings.TrimSpace(profile.Title)
	if profile.Genre == "" {
		profile.Genre = "unknown"
	}
	if profile.OverallMood == "" {
		profile.OverallMood = "unknown"
	}
	return profile, nil
}

// fallbackProfile derives a profile from mechanical evidence when the
// asset-level call fails.
func fallbackProfile(segs []segmenter.Segment, assetName string) AssetProfile {
	moods := make(map[string]int)
	for _, s := range segs {
		if s.Mood != "" && s.Mood != "unknown" {
			moods[s.Mood]++
		}
	}
	mood := "unknown"
	best := 0
	for m, n := range moods {
		if n > best || (n == best && m < mood) {
			mood, best = m, n
		}
	}
	return AssetProfile{
		Genre:       "unknown",
		OverallMood: mood,
		Summary:     fmt.Sprintf("%d scenes", len(segs)),
		Title:       strings.TrimSuffix(assetName, extOf(assetName)),
	}
}

func extOf(name string) string {
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[i:]
	}
	return ""
}

func normalizeLabel(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
