package project

import (
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"clipforge/internal/fileutil"
	"clipforge/internal/logging"
	"clipforge/internal/plan"
	"clipforge/internal/services"
)

// idNamespace seeds the deterministic material and segment IDs. Same plan,
// same IDs, same bytes on disk.
var idNamespace = uuid.MustParse("8f2d1c64-9b3a-4e5f-8a07-c2d94b6e1f30")

// Warning records a lossy adjustment made during serialization, such as a
// transition clamped to fit its neighbors.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Source carries the asset facts the document needs beyond the plan.
type Source struct {
	Width  int
	Height int
	FPS    float64
}

// Serializer maps an edit plan onto the editor's project document.
type Serializer struct {
	logger *logging.Logger
	name   string
	appVer string
	now    func() time.Time
}

func New(logger *logging.Logger, name, appVersion string) *Serializer {
	return &Serializer{logger: logger, name: name, appVer: appVersion, now: time.Now}
}

// Build converts the plan into a validated document. Every plan decision
// must sit inside [0, SourceDuration]; anything outside is a schema error,
// not a silent clamp. Transitions longer than either neighboring clip are
// clamped with a warning instead.
func (s *Serializer) Build(p *plan.Plan, src Source) (*Document, []Warning, error) {
	if p == nil || len(p.Clips()) == 0 {
		return nil, nil, services.Wrap(services.ErrSchema, "serializer", "build", "plan has no clips", nil)
	}
	for _, d := range p.Decisions {
		// Cuts are zero-length markers; everything else needs a real span.
		invalid := d.End < d.Start
		if d.Type != plan.DecisionCut && d.End == d.Start {
			invalid = true
		}
		if d.Start < 0 || d.End > p.SourceDuration+1e-6 || invalid {
			return nil, nil, services.Wrap(services.ErrSchema, "serializer", "build",
				fmt.Sprintf("%s decision [%.2f, %.2f] outside source coverage [0, %.2f]",
					d.Type, d.Start, d.End, p.SourceDuration), nil)
		}
	}

	clips := p.Clips()
	var warnings []Warning

	doc := &Document{
		AppVersion:   s.appVer,
		Name:         s.name,
		FPS:          src.FPS,
		CanvasWidth:  src.Width,
		CanvasHeight: src.Height,
	}

	video := VideoMaterial{
		ID:       deriveID("video-material", p.AssetPath),
		Path:     p.AssetPath,
		Duration: usec(p.SourceDuration),
		Width:    src.Width,
		Height:   src.Height,
	}
	doc.Materials.Videos = []VideoMaterial{video}

	// Video track: clips laid end to end in timeline order.
	videoTrack := Track{ID: deriveID("track", TrackVideo), Type: TrackVideo}
	clipTargets := make(map[int]TimeRange, len(clips)) // segment index -> target range
	var cursor int64
	for _, c := range clips {
		dur := usec(c.End - c.Start)
		seg := TrackSegment{
			ID:         deriveID("clip", fmt.Sprintf("%d:%.3f:%.3f", c.Segment, c.Start, c.End)),
			MaterialID: video.ID,
			Source:     TimeRange{Start: usec(c.Start), Duration: dur},
			Target:     TimeRange{Start: cursor, Duration: dur},
		}
		clipTargets[c.Segment] = seg.Target
		videoTrack.Segments = append(videoTrack.Segments, seg)
		cursor += dur
	}
	doc.Duration = cursor

	warnings = s.attachTransitions(p, doc, &videoTrack, clips)
	s.attachGrades(p, doc, &videoTrack, clipTargets)
	doc.Tracks = append(doc.Tracks, videoTrack)
	doc.Tracks = append(doc.Tracks, s.textTrack(p, doc, clipTargets))
	doc.Tracks = append(doc.Tracks, s.audioTrack(p, doc))

	if err := doc.Validate(); err != nil {
		return nil, nil, err
	}
	doc.ID = deriveID("document", string(mustMarshalForID(doc)))
	doc.CreatedAt = s.now().UTC().Format(time.RFC3339)
	s.logger.Info("project document built",
		logging.String("name", doc.Name),
		logging.String("version", doc.AppVersion),
		logging.Int("clips", len(videoTrack.Segments)),
		logging.Int("warnings", len(warnings)))
	return doc, warnings, nil
}

// attachTransitions adds transition materials and hangs them off the clip
// that follows the cut. Durations clamp to the shorter neighboring clip.
func (s *Serializer) attachTransitions(p *plan.Plan, doc *Document, videoTrack *Track, clips []plan.Decision) []Warning {
	var warnings []Warning
	clipAt := make(map[int]int, len(clips)) // segment index -> position in track
	for i, c := range clips {
		clipAt[c.Segment] = i
	}
	for _, d := range p.Decisions {
		if d.Type != plan.DecisionTransition {
			continue
		}
		pos, ok := clipAt[d.Segment]
		if !ok || pos == 0 {
			continue
		}
		want := usec(d.Duration())
		limit := videoTrack.Segments[pos].Target.Duration
		if prev := videoTrack.Segments[pos-1].Target.Duration; prev < limit {
			limit = prev
		}
		got := want
		if got > limit {
			got = limit
			msg := fmt.Sprintf("transition before clip %d clamped from %.2fs to %.2fs to fit its neighbors",
				pos, float64(want)/1e6, float64(got)/1e6)
			warnings = append(warnings, Warning{Code: "transition_clamped", Message: msg})
			s.logger.Warn(msg)
		}
		mat := TransitionMaterial{
			ID:       deriveID("transition", fmt.Sprintf("%d:%s:%d", pos, d.Params["kind"], got)),
			Kind:     d.Params["kind"],
			Duration: got,
		}
		doc.Materials.Transitions = append(doc.Materials.Transitions, mat)
		videoTrack.Segments[pos].ExtraRefs = append(videoTrack.Segments[pos].ExtraRefs, mat.ID)
	}
	return warnings
}

func (s *Serializer) attachGrades(p *plan.Plan, doc *Document, videoTrack *Track, clipTargets map[int]TimeRange) {
	for _, d := range p.Decisions {
		if d.Type != plan.DecisionColorGrade {
			continue
		}
		if _, ok := clipTargets[d.Segment]; !ok {
			continue
		}
		mat := EffectMaterial{
			ID:   deriveID("effect", fmt.Sprintf("%d:%s", d.Segment, d.Params["grade"])),
			Kind: "color_grade",
			Name: d.Params["grade"],
		}
		doc.Materials.Effects = append(doc.Materials.Effects, mat)
		for i := range videoTrack.Segments {
			if videoTrack.Segments[i].Source.Start == usec(d.Start) {
				videoTrack.Segments[i].ExtraRefs = append(videoTrack.Segments[i].ExtraRefs, mat.ID)
				break
			}
		}
	}
}

// textTrack places subtitle decisions over the timeline spans of their
// clips.
func (s *Serializer) textTrack(p *plan.Plan, doc *Document, clipTargets map[int]TimeRange) Track {
	track := Track{ID: deriveID("track", TrackText), Type: TrackText}
	for _, d := range p.Decisions {
		if d.Type != plan.DecisionSubtitle {
			continue
		}
		target, ok := clipTargets[d.Segment]
		if !ok {
			continue
		}
		mat := TextMaterial{
			ID:      deriveID("text-material", fmt.Sprintf("%d:%s", d.Segment, d.Params["text"])),
			Content: d.Params["text"],
			Style:   "caption",
		}
		doc.Materials.Texts = append(doc.Materials.Texts, mat)
		track.Segments = append(track.Segments, TrackSegment{
			ID:         deriveID("subtitle", fmt.Sprintf("%d:%s", d.Segment, d.Params["text"])),
			MaterialID: mat.ID,
			Source:     TimeRange{Start: usec(d.Start), Duration: usec(d.Duration())},
			Target:     target,
		})
	}
	return track
}

// audioTrack carries the background music cue across the full output.
func (s *Serializer) audioTrack(p *plan.Plan, doc *Document) Track {
	track := Track{ID: deriveID("track", TrackAudio), Type: TrackAudio}
	for _, d := range p.Decisions {
		if d.Type != plan.DecisionMusic {
			continue
		}
		volume := 0.3
		if v, ok := d.Params["volume"]; ok {
			fmt.Sscanf(v, "%f", &volume)
		}
		mat := AudioMaterial{
			ID:     deriveID("audio-material", d.Params["mood"]),
			Kind:   "background_music",
			Mood:   d.Params["mood"],
			Volume: volume,
		}
		doc.Materials.Audios = append(doc.Materials.Audios, mat)
		track.Segments = append(track.Segments, TrackSegment{
			ID:         deriveID("music", d.Params["mood"]),
			MaterialID: mat.ID,
			Source:     TimeRange{Start: 0, Duration: doc.Duration},
			Target:     TimeRange{Start: 0, Duration: doc.Duration},
		})
	}
	return track
}

// Write marshals the document and writes it atomically. A crash mid-write
// never leaves a truncated project on disk.
func (s *Serializer) Write(doc *Document, path string) error {
	data, err := doc.Marshal()
	if err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return services.Wrap(services.ErrAsset, "serializer", "write", "write project file", err)
	}
	s.logger.Info("project written",
		logging.String("path", filepath.Base(path)),
		logging.Int("bytes", len(data)))
	return nil
}

func usec(seconds float64) int64 {
	return int64(math.Round(seconds * 1e6))
}

// deriveID produces a stable UUID from content, so rebuilding the same plan
// yields the same document.
func deriveID(kind, content string) string {
	return uuid.NewSHA1(idNamespace, []byte(kind+"\x00"+content)).String()
}

// mustMarshalForID renders the document with its run-varying fields blanked
// so the derived ID depends on content only.
func mustMarshalForID(doc *Document) []byte {
	d := *doc
	d.ID = ""
	d.CreatedAt = ""
	data, err := d.Marshal()
	if err != nil {
		return []byte(d.Name)
	}
	return data
}
