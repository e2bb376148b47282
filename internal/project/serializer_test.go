package project

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"clipforge/internal/logging"
	"clipforge/internal/plan"
	"clipforge/internal/services"
)

func testPlan() *plan.Plan {
	return &plan.Plan{
		AssetPath:      "/media/clip.mp4",
		SourceDuration: 60,
		Objective:      "highlight",
		Decisions: []plan.Decision{
			{Type: plan.DecisionTrim, Start: 0, End: 8, Segment: 0},
			{Type: plan.DecisionSubtitle, Start: 0, End: 8, Segment: 0, Params: map[string]string{"text": "opening shot"}},
			{Type: plan.DecisionMusic, Start: 0, End: 50, Segment: 0, Params: map[string]string{"mood": "calm", "volume": "0.3"}},
			{Type: plan.DecisionTrim, Start: 20, End: 30, Segment: 2},
			{Type: plan.DecisionTransition, Start: 20, End: 20.5, Segment: 2, Params: map[string]string{"kind": "fade", "duration": "0.50"}},
			{Type: plan.DecisionTrim, Start: 40, End: 50, Segment: 4},
			{Type: plan.DecisionTransition, Start: 40, End: 40.5, Segment: 4, Params: map[string]string{"kind": "fade", "duration": "0.50"}},
		},
		EstimatedDuration: 28,
	}
}

func testSource() Source {
	return Source{Width: 1920, Height: 1080, FPS: 30}
}

func newTest() *Serializer {
	return New(logging.NewNop(), "My Cut", "13.0.0")
}

func TestBuildDocumentShape(t *testing.T) {
	doc, warnings, err := newTest().Build(testPlan(), testSource())
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %+v", warnings)
	}
	if len(doc.Tracks) != 3 {
		t.Fatalf("got %d tracks, want video, text, audio", len(doc.Tracks))
	}
	if doc.Tracks[0].Type != TrackVideo || doc.Tracks[1].Type != TrackText || doc.Tracks[2].Type != TrackAudio {
		t.Errorf("track order = %s, %s, %s", doc.Tracks[0].Type, doc.Tracks[1].Type, doc.Tracks[2].Type)
	}
	if len(doc.Tracks[0].Segments) != 3 {
		t.Errorf("video track has %d clips, want 3", len(doc.Tracks[0].Segments))
	}
	// 8 + 10 + 10 seconds in microseconds.
	if doc.Duration != 28_000_000 {
		t.Errorf("duration = %d, want 28000000", doc.Duration)
	}
	if doc.AppVersion != "13.0.0" || doc.Name != "My Cut" {
		t.Errorf("header = %q / %q", doc.AppVersion, doc.Name)
	}
}

func TestBuildTimelineIsGapless(t *testing.T) {
	doc, _, err := newTest().Build(testPlan(), testSource())
	if err != nil {
		t.Fatal(err)
	}
	var cursor int64
	for i, s := range doc.Tracks[0].Segments {
		if s.Target.Start != cursor {
			t.Errorf("clip %d starts at %d, want %d", i, s.Target.Start, cursor)
		}
		cursor = s.Target.End()
	}
	if cursor != doc.Duration {
		t.Errorf("timeline ends at %d, document duration %d", cursor, doc.Duration)
	}
}

func TestBuildIdempotent(t *testing.T) {
	s := newTest()
	s.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }
	doc1, _, err := s.Build(testPlan(), testSource())
	if err != nil {
		t.Fatal(err)
	}
	// A later rebuild only moves the creation timestamp.
	s.now = func() time.Time { return time.Date(2026, 3, 2, 11, 30, 0, 0, time.UTC) }
	doc2, _, err := s.Build(testPlan(), testSource())
	if err != nil {
		t.Fatal(err)
	}
	if doc1.ID != doc2.ID {
		t.Errorf("same plan derived different document IDs: %s vs %s", doc1.ID, doc2.ID)
	}
	doc1.CreatedAt = ""
	doc2.CreatedAt = ""
	b1, err := doc1.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	b2, err := doc2.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b1, b2) {
		t.Error("same plan produced different documents")
	}
}

func TestBuildTransitionClamped(t *testing.T) {
	p := testPlan()
	// A transition longer than the 8s first clip and the 10s second clip
	// cannot fit; it must clamp to the shorter neighbor.
	p.Decisions[4].End = p.Decisions[4].Start + 12
	doc, warnings, err := newTest().Build(p, testSource())
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 1 || warnings[0].Code != "transition_clamped" {
		t.Fatalf("warnings = %+v, want one transition_clamped", warnings)
	}
	if len(doc.Materials.Transitions) != 2 {
		t.Fatalf("got %d transition materials", len(doc.Materials.Transitions))
	}
	var clamped int64
	for _, m := range doc.Materials.Transitions {
		if m.Duration > clamped {
			clamped = m.Duration
		}
	}
	if clamped > 8_000_000 {
		t.Errorf("clamped transition is %d, exceeds the 8s neighbor", clamped)
	}
}

func TestBuildToleratesCutMarkers(t *testing.T) {
	p := testPlan()
	p.Decisions = append(p.Decisions, plan.Decision{Type: plan.DecisionCut, Start: 20, End: 20, Segment: 2, Confidence: 0.4})
	doc, _, err := newTest().Build(p, testSource())
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Tracks[0].Segments) != 3 {
		t.Errorf("cut marker changed the clip layout: %d clips", len(doc.Tracks[0].Segments))
	}
}

func TestBuildRejectsOutOfCoverage(t *testing.T) {
	p := testPlan()
	p.Decisions = append(p.Decisions, plan.Decision{Type: plan.DecisionTrim, Start: 55, End: 70, Segment: 9})
	_, _, err := newTest().Build(p, testSource())
	if !errors.Is(err, services.ErrSchema) {
		t.Fatalf("err = %v, want ErrSchema", err)
	}
}

func TestBuildRejectsEmptyPlan(t *testing.T) {
	_, _, err := newTest().Build(&plan.Plan{SourceDuration: 10}, testSource())
	if !errors.Is(err, services.ErrSchema) {
		t.Fatalf("err = %v, want ErrSchema", err)
	}
}

func TestWriteAndParseRoundTrip(t *testing.T) {
	s := newTest()
	doc, _, err := s.Build(testPlan(), testSource())
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "draft_content.json")
	if err := s.Write(doc, path); err != nil {
		t.Fatal(err)
	}
	back, err := Parse(path)
	if err != nil {
		t.Fatal(err)
	}
	b1, _ := doc.Marshal()
	b2, _ := back.Marshal()
	if !bytes.Equal(b1, b2) {
		t.Error("document changed across a write/parse round trip")
	}
}

func TestParseRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "draft_content.json")
	if err := writeRaw(path, []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	_, err := Parse(path)
	if !errors.Is(err, services.ErrSchema) {
		t.Fatalf("err = %v, want ErrSchema", err)
	}
}

func TestValidateCatchesUnknownMaterial(t *testing.T) {
	doc, _, err := newTest().Build(testPlan(), testSource())
	if err != nil {
		t.Fatal(err)
	}
	doc.Tracks[0].Segments[0].MaterialID = "nope"
	if err := doc.Validate(); !errors.Is(err, services.ErrSchema) {
		t.Fatalf("err = %v, want ErrSchema", err)
	}
}

func TestValidateCatchesOverlap(t *testing.T) {
	doc, _, err := newTest().Build(testPlan(), testSource())
	if err != nil {
		t.Fatal(err)
	}
	doc.Tracks[0].Segments[1].Target.Start = 0
	if err := doc.Validate(); !errors.Is(err, services.ErrSchema) {
		t.Fatalf("err = %v, want ErrSchema", err)
	}
}

func writeRaw(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}

func TestUsec(t *testing.T) {
	if v := usec(1.5); v != 1_500_000 {
		t.Errorf("usec(1.5) = %d", v)
	}
	if v := usec(0.0000005); v != 1 {
		t.Errorf("usec rounds, got %d", v)
	}
}
