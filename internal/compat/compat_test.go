package compat

import (
	"errors"
	"fmt"
	"testing"

	"clipforge/internal/project"
	"clipforge/internal/services"
)

func minimalDoc() *project.Document {
	return &project.Document{
		AppVersion: "13.0.0",
		Duration:   30_000_000,
		Tracks: []project.Track{
			{Type: project.TrackVideo, Segments: []project.TrackSegment{{}}},
			{Type: project.TrackText},
			{Type: project.TrackAudio},
		},
	}
}

func TestCheckValidDocument(t *testing.T) {
	for _, v := range Versions() {
		t.Run(v, func(t *testing.T) {
			r, err := Check(minimalDoc(), v)
			if err != nil {
				t.Fatal(err)
			}
			if !r.Valid {
				t.Errorf("minimal document invalid for %s: %+v", v, r.Issues)
			}
		})
	}
}

func TestCheckUnknownVersion(t *testing.T) {
	_, err := Check(minimalDoc(), "11.0.0")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestCheckAcceptsAtLimit(t *testing.T) {
	doc := minimalDoc()
	doc.Tracks = nil
	for i := 0; i < 20; i++ {
		doc.Tracks = append(doc.Tracks, project.Track{Type: project.TrackVideo})
	}
	segs := make([]project.TrackSegment, 1000)
	doc.Tracks[0].Segments = segs
	doc.Duration = int64(24) * 60 * 60 * 1_000_000
	r, err := Check(doc, "13.0.0")
	if err != nil {
		t.Fatal(err)
	}
	if !r.Valid {
		t.Errorf("document exactly at the limits rejected: %+v", r.Issues)
	}
}

func TestCheckRejectsOverLimit(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*project.Document)
		wantCode string
	}{
		{
			"tracks", func(d *project.Document) {
				for i := 0; i < 21; i++ {
					d.Tracks = append(d.Tracks, project.Track{Type: project.TrackVideo})
				}
			}, "too_many_tracks",
		},
		{
			"clips", func(d *project.Document) {
				d.Tracks[0].Segments = make([]project.TrackSegment, 1001)
			}, "too_many_clips",
		},
		{
			"duration", func(d *project.Document) {
				d.Duration = int64(25) * 60 * 60 * 1_000_000
			}, "duration_exceeded",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := minimalDoc()
			tt.mutate(doc)
			r, err := Check(doc, "13.0.0")
			if err != nil {
				t.Fatal(err)
			}
			if r.Valid {
				t.Fatal("over-limit document passed")
			}
			found := false
			for _, is := range r.Issues {
				if is.Code == tt.wantCode {
					found = true
				}
			}
			if !found {
				t.Errorf("issues = %+v, want code %s", r.Issues, tt.wantCode)
			}
		})
	}
}

func TestCheckTransitionGating(t *testing.T) {
	doc := minimalDoc()
	doc.Materials.Transitions = []project.TransitionMaterial{{ID: "t1", Kind: "wipe", Duration: 500_000}}
	tests := []struct {
		version string
		valid   bool
	}{
		{"13.0.0", true},
		{"12.8.0", false},
		{"12.7.0", false},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			r, err := Check(doc, tt.version)
			if err != nil {
				t.Fatal(err)
			}
			if r.Valid != tt.valid {
				t.Errorf("wipe in %s: valid = %v, want %v (%+v)", tt.version, r.Valid, tt.valid, r.Issues)
			}
		})
	}
}

func TestCheckColorGradeGating(t *testing.T) {
	doc := minimalDoc()
	doc.Materials.Effects = []project.EffectMaterial{{ID: "e1", Kind: "color_grade", Name: "warm"}}
	r, err := Check(doc, "12.7.0")
	if err != nil {
		t.Fatal(err)
	}
	if r.Valid {
		t.Error("color grade accepted by a version without grading")
	}
	r, err = Check(doc, "12.8.0")
	if err != nil {
		t.Fatal(err)
	}
	if !r.Valid {
		t.Errorf("color grade rejected by 12.8.0: %+v", r.Issues)
	}
}

func TestVersionsOrder(t *testing.T) {
	vs := Versions()
	if len(vs) != 3 {
		t.Fatalf("got %d versions", len(vs))
	}
	if vs[0] != "13.0.0" {
		t.Errorf("versions = %v, want newest first", vs)
	}
}

func TestCheckAll(t *testing.T) {
	doc := minimalDoc()
	doc.Materials.Transitions = []project.TransitionMaterial{{ID: "t1", Kind: "dissolve", Duration: 500_000}}
	results := CheckAll(doc)
	if len(results) != 3 {
		t.Fatalf("got %d results", len(results))
	}
	byVersion := map[string]bool{}
	for _, r := range results {
		byVersion[r.Version] = r.Valid
	}
	if !byVersion["13.0.0"] || !byVersion["12.8.0"] || byVersion["12.7.0"] {
		t.Errorf("dissolve gating wrong: %v", byVersion)
	}
}

func ExampleCheck() {
	doc := &project.Document{Duration: 1_000_000, Tracks: []project.Track{{Type: project.TrackVideo}}}
	r, _ := Check(doc, "13.0.0")
	fmt.Println(r.Valid)
	// Output: true
}
