package project

import (
	"encoding/json"
	"fmt"
	"os"

	"clipforge/internal/services"
)

// Time values in a document are microseconds, the editor's native unit.

// TimeRange is a half-open span in microseconds.
type TimeRange struct {
	Start    int64 `json:"start"`
	Duration int64 `json:"duration"`
}

func (r TimeRange) End() int64 { return r.Start + r.Duration }

// Document is the serialized editor project. Field order and ID derivation
// are fixed so the same plan always writes byte-identical output.
type Document struct {
	ID           string    `json:"id"`
	AppVersion   string    `json:"app_version"`
	Name         string    `json:"name"`
	CreatedAt    string    `json:"created_at"`
	FPS          float64   `json:"fps"`
	Duration     int64     `json:"duration"`
	CanvasWidth  int       `json:"canvas_width"`
	CanvasHeight int       `json:"canvas_height"`
	Materials    Materials `json:"materials"`
	Tracks       []Track   `json:"tracks"`
}

// Materials is the asset pool referenced by track segments.
type Materials struct {
	Videos      []VideoMaterial      `json:"videos"`
	Audios      []AudioMaterial      `json:"audios"`
	Texts       []TextMaterial       `json:"texts"`
	Transitions []TransitionMaterial `json:"transitions"`
	Effects     []EffectMaterial     `json:"effects"`
}

type VideoMaterial struct {
	ID       string `json:"id"`
	Path     string `json:"path"`
	Duration int64  `json:"duration"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

type AudioMaterial struct {
	ID     string  `json:"id"`
	Kind   string  `json:"kind"`
	Mood   string  `json:"mood,omitempty"`
	Volume float64 `json:"volume"`
}

type TextMaterial struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Style   string `json:"style"`
}

type TransitionMaterial struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	Duration int64  `json:"duration"`
}

type EffectMaterial struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
	Name string `json:"name"`
}

// Track types, in the order they appear in every document.
const (
	TrackVideo = "video"
	TrackText  = "text"
	TrackAudio = "audio"
)

type Track struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Segments []TrackSegment `json:"segments"`
}

// TrackSegment places a material on the timeline. Source is the span in the
// source asset; Target is where it lands in the output.
type TrackSegment struct {
	ID         string    `json:"id"`
	MaterialID string    `json:"material_id"`
	Source     TimeRange `json:"source"`
	Target     TimeRange `json:"target"`
	ExtraRefs  []string  `json:"extra_refs,omitempty"`
}

// Validate checks internal consistency: every segment points at a known
// material, target spans within a track never overlap, and the document
// duration covers the last segment.
func (d *Document) Validate() error {
	known := make(map[string]bool)
	for _, m := range d.Materials.Videos {
		known[m.ID] = true
	}
	for _, m := range d.Materials.Audios {
		known[m.ID] = true
	}
	for _, m := range d.Materials.Texts {
		known[m.ID] = true
	}
	for _, m := range d.Materials.Transitions {
		known[m.ID] = true
	}
	for _, m := range d.Materials.Effects {
		known[m.ID] = true
	}
	for _, t := range d.Tracks {
		var prevEnd int64
		for i, s := range t.Segments {
			if !known[s.MaterialID] {
				return services.Wrap(services.ErrSchema, "serializer", "validate",
					fmt.Sprintf("track %s segment %d references unknown material %s", t.Type, i, s.MaterialID), nil)
			}
			for _, ref := range s.ExtraRefs {
				if !known[ref] {
					return services.Wrap(services.ErrSchema, "serializer", "validate",
						fmt.Sprintf("track %s segment %d references unknown material %s", t.Type, i, ref), nil)
				}
			}
			if s.Target.Start < prevEnd {
				return services.Wrap(services.ErrSchema, "serializer", "validate",
					fmt.Sprintf("track %s segment %d overlaps its predecessor", t.Type, i), nil)
			}
			if s.Target.Duration <= 0 {
				return services.Wrap(services.ErrSchema, "serializer", "validate",
					fmt.Sprintf("track %s segment %d has non-positive duration", t.Type, i), nil)
			}
			prevEnd = s.Target.End()
			if prevEnd > d.Duration {
				return services.Wrap(services.ErrSchema, "serializer", "validate",
					fmt.Sprintf("track %s segment %d extends past the document duration", t.Type, i), nil)
			}
		}
	}
	return nil
}

// Marshal renders the document as deterministic, indented JSON.
func (d *Document) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, services.Wrap(services.ErrSchema, "serializer", "marshal", "encode project document", err)
	}
	return append(data, '\n'), nil
}

// Parse reads a document back from disk and validates it.
func Parse(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrAsset, "serializer", "parse", "read project file", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, services.Wrap(services.ErrSchema, "serializer", "parse", "decode project file", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}
