package compat

import (
	"fmt"
	"sort"

	"clipforge/internal/project"
	"clipforge/internal/services"
)

// Capabilities describes what one editor version accepts. Limits come from
// observed editor behavior, not published documentation; exceeding them
// makes the editor refuse or silently truncate the project.
type Capabilities struct {
	Version          string
	MaxTracks        int
	MaxClipsPerTrack int
	MaxDurationUsec  int64
	TransitionKinds  map[string]bool
	ColorGrade       bool
}

const dayUsec = int64(24) * 60 * 60 * 1_000_000

var tables = map[string]Capabilities{
	"13.0.0": {
		Version:          "13.0.0",
		MaxTracks:        20,
		MaxClipsPerTrack: 1000,
		MaxDurationUsec:  dayUsec,
		TransitionKinds:  map[string]bool{"fade": true, "dissolve": true, "wipe": true},
		ColorGrade:       true,
	},
	"12.8.0": {
		Version:          "12.8.0",
		MaxTracks:        20,
		MaxClipsPerTrack: 1000,
		MaxDurationUsec:  dayUsec,
		TransitionKinds:  map[string]bool{"fade": true, "dissolve": true},
		ColorGrade:       true,
	},
	"12.7.0": {
		Version:          "12.7.0",
		MaxTracks:        16,
		MaxClipsPerTrack: 500,
		MaxDurationUsec:  dayUsec,
		TransitionKinds:  map[string]bool{"fade": true},
		ColorGrade:       false,
	},
}

// Versions lists the known target versions, newest first.
func Versions() []string {
	out := make([]string, 0, len(tables))
	for v := range tables {
		out = append(out, v)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out
}

// Lookup returns the capability table for a version.
func Lookup(version string) (Capabilities, bool) {
	c, ok := tables[version]
	return c, ok
}

// Issue is one compatibility violation.
type Issue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Result is the outcome of a check. Valid means the document can be opened
// by the target version as-is.
type Result struct {
	Version string  `json:"version"`
	Valid   bool    `json:"valid"`
	Issues  []Issue `json:"issues,omitempty"`
}

// Check verifies a document against a target version. It is pure: no
// logging, no IO, same input same result. An unknown version is a
// validation error rather than an Issue, since no table can be consulted.
func Check(doc *project.Document, version string) (Result, error) {
	caps, ok := tables[version]
	if !ok {
		return Result{}, services.Wrap(services.ErrValidation, "compat", "check",
			fmt.Sprintf("unknown target version %q (known: %v)", version, Versions()), nil)
	}
	var issues []Issue

	if len(doc.Tracks) > caps.MaxTracks {
		issues = append(issues, Issue{
			Code:    "too_many_tracks",
			Message: fmt.Sprintf("%d tracks exceeds the %d allowed by %s", len(doc.Tracks), caps.MaxTracks, version),
		})
	}
	for _, t := range doc.Tracks {
		if len(t.Segments) > caps.MaxClipsPerTrack {
			issues = append(issues, Issue{
				Code:    "too_many_clips",
				Message: fmt.Sprintf("%s track holds %d clips, limit is %d in %s", t.Type, len(t.Segments), caps.MaxClipsPerTrack, version),
			})
		}
	}
	if doc.Duration > caps.MaxDurationUsec {
		issues = append(issues, Issue{
			Code:    "duration_exceeded",
			Message: fmt.Sprintf("timeline runs %.1fh, limit is %.0fh", float64(doc.Duration)/3.6e9, float64(caps.MaxDurationUsec)/3.6e9),
		})
	}
	for _, m := range doc.Materials.Transitions {
		if !caps.TransitionKinds[m.Kind] {
			issues = append(issues, Issue{
				Code:    "unsupported_transition",
				Message: fmt.Sprintf("transition kind %q is not available in %s", m.Kind, version),
			})
		}
	}
	if !caps.ColorGrade {
		for _, m := range doc.Materials.Effects {
			if m.Kind == "color_grade" {
				issues = append(issues, Issue{
					Code:    "unsupported_effect",
					Message: fmt.Sprintf("color grade %q is not available in %s", m.Name, version),
				})
			}
		}
	}

	return Result{Version: version, Valid: len(issues) == 0, Issues: issues}, nil
}

// CheckAll runs the document against every known version, newest first.
func CheckAll(doc *project.Document) []Result {
	var out []Result
	for _, v := range Versions() {
		r, err := Check(doc, v)
		if err != nil {
			continue
		}
		out = append(out, r)
	}
	return out
}
