package plan

import (
	"clipforge/internal/enrich"
)

// Decision types, in tie-break priority order for decisions sharing a start
// time: structural cuts come first, then transitions, then overlays.
const (
	DecisionTrim       = "trim"
	DecisionCut        = "cut"
	DecisionTransition = "transition"
	DecisionSubtitle   = "subtitle"
	DecisionMusic      = "music"
	DecisionColorGrade = "color_grade"
)

var typePriority = map[string]int{
	DecisionTrim:       0,
	DecisionCut:        1,
	DecisionTransition: 2,
	DecisionSubtitle:   3,
	DecisionMusic:      4,
	DecisionColorGrade: 5,
}

// Decision is one editing operation anchored to a source-time span. Params
// hold the type-specific settings as strings so every decision serializes
// the same way.
type Decision struct {
	Type       string            `json:"type"`
	Start      float64           `json:"start"`
	End        float64           `json:"end"`
	Segment    int               `json:"segment"`
	Params     map[string]string `json:"params,omitempty"`
	Reason     string            `json:"reason,omitempty"`
	Confidence float64           `json:"confidence"`
}

// Duration returns the span length in seconds.
func (d Decision) Duration() float64 { return d.End - d.Start }

// Plan is the complete edit decision list for one asset. Decisions are
// ordered by start time, ties broken by type priority, so two syntheses
// over the same input produce byte-identical plans.
type Plan struct {
	AssetPath         string              `json:"asset_path"`
	SourceDuration    float64             `json:"source_duration"`
	Objective         string              `json:"objective"`
	Pacing            string              `json:"pacing"`
	TransitionStyle   string              `json:"transition_style"`
	ColorGrade        string              `json:"color_grade"`
	Profile           enrich.AssetProfile `json:"profile"`
	Decisions         []Decision          `json:"decisions"`
	EstimatedDuration float64             `json:"estimated_duration"`
	Complexity        float64             `json:"complexity"`
	Degraded          int                 `json:"degraded,omitempty"`
}

// Clips returns the trim decisions in order; these define the output
// timeline's video content.
func (p *Plan) Clips() []Decision {
	var out []Decision
	for _, d := range p.Decisions {
		if d.Type == DecisionTrim {
			out = append(out, d)
		}
	}
	return out
}
