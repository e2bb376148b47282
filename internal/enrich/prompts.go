package enrich

import (
	"fmt"
	"strings"

	"clipforge/internal/segmenter"
)

// Prompts are deterministic functions of the mechanical evidence only.
// Enriched fields of other segments never leak in, so output for one
// segment cannot depend on which segments finished first.

func segmentSystemPrompt(opts Options) string {
	sentences := "one sentence"
	switch opts.DetailLevel {
	case "brief":
		sentences = "a short clause"
	case "detailed":
		sentences = "two sentences"
	}
	var b strings.Builder
	b.WriteString("You annotate video scenes for an automated editor. ")
	b.WriteString("Reply with a single JSON object containing exactly these keys: ")
	fmt.Fprintf(&b, `"description" (%s), "location" (one lowercase word), `, sentences)
	b.WriteString(`"characters" (array of names or role labels, empty if none visible), `)
	b.WriteString(`"actions" (array of short verb phrases in order), `)
	b.WriteString(`"dialogue_summary" (one sentence, empty if no speech), `)
	b.WriteString(`"emotional_arc" (array of lowercase tone words in order), `)
	b.WriteString(`"visual_style" (one lowercase word), "mood" (one lowercase word), `)
	b.WriteString(`"importance" (number 0 to 1), "keywords" (array of up to 5 lowercase words).`)
	if opts.Objective != "" {
		fmt.Fprintf(&b, " Rate importance relative to a %s edit.", opts.Objective)
	}
	if len(opts.FocusAreas) > 0 {
		fmt.Fprintf(&b, " Pay particular attention to: %s.", strings.Join(opts.FocusAreas, ", "))
	}
	return b.String()
}

func segmentUserPrompt(segs []segmenter.Segment, i int, assetName string) string {
	var b strings.Builder
	if assetName != "" {
		fmt.Fprintf(&b, "Source: %s\n", assetName)
	}
	fmt.Fprintf(&b, "Scene %d of %d.\n", i+1, len(segs))
	if i > 0 {
		b.WriteString("Previous scene evidence: ")
		writeEvidence(&b, segs[i-1])
		b.WriteString("\n")
	}
	b.WriteString("This scene: ")
	writeEvidence(&b, segs[i])
	b.WriteString("\n")
	if i+1 < len(segs) {
		b.WriteString("Next scene evidence: ")
		writeEvidence(&b, segs[i+1])
		b.WriteString("\n")
	}
	b.WriteString("Annotate this scene.")
	return b.String()
}

func writeEvidence(b *strings.Builder, s segmenter.Segment) {
	fmt.Fprintf(b, "span %.1fs-%.1fs, type %s, brightness %.2f, motion %.2f",
		s.Start, s.End, s.SceneType, s.AvgBrightness, s.AvgMotion)
	if len(s.DominantColors) > 0 {
		fmt.Fprintf(b, ", colors %s", strings.Join(s.DominantColors, "/"))
	}
	if s.FaceCount > 0 {
		fmt.Fprintf(b, ", %d faces", s.FaceCount)
	}
}

func profileSystemPrompt() string {
	return `You summarize a video for an automated editor. Reply with a single JSON object containing exactly these keys: "genre" (one lowercase word), "overall_mood" (one lowercase word), "summary" (two sentences), "title" (short phrase).`
}

func profileUserPrompt(segs []segmenter.Segment, assetName string) string {
	var b strings.Builder
	if assetName != "" {
		fmt.Fprintf(&b, "Source: %s\n", assetName)
	}
	fmt.Fprintf(&b, "The video has %d scenes:\n", len(segs))
	for _, s := range segs {
		fmt.Fprintf(&b, "- ")
		writeEvidence(&b, s)
		if s.Description != "" && s.Description != "unknown" {
			fmt.Fprintf(&b, ": %s", s.Description)
		}
		b.WriteString("\n")
	}
	b.WriteString("Summarize the video.")
	return b.String()
}
