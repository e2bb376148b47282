package sampler

import (
	"image"
	"math"
	"sort"
)

// AnalyzeFrame computes the mechanical features of a single frame:
// brightness, dominant colors, a gradient-energy motion proxy, and the
// categorical scene labels derived from them. The function is pure; callers
// fill Timestamp, FrameIndex, and detector evidence.
func AnalyzeFrame(img image.Image) FrameAnalysis {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width == 0 || height == 0 {
		return FrameAnalysis{SceneType: "unknown", Composition: "unknown", EmotionalTone: "neutral"}
	}

	// Sample on a coarse grid; full-resolution scans buy nothing for these
	// aggregate features.
	stepX := width / 64
	if stepX < 1 {
		stepX = 1
	}
	stepY := height / 64
	if stepY < 1 {
		stepY = 1
	}

	var lumaSum float64
	var count int
	buckets := make(map[string]int)
	lumaGrid := make([][]float64, 0, height/stepY+1)

	for y := bounds.Min.Y; y < bounds.Max.Y; y += stepY {
		row := make([]float64, 0, width/stepX+1)
		for x := bounds.Min.X; x < bounds.Max.X; x += stepX {
			r, g, b, _ := img.At(x, y).RGBA()
			r8 := float64(r >> 8)
			g8 := float64(g >> 8)
			b8 := float64(b >> 8)
			luma := 0.299*r8 + 0.587*g8 + 0.114*b8
			lumaSum += luma
			count++
			row = append(row, luma)
			buckets[colorName(r8, g8, b8)]++
		}
		lumaGrid = append(lumaGrid, row)
	}

	brightness := lumaSum / float64(count) / 255.0
	motion := gradientEnergy(lumaGrid)
	colors := topColors(buckets, 3)

	fa := FrameAnalysis{
		Brightness:      brightness,
		MotionIntensity: motion,
		DominantColors:  colors,
	}
	fa.SceneType = classifyScene(brightness, motion)
	fa.Composition = classifyComposition(lumaGrid)
	fa.EmotionalTone = classifyTone(brightness, motion, colors)
	return fa
}

// gradientEnergy is a single-frame motion proxy: mean absolute luma gradient
// over the sampled grid, normalized to [0,1]. High-frequency detail and
// motion blur both raise it, which tracks cut-worthiness well enough for
// segmentation without needing frame pairs.
func gradientEnergy(grid [][]float64) float64 {
	var sum float64
	var n int
	for y := 0; y < len(grid); y++ {
		for x := 0; x < len(grid[y]); x++ {
			if x+1 < len(grid[y]) {
				sum += math.Abs(grid[y][x+1] - grid[y][x])
				n++
			}
			if y+1 < len(grid) && x < len(grid[y+1]) {
				sum += math.Abs(grid[y+1][x] - grid[y][x])
				n++
			}
		}
	}
	if n == 0 {
		return 0
	}
	// 80 is an empirical ceiling for mean gradient on 8-bit luma; beyond it
	// everything reads as maximal churn.
	v := sum / float64(n) / 80.0
	if v > 1 {
		v = 1
	}
	return v
}

func colorName(r, g, b float64) string {
	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	if maxC < 40 {
		return "black"
	}
	if minC > 215 {
		return "white"
	}
	if maxC-minC < 28 {
		return "gray"
	}
	switch {
	case r >= g && r >= b:
		if g > b+30 {
			return "orange"
		}
		return "red"
	case g >= r && g >= b:
		if b > r+30 {
			return "teal"
		}
		return "green"
	default:
		if r > g+30 {
			return "purple"
		}
		return "blue"
	}
}

func topColors(buckets map[string]int, n int) []string {
	type kv struct {
		name  string
		count int
	}
	all := make([]kv, 0, len(buckets))
	for name, c := range buckets {
		all = append(all, kv{name, c})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].count != all[j].count {
			return all[i].count > all[j].count
		}
		return all[i].name < all[j].name
	})
	if len(all) > n {
		all = all[:n]
	}
	out := make([]string, 0, len(all))
	for _, e := range all {
		out = append(out, e.name)
	}
	return out
}

func classifyScene(brightness, motion float64) string {
	switch {
	case motion > 0.6:
		return "action"
	case brightness < 0.2:
		return "night_scene"
	case brightness > 0.8:
		return "bright_scene"
	case motion < 0.15:
		return "static_shot"
	default:
		return "wide_shot"
	}
}

// classifyComposition looks at where luma mass concentrates on the grid:
// center-weighted frames read as centered, strong left/right imbalance as
// rule-of-thirds placement.
func classifyComposition(grid [][]float64) string {
	if len(grid) == 0 || len(grid[0]) == 0 {
		return "unknown"
	}
	cols := len(grid[0])
	var left, center, right float64
	for _, row := range grid {
		for x, v := range row {
			switch {
			case x < cols/3:
				left += v
			case x >= cols*2/3:
				right += v
			default:
				center += v
			}
		}
	}
	total := left + center + right
	if total == 0 {
		return "unknown"
	}
	switch {
	case center/total > 0.45:
		return "centered"
	case left/total > 0.45 || right/total > 0.45:
		return "rule_of_thirds"
	default:
		return "balanced"
	}
}

func classifyTone(brightness, motion float64, colors []string) string {
	warm := 0
	cold := 0
	for _, c := range colors {
		switch c {
		case "red", "orange":
			warm++
		case "blue", "teal", "purple":
			cold++
		}
	}
	switch {
	case motion > 0.6 && brightness > 0.5:
		return "energetic"
	case motion > 0.6:
		return "tense"
	case brightness < 0.2:
		return "somber"
	case warm > cold && brightness > 0.5:
		return "warm"
	case cold > warm:
		return "calm"
	default:
		return "neutral"
	}
}

// heuristicDetector is the default face/object source when no vision backend
// is wired in. It emits coarse scene-level object labels only; face counts
// stay zero rather than fabricating detections.
type heuristicDetector struct{}

func (heuristicDetector) Detect(frame image.Image) (int, []string) {
	fa := AnalyzeFrame(frame)
	var objects []string
	if fa.Brightness > 0.75 {
		objects = append(objects, "sky")
	}
	for _, c := range fa.DominantColors {
		if c == "green" {
			objects = append(objects, "vegetation")
			break
		}
	}
	return 0, objects
}
