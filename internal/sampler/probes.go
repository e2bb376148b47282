package sampler

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"clipforge/internal/logging"
)

// runSceneProbe asks ffmpeg to emit showinfo lines for frames that pass the
// select filter. A positive threshold selects scene changes; a negative one
// selects keyframes. Output goes to stderr, which is what we capture.
func runSceneProbe(ctx context.Context, ffmpegBin, assetPath string, threshold float64) (string, error) {
	var filter string
	if threshold > 0 {
		filter = fmt.Sprintf("select='gt(scene,%.2f)',showinfo", threshold)
	} else {
		filter = "select='eq(pict_type,I)',showinfo"
	}
	cmd := exec.CommandContext(ctx, ffmpegBin,
		"-i", assetPath,
		"-vf", filter,
		"-f", "null", "-")
	out, err := cmd.CombinedOutput()
	if err != nil && len(out) == 0 {
		return "", fmt.Errorf("scene probe: %w", err)
	}
	return string(out), nil
}

var showinfoTimeRe = regexp.MustCompile(`pts_time:([0-9]+(?:\.[0-9]+)?)`)

// parseShowinfoTimes extracts pts_time values from showinfo filter output.
func parseShowinfoTimes(output string) []float64 {
	var times []float64
	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, "Parsed_showinfo") {
			continue
		}
		m := showinfoTimeRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		ts, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		times = append(times, ts)
	}
	sort.Float64s(times)
	return times
}

// runAudioProbe runs a silencedetect pass over the asset's audio and returns
// the raw filter log.
func runAudioProbe(ctx context.Context, ffmpegBin, assetPath string) (string, error) {
	cmd := exec.CommandContext(ctx, ffmpegBin,
		"-i", assetPath,
		"-af", "silencedetect=noise=-35dB:d=0.6,volumedetect",
		"-f", "null", "-")
	out, err := cmd.CombinedOutput()
	if err != nil && len(out) == 0 {
		return "", fmt.Errorf("audio probe: %w", err)
	}
	return string(out), nil
}

var (
	silenceStartRe = regexp.MustCompile(`silence_start:\s*(-?[0-9]+(?:\.[0-9]+)?)`)
	silenceEndRe   = regexp.MustCompile(`silence_end:\s*(-?[0-9]+(?:\.[0-9]+)?)`)
	meanVolumeRe   = regexp.MustCompile(`mean_volume:\s*(-?[0-9]+(?:\.[0-9]+)?)\s*dB`)
)

// parseAudioSpans folds silencedetect output into an alternating sequence of
// silence and non-silence spans covering [0, duration]. Non-silence spans
// are classified as speech when the asset's mean level sits in the usual
// dialogue range, music otherwise.
func parseAudioSpans(output string, duration float64) []AudioSpan {
	meanVolume := -20.0
	if m := meanVolumeRe.FindStringSubmatch(output); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			meanVolume = v
		}
	}
	voiced := AudioSpeech
	if meanVolume > -14 {
		// Hot, dense levels read as mixed music rather than dialogue.
		voiced = AudioMusic
	}

	type silence struct{ start, end float64 }
	var silences []silence
	var open *silence
	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if m := silenceStartRe.FindStringSubmatch(line); m != nil {
			v, err := strconv.ParseFloat(m[1], 64)
			if err == nil {
				if v < 0 {
					v = 0
				}
				open = &silence{start: v, end: duration}
			}
			continue
		}
		if m := silenceEndRe.FindStringSubmatch(line); m != nil && open != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				open.end = v
			}
			silences = append(silences, *open)
			open = nil
		}
	}
	if open != nil {
		silences = append(silences, *open)
	}

	var spans []AudioSpan
	cursor := 0.0
	for _, s := range silences {
		if s.start > cursor {
			spans = append(spans, AudioSpan{Start: cursor, End: s.start, Kind: voiced, Level: meanVolume})
		}
		end := s.end
		if end > duration {
			end = duration
		}
		if end > s.start {
			spans = append(spans, AudioSpan{Start: s.start, End: end, Kind: AudioSilence, Level: -60})
		}
		cursor = end
	}
	if cursor < duration {
		spans = append(spans, AudioSpan{Start: cursor, End: duration, Kind: voiced, Level: meanVolume})
	}
	return spans
}

func (s *Sampler) sampleAudio(ctx context.Context, assetPath string, info *assetInfo) ([]AudioSpan, error) {
	if !info.hasAudio {
		return nil, nil
	}
	out, err := s.audioProbe(ctx, s.ffmpegBin, assetPath)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		// Audio features degrade gracefully; the run continues without spans.
		s.logger.Warn("audio probe failed, continuing without audio spans", logging.Error(err))
		return nil, nil
	}
	return parseAudioSpans(out, info.duration), nil
}
