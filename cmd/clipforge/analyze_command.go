package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipforge/internal/logging"
	"clipforge/internal/sampler"
	"clipforge/internal/segmenter"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var strategy string

	cmd := &cobra.Command{
		Use:   "analyze <asset>",
		Short: "Sample an asset and show its scene segments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			smp, cfg, err := ctx.newSampler()
			if err != nil {
				return err
			}
			opts := sampler.Options{
				IntervalSeconds: cfg.Sampling.IntervalSeconds,
				Strategy:        cfg.Sampling.Strategy,
				MaxFrames:       cfg.Sampling.MaxFrames,
				Workers:         cfg.Sampling.Workers,
				TempDir:         cfg.Paths.TempDir,
			}
			if strategy != "" {
				opts.Strategy = strategy
			}
			result, err := smp.Sample(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			sg := segmenter.New(logging.NewComponentLogger(logger, "segmenter"), segmenter.Options{
				Threshold:             cfg.Segmentation.Threshold,
				MinSceneLengthSeconds: cfg.Segmentation.MinSceneLengthSeconds,
				BrightnessWeight:      cfg.Segmentation.BrightnessWeight,
				MotionWeight:          cfg.Segmentation.MotionWeight,
				ColorWeight:           cfg.Segmentation.ColorWeight,
			})
			segments, err := sg.Segment(result)
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, struct {
					Asset    string              `json:"asset"`
					Duration float64             `json:"duration"`
					Frames   int                 `json:"frames"`
					Segments []segmenter.Segment `json:"segments"`
				}{result.AssetPath, result.TotalDuration, len(result.Frames), segments})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %.1fs, %d frames sampled, %d segments\n\n",
				result.AssetPath, result.TotalDuration, len(result.Frames), len(segments))
			rows := make([][]string, 0, len(segments))
			for _, s := range segments {
				rows = append(rows, []string{
					fmt.Sprintf("%d", s.Index),
					fmt.Sprintf("%.1fs", s.Start),
					fmt.Sprintf("%.1fs", s.End),
					displayLabel(s.SceneType),
					fmt.Sprintf("%.2f", s.AvgBrightness),
					fmt.Sprintf("%.2f", s.AvgMotion),
					fmt.Sprintf("%.2f", s.Confidence),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Start", "End", "Scene", "Brightness", "Motion", "Confidence"},
				rows,
				[]columnAlignment{alignRight, alignRight, alignRight, alignLeft, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of a table")
	cmd.Flags().StringVar(&strategy, "strategy", "", "Override the sampling strategy (uniform, scenes, keyframe)")
	return cmd
}
