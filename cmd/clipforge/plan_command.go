package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"clipforge/internal/enrich"
	"clipforge/internal/logging"
	"clipforge/internal/plan"
	"clipforge/internal/sampler"
	"clipforge/internal/segmenter"
	"clipforge/internal/services/llm"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var objective string

	cmd := &cobra.Command{
		Use:   "plan <asset>",
		Short: "Synthesize an edit plan without writing a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			smp, cfg, err := ctx.newSampler()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if objective != "" {
				cfg.Editing.Objective = objective
			}

			result, err := smp.Sample(cmd.Context(), args[0], sampler.Options{
				IntervalSeconds: cfg.Sampling.IntervalSeconds,
				Strategy:        cfg.Sampling.Strategy,
				MaxFrames:       cfg.Sampling.MaxFrames,
				Workers:         cfg.Sampling.Workers,
				TempDir:         cfg.Paths.TempDir,
			})
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
			client := llm.NewClient(llm.Config{
				APIKey:         cfg.Inference.APIKey,
				BaseURL:        cfg.Inference.BaseURL,
				Model:          cfg.Inference.Model,
				TimeoutSeconds: cfg.Inference.TimeoutSeconds,
				RetryAttempts:  cfg.Inference.RetryAttempts,
			})
			enricher := enrich.New(logging.NewComponentLogger(logger, "enricher"), client)
			enriched, err := enricher.Enrich(cmd.Context(), segments, enrich.Options{
				MaxConcurrent: cfg.Inference.MaxConcurrent,
				AssetName:     filepath.Base(args[0]),
				Objective:     cfg.Editing.Objective,
				FocusAreas:    cfg.Enrichment.FocusAreas,
				DetailLevel:   cfg.Enrichment.DetailLevel,
			})
			if err != nil {
				return err
			}
			sy := plan.New(logging.NewComponentLogger(logger, "planner"), plan.Options{
				Objective:            cfg.Editing.Objective,
				Pacing:               cfg.Editing.Pacing,
				TransitionStyle:      cfg.Editing.TransitionStyle,
				ColorGrade:           cfg.Editing.ColorGrade,
				TrimImportanceFloor:  cfg.Editing.TrimImportanceFloor,
				MaxTransitionSeconds: cfg.Editing.MaxTransitionSeconds,
				HardCutThreshold:     cfg.Editing.HardCutThreshold,
			})
			editPlan, err := sy.Synthesize(plan.Input{
				AssetPath:  result.AssetPath,
				Duration:   result.TotalDuration,
				Segments:   enriched.Segments,
				AudioSpans: result.AudioSpans,
				Profile:    enriched.Profile,
			})
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, editPlan)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n", editPlan.Describe())
			if editPlan.Profile.Title != "" {
				fmt.Fprintf(out, "Title: %s  Genre: %s  Mood: %s\n",
					editPlan.Profile.Title, editPlan.Profile.Genre, editPlan.Profile.OverallMood)
			}
			fmt.Fprintln(out)
			rows := make([][]string, 0, len(editPlan.Decisions))
			for _, d := range editPlan.Decisions {
				detail := d.Reason
				if detail == "" {
					detail = paramSummary(d.Params)
				}
				rows = append(rows, []string{
					displayLabel(d.Type),
					fmt.Sprintf("%.1fs", d.Start),
					fmt.Sprintf("%.1fs", d.End),
					detail,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Decision", "Start", "End", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of a table")
	cmd.Flags().StringVar(&objective, "objective", "", "Override the editing objective (highlight, full, trailer)")
	return cmd
}

func paramSummary(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}
	for _, key := range []string{"kind", "grade", "mood", "text"} {
		if v, ok := params[key]; ok {
			return v
		}
	}
	return ""
}
