package main

import (
	"fmt"
	"math"
	"text/tabwriter"

	"aquamind/pkg/lifecycle"

	"github.com/spf13/cobra"
)

func (c *cli) stagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stages",
		Short: "List the configured lifecycle stages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table, err := c.cfg.StageTable()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if c.jsonOutput() {
				return c.printJSON(out, map[string]any{"stages": table.Stages(), "total_days": table.TotalDays()})
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STAGE\tKEY\tSTART DAY\tDURATION")
			for i, s := range table.Stages() {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", s.Name, s.Key, table.StartDay(i), s.DurationDays)
			}
			fmt.Fprintf(tw, "total\t\t\t%d\n", table.TotalDays())
			return tw.Flush()
		},
	}
}

func (c *cli) progressCmd() *cobra.Command {
	var (
		stage  string
		days   float64
		strict bool
	)
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Compute progress through a stage after a number of days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table, err := c.cfg.StageTable()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("days") {
				days = math.NaN()
			}
			var progress float64
			if strict {
				if progress, err = table.ProgressStrict(stage, days); err != nil {
					return err
				}
			} else {
				progress = table.Progress(stage, days)
			}
			color := lifecycle.ProgressColorFor(progress)
			out := cmd.OutOrStdout()
			if c.jsonOutput() {
				return c.printJSON(out, map[string]any{"stage": stage, "progress": progress, "color": color, "class": color.Class()})
			}
			_, err = fmt.Fprintf(out, "%s: %.2f%% (%s)\n", stage, progress, color)
			return err
		},
	}
	cmd.Flags().StringVar(&stage, "stage", "", "stage name (any spelling or alias)")
	cmd.Flags().Float64Var(&days, "days", 0, "days since the batch entered the first stage")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail on unknown stage or missing days instead of reporting 0")
	return cmd
}

func (c *cli) healthCmd() *cobra.Command {
	var survival float64
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Classify a survival rate percentage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status := lifecycle.HealthStatusFor(survival)
			out := cmd.OutOrStdout()
			if c.jsonOutput() {
				return c.printJSON(out, map[string]any{"survival_rate": survival, "status": status, "class": status.Class()})
			}
			_, err := fmt.Fprintf(out, "%.2f%%: %s\n", survival, status)
			return err
		},
	}
	cmd.Flags().Float64Var(&survival, "survival", 0, "survival rate percentage")
	_ = cmd.MarkFlagRequired("survival")
	return cmd
}
