package main

import (
	"fmt"
	"text/tabwriter"

	"aquamind/internal/report"

	"github.com/spf13/cobra"
)

func (c *cli) dashboardCmd() *cobra.Command {
	var (
		export  bool
		formats []string
	)
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Summarise active batches, optionally exporting the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			parsed := make([]report.Format, 0, len(formats))
			for _, raw := range formats {
				f, err := report.ParseFormat(raw)
				if err != nil {
					return err
				}
				parsed = append(parsed, f)
			}
			ctx := cmd.Context()
			e, err := c.openService(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = e.close() }()
			dash, err := e.svc.Dashboard(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if export {
				exporter, err := c.openExporter(ctx)
				if err != nil {
					return err
				}
				artifacts, err := exporter.Export(ctx, dash, parsed...)
				if err != nil {
					return err
				}
				if c.jsonOutput() {
					return c.printJSON(out, map[string]any{"artifacts": artifacts})
				}
				for _, a := range artifacts {
					fmt.Fprintf(out, "exported %s (%d bytes)\n", a.Key, a.SizeBytes)
				}
				return nil
			}
			if c.jsonOutput() {
				return c.printJSON(out, dash)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "BATCH\tSTAGE\tPROGRESS\tHEALTH\tEXPECTED")
			for _, ov := range dash.Batches {
				expected := ov.ExpectedStage
				if ov.Lagging {
					expected += " (lagging)"
				}
				fmt.Fprintf(tw, "%s\t%s\t%.2f%%\t%s\t%s\n", ov.BatchNumber, ov.Stage, ov.StageProgress, ov.HealthStatus, expected)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			_, err = fmt.Fprintf(out, "%d batches, %d fish, %.2f kg, %d lagging\n",
				len(dash.Batches), dash.TotalPopulation, dash.TotalBiomassKg, dash.LaggingBatches)
			return err
		},
	}
	cmd.Flags().BoolVar(&export, "export", false, "store the dashboard in the configured blob store")
	cmd.Flags().StringSliceVar(&formats, "format", nil, "export formats: json,csv (default json)")
	return cmd
}
