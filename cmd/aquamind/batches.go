package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"aquamind/pkg/domain"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func (c *cli) batchesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batches",
		Short: "Manage fish batches",
	}
	cmd.AddCommand(c.batchesImportCmd(), c.batchesListCmd(), c.batchesShowCmd())
	return cmd
}

// batchFile accepts either a bare list or a document with a batches key.
type batchFile struct {
	Batches []domain.Batch `json:"batches" yaml:"batches"`
}

// readBatches parses batch definitions from path. Files ending in .json are
// decoded as JSON, anything else as YAML.
func readBatches(path string) ([]domain.Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var batches []domain.Batch
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = decodeJSONBatches(data, &batches)
	} else {
		err = decodeYAMLBatches(data, &batches)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(batches) == 0 {
		return nil, fmt.Errorf("no batches in %s", path)
	}
	return batches, nil
}

func decodeJSONBatches(data []byte, out *[]domain.Batch) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return json.Unmarshal(trimmed, out)
	}
	var file batchFile
	if err := json.Unmarshal(trimmed, &file); err != nil {
		return err
	}
	*out = file.Batches
	return nil
}

func decodeYAMLBatches(data []byte, out *[]domain.Batch) error {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return err
	}
	if len(root.Content) == 0 {
		return nil
	}
	doc := root.Content[0]
	if doc.Kind == yaml.SequenceNode {
		return doc.Decode(out)
	}
	var file batchFile
	if err := doc.Decode(&file); err != nil {
		return err
	}
	*out = file.Batches
	return nil
}

func (c *cli) batchesImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import batches from a YAML or JSON file in one transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			batches, err := readBatches(args[0])
			if err != nil {
				return err
			}
			e, err := c.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = e.close() }()
			created, res, err := e.svc.ImportBatches(cmd.Context(), batches)
			if err != nil {
				var rve domain.RuleViolationError
				if errors.As(err, &rve) {
					for _, v := range rve.Result.Violations {
						fmt.Fprintf(cmd.ErrOrStderr(), "%s [%s] %s\n", v.Severity, v.Rule, v.Message)
					}
				}
				return err
			}
			out := cmd.OutOrStdout()
			if c.jsonOutput() {
				return c.printJSON(out, map[string]any{"batches": created, "violations": res.Violations})
			}
			for _, v := range res.Violations {
				fmt.Fprintf(out, "%s [%s] %s\n", v.Severity, v.Rule, v.Message)
			}
			_, err = fmt.Fprintf(out, "imported %d batches\n", len(created))
			return err
		},
	}
}

func (c *cli) batchesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored batches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := c.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = e.close() }()
			batches := e.svc.ListBatches(cmd.Context())
			out := cmd.OutOrStdout()
			if c.jsonOutput() {
				return c.printJSON(out, map[string]any{"batches": batches})
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNUMBER\tSTAGE\tSTATUS\tCOUNT")
			for _, b := range batches {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", b.ID, b.BatchNumber, b.LifecycleStage, b.Status, b.CurrentCount)
			}
			return tw.Flush()
		},
	}
}

func (c *cli) batchesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show the progress and health overview of one batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := c.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = e.close() }()
			ov, err := e.svc.BatchOverview(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if c.jsonOutput() {
				return c.printJSON(out, ov)
			}
			fmt.Fprintf(out, "%s (%s) %s\n", ov.BatchNumber, ov.BatchID, ov.Species)
			fmt.Fprintf(out, "stage:    %s %.2f%% (%s), day %d\n", ov.Stage, ov.StageProgress, ov.ProgressColor, ov.DaysActive)
			if ov.ExpectedStage != "" {
				fmt.Fprintf(out, "expected: %s lagging=%t\n", ov.ExpectedStage, ov.Lagging)
			}
			_, err = fmt.Fprintf(out, "health:   %s (survival %.2f%%, %d fish, %.2f kg)\n", ov.HealthStatus, ov.SurvivalRate, ov.CurrentCount, ov.BiomassKg)
			return err
		},
	}
}
