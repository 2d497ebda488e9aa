package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"aquamind/internal/blob"
	"aquamind/internal/config"
	"aquamind/internal/core"
	"aquamind/internal/logging"
	"aquamind/internal/report"

	"github.com/spf13/cobra"
)

// cli holds the state shared by all subcommands.
type cli struct {
	getenv     func(string) string
	configPath string
	output     string
	cfg        *config.Config
	logger     *slog.Logger
}

func newRootCmd(getenv func(string) string) *cobra.Command {
	c := &cli{getenv: getenv}
	root := &cobra.Command{
		Use:           "aquamind",
		Short:         "Salmon lifecycle progress and batch dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.init(cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "YAML config file (default $"+config.EnvConfigFile+")")
	root.PersistentFlags().StringVarP(&c.output, "output", "o", "text", "output format: text|json")

	root.AddCommand(
		c.stagesCmd(),
		c.progressCmd(),
		c.healthCmd(),
		c.batchesCmd(),
		c.dashboardCmd(),
		c.serveCmd(),
	)
	return root
}

func (c *cli) init(stderr io.Writer) error {
	if c.output != "text" && c.output != "json" {
		return fmt.Errorf("unsupported output %q", c.output)
	}
	cfg, err := config.Load(c.configPath, c.getenv)
	if err != nil {
		return err
	}
	logger, err := logging.New(stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.logger = logger
	return nil
}

// env is an opened service with its backing resources.
type env struct {
	svc   *core.Service
	close func() error
}

func (c *cli) openService(ctx context.Context, opts ...core.Option) (*env, error) {
	table, err := c.cfg.StageTable()
	if err != nil {
		return nil, err
	}
	store, closeFn, err := core.OpenPersistentStore(ctx, core.StorageOptions{
		Driver:      core.StorageDriver(c.cfg.Storage.Driver),
		SQLitePath:  c.cfg.Storage.SQLitePath,
		PostgresDSN: c.cfg.Storage.PostgresDSN,
	}, core.DefaultRulesEngine(table))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	opts = append([]core.Option{core.WithLogger(c.logger), core.WithStageTable(table)}, opts...)
	return &env{svc: core.NewService(store, opts...), close: closeFn}, nil
}

func (c *cli) openExporter(ctx context.Context) (*report.Exporter, error) {
	store, err := blob.Open(ctx, c.cfg.Blob)
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	return report.NewExporter(store, report.WithLogger(c.logger)), nil
}

func (c *cli) printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) jsonOutput() bool { return c.output == "json" }
