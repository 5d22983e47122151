package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/paddockhq/paddock/cli/render"
	"github.com/paddockhq/paddock/orchestrator"
)

// BatchCommand returns the batch command: ingest a date range of races
// with bounded parallelism.
func BatchCommand() *cli.Command {
	return &cli.Command{
		Name:  "batch",
		Usage: "Ingest every race in a date range",
		Flags: append(CommonFlags(),
			BaseURLFlag,
			&cli.StringFlag{
				Name:     "start-day",
				Usage:    "First day of the range (YYYYMMDD)",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "end-day",
				Usage: "Last day of the range (YYYYMMDD, defaults to start-day)",
			},
			&cli.StringSliceFlag{
				Name:  "venue",
				Usage: "Venue code (repeatable, overrides config)",
			},
			&cli.IntSliceFlag{
				Name:  "race",
				Usage: "Race number (repeatable, overrides config)",
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "Maximum simultaneous runs (overrides config)",
			},
			&cli.StringFlag{
				Name:  "report",
				Usage: "Write a JSON batch report to this path (\"-\" for stderr)",
			},
		),
		Action: batchAction,
	}
}

func batchAction(c *cli.Context) error {
	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return cli.Exit(err.Error(), exitBadConfig)
	}
	if url := c.String("base-url"); url != "" {
		cfg.Source.BaseURL = url
	}
	if venues := c.StringSlice("venue"); len(venues) > 0 {
		cfg.Batch.Venues = venues
	}
	if races := c.IntSlice("race"); len(races) > 0 {
		cfg.Batch.RaceNos = races
	}
	if n := c.Int("concurrency"); n > 0 {
		cfg.Batch.Concurrency = n
	}
	if path := c.String("report"); path != "" {
		cfg.Batch.Report = path
	}
	if cfg.Batch.Concurrency == 0 {
		cfg.Batch.Concurrency = orchestrator.DefaultConcurrency
	}
	if len(cfg.Batch.Venues) == 0 {
		return cli.Exit("at least one venue is required (--venue or batch.venues)", exitBadConfig)
	}
	if len(cfg.Batch.RaceNos) == 0 {
		return cli.Exit("at least one race number is required (--race or batch.race_nos)", exitBadConfig)
	}

	startDay := c.String("start-day")
	endDay := c.String("end-day")
	if endDay == "" {
		endDay = startDay
	}

	keys, err := orchestrator.Expand(startDay, endDay, cfg.Batch.Venues, cfg.Batch.RaceNos)
	if err != nil {
		return cli.Exit(err.Error(), exitBadConfig)
	}
	if len(keys) == 0 {
		return cli.Exit("date range expands to zero races", exitBadConfig)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitBadConfig)
	}

	ctx, cancel := signalContext()
	defer cancel()

	deps, cleanup, err := buildDeps(ctx, cfg, "")
	if err != nil {
		return cli.Exit(err.Error(), exitBadConfig)
	}
	defer cleanup()

	adapters, err := buildAdapters(cfg.Adapters)
	if err != nil {
		return cli.Exit(err.Error(), exitBadConfig)
	}
	defer func() {
		for _, a := range adapters {
			_ = a.Close()
		}
	}()

	o, err := orchestrator.New(orchestrator.Config{
		Concurrency: cfg.Batch.Concurrency,
		Adapters:    adapters,
		Collector:   deps.Collector,
	}, buildFactory(deps))
	if err != nil {
		return cli.Exit(err.Error(), exitBadConfig)
	}

	result, err := o.RunBatch(ctx, keys)
	if err != nil {
		return fmt.Errorf("batch failed: %w", err)
	}

	if cfg.Batch.Report != "" {
		snap := deps.Collector.Snapshot()
		report := orchestrator.BuildBatchReport(result, &snap)
		if err := orchestrator.WriteBatchReport(report, cfg.Batch.Report); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	summary := orchestrator.Summarize(result.Contexts)
	if err := r.Render(summary); err != nil {
		return err
	}

	if summary.Failed > 0 {
		return cli.Exit("", exitRunFailed)
	}
	return nil
}
