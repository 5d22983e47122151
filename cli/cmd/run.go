package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/paddockhq/paddock/cli/config"
	"github.com/paddockhq/paddock/cli/render"
	"github.com/paddockhq/paddock/pipeline"
	"github.com/paddockhq/paddock/stages"
	"github.com/paddockhq/paddock/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitRunFailed = 1
	exitBadConfig = 2
)

// RunCommand returns the run command: ingest a single race.
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Ingest one race through the full pipeline",
		Flags: append(CommonFlags(),
			BaseURLFlag,
			&cli.StringFlag{
				Name:     "day",
				Usage:    "Race day (YYYYMMDD)",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "venue",
				Usage:    "Venue code",
				Required: true,
			},
			&cli.IntFlag{
				Name:     "race",
				Usage:    "Race number",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "history-limit",
				Usage: "Rider history window for enrichment",
			},
		),
		Action: runAction,
	}
}

// runResponse is the rendered result of a single run.
type runResponse struct {
	RunID     string             `json:"run_id"`
	Key       string             `json:"key"`
	Failed    bool               `json:"failed"`
	Error     string             `json:"error,omitempty"`
	ElapsedMs int64              `json:"elapsed_ms"`
	Stages    []runResponseStage `json:"stages"`
}

type runResponseStage struct {
	Stage      string `json:"stage"`
	Status     string `json:"status"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

func runAction(c *cli.Context) error {
	key := types.RaceKey{
		Day:    c.String("day"),
		Venue:  c.String("venue"),
		RaceNo: c.Int("race"),
	}
	if err := key.Validate(); err != nil {
		return cli.Exit(fmt.Sprintf("invalid race key: %v", err), exitBadConfig)
	}

	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return cli.Exit(err.Error(), exitBadConfig)
	}
	if url := c.String("base-url"); url != "" {
		cfg.Source.BaseURL = url
	}
	if limit := c.Int("history-limit"); limit > 0 {
		cfg.Store.HistoryLimit = limit
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

	p, err := buildFactory(deps)()
	if err != nil {
		return cli.Exit(err.Error(), exitBadConfig)
	}

	rc, runErr := p.Run(ctx, pipeline.NewContext(key))

	if err := r.Render(buildRunResponse(rc)); err != nil {
		return err
	}
	if runErr != nil {
		return cli.Exit("", exitRunFailed)
	}
	return nil
}

// buildDeps wires the stage collaborators from config. The returned cleanup
// closes the store.
func buildDeps(ctx context.Context, cfg *config.Config, batchID string) (stages.Deps, func(), error) {
	src, err := buildSource(cfg.Source)
	if err != nil {
		return stages.Deps{}, nil, err
	}
	st, err := buildStore(ctx, cfg.Store)
	if err != nil {
		return stages.Deps{}, nil, err
	}
	archiver, err := buildArchiver(ctx, cfg.Archive)
	if err != nil {
		_ = st.Close()
		return stages.Deps{}, nil, err
	}

	deps := stages.Deps{
		Source:       src,
		Store:        st,
		Archiver:     archiver,
		HistoryLimit: cfg.Store.HistoryLimit,
		Collector:    newCollector(cfg, batchID),
	}
	return deps, func() { _ = st.Close() }, nil
}

// buildRunResponse flattens a terminal context for rendering.
func buildRunResponse(rc *pipeline.Context) runResponse {
	resp := runResponse{
		RunID:     rc.RunID,
		Key:       rc.Key.String(),
		Failed:    rc.Failed,
		ElapsedMs: rc.Elapsed().Milliseconds(),
	}
	if msg, ok := rc.Metadata["error"].(string); ok {
		resp.Error = msg
	}
	for _, outcome := range rc.Ledger().Outcomes() {
		resp.Stages = append(resp.Stages, runResponseStage{
			Stage:      outcome.Stage,
			Status:     outcome.Status.String(),
			DurationMs: outcome.ExecutionDuration.Milliseconds(),
			Error:      outcome.ErrorText(),
		})
	}
	return resp
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	return ctx, cancel
}
