package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/paddockhq/paddock/cli/render"
	"github.com/paddockhq/paddock/orchestrator"
)

// ExpandCommand returns the expand command: a dry run that lists the race
// keys a batch would cover without running anything.
func ExpandCommand() *cli.Command {
	return &cli.Command{
		Name:  "expand",
		Usage: "List the race keys a date range expands to (dry run)",
		Flags: append(CommonFlags(),
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
		),
		Action: expandAction,
	}
}

// expandRow is one rendered key.
type expandRow struct {
	Day    string `json:"day"`
	Venue  string `json:"venue"`
	RaceNo int    `json:"race_no"`
}

func expandAction(c *cli.Context) error {
	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return cli.Exit(err.Error(), exitBadConfig)
	}
	venues := cfg.Batch.Venues
	if flagVenues := c.StringSlice("venue"); len(flagVenues) > 0 {
		venues = flagVenues
	}
	raceNos := cfg.Batch.RaceNos
	if flagRaces := c.IntSlice("race"); len(flagRaces) > 0 {
		raceNos = flagRaces
	}

	startDay := c.String("start-day")
	endDay := c.String("end-day")
	if endDay == "" {
		endDay = startDay
	}

	keys, err := orchestrator.Expand(startDay, endDay, venues, raceNos)
	if err != nil {
		return cli.Exit(err.Error(), exitBadConfig)
	}

	rows := make([]expandRow, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, expandRow{Day: key.Day, Venue: key.Venue, RaceNo: key.RaceNo})
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitBadConfig)
	}
	return r.Render(rows)
}
