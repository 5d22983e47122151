// Package cmd provides CLI commands for the paddock binary.
package cmd

import "github.com/urfave/cli/v2"

// Shared flags.
var (
	// ConfigFlag points at the paddock.yaml config file.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to paddock.yaml config file",
	}

	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// BaseURLFlag overrides the upstream result-service URL.
	BaseURLFlag = &cli.StringFlag{
		Name:  "base-url",
		Usage: "Result service base URL (overrides config)",
	}
)

// CommonFlags returns the flags shared by all commands.
func CommonFlags() []cli.Flag {
	return []cli.Flag{
		ConfigFlag,
		FormatFlag,
	}
}
