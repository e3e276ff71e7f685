// Package cli contains the locate command line interface.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
)

const (
	flagConfig  = "config"
	flagEnvFile = "env-file"
	flagFake    = "fake"
	flagDebug   = "debug"
)

var app = &cli.App{
	Name:            "locate",
	Usage:           "read the current position from a GPS receiver",
	HideHelpCommand: true,
	Before:          loadEnvFile,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  flagEnvFile,
			Value: ".env",
			Usage: "load environment variables from `FILE` if it exists",
		},
		&cli.BoolFlag{
			Name:    flagDebug,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
	},
	Commands: []*cli.Command{
		{
			Name:  "fix",
			Usage: "print the current position",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    flagConfig,
					Aliases: []string{"c"},
					Usage:   "load configuration from `FILE`",
				},
				&cli.BoolFlag{
					Name:  flagFake,
					Usage: "use a simulated receiver instead of the configured one",
				},
			},
			Action: FixAction,
		},
		{
			Name:      "distance",
			Usage:     "print the great-circle distance in kilometers between two points",
			ArgsUsage: "<lat1> <lon1> <lat2> <lon2>",
			Action:    DistanceAction,
		},
	},
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}
