package main

import (
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/rudderlabs/analytics-go/v4"
	"github.com/urfave/cli/v2"

	"github.com/jean/dbt/cmd"
	"github.com/jean/dbt/pkg/tracking"
)

var (
	version = "dev"
	commit  = ""
)

func main() {
	start := time.Now()
	color.NoColor = false

	var optOut bool
	if os.Getenv("TELEMETRY_OPTOUT") != "" {
		optOut = true
	}

	tracking.TelemetryKey = os.Getenv("TELEMETRY_KEY")
	tracking.OptOut = optOut
	tracking.AppVersion = version

	versionCommand := cmd.VersionCmd(commit)

	cli.VersionPrinter = func(cCtx *cli.Context) {
		err := versionCommand.Action(cCtx)
		if err != nil {
			panic(err)
		}
	}

	app := &cli.App{
		Name:     "dbt",
		Version:  version,
		Usage:    "Run templated SQL models against your warehouse",
		Compiled: time.Now(),
		Before: func(context *cli.Context) error {
			tracking.SendEvent("command_start", analytics.Properties{
				"command": context.Command.Name,
			})
			return nil
		},
		After: func(context *cli.Context) error {
			tracking.SendEvent("command_end", analytics.Properties{
				"command":     context.Command.Name,
				"duration_ms": time.Since(start).Milliseconds(),
			})
			return nil
		},
		ExitErrHandler: func(context *cli.Context, err error) {
			tracking.SendEvent("command_error", analytics.Properties{
				"command":     context.Command.Name,
				"duration_ms": time.Since(start).Milliseconds(),
			})
			cli.HandleExitCoder(err)
		},
		Commands: []*cli.Command{
			cmd.Run(),
			cmd.Render(),
			cmd.Debug(),
			versionCommand,
		},
	}

	_ = app.Run(os.Args)
}
