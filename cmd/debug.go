package cmd

import (
	"encoding/json"

	"github.com/urfave/cli/v2"

	"github.com/jean/dbt/pkg/connection"
)

func Debug() *cli.Command {
	return &cli.Command{
		Name:      "debug",
		Usage:     "show the resolved target profile and test the connection",
		ArgsUsage: "[path to the project root]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env",
				Usage: "the environment to use from the profiles file",
			},
			&cli.StringFlag{
				Name:  "target",
				Usage: "the output target to use from the selected environment",
			},
		},
		Action: func(c *cli.Context) error {
			defer RecoverFromPanic()

			inputPath := c.Args().Get(0)
			if inputPath == "" {
				inputPath = "."
			}

			projectRoot, err := findProjectRoot(inputPath)
			if err != nil {
				errorPrinter.Printf("Failed to find the project root: %v\n", err)
				return cli.Exit("", 1)
			}

			cm, target, err := loadTargetFromProject(projectRoot, c.String("env"), c.String("target"))
			if err != nil {
				errorPrinter.Printf("Failed to resolve the target profile: %v\n", err)
				return cli.Exit("", 1)
			}

			infoPrinter.Printf("Environment: %s\n", cm.SelectedEnvironmentName)
			infoPrinter.Printf("Target: %s\n", target.Name)

			// Secret fields are masked by their marshaller, the password never
			// reaches the output.
			details, err := json.MarshalIndent(target, "", "  ")
			if err != nil {
				errorPrinter.Printf("Failed to render the target details: %v\n", err)
				return cli.Exit("", 1)
			}
			infoPrinter.Printf("%s\n", string(details))

			ctx := c.Context
			manager, err := connection.NewManagerFromTarget(ctx, target)
			if err != nil {
				errorPrinter.Printf("Failed to open the connection: %v\n", err)
				return cli.Exit("", 1)
			}

			client, err := manager.GetConnection(target.Name)
			if err != nil {
				errorPrinter.Printf("%v\n", err)
				return cli.Exit("", 1)
			}

			if err := client.Ping(ctx); err != nil {
				errorPrinter.Printf("Connection check failed: %v\n", err)
				return cli.Exit("", 1)
			}

			successPrinter.Printf("Connection check succeeded.\n")
			return nil
		},
	}
}
