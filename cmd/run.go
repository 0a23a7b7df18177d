package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v2"

	"github.com/jean/dbt/pkg/connection"
	"github.com/jean/dbt/pkg/executor"
	"github.com/jean/dbt/pkg/invocation"
	"github.com/jean/dbt/pkg/jinja"
	"github.com/jean/dbt/pkg/model"
	"github.com/jean/dbt/pkg/runner"
	"github.com/jean/dbt/pkg/scheduler"
	"github.com/jean/dbt/pkg/state"
	"github.com/jean/dbt/pkg/tracking"
)

const logsFolder = "logs"

func Run() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "run the models of a project against the selected target",
		ArgsUsage: "[path to the project root or a single model]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env",
				Usage: "the environment to use from the profiles file",
			},
			&cli.StringFlag{
				Name:  "target",
				Usage: "the output target to use from the selected environment",
			},
			&cli.BoolFlag{
				Name:    "full-refresh",
				Aliases: []string{"r"},
				Usage:   "rebuild incremental tables from scratch",
			},
			&cli.IntFlag{
				Name:        "workers",
				Usage:       "number of concurrent workers, defaults to the target's threads",
				DefaultText: "threads from the target",
			},
			&cli.StringFlag{
				Name:    "select",
				Aliases: []string{"s"},
				Usage:   "run only the given model and its downstream models",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable verbose logging",
			},
		},
		Action: func(c *cli.Context) error {
			defer RecoverFromPanic()

			logger := makeLogger(c.Bool("debug"))

			inputPath := c.Args().Get(0)
			if inputPath == "" {
				inputPath = "."
			}

			projectRoot, err := findProjectRoot(inputPath)
			if err != nil {
				errorPrinter.Printf("Failed to find the project root: %v\n", err)
				return cli.Exit("", 1)
			}

			_, target, err := loadTargetFromProject(projectRoot, c.String("env"), c.String("target"))
			if err != nil {
				errorPrinter.Printf("Failed to resolve the target profile: %v\n", err)
				return cli.Exit("", 1)
			}

			inv := invocation.New()
			logger.Debugf("starting invocation %s", inv.ID)

			builder := model.NewBuilder(model.BuilderConfig{
				ProjectFileNames: ProjectDefinitionFiles,
				DefaultSchema:    target.Schema,
			}, jinja.NewParser(target, inv), fs)

			project, err := builder.CreateProjectFromPath(projectRoot)
			if err != nil {
				errorPrinter.Printf("Failed to load the project: %v\n", err)
				return cli.Exit("", 1)
			}

			if len(project.Models) == 0 {
				errorPrinter.Printf("No models found under the project's model paths.\n")
				return cli.Exit("", 1)
			}

			ctx := c.Context
			manager, err := connection.NewManagerFromTarget(ctx, target)
			if err != nil {
				errorPrinter.Printf("Failed to connect to the target '%s': %v\n", target.Name, err)
				return cli.Exit("", 1)
			}

			client, err := manager.GetConnection(target.Name)
			if err != nil {
				errorPrinter.Printf("%v\n", err)
				return cli.Exit("", 1)
			}

			materializer, err := materializerForTarget(target, c.Bool("full-refresh"))
			if err != nil {
				errorPrinter.Printf("%v\n", err)
				return cli.Exit("", 1)
			}

			s := scheduler.NewScheduler(logger, project)
			if selected := c.String("select"); selected != "" {
				if project.GetModelByName(selected) == nil {
					errorPrinter.Printf("Model '%s' not found in the project.\n", selected)
					return cli.Exit("", 1)
				}

				s.MarkAll(scheduler.Skipped)
				s.MarkModel(selected, scheduler.Pending, true)
			} else if !isDirectory(inputPath) {
				m, err := findModelByPath(project, inputPath)
				if err != nil {
					errorPrinter.Printf("%v\n", err)
					return cli.Exit("", 1)
				}

				s.MarkAll(scheduler.Skipped)
				s.MarkModel(m.Name, scheduler.Pending, true)
			}

			modelCount := len(s.GetInstancesByStatus(scheduler.Pending))
			workers := c.Int("workers")
			if workers <= 0 {
				workers = target.GetThreads()
			}
			if workers > modelCount {
				workers = modelCount
			}

			infoPrinter.Printf("Starting the run for %d models with %d workers.\n", modelCount, workers)

			run := &runner.Runner{
				Operator: runner.NewOperator(client, materializer, target, inv),
				Inv:      inv,
			}

			if err := run.BeforeRun(ctx, project); err != nil {
				errorPrinter.Printf("Failed to run the on-run-start hooks: %v\n", err)
				return cli.Exit("", 1)
			}

			start := time.Now()
			ex := executor.NewConcurrent(logger, run.Operator, workers)
			ex.Start(ctx, s.WorkQueue, s.Results)

			results := s.Run(ctx)
			elapsed := time.Since(start)

			if err := run.AfterRun(ctx, project); err != nil {
				errorPrinter.Printf("Failed to run the on-run-end hooks: %v\n", err)
			}

			run.TrackResults(results)
			tracking.SendRunSummary(inv.ID, results, elapsed)

			runState := state.NewState(inv.ID, inv.RunID(), c.App.Version, inv.StartedAt)
			runState.SetResults(results)
			if err := runState.Save(fs, filepath.Join(projectRoot, logsFolder)); err != nil {
				logger.Debugf("failed to save the run state: %v", err)
			}

			errorsInRun := printRunSummary(results, elapsed)
			if errorsInRun > 0 {
				return cli.Exit("", 1)
			}

			return nil
		},
	}
}

func printRunSummary(results []*scheduler.ModelExecutionResult, elapsed time.Duration) int {
	failed := 0
	succeeded := 0
	skipped := 0

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Model", "Status", "Duration"})
	for _, result := range results {
		status := result.Instance.GetStatus()
		switch status {
		case scheduler.Succeeded:
			succeeded++
		case scheduler.Skipped:
			skipped++
		default:
			failed++
		}

		t.AppendRow(table.Row{
			result.Instance.GetHumanID(),
			status.String(),
			result.ExecutionTime.Truncate(time.Millisecond).String(),
		})
	}
	t.Render()

	fmt.Println()
	if failed > 0 {
		errorPrinter.Printf("Completed with %d failed models in %s.\n", failed, elapsed.Truncate(time.Millisecond))
		for _, result := range results {
			if result.Error == nil {
				continue
			}

			errorPrinter.Printf("  %s: %v\n", result.Instance.GetHumanID(), result.Error)
		}
	} else {
		successPrinter.Printf("Completed %d models successfully in %s.\n", succeeded, elapsed.Truncate(time.Millisecond))
	}
	if skipped > 0 {
		fmt.Println(faint(fmt.Sprintf("Skipped %d models.", skipped)))
	}

	return failed
}

func findModelByPath(p *model.Project, modelPath string) (*model.Model, error) {
	absInput, err := filepath.Abs(modelPath)
	if err != nil {
		return nil, err
	}

	for _, m := range p.Models {
		absModel, err := filepath.Abs(m.ExecutableFile.Path)
		if err != nil {
			continue
		}

		if absModel == absInput {
			return m, nil
		}
	}

	return nil, fmt.Errorf("the given file path doesn't seem to be a model in this project: '%s'", modelPath)
}

func isDirectory(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	return info.IsDir()
}
