package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/urfave/cli/v2"

	"github.com/jean/dbt/pkg/config"
	duck "github.com/jean/dbt/pkg/duckdb"
	"github.com/jean/dbt/pkg/invocation"
	"github.com/jean/dbt/pkg/jinja"
	"github.com/jean/dbt/pkg/model"
	path2 "github.com/jean/dbt/pkg/path"
	"github.com/jean/dbt/pkg/postgres"
	"github.com/jean/dbt/pkg/query"
)

func Render() *cli.Command {
	return &cli.Command{
		Name:      "render",
		Usage:     "render a single SQL model",
		ArgsUsage: "[path to the model file]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "full-refresh",
				Aliases: []string{"r"},
				Usage:   "rebuild the table from scratch",
			},
			&cli.StringFlag{
				Name:  "env",
				Usage: "the environment to use from the profiles file",
			},
			&cli.StringFlag{
				Name:  "target",
				Usage: "the output target to use from the selected environment",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "output format (json)",
			},
		},
		Action: func(c *cli.Context) error {
			defer RecoverFromPanic()

			output := c.String("output")

			inputPath := c.Args().Get(0)
			if inputPath == "" {
				printError(fmt.Errorf("missing model path"), output, "Please give a model path to render: dbt render <path to the model file>")
				return cli.Exit("", 1)
			}

			projectRoot, err := path2.GetProjectRootFromModel(inputPath, ProjectDefinitionFiles)
			if err != nil {
				printError(err, output, "Failed to find the project root:")
				return cli.Exit("", 1)
			}

			_, target, err := loadTargetFromProject(projectRoot, c.String("env"), c.String("target"))
			if err != nil {
				printError(err, output, "Failed to resolve the target profile:")
				return cli.Exit("", 1)
			}

			inv := invocation.New()
			builder := model.NewBuilder(model.BuilderConfig{
				ProjectFileNames: ProjectDefinitionFiles,
				DefaultSchema:    target.Schema,
			}, jinja.NewParser(target, inv), fs)

			project, err := builder.CreateProjectFromPath(projectRoot)
			if err != nil {
				printError(err, output, "Failed to load the project:")
				return cli.Exit("", 1)
			}

			r := RenderCommand{
				target:  target,
				inv:     inv,
				writer:  os.Stdout,
				output:  output,
				project: project,
			}

			return r.Run(inputPath, c.Bool("full-refresh"))
		},
	}
}

type RenderCommand struct {
	target  *config.Target
	inv     *invocation.Invocation
	project *model.Project

	output string
	writer io.Writer
}

func (r *RenderCommand) Run(modelPath string, fullRefresh bool) error {
	m, err := findModelByPath(r.project, modelPath)
	if err != nil {
		printError(err, r.output, "Failed to find the model:")
		return cli.Exit("", 1)
	}

	renderer := jinja.NewModelRenderer(r.project, m, r.target, r.inv, jinja.Context{
		"already_exists": func(schema, table string) bool {
			return false
		},
	})

	extractor := query.WholeFileExtractor{Fs: fs, Renderer: renderer}
	queries, err := extractor.ExtractQueriesFromString(m.ExecutableFile.Content)
	if err != nil {
		printError(err, r.output, "Failed to render the model:")
		return cli.Exit("", 1)
	}

	materializer, err := materializerForTarget(r.target, fullRefresh)
	if err != nil {
		printError(err, r.output, "Failed to pick a materializer:")
		return cli.Exit("", 1)
	}

	materialized, err := materializer.Render(m, queries[0].Query)
	if err != nil {
		printError(err, r.output, "Failed to materialize the query:")
		return cli.Exit("", 1)
	}

	if r.output == "json" {
		js, err := json.Marshal(map[string]string{"query": materialized})
		if err != nil {
			printError(err, r.output, "Failed to render the query:")
			return cli.Exit("", 1)
		}
		_, err = r.writer.Write(js)
		return err
	}

	_, err = fmt.Fprintf(r.writer, "%s\n", highlightCode(materialized, "sql"))
	return err
}

func materializerForTarget(target *config.Target, fullRefresh bool) (*model.Materializer, error) {
	switch target.Type {
	case config.TargetTypePostgres:
		return postgres.NewMaterializer(fullRefresh), nil
	case config.TargetTypeDuckDB:
		return duck.NewMaterializer(fullRefresh), nil
	}

	return nil, fmt.Errorf("unsupported target type '%s'", target.Type)
}

func highlightCode(code string, language string) string {
	o, err := os.Stdout.Stat()
	if err != nil {
		return code
	}

	if (o.Mode() & os.ModeCharDevice) != os.ModeCharDevice {
		return code
	}
	b := new(strings.Builder)
	err = quick.Highlight(b, code, language, "terminal16m", "monokai")
	if err != nil {
		errorPrinter.Printf("Failed to highlight the query: %v\n", err.Error())
		return code
	}

	return b.String()
}
