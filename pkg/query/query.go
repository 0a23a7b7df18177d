package query

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

type Query struct {
	Query string
}

func (q Query) String() string {
	return q.Query
}

var queryCommentRegex = regexp.MustCompile(`(?m)(?s)\/\*.*?\*\/|(^|\s)--.*?\n`)

type renderer interface {
	Render(query string) (string, error)
}

// WholeFileExtractor renders a model file and treats the result as a single
// query, which is what materialized models need.
type WholeFileExtractor struct {
	Fs       afero.Fs
	Renderer renderer
}

func (f *WholeFileExtractor) ExtractQueriesFromFile(filepath string) ([]*Query, error) {
	contents, err := afero.ReadFile(f.Fs, filepath)
	if err != nil {
		return nil, errors.Wrap(err, "could not read file")
	}

	return f.ExtractQueriesFromString(string(contents))
}

func (f *WholeFileExtractor) ExtractQueriesFromString(content string) ([]*Query, error) {
	render, err := f.Renderer.Render(strings.TrimSpace(content))
	if err != nil {
		return nil, err
	}

	return []*Query{
		{
			Query: strings.TrimSpace(render),
		},
	}, nil
}

// SplitQueries breaks a rendered multi-statement string into individual
// queries, dropping comments and empty statements. Hook definitions can carry
// several statements in one string.
func SplitQueries(fileContent string) []*Query {
	cleanedUp := queryCommentRegex.ReplaceAllLiteralString(fileContent, "\n")

	queries := make([]*Query, 0)
	for _, query := range strings.Split(cleanedUp, ";") {
		query = strings.TrimSpace(query)
		if len(query) == 0 {
			continue
		}

		queryLines := strings.Split(query, "\n")
		cleanQueryRows := make([]string, 0, len(queryLines))
		for _, line := range queryLines {
			if len(strings.TrimSpace(line)) == 0 {
				continue
			}

			cleanQueryRows = append(cleanQueryRows, line)
		}

		queries = append(queries, &Query{
			Query: strings.TrimSpace(strings.Join(cleanQueryRows, "\n")),
		})
	}

	return queries
}
