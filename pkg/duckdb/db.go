package duck

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	_ "github.com/marcboeker/go-duckdb" //nolint:stylecheck

	"github.com/jean/dbt/pkg/ansisql"
	"github.com/jean/dbt/pkg/model"
	"github.com/jean/dbt/pkg/query"
)

type Client struct {
	connection    connection
	config        Config
	schemaCreator *ansisql.SchemaCreator
}

type connection interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, sql string, arguments ...any) (sql.Result, error)
}

func NewClient(c Config) (*Client, error) {
	conn, err := sql.Open("duckdb", c.ToDBConnectionURI())
	if err != nil {
		return nil, err
	}

	return &Client{connection: conn, config: c, schemaCreator: ansisql.NewSchemaCreator()}, nil
}

func NewClientWithConn(conn connection, c Config) *Client {
	return &Client{connection: conn, config: c, schemaCreator: ansisql.NewSchemaCreator()}
}

func (c *Client) RunQueryWithoutResult(ctx context.Context, query *query.Query) error {
	_, err := c.connection.ExecContext(ctx, query.String())
	if err != nil {
		return err
	}

	return nil
}

// Select runs a query and returns the results.
func (c *Client) Select(ctx context.Context, query *query.Query) ([][]interface{}, error) {
	rows, err := c.connection.QueryContext(ctx, query.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	collectedRows := make([][]interface{}, 0)
	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read column metadata")
	}

	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}

		if err := rows.Scan(pointers...); err != nil {
			return nil, errors.Wrap(err, "failed to scan row values")
		}

		collectedRows = append(collectedRows, values)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return collectedRows, nil
}

// TableExists reports whether the given relation is already present in the
// target database, which is what the `already_exists` template helper uses.
func (c *Client) TableExists(ctx context.Context, schema, table string) (bool, error) {
	q := query.Query{
		Query: "SELECT 1 FROM information_schema.tables WHERE table_schema = '" + schema + "' AND table_name = '" + table + "'",
	}

	rows, err := c.Select(ctx, &q)
	if err != nil {
		return false, err
	}

	return len(rows) > 0, nil
}

func (c *Client) CreateSchemaIfNotExist(ctx context.Context, m *model.Model) error {
	return c.schemaCreator.CreateSchemaIfNotExist(ctx, c, m)
}

func (c *Client) Ping(ctx context.Context) error {
	q := query.Query{
		Query: "SELECT 1",
	}

	err := c.RunQueryWithoutResult(ctx, &q)
	if err != nil {
		return errors.Wrap(err, "failed to run test query on the duckdb connection")
	}

	return nil
}
