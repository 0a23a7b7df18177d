package duck

type Config struct {
	Path   string
	Schema string
}

// ToDBConnectionURI returns the database path the duckdb driver expects, an
// empty path means an in-memory database.
func (c Config) ToDBConnectionURI() string {
	return c.Path
}
