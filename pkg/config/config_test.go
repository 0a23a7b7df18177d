package config

import (
	"encoding/json"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const configFile = `
default_environment: default
environments:
  default:
    target: dev
    outputs:
      dev:
        type: postgres
        host: localhost
        port: 5432
        user: dbt_user
        password: s3cr3t-password
        dbname: analytics
        schema: main_dbt
        threads: 4
      ci:
        type: duckdb
        path: ci.duckdb
        schema: main
  prod:
    target: main
    outputs:
      main:
        type: postgres
        host: warehouse.internal
        port: 5432
        user: loader
        password: prod-password
        dbname: analytics
        schema: public
        threads: 8
`

func configFixture(t *testing.T) (*Config, afero.Fs) {
	t.Helper()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/project/profiles.yml", []byte(configFile), 0o644))

	c, err := LoadFromFile(fs, "/project/profiles.yml")
	require.NoError(t, err)

	return c, fs
}

func TestLoadFromFile(t *testing.T) {
	t.Parallel()

	c, _ := configFixture(t)

	assert.Equal(t, "default", c.DefaultEnvironmentName)
	assert.Equal(t, "default", c.SelectedEnvironmentName)
	assert.Len(t, c.Environments, 2)

	target, err := c.GetSelectedTarget("")
	require.NoError(t, err)
	assert.Equal(t, "dev", target.Name)
	assert.Equal(t, TargetTypePostgres, target.Type)
	assert.Equal(t, "localhost", target.Host)
	assert.Equal(t, Secret("s3cr3t-password"), target.Password)
}

func TestLoadFromFile_UnknownDefaultEnvironment(t *testing.T) {
	t.Parallel()

	content := `
default_environment: staging
environments:
  default:
    target: dev
    outputs:
      dev:
        type: duckdb
        path: dev.duckdb
        schema: main
`

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/project/profiles.yml", []byte(content), 0o644))

	_, err := LoadFromFile(fs, "/project/profiles.yml")
	require.ErrorContains(t, err, "environment 'staging' not found")
}

func TestConfig_SelectEnvironment(t *testing.T) {
	t.Parallel()

	c, _ := configFixture(t)

	require.NoError(t, c.SelectEnvironment("prod"))
	target, err := c.GetSelectedTarget("")
	require.NoError(t, err)
	assert.Equal(t, "main", target.Name)
	assert.Equal(t, "warehouse.internal", target.Host)

	require.Error(t, c.SelectEnvironment("staging"))
}

func TestConfig_GetSelectedTarget(t *testing.T) {
	t.Parallel()

	c, _ := configFixture(t)

	target, err := c.GetSelectedTarget("ci")
	require.NoError(t, err)
	assert.Equal(t, "ci", target.Name)
	assert.Equal(t, TargetTypeDuckDB, target.Type)
	assert.Equal(t, "ci.duckdb", target.Path)

	_, err = c.GetSelectedTarget("nonexistent")
	require.Error(t, err)
}

func TestTarget_ContextExcludesThePassword(t *testing.T) {
	t.Parallel()

	c, _ := configFixture(t)
	target, err := c.GetSelectedTarget("")
	require.NoError(t, err)

	ctx := target.Context()
	assert.Equal(t, "dev", ctx["name"])
	assert.Equal(t, "postgres", ctx["type"])
	assert.Equal(t, "localhost", ctx["host"])
	assert.Equal(t, 5432, ctx["port"])
	assert.Equal(t, "dbt_user", ctx["user"])
	assert.Equal(t, "analytics", ctx["dbname"])
	assert.Equal(t, "main_dbt", ctx["schema"])
	assert.Equal(t, 4, ctx["threads"])

	_, ok := ctx["password"]
	assert.False(t, ok)

	for _, value := range ctx {
		assert.NotEqual(t, target.Password.String(), value)
	}
}

func TestSecret_MarshalJSON(t *testing.T) {
	t.Parallel()

	c, _ := configFixture(t)
	target, err := c.GetSelectedTarget("")
	require.NoError(t, err)

	out, err := json.Marshal(target)
	require.NoError(t, err)

	assert.NotContains(t, string(out), "s3cr3t-password")
	assert.Contains(t, string(out), `"password":"********"`)
}

func TestTarget_GetThreads(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, (&Target{}).GetThreads())
	assert.Equal(t, 1, (&Target{Threads: -3}).GetThreads())
	assert.Equal(t, 8, (&Target{Threads: 8}).GetThreads())
}

func TestLoadOrCreate(t *testing.T) {
	t.Parallel()

	t.Run("existing file is loaded and gitignored", func(t *testing.T) {
		t.Parallel()

		_, fs := configFixture(t)
		c, err := LoadOrCreate(fs, "/project/profiles.yml")
		require.NoError(t, err)
		assert.Equal(t, "default", c.SelectedEnvironmentName)

		ignored, err := afero.ReadFile(fs, "/project/.gitignore")
		require.NoError(t, err)
		assert.Contains(t, string(ignored), "profiles.yml")
	})

	t.Run("missing file is scaffolded with a duckdb target", func(t *testing.T) {
		t.Parallel()

		fs := afero.NewMemMapFs()
		c, err := LoadOrCreate(fs, "/project/profiles.yml")
		require.NoError(t, err)

		target, err := c.GetSelectedTarget("")
		require.NoError(t, err)
		assert.Equal(t, TargetTypeDuckDB, target.Type)

		exists, err := afero.Exists(fs, "/project/profiles.yml")
		require.NoError(t, err)
		assert.True(t, exists)
	})
}
