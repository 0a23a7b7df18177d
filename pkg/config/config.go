package config

import (
	"bufio"
	"encoding/json"
	errors2 "errors"
	"fmt"
	fs2 "io/fs"
	"os"
	"path"
	"strings"

	path2 "github.com/jean/dbt/pkg/path"
	"github.com/spf13/afero"
)

const (
	TargetTypePostgres = "postgres"
	TargetTypeDuckDB   = "duckdb"
)

// Secret is a string that never leaks into JSON output. The YAML representation
// keeps the real value so that persisting a profile file round-trips.
type Secret string

func (s Secret) MarshalJSON() ([]byte, error) {
	if s == "" {
		return json.Marshal("")
	}

	return json.Marshal(strings.Repeat("*", 8))
}

func (s Secret) String() string {
	return string(s)
}

// Target is a single database connection profile, the thing the `target`
// variable resolves to at render time.
type Target struct {
	Name string `yaml:"-" json:"name"`

	Type     string `yaml:"type" json:"type" validate:"required,oneof=postgres duckdb"`
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	User     string `yaml:"user" json:"user"`
	Password Secret `yaml:"password" json:"password"`
	Database string `yaml:"dbname" json:"dbname"`
	Schema   string `yaml:"schema" json:"schema" validate:"required"`
	Threads  int    `yaml:"threads" json:"threads"`
	Path     string `yaml:"path" json:"path"`
	SslMode  string `yaml:"sslmode" json:"sslmode"`
}

// Context returns the fields of the target that are safe to expose to the
// templating layer. The password is left out on purpose, it must never be
// interpolated into rendered SQL.
func (t *Target) Context() map[string]any {
	return map[string]any{
		"name":    t.Name,
		"type":    t.Type,
		"host":    t.Host,
		"port":    t.Port,
		"user":    t.User,
		"dbname":  t.Database,
		"schema":  t.Schema,
		"threads": t.GetThreads(),
	}
}

func (t *Target) GetThreads() int {
	if t.Threads < 1 {
		return 1
	}

	return t.Threads
}

type Environment struct {
	DefaultTargetName string            `yaml:"target" json:"target"`
	Targets           map[string]Target `yaml:"outputs" json:"outputs"`
}

func (e *Environment) GetTarget(name string) (*Target, error) {
	if name == "" {
		name = e.DefaultTargetName
	}

	t, ok := e.Targets[name]
	if !ok {
		return nil, fmt.Errorf("target '%s' not found in the profile", name)
	}

	t.Name = name
	return &t, nil
}

type Config struct {
	fs   afero.Fs
	path string

	DefaultEnvironmentName  string                 `yaml:"default_environment" json:"default_environment"`
	SelectedEnvironmentName string                 `yaml:"-" json:"selected_environment"`
	SelectedEnvironment     *Environment           `yaml:"-" json:"-"`
	Environments            map[string]Environment `yaml:"environments" json:"environments"`
}

func (c *Config) Persist() error {
	return c.PersistToFs(c.fs)
}

func (c *Config) PersistToFs(fs afero.Fs) error {
	return path2.WriteYaml(fs, c.path, c)
}

func (c *Config) SelectEnvironment(name string) error {
	e, ok := c.Environments[name]
	if !ok {
		return fmt.Errorf("environment '%s' not found in the profile file", name)
	}

	c.SelectedEnvironment = &e
	c.SelectedEnvironmentName = name
	return nil
}

// GetSelectedTarget resolves the active connection profile, falling back to the
// environment's default target when name is empty.
func (c *Config) GetSelectedTarget(name string) (*Target, error) {
	if c.SelectedEnvironment == nil {
		return nil, errors2.New("no environment is selected")
	}

	return c.SelectedEnvironment.GetTarget(name)
}

func LoadFromFile(fs afero.Fs, path string) (*Config, error) {
	var config Config

	err := path2.ReadYaml(fs, path, &config)
	if err != nil {
		return nil, err
	}

	config.fs = fs
	config.path = path

	if config.DefaultEnvironmentName == "" {
		config.DefaultEnvironmentName = "default"
	}

	e, ok := config.Environments[config.DefaultEnvironmentName]
	if !ok {
		return nil, fmt.Errorf("environment '%s' not found in the profile file", config.DefaultEnvironmentName)
	}

	config.SelectedEnvironment = &e
	config.SelectedEnvironmentName = config.DefaultEnvironmentName
	return &config, nil
}

func LoadOrCreate(fs afero.Fs, path string) (*Config, error) {
	config, err := LoadFromFile(fs, path)
	if err != nil && !errors2.Is(err, fs2.ErrNotExist) {
		return nil, err
	}

	if err == nil {
		return config, ensureConfigIsInGitignore(fs, path)
	}

	defaultEnv := Environment{
		DefaultTargetName: "dev",
		Targets: map[string]Target{
			"dev": {
				Type:    TargetTypeDuckDB,
				Path:    "dev.duckdb",
				Schema:  "main",
				Threads: 1,
			},
		},
	}
	config = &Config{
		fs:   fs,
		path: path,

		DefaultEnvironmentName:  "default",
		SelectedEnvironment:     &defaultEnv,
		SelectedEnvironmentName: "default",
		Environments: map[string]Environment{
			"default": defaultEnv,
		},
	}

	err = config.Persist()
	if err != nil {
		return nil, fmt.Errorf("failed to persist the profile file: %w", err)
	}

	return config, ensureConfigIsInGitignore(fs, path)
}

func ensureConfigIsInGitignore(fs afero.Fs, filePath string) (err error) {
	gitignorePath := path.Join(path.Dir(filePath), ".gitignore")
	exists, err := afero.Exists(fs, gitignorePath)
	if err != nil {
		return err
	}

	fileNameToIgnore := path.Base(filePath)
	if !exists {
		if err = afero.WriteFile(fs, gitignorePath, []byte(fileNameToIgnore), 0o644); err != nil {
			return err
		}
		return nil
	}

	file, err := fs.OpenFile(gitignorePath, os.O_APPEND|os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer func(open afero.File) {
		tempErr := open.Close()
		if tempErr != nil {
			err = errors2.Join(err, fmt.Errorf("failed to close file: %w", tempErr))
		}
	}(file)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == fileNameToIgnore {
			return nil
		}
	}

	_, err = file.Write([]byte("\n" + fileNameToIgnore))
	return err
}
