// Package config holds launcher settings. Values come from built-in
// defaults, an optional YAML file found through the XDG search path, and
// environment overrides, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"launcher/pkg/environ"
)

const (
	DefaultHandlerRunfile  = "phst_rules_elisp/elisp/runfiles/runfiles.elc"
	DefaultHandlerFunction = "elisp/runfiles/install-handler"
	DefaultRunnerRunfile   = "phst_rules_elisp/elisp/ert/runner.elc"
	DefaultRunnerFunction  = "elisp/ert/run-batch-and-exit"

	// ConfigRel is the config file location below each XDG config directory.
	ConfigRel = "launcher/config.yaml"
)

// ReadOnly defines the read-only interface for Config.
// Immutable
type ReadOnly interface {
	GetTempDir() string
	GetLogLevel() string
	GetLogFormat() string
	GetHandlerRunfile() string
	GetHandlerFunction() string
	GetRunnerRunfile() string
	GetRunnerFunction() string
	GetSource() string
	Freeze()
	Checkout() Writable
}

// Writable defines the writable interface for Config.
// Mutable
type Writable interface {
	ReadOnly
	SetTempDir(string)
	SetLogLevel(string)
	SetLogFormat(string)
}

// Config holds the launcher settings.
// Mutable
type Config struct {
	tempDir   string
	logLevel  string
	logFormat string

	handlerRunfile  string
	handlerFunction string
	runnerRunfile   string
	runnerFunction  string

	source string

	frozen bool
	edited bool
}

var _ ReadOnly = (*Config)(nil)
var _ Writable = (*Config)(nil)

func (c *Config) GetTempDir() string         { return c.tempDir }
func (c *Config) GetLogLevel() string        { return c.logLevel }
func (c *Config) GetLogFormat() string       { return c.logFormat }
func (c *Config) GetHandlerRunfile() string  { return c.handlerRunfile }
func (c *Config) GetHandlerFunction() string { return c.handlerFunction }
func (c *Config) GetRunnerRunfile() string   { return c.runnerRunfile }
func (c *Config) GetRunnerFunction() string  { return c.runnerFunction }

// GetSource returns the file the settings were read from, or "".
func (c *Config) GetSource() string { return c.source }

func (c *Config) SetTempDir(s string) {
	if c.frozen {
		panic("cannot modify frozen config")
	}
	c.tempDir = s
}

func (c *Config) SetLogLevel(s string) {
	if c.frozen {
		panic("cannot modify frozen config")
	}
	c.logLevel = s
}

func (c *Config) SetLogFormat(s string) {
	if c.frozen {
		panic("cannot modify frozen config")
	}
	c.logFormat = s
}

func (c *Config) Freeze() {
	c.frozen = true
}

func (c *Config) Checkout() Writable {
	if c.frozen {
		panic("cannot checkout from frozen config")
	}
	if c.edited {
		panic("config already checked out")
	}
	c.edited = true
	return c
}

type fileConfig struct {
	TempDir   string `yaml:"temp_dir"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	Handler   struct {
		Runfile  string `yaml:"runfile"`
		Function string `yaml:"function"`
	} `yaml:"handler"`
	TestRunner struct {
		Runfile  string `yaml:"runfile"`
		Function string `yaml:"function"`
	} `yaml:"test_runner"`
}

// Defaults returns the built-in settings for env.
func Defaults(env environ.Snapshot) *Config {
	return &Config{
		tempDir:         defaultTempDir(env),
		logLevel:        "info",
		logFormat:       "text",
		handlerRunfile:  DefaultHandlerRunfile,
		handlerFunction: DefaultHandlerFunction,
		runnerRunfile:   DefaultRunnerRunfile,
		runnerFunction:  DefaultRunnerFunction,
	}
}

// Init loads the configuration. An explicit path must exist; without one,
// LAUNCHER_CONFIG and then the XDG config directories are searched and a
// missing file is not an error.
func Init(env environ.Snapshot, path string) (ReadOnly, error) {
	c := Defaults(env)

	explicit := path != ""
	if !explicit {
		path = env.Get("LAUNCHER_CONFIG")
		explicit = path != ""
	}
	if !explicit {
		if found, err := xdg.SearchConfigFile(ConfigRel); err == nil {
			path = found
		}
	}
	if path != "" {
		if err := c.load(path); err != nil {
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
		}
	}

	c.applyEnv(env)
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	var fc fileConfig
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid config %s: %w", path, err)
	}

	setIf(&c.tempDir, fc.TempDir)
	setIf(&c.logLevel, fc.LogLevel)
	setIf(&c.logFormat, fc.LogFormat)
	setIf(&c.handlerRunfile, fc.Handler.Runfile)
	setIf(&c.handlerFunction, fc.Handler.Function)
	setIf(&c.runnerRunfile, fc.TestRunner.Runfile)
	setIf(&c.runnerFunction, fc.TestRunner.Function)
	c.source = path
	return nil
}

func (c *Config) applyEnv(env environ.Snapshot) {
	setIf(&c.tempDir, env.Get("LAUNCHER_TMPDIR"))
	setIf(&c.logLevel, env.Get("LAUNCHER_LOG_LEVEL"))
	setIf(&c.logFormat, env.Get("LAUNCHER_LOG_FORMAT"))
}

func (c *Config) validate() error {
	switch strings.ToLower(c.logLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.logLevel)
	}
	switch strings.ToLower(c.logFormat) {
	case "text", "json", "logfmt":
	default:
		return fmt.Errorf("invalid log format %q", c.logFormat)
	}
	for name, v := range map[string]string{
		"handler.runfile":      c.handlerRunfile,
		"handler.function":     c.handlerFunction,
		"test_runner.runfile":  c.runnerRunfile,
		"test_runner.function": c.runnerFunction,
	} {
		if v == "" {
			return fmt.Errorf("config value %s is empty", name)
		}
	}
	return nil
}

func defaultTempDir(env environ.Snapshot) string {
	for _, key := range []string{"TEST_TMPDIR", "TMPDIR"} {
		if v := env.Get(key); v != "" {
			return v
		}
	}
	return "/tmp"
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
