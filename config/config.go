// Package config loads and validates the configuration of a simulated
// process.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Default values of the optional keys.
const (
	DefaultHost             = "127.0.0.1"
	DefaultRandomUpperBound = 10
	DefaultLogRoot          = "logs"
	DefaultSendTimeout      = 200 * time.Millisecond
	DefaultLogLevel         = "info"
)

// TraceConfig selects the trace sinks used in addition to the CSV file.
type TraceConfig struct {
	SQLite   bool   `yaml:"sqlite"`
	MySQLDSN string `yaml:"mysql_dsn"`
}

// MonitorConfig controls the HTTP monitor.
type MonitorConfig struct {
	Enabled     bool `yaml:"enabled"`
	Port        int  `yaml:"port"`
	OpenBrowser bool `yaml:"open_browser"`
}

// Config is the configuration of one process.
type Config struct {
	Name             string        `yaml:"name"`
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	OtherPorts       []int         `yaml:"other_ports"`
	ClockSpeed       float64       `yaml:"clock_speed"`
	ExperimentDir    string        `yaml:"experiment_dir"`
	RandomUpperBound int           `yaml:"random_upper_bound"`
	DurationSeconds  float64       `yaml:"duration_seconds"`
	LogRoot          string        `yaml:"log_root"`
	SendTimeout      time.Duration `yaml:"send_timeout"`
	Seed             int64         `yaml:"seed"`
	QueuePeriod      float64       `yaml:"queue_period_seconds"`
	LogLevel         string        `yaml:"log_level"`
	Trace            TraceConfig   `yaml:"trace"`
	Monitor          MonitorConfig `yaml:"monitor"`
}

// Default returns a configuration that carries the default value of every
// optional key.
func Default() Config {
	return Config{
		Host:             DefaultHost,
		RandomUpperBound: DefaultRandomUpperBound,
		LogRoot:          DefaultLogRoot,
		SendTimeout:      DefaultSendTimeout,
		LogLevel:         DefaultLogLevel,
	}
}

// Parse decodes a YAML document on top of the defaults.
func Parse(data []byte) (Config, error) {
	c := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	err := dec.Decode(&c)
	if err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}

	return c, nil
}

// Load reads the YAML file at path and applies the LAMPORTSIM_* environment
// overrides. The result is not validated.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}

	c, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}

	err = c.ApplyEnv(os.LookupEnv)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}

	return c, nil
}

// LoadDotEnv loads the variables of a .env file into the environment.
// Variables already set are kept. A missing file is not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}

	return nil
}

// Validate reports every problem of the configuration at once. The returned
// error wraps ErrInvalidConfig.
func (c Config) Validate() error {
	var problems []string

	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.Name == "" {
		add("name is required")
	} else if strings.ContainsAny(c.Name, "/\\ \t\n") {
		add("name %q must not contain separators or spaces", c.Name)
	}

	if !validPort(c.Port) {
		add("port %d is out of range", c.Port)
	}

	seen := make(map[int]bool)
	for _, p := range c.OtherPorts {
		switch {
		case !validPort(p):
			add("other port %d is out of range", p)
		case p == c.Port:
			add("other port %d is the port of the process itself", p)
		case seen[p]:
			add("other port %d is listed twice", p)
		}
		seen[p] = true
	}

	if c.ClockSpeed <= 0 {
		add("clock_speed must be positive")
	}

	if c.ExperimentDir == "" {
		add("experiment_dir is required")
	}

	if c.RandomUpperBound < 1 {
		add("random_upper_bound must be at least 1")
	} else if c.RandomUpperBound < len(c.OtherPorts) {
		add("random_upper_bound %d is smaller than the number of other "+
			"ports %d", c.RandomUpperBound, len(c.OtherPorts))
	}

	if c.DurationSeconds <= 0 {
		add("duration_seconds must be positive")
	}

	if c.LogRoot == "" {
		add("log_root must not be empty")
	}

	if c.QueuePeriod < 0 {
		add("queue_period_seconds must not be negative")
	}

	if c.SendTimeout < 0 {
		add("send_timeout must not be negative")
	}

	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		add("log_level %q is unknown", c.LogLevel)
	}

	if c.Monitor.Port < 0 || c.Monitor.Port > 65535 {
		add("monitor.port %d is out of range", c.Monitor.Port)
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig,
			strings.Join(problems, "; "))
	}

	return nil
}

func validPort(p int) bool {
	return p > 0 && p <= 65535
}
