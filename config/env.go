package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix prefixes the environment variables that override file values.
const EnvPrefix = "LAMPORTSIM_"

// LookupFunc looks up an environment variable, like os.LookupEnv.
type LookupFunc func(key string) (string, bool)

type envBinding struct {
	key   string
	apply func(c *Config, value string) error
}

var envBindings = []envBinding{
	{"NAME", func(c *Config, v string) error { c.Name = v; return nil }},
	{"HOST", func(c *Config, v string) error { c.Host = v; return nil }},
	{"PORT", func(c *Config, v string) error { return setInt(&c.Port, v) }},
	{"OTHER_PORTS", func(c *Config, v string) error {
		return setPorts(&c.OtherPorts, v)
	}},
	{"CLOCK_SPEED", func(c *Config, v string) error {
		return setFloat(&c.ClockSpeed, v)
	}},
	{"EXPERIMENT_DIR", func(c *Config, v string) error {
		c.ExperimentDir = v
		return nil
	}},
	{"RANDOM_UPPER_BOUND", func(c *Config, v string) error {
		return setInt(&c.RandomUpperBound, v)
	}},
	{"DURATION_SECONDS", func(c *Config, v string) error {
		return setFloat(&c.DurationSeconds, v)
	}},
	{"LOG_ROOT", func(c *Config, v string) error { c.LogRoot = v; return nil }},
	{"SEND_TIMEOUT", func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		c.SendTimeout = d
		return nil
	}},
	{"SEED", func(c *Config, v string) error {
		s, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return err
		}
		c.Seed = s
		return nil
	}},
	{"QUEUE_PERIOD_SECONDS", func(c *Config, v string) error {
		return setFloat(&c.QueuePeriod, v)
	}},
	{"LOG_LEVEL", func(c *Config, v string) error { c.LogLevel = v; return nil }},
	{"TRACE_SQLITE", func(c *Config, v string) error {
		return setBool(&c.Trace.SQLite, v)
	}},
	{"TRACE_MYSQL_DSN", func(c *Config, v string) error {
		c.Trace.MySQLDSN = v
		return nil
	}},
	{"MONITOR_ENABLED", func(c *Config, v string) error {
		return setBool(&c.Monitor.Enabled, v)
	}},
	{"MONITOR_PORT", func(c *Config, v string) error {
		return setInt(&c.Monitor.Port, v)
	}},
	{"MONITOR_OPEN_BROWSER", func(c *Config, v string) error {
		return setBool(&c.Monitor.OpenBrowser, v)
	}},
}

// perProcessKeys name the overrides that identify a single process.
var perProcessKeys = []string{"NAME", "PORT", "OTHER_PORTS"}

// PerProcessEnv returns the set variables that only make sense for a single
// process. Applied to several configurations, they would give every process
// the same name, port or peers.
func PerProcessEnv(lookup LookupFunc) []string {
	var set []string

	for _, key := range perProcessKeys {
		if _, ok := lookup(EnvPrefix + key); ok {
			set = append(set, EnvPrefix+key)
		}
	}

	return set
}

// ApplyEnv overrides the fields whose LAMPORTSIM_* variable is set.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	for _, b := range envBindings {
		value, ok := lookup(EnvPrefix + b.key)
		if !ok {
			continue
		}

		err := b.apply(c, strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, b.key, err)
		}
	}

	return nil
}

func setInt(dst *int, v string) error {
	i, err := strconv.Atoi(v)
	if err != nil {
		return err
	}

	*dst = i

	return nil
}

func setFloat(dst *float64, v string) error {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return err
	}

	*dst = f

	return nil
}

func setBool(dst *bool, v string) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return err
	}

	*dst = b

	return nil
}

// setPorts parses a comma separated list. An empty value clears the list.
func setPorts(dst *[]int, v string) error {
	if v == "" {
		*dst = nil
		return nil
	}

	parts := strings.Split(v, ",")
	ports := make([]int, 0, len(parts))

	for _, part := range parts {
		p, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return err
		}

		ports = append(ports, p)
	}

	*dst = ports

	return nil
}
