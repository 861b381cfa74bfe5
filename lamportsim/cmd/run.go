package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sarchlab/lamportsim/config"
	"github.com/sarchlab/lamportsim/monitoring"
	"github.com/sarchlab/lamportsim/runner"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one or more processes.",
	Long: "`run -c c1.yaml -c c2.yaml -t 60` runs the processes described " +
		"by the configuration files for 60 seconds. Every process writes " +
		"its trace to <log_root>/<experiment_dir>/<name>_log/events.csv.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		paths, _ := cmd.Flags().GetStringArray("config")
		seconds, _ := cmd.Flags().GetFloat64("time")
		envFile, _ := cmd.Flags().GetString("env-file")
		logLevel, _ := cmd.Flags().GetString("log-level")
		useMonitor, _ := cmd.Flags().GetBool("monitor")
		monitorPort, _ := cmd.Flags().GetInt("monitor-port")
		openBrowser, _ := cmd.Flags().GetBool("open-browser")

		err := config.LoadDotEnv(envFile)
		if err != nil {
			return err
		}

		configs, err := loadConfigs(paths, seconds)
		if err != nil {
			return err
		}

		if logLevel == "" {
			logLevel = configs[0].LogLevel
		}

		logger, err := newLogger(logLevel)
		if err != nil {
			return err
		}

		for _, c := range configs {
			useMonitor = useMonitor || c.Monitor.Enabled
			openBrowser = openBrowser || c.Monitor.OpenBrowser
			if monitorPort == 0 {
				monitorPort = c.Monitor.Port
			}
		}

		var monitor *monitoring.Monitor
		if useMonitor {
			monitor = monitoring.NewMonitor().
				WithLogger(logger).
				WithPortNumber(monitorPort)

			err = startMonitor(monitor, openBrowser, logger)
			if err != nil {
				return err
			}
		}

		err = runAll(configs, logger, monitor)
		if err != nil {
			logger.Error("run failed", zap.Error(err))
		}

		if monitor != nil {
			stopMonitor(monitor)
		}

		_ = logger.Sync()
		atexit.Exit(exitCode(err))

		return nil
	},
}

func loadConfigs(paths []string, seconds float64) ([]config.Config, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("at least one configuration file is required")
	}

	if len(paths) > 1 {
		if keys := config.PerProcessEnv(os.LookupEnv); len(keys) > 0 {
			return nil, fmt.Errorf("%w: %s cannot be applied to %d processes",
				config.ErrInvalidConfig, strings.Join(keys, ", "), len(paths))
		}
	}

	configs := make([]config.Config, 0, len(paths))
	for _, path := range paths {
		c, err := config.Load(path)
		if err != nil {
			return nil, err
		}

		if seconds > 0 {
			c.DurationSeconds = seconds
		}

		err = c.Validate()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}

		configs = append(configs, c)
	}

	return configs, nil
}

func startMonitor(
	monitor *monitoring.Monitor,
	openBrowser bool,
	logger *zap.Logger,
) error {
	_, err := monitor.StartServer()
	if err != nil {
		return err
	}

	if openBrowser {
		err = monitor.OpenInBrowser()
		if err != nil {
			logger.Warn("cannot open browser", zap.Error(err))
		}
	}

	return nil
}

func stopMonitor(monitor *monitoring.Monitor) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_ = monitor.StopServer(ctx)
}

func runAll(
	configs []config.Config,
	logger *zap.Logger,
	monitor *monitoring.Monitor,
) error {
	runners := make([]*runner.Runner, 0, len(configs))
	for _, c := range configs {
		inst, err := runner.Setup(c, logger, monitor)
		if err != nil {
			for _, r := range runners {
				_ = r.Process().Close()
			}

			return fmt.Errorf("%s: %w", c.Name, err)
		}

		runners = append(runners, inst.Runner)
	}

	return runner.RunAll(runners)
}

func exitCode(err error) int {
	if err != nil {
		return 1
	}

	return 0
}

func init() {
	runCmd.Flags().StringArrayP("config", "c", nil,
		"Path to a process configuration file. Can be repeated.")
	runCmd.Flags().Float64P("time", "t", 0,
		"Time to run the processes, in seconds. Overrides duration_seconds.")
	runCmd.Flags().String("env-file", ".env",
		"File of LAMPORTSIM_* variables to load before the configuration.")
	runCmd.Flags().String("log-level", "",
		"Log level. Overrides log_level of the configuration.")
	runCmd.Flags().Bool("monitor", false, "Serve the monitoring page.")
	runCmd.Flags().Int("monitor-port", 0,
		"Port of the monitoring page. A random port is used below 1000.")
	runCmd.Flags().Bool("open-browser", false,
		"Open the monitoring page in a browser.")

	rootCmd.AddCommand(runCmd)
}
