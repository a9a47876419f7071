package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/aryan23f3001987/Parkinson-Project/internal/app"
	"github.com/aryan23f3001987/Parkinson-Project/internal/config"
)

const (
	defaultConfigPath = "configs/config.yaml"
)

var (
	name    = "assess"
	version = "v1.0.0"

	configPathFlag = &cli.StringFlag{
		Name:    "config",
		Usage:   "Path to the service configuration file",
		Value:   defaultConfigPath,
		EnvVars: []string{"PARKINSON_CONFIG"},
	}

	debugFlag = &cli.BoolFlag{
		Name:  "debug",
		Usage: "Prints verbose logs to stderr (optional, default: false)",
	}

	formatFlag = &cli.StringFlag{
		Name:  "format",
		Usage: "Output format (json, yaml)",
		Value: formatJSON,
	}
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:     name,
		Version:  version,
		Compiled: time.Now(),
		Usage:    "Assess Parkinson's indicators in voice recordings",
		Flags: []cli.Flag{
			configPathFlag,
			debugFlag,
		},
		Commands: []*cli.Command{
			runCmd,
			historyCmd,
		},
	}
}

// loadConfig reads the configuration and builds a logger that keeps stdout
// free for command output
func loadConfig(c *cli.Context) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(c.String(configPathFlag.Name))
	if err != nil {
		return nil, nil, err
	}

	logCfg := cfg.Logging
	if logCfg.Output == "" || logCfg.Output == "stdout" {
		logCfg.Output = "stderr"
	}
	if c.Bool(debugFlag.Name) {
		logCfg.Level = "debug"
	} else if logCfg.Level == "info" || logCfg.Level == "debug" {
		logCfg.Level = "warn"
	}

	return cfg, app.InitLogger(logCfg), nil
}
