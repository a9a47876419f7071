package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	"github.com/aryan23f3001987/Parkinson-Project/internal/app"
	"github.com/aryan23f3001987/Parkinson-Project/internal/features"
	"github.com/aryan23f3001987/Parkinson-Project/internal/pipeline"
)

var (
	audioFlag = &cli.StringFlag{
		Name:     "audio",
		Usage:    "Recording to assess (WAV, or any format ffmpeg reads)",
		Required: true,
	}

	ageFlag = &cli.IntFlag{
		Name:  "age",
		Usage: "Subject age in years (optional, defaults to the configured age)",
	}

	sexFlag = &cli.StringFlag{
		Name:  "sex",
		Usage: "Subject sex, male|m|1 for male (optional, defaults to the configured sex)",
	}

	testTimeFlag = &cli.Float64Flag{
		Name:  "test-time",
		Usage: "Test time in seconds (optional, defaults to the recording length)",
	}

	runCmd = &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Assess one local recording",
		Flags: []cli.Flag{
			audioFlag,
			ageFlag,
			sexFlag,
			testTimeFlag,
			formatFlag,
		},
		Action: cmdRun,
	}
)

func cmdRun(c *cli.Context) error {
	format := c.String(formatFlag.Name)
	if err := checkFormat(format); err != nil {
		return err
	}

	cfg, logger, err := loadConfig(c)
	if err != nil {
		return err
	}

	// A one-shot run does not publish to the broker
	cfg.Notify.Enabled = false

	components, err := app.Build(c.Context, cfg, logger, prometheus.NewRegistry())
	if err != nil {
		return err
	}
	defer components.Close()

	req := pipeline.Request{
		AudioPath: c.String(audioFlag.Name),
		Age:       float64(cfg.Subject.DefaultAge),
		Sex:       features.ParseSex(cfg.Subject.DefaultSex),
	}
	if c.IsSet(ageFlag.Name) {
		req.Age = float64(c.Int(ageFlag.Name))
	}
	if c.IsSet(sexFlag.Name) {
		req.Sex = features.ParseSex(c.String(sexFlag.Name))
	}
	if c.IsSet(testTimeFlag.Name) {
		v := c.Float64(testTimeFlag.Name)
		req.TestTime = &v
	}

	result, err := components.Pipeline.Run(c.Context, req)
	if err != nil {
		return fmt.Errorf("assessment failed: %w", err)
	}

	return printOutput(c.App.Writer, result, format)
}
