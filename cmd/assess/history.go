package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/aryan23f3001987/Parkinson-Project/internal/history"
)

var (
	limitFlag = &cli.IntFlag{
		Name:  "limit",
		Usage: "Limits number of results returned",
		Value: history.DefaultListLimit,
	}

	historyCmd = &cli.Command{
		Name:    "history",
		Aliases: []string{"ls"},
		Usage:   "List stored assessments, newest first",
		Flags: []cli.Flag{
			limitFlag,
			formatFlag,
		},
		Action: cmdHistory,
	}
)

func cmdHistory(c *cli.Context) error {
	format := c.String(formatFlag.Name)
	if err := checkFormat(format); err != nil {
		return err
	}

	cfg, _, err := loadConfig(c)
	if err != nil {
		return err
	}

	if !cfg.History.Enabled {
		return fmt.Errorf("history is disabled in %s", c.String(configPathFlag.Name))
	}

	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.List(c.Context, c.Int(limitFlag.Name))
	if err != nil {
		return err
	}

	return printOutput(c.App.Writer, records, format)
}
