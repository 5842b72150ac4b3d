// Command tilegrid verifies and benchmarks the tiled kernels against
// their gonum reference implementations.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/LaneMorgan/tilegrid"
)

func main() {
	var verbose bool
	var tuningPath string
	var logger *zap.Logger

	app := &cli.App{
		Name:  "tilegrid",
		Usage: "Verify and benchmark tilegrid's tiled CPU kernels",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "verbose",
				Aliases:     []string{"v"},
				Usage:       "Enable debug logging",
				Destination: &verbose,
			},
			&cli.StringFlag{
				Name:        "tuning",
				Usage:       "Path to a YAML tuning table to load and save",
				Destination: &tuningPath,
			},
		},
		Before: func(c *cli.Context) error {
			var err error
			if verbose {
				logger, err = zap.NewDevelopment()
			} else {
				logger, err = zap.NewProduction()
			}
			if err != nil {
				return err
			}
			tilegrid.SetLogger(logger.Named("tilegrid"))

			if tuningPath != "" {
				return tilegrid.DefaultTuner().Load(tuningPath)
			}
			return nil
		},
		After: func(c *cli.Context) error {
			if tuningPath != "" {
				return tilegrid.DefaultTuner().Save(tuningPath)
			}
			return nil
		},
		Commands: []*cli.Command{
			verifyCommand(),
			benchCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		if logger != nil {
			logger.Fatal("command failed", zap.Error(err))
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
