package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/cubuild/cubuild/internal/toolkit"
)

// locateCommand probes for a CUDA toolkit and prints the resolved
// configuration. Scripts can hard-gate on its exit status.
func locateCommand(state *appState) *cli.Command {
	return &cli.Command{
		Name:  "locate",
		Usage: "Locate the CUDA toolkit and print its configuration",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "half-precision",
				Usage: "Assemble flags for a half-precision build",
			},
		},
		Action: func(c *cli.Context) error {
			half := c.Bool("half-precision") || state.cfg.Toolkit.HalfPrecision
			tk, err := toolkit.Locate(toolkit.Options{
				Platform:      toolkit.HostPlatform(),
				HalfPrecision: half,
			}, state.logger)
			if err != nil {
				if errors.Is(err, toolkit.ErrNotFound) {
					return cli.Exit("cuda toolkit not found", 1)
				}
				return err
			}

			out, err := yaml.Marshal(tk)
			if err != nil {
				return fmt.Errorf("failed to render toolkit config: %w", err)
			}
			_, err = os.Stdout.Write(out)
			return err
		},
	}
}
