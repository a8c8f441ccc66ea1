package main

import (
	"errors"

	"github.com/common-nighthawk/go-figure"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/cubuild/cubuild/internal/build"
	"github.com/cubuild/cubuild/internal/compiler"
	"github.com/cubuild/cubuild/internal/metrics"
	"github.com/cubuild/cubuild/internal/toolkit"
)

func buildCommand(state *appState) *cli.Command {
	return &cli.Command{
		Name:  "build",
		Usage: "Compile every extension in the manifest",
		Action: func(c *cli.Context) error {
			log := state.logger
			cfg := state.cfg

			if len(cfg.Build.Extensions) == 0 {
				return cli.Exit("manifest has no extensions to build", 1)
			}

			banner := figure.NewFigure("cubuild", "", true)
			banner.Print()

			metrics.Serve(cfg.Metrics.ListenAddress, log)

			tk, err := toolkit.Locate(toolkit.Options{
				Platform:      toolkit.HostPlatform(),
				HalfPrecision: cfg.Toolkit.HalfPrecision,
			}, log)
			if err != nil {
				if !errors.Is(err, toolkit.ErrNotFound) {
					return err
				}
				tk = nil // degrade to the native-only build
			}

			builder := build.NewBuilder(cfg, tk, toolkit.HostPlatform(), compiler.NewRunner(), log)
			objects, err := builder.Build(c.Context)
			if err != nil {
				return err
			}

			log.Info("build finished", zap.Int("objects", len(objects)))
			return nil
		},
	}
}
