package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/cubuild/cubuild/internal/config"
	"github.com/cubuild/cubuild/internal/logger"
)

// appState is shared between the Before hook and the commands.
type appState struct {
	configPath string
	cfg        *config.Config
	logger     *zap.Logger
}

func main() {
	state := &appState{}

	app := &cli.App{
		Name:  "cubuild",
		Usage: "Build native extensions, routing .cu sources through nvcc",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Value:       config.DefaultManifestPath,
				Usage:       "Path to the build manifest",
				Destination: &state.configPath,
			},
		},
		Before: func(c *cli.Context) error {
			cfg, err := config.LoadConfig(state.configPath)
			if err != nil {
				if !errors.Is(err, fs.ErrNotExist) {
					return err
				}
				// No manifest: commands that only probe the system (locate)
				// still work on defaults.
				cfg = &config.Config{}
				cfg.Logger.Verbosity = "info"
			}
			zapLogger, err := logger.New(cfg.Logger.Verbosity)
			if err != nil {
				return err
			}
			state.cfg = cfg
			state.logger = zapLogger.Named("cli")
			return nil
		},
		Commands: []*cli.Command{
			buildCommand(state),
			locateCommand(state),
		},
	}

	if err := app.Run(os.Args); err != nil {
		if state.logger != nil {
			state.logger.Error("command failed", zap.Error(err))
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
