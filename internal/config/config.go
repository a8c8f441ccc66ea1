package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Extension describes one native extension to build: a set of sources that
// share include directories, macros and an output directory.
type Extension struct {
	Name        string   `yaml:"name"`
	Sources     []string `yaml:"sources"`
	IncludeDirs []string `yaml:"includeDirs"`
	// Macros are preprocessor defines, either "NAME" or "NAME=VALUE".
	Macros    []string `yaml:"macros"`
	ExtraArgs []string `yaml:"extraArgs"`
	OutputDir string   `yaml:"outputDir"`
}

type Config struct {
	Logger struct {
		Verbosity string `yaml:"verbosity"`
	} `yaml:"logger"`
	Toolkit struct {
		HalfPrecision bool `yaml:"halfPrecision"`
	} `yaml:"toolkit"`
	Metrics struct {
		ListenAddress string `yaml:"listenAddress"`
	} `yaml:"metrics"`
	Build struct {
		OutputDir  string      `yaml:"outputDir"`
		Extensions []Extension `yaml:"extensions"`
	} `yaml:"build"`
}

// DefaultManifestPath is where the build command looks for a manifest when
// no --config flag is given.
const DefaultManifestPath = "cubuild.yaml"

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, err
	}

	if config.Logger.Verbosity == "" {
		config.Logger.Verbosity = "info"
	}
	if config.Build.OutputDir == "" {
		config.Build.OutputDir = "build"
	}
	for i := range config.Build.Extensions {
		ext := &config.Build.Extensions[i]
		if ext.Name == "" {
			return nil, fmt.Errorf("extension %d has no name", i)
		}
		if len(ext.Sources) == 0 {
			return nil, fmt.Errorf("extension %q has no sources", ext.Name)
		}
		if ext.OutputDir == "" {
			ext.OutputDir = config.Build.OutputDir
		}
	}

	return &config, nil
}
