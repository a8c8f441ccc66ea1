package build

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/cubuild/cubuild/internal/compiler"
	"github.com/cubuild/cubuild/internal/config"
	"github.com/cubuild/cubuild/internal/metrics"
	"github.com/cubuild/cubuild/internal/toolkit"
)

// Builder runs the extension-build step of a manifest. Driver selection
// happens once at construction: with a located toolkit the CUDA-aware driver
// is installed, without one the build proceeds native-only.
type Builder struct {
	cfg    *config.Config
	driver compiler.Driver
	logger *zap.Logger
}

func NewBuilder(cfg *config.Config, tk *toolkit.Toolkit, platform toolkit.Platform, runner compiler.Runner, log *zap.Logger) *Builder {
	logger := log.Named("build")
	if tk != nil {
		metrics.ToolkitLocated.Set(1)
		logger.Info("CUDA toolkit located",
			zap.String("home", tk.Home), zap.String("nvcc", tk.NVCC))
	} else {
		metrics.ToolkitLocated.Set(0)
		logger.Warn("no CUDA toolkit; .cu sources will fail through the native compiler")
	}
	return &Builder{
		cfg:    cfg,
		driver: compiler.NewDriver(tk, platform, runner, logger),
		logger: logger,
	}
}

// Build compiles every extension in the manifest and returns all produced
// object files. The first failing extension aborts the build.
func (b *Builder) Build(ctx context.Context) ([]string, error) {
	var objects []string
	for _, ext := range b.cfg.Build.Extensions {
		objs, err := b.buildExtension(ctx, ext)
		if err != nil {
			metrics.ExtensionsBuilt.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("extension %q: %w", ext.Name, err)
		}
		metrics.ExtensionsBuilt.WithLabelValues("ok").Inc()
		objects = append(objects, objs...)
	}
	return objects, nil
}

func (b *Builder) buildExtension(ctx context.Context, ext config.Extension) ([]string, error) {
	start := time.Now()
	opts := compiler.Options{
		// Each extension gets its own object directory so basenames from
		// different extensions cannot collide.
		OutputDir:   filepath.Join(ext.OutputDir, ext.Name),
		IncludeDirs: ext.IncludeDirs,
		Macros:      ext.Macros,
		ExtraArgs:   ext.ExtraArgs,
	}

	objects, err := b.driver.Compile(ctx, ext.Sources, opts)
	if err != nil {
		return nil, err
	}

	b.logger.Info("built extension",
		zap.String("name", ext.Name),
		zap.Int("objects", len(objects)),
		zap.Duration("elapsed", time.Since(start)))
	return objects, nil
}
