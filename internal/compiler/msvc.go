package compiler

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cubuild/cubuild/internal/metrics"
	"github.com/cubuild/cubuild/internal/toolkit"
)

// MSVCDriver invokes a cl-style compiler.
type MSVCDriver struct {
	executable    string
	srcExtensions map[string]bool
	runner        Runner
	logger        *zap.Logger
}

func NewMSVCDriver(runner Runner, log *zap.Logger) *MSVCDriver {
	return &MSVCDriver{
		executable: "cl.exe",
		srcExtensions: map[string]bool{
			".c": true, ".cc": true, ".cpp": true, ".cxx": true,
		},
		runner: runner,
		logger: log.Named("cl"),
	}
}

func (d *MSVCDriver) Compile(ctx context.Context, sources []string, opts Options) ([]string, error) {
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	objects := make([]string, 0, len(sources))
	for _, src := range sources {
		if !d.srcExtensions[ext(src)] {
			return nil, &CompileError{Source: src, Err: fmt.Errorf("unknown file type %q", ext(src))}
		}
		obj := objectName(src, opts.OutputDir, ".obj")

		args := []string{"/nologo", "/c"}
		args = append(args, preprocessorArgs(opts, "/D", "/I")...)
		if opts.Debug {
			args = append(args, "/Zi")
		}
		args = append(args, "/Fo"+obj, src)
		args = append(args, opts.ExtraArgs...)

		start := time.Now()
		err := d.runner.Run(ctx, d.executable, args)
		metrics.CompileDuration.WithLabelValues("native").Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.CompilesTotal.WithLabelValues("native", "error").Inc()
			return nil, &CompileError{Source: src, Err: err}
		}
		metrics.CompilesTotal.WithLabelValues("native", "ok").Inc()
		d.logger.Debug("compiled", zap.String("source", src), zap.String("object", obj))
		objects = append(objects, obj)
	}
	return objects, nil
}

// CUDAMSVCDriver extends MSVCDriver with .cu sources. The source list is
// partitioned up front: non-CUDA sources go through the cl batch unchanged,
// CUDA sources are compiled by invoking nvcc directly per file. Returned
// objects are the cl batch followed by the nvcc batch.
type CUDAMSVCDriver struct {
	*MSVCDriver
	toolkit *toolkit.Toolkit
}

func NewCUDAMSVCDriver(native *MSVCDriver, tk *toolkit.Toolkit) *CUDAMSVCDriver {
	native.srcExtensions[cudaExt] = true
	return &CUDAMSVCDriver{MSVCDriver: native, toolkit: tk}
}

func (d *CUDAMSVCDriver) Compile(ctx context.Context, sources []string, opts Options) ([]string, error) {
	var cudaSources, otherSources []string
	for _, src := range sources {
		if isCudaSource(src) {
			cudaSources = append(cudaSources, src)
		} else {
			otherSources = append(otherSources, src)
		}
	}

	objects, err := d.MSVCDriver.Compile(ctx, otherSources, opts)
	if err != nil {
		return nil, err
	}

	cudaObjects, err := d.compileCuda(ctx, cudaSources, opts)
	if err != nil {
		return nil, err
	}

	return append(objects, cudaObjects...), nil
}

func (d *CUDAMSVCDriver) compileCuda(ctx context.Context, sources []string, opts Options) ([]string, error) {
	objects := make([]string, 0, len(sources))
	for _, src := range sources {
		obj := objectName(src, opts.OutputDir, ".obj")

		// nvcc takes -D/-I style options even when driving cl underneath.
		args := append([]string{"-c"}, preprocessorArgs(opts, "-D", "-I")...)
		args = append(args, src, "-o", obj)
		args = append(args, d.toolkit.Flags...)

		start := time.Now()
		err := d.runner.Run(ctx, d.toolkit.NVCC, args)
		metrics.CompileDuration.WithLabelValues("nvcc").Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.CompilesTotal.WithLabelValues("nvcc", "error").Inc()
			return nil, &CompileError{Source: src, Err: err}
		}
		metrics.CompilesTotal.WithLabelValues("nvcc", "ok").Inc()
		d.logger.Debug("compiled", zap.String("source", src), zap.String("object", obj))
		objects = append(objects, obj)
	}
	return objects, nil
}
