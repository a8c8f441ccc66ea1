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

// UnixDriver invokes a cc-style compiler one source at a time.
type UnixDriver struct {
	executable    string
	srcExtensions map[string]bool
	runner        Runner
	logger        *zap.Logger
}

// NewUnixDriver creates a driver around the host C++ compiler. CXX overrides
// the default executable.
func NewUnixDriver(runner Runner, log *zap.Logger) *UnixDriver {
	executable := os.Getenv("CXX")
	if executable == "" {
		executable = "c++"
	}
	return &UnixDriver{
		executable: executable,
		srcExtensions: map[string]bool{
			".c": true, ".cc": true, ".cpp": true, ".cxx": true, ".m": true,
		},
		runner: runner,
		logger: log.Named("cc"),
	}
}

// Executable returns the compiler currently invoked for sources.
func (d *UnixDriver) Executable() string {
	return d.executable
}

// setExecutable swaps the driver executable and returns a restore func. The
// same driver instance compiles every source of a build, so callers must
// restore before the next source goes through.
func (d *UnixDriver) setExecutable(path string) (restore func()) {
	previous := d.executable
	d.executable = path
	return func() { d.executable = previous }
}

func (d *UnixDriver) Compile(ctx context.Context, sources []string, opts Options) ([]string, error) {
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	objects := make([]string, 0, len(sources))
	for _, src := range sources {
		obj := objectName(src, opts.OutputDir, ".o")
		if err := d.compileSource(ctx, src, obj, opts); err != nil {
			return nil, err
		}
		objects = append(objects, obj)
	}
	return objects, nil
}

func (d *UnixDriver) compileSource(ctx context.Context, src, obj string, opts Options) error {
	if !d.srcExtensions[ext(src)] {
		return &CompileError{Source: src, Err: fmt.Errorf("unknown file type %q", ext(src))}
	}
	return d.compileOne(ctx, "native", src, obj, opts, opts.ExtraArgs)
}

func (d *UnixDriver) compileOne(ctx context.Context, route, src, obj string, opts Options, extraArgs []string) error {
	args := preprocessorArgs(opts, "-D", "-I")
	if opts.Debug {
		args = append(args, "-g")
	}
	args = append(args, "-c", src, "-o", obj)
	args = append(args, extraArgs...)

	start := time.Now()
	err := d.runner.Run(ctx, d.executable, args)
	metrics.CompileDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.CompilesTotal.WithLabelValues(route, "error").Inc()
		return &CompileError{Source: src, Err: err}
	}
	metrics.CompilesTotal.WithLabelValues(route, "ok").Inc()
	d.logger.Debug("compiled", zap.String("source", src), zap.String("object", obj))
	return nil
}

// CUDAUnixDriver extends UnixDriver with .cu sources. CUDA sources are
// compiled by temporarily pointing the driver at nvcc, with the caller's
// extra args replaced by the toolkit flag bundle; everything else delegates
// unchanged.
type CUDAUnixDriver struct {
	*UnixDriver
	toolkit *toolkit.Toolkit
}

func NewCUDAUnixDriver(native *UnixDriver, tk *toolkit.Toolkit) *CUDAUnixDriver {
	native.srcExtensions[cudaExt] = true
	return &CUDAUnixDriver{UnixDriver: native, toolkit: tk}
}

func (d *CUDAUnixDriver) Compile(ctx context.Context, sources []string, opts Options) ([]string, error) {
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	objects := make([]string, 0, len(sources))
	for _, src := range sources {
		obj := objectName(src, opts.OutputDir, ".o")
		var err error
		if isCudaSource(src) {
			err = d.compileCuda(ctx, src, obj, opts)
		} else {
			err = d.compileSource(ctx, src, obj, opts)
		}
		if err != nil {
			return nil, err
		}
		objects = append(objects, obj)
	}
	return objects, nil
}

func (d *CUDAUnixDriver) compileCuda(ctx context.Context, src, obj string, opts Options) error {
	restore := d.setExecutable(d.toolkit.NVCC)
	defer restore()
	return d.compileOne(ctx, "nvcc", src, obj, opts, d.toolkit.Flags)
}
