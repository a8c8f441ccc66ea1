package compiler

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Options carry the per-request compile settings handed down by the build
// orchestrator: where objects go, preprocessor state and caller extras.
type Options struct {
	OutputDir   string
	IncludeDirs []string
	// Macros are preprocessor defines, either "NAME" or "NAME=VALUE".
	Macros    []string
	ExtraArgs []string
	Debug     bool
}

// Driver compiles a list of sources into object files. Implementations route
// each source to the right underlying compiler executable.
type Driver interface {
	Compile(ctx context.Context, sources []string, opts Options) ([]string, error)
}

// CompileError is fatal to the current build step. It wraps the process
// failure of a single source compilation and is never retried.
type CompileError struct {
	Source string
	Err    error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("failed to compile %s: %v", e.Source, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

const cudaExt = ".cu"

func ext(path string) string {
	return filepath.Ext(path)
}

func isCudaSource(src string) bool {
	return ext(src) == cudaExt
}

// objectName maps a source path to its object file inside outputDir.
func objectName(src, outputDir, objExt string) string {
	base := filepath.Base(src)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(outputDir, base+objExt)
}

// preprocessorArgs renders macros and include dirs with the given option
// prefixes ("-D"/"-I" for cc and nvcc, "/D"/"/I" for cl).
func preprocessorArgs(opts Options, definePrefix, includePrefix string) []string {
	args := make([]string, 0, len(opts.Macros)+len(opts.IncludeDirs))
	for _, macro := range opts.Macros {
		args = append(args, definePrefix+macro)
	}
	for _, dir := range opts.IncludeDirs {
		args = append(args, includePrefix+dir)
	}
	return args
}
