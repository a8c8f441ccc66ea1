package compiler

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cubuild/cubuild/internal/toolkit"
)

type call struct {
	bin  string
	args []string
}

// fakeRunner records every spawn and can be told to fail for selected
// sources.
type fakeRunner struct {
	calls    []call
	failWhen func(bin string, args []string) error
}

func (r *fakeRunner) Run(_ context.Context, bin string, args []string) error {
	r.calls = append(r.calls, call{bin: bin, args: args})
	if r.failWhen != nil {
		return r.failWhen(bin, args)
	}
	return nil
}

func hasArg(args []string, want string) bool {
	for _, a := range args {
		if a == want {
			return true
		}
	}
	return false
}

func testToolkit() *toolkit.Toolkit {
	return &toolkit.Toolkit{
		Home:     "/opt/cuda",
		NVCC:     "/opt/cuda/bin/nvcc",
		Include:  "/opt/cuda/include",
		Lib:      "/opt/cuda/lib64",
		Flags:    []string{"-gencode=arch=compute_80,code=sm_80", "--ptxas-options=-v", "-O2"},
		Platform: toolkit.PlatformUnix,
	}
}

func TestUnixDriverCompile(t *testing.T) {
	t.Setenv("CXX", "g++")

	t.Run("compiles each source with caller args", func(t *testing.T) {
		runner := &fakeRunner{}
		d := NewUnixDriver(runner, zap.NewNop())
		out := t.TempDir()

		objects, err := d.Compile(context.Background(), []string{"a.cpp", "b.cc"}, Options{
			OutputDir:   out,
			IncludeDirs: []string{"include"},
			Macros:      []string{"NDEBUG"},
			ExtraArgs:   []string{"-O3"},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(out, "a.o"), filepath.Join(out, "b.o")}, objects)

		require.Len(t, runner.calls, 2)
		first := runner.calls[0]
		assert.Equal(t, "g++", first.bin)
		assert.True(t, hasArg(first.args, "-DNDEBUG"))
		assert.True(t, hasArg(first.args, "-Iinclude"))
		assert.True(t, hasArg(first.args, "-O3"))
		assert.True(t, hasArg(first.args, "a.cpp"))
	})

	t.Run("rejects unknown file types", func(t *testing.T) {
		d := NewUnixDriver(&fakeRunner{}, zap.NewNop())

		_, err := d.Compile(context.Background(), []string{"kernel.cu"}, Options{OutputDir: t.TempDir()})
		var compileErr *CompileError
		require.ErrorAs(t, err, &compileErr)
		assert.Equal(t, "kernel.cu", compileErr.Source)
	})

	t.Run("spawn failure becomes a CompileError", func(t *testing.T) {
		spawnErr := errors.New("exec: \"g++\": executable file not found")
		runner := &fakeRunner{failWhen: func(string, []string) error { return spawnErr }}
		d := NewUnixDriver(runner, zap.NewNop())

		objects, err := d.Compile(context.Background(), []string{"a.cpp"}, Options{OutputDir: t.TempDir()})
		assert.Nil(t, objects)
		var compileErr *CompileError
		require.ErrorAs(t, err, &compileErr)
		assert.ErrorIs(t, err, spawnErr)
	})
}

func TestCUDAUnixDriverCompile(t *testing.T) {
	t.Setenv("CXX", "g++")
	tk := testToolkit()

	t.Run("routes .cu to nvcc with toolkit flags", func(t *testing.T) {
		runner := &fakeRunner{}
		d := NewCUDAUnixDriver(NewUnixDriver(runner, zap.NewNop()), tk)
		out := t.TempDir()

		objects, err := d.Compile(context.Background(), []string{"host.cpp", "kernel.cu"}, Options{
			OutputDir: out,
			ExtraArgs: []string{"-O3"},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(out, "host.o"), filepath.Join(out, "kernel.o")}, objects)

		require.Len(t, runner.calls, 2)
		assert.Equal(t, "g++", runner.calls[0].bin)
		assert.True(t, hasArg(runner.calls[0].args, "-O3"))

		cudaCall := runner.calls[1]
		assert.Equal(t, tk.NVCC, cudaCall.bin)
		assert.True(t, hasArg(cudaCall.args, "--ptxas-options=-v"))
		// The caller's extra args are replaced by the toolkit bundle.
		assert.False(t, hasArg(cudaCall.args, "-O3"))
	})

	t.Run("restores the executable after a .cu compile", func(t *testing.T) {
		runner := &fakeRunner{}
		d := NewCUDAUnixDriver(NewUnixDriver(runner, zap.NewNop()), tk)

		_, err := d.Compile(context.Background(), []string{"kernel.cu", "host.cpp"}, Options{OutputDir: t.TempDir()})
		require.NoError(t, err)
		assert.Equal(t, "g++", d.Executable())
		// The source after the .cu file went through the native compiler.
		assert.Equal(t, "g++", runner.calls[1].bin)
	})

	t.Run("restores the executable when nvcc fails", func(t *testing.T) {
		runner := &fakeRunner{failWhen: func(bin string, _ []string) error {
			if bin == tk.NVCC {
				return errors.New("nvcc fatal : unsupported gpu architecture")
			}
			return nil
		}}
		d := NewCUDAUnixDriver(NewUnixDriver(runner, zap.NewNop()), tk)

		objects, err := d.Compile(context.Background(), []string{"kernel.cu"}, Options{OutputDir: t.TempDir()})
		assert.Nil(t, objects)
		var compileErr *CompileError
		require.ErrorAs(t, err, &compileErr)
		assert.Equal(t, "kernel.cu", compileErr.Source)
		assert.Equal(t, "g++", d.Executable())
	})
}

func TestObjectName(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "kernel.o"), objectName("src/kernel.cu", "out", ".o"))
	assert.Equal(t, filepath.Join("out", "host.obj"), objectName("host.cpp", "out", ".obj"))
}
