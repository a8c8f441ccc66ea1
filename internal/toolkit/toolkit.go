package toolkit

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"go.uber.org/zap"
)

// Platform selects the flag dialect and filesystem layout of the toolkit.
// It is an explicit input rather than a build tag so both profiles can be
// exercised on any host.
type Platform string

const (
	PlatformUnix    Platform = "unix"
	PlatformWindows Platform = "windows"
)

// HostPlatform returns the platform profile of the running host.
func HostPlatform() Platform {
	if runtime.GOOS == "windows" {
		return PlatformWindows
	}
	return PlatformUnix
}

// ErrNotFound is returned when no usable CUDA installation exists. It is a
// normal outcome: callers proceed without the toolkit and .cu sources later
// fail through the native compiler.
var ErrNotFound = errors.New("cuda toolkit not found")

// envVars are checked in priority order for an explicit toolkit root.
var envVars = []string{"CUDA_PATH", "CUDAHOME", "CUDA_HOME"}

// gencodeFlags targets compute capabilities 5.2 through 8.6.
var gencodeFlags = []string{
	"-arch=sm_52",
	"-gencode=arch=compute_52,code=sm_52",
	"-gencode=arch=compute_60,code=sm_60",
	"-gencode=arch=compute_61,code=sm_61",
	"-gencode=arch=compute_70,code=sm_70",
	"-gencode=arch=compute_75,code=sm_75",
	"-gencode=arch=compute_80,code=sm_80",
	"-gencode=arch=compute_86,code=sm_86",
	"-gencode=arch=compute_86,code=compute_86",
	"--ptxas-options=-v",
	"-O2",
}

// Toolkit is the located CUDA installation. All paths are validated at
// construction time; a Toolkit with a missing path is never returned.
type Toolkit struct {
	Home     string
	NVCC     string
	Include  string
	Lib      string
	Flags    []string
	Platform Platform
}

// Options control where and how Locate searches.
type Options struct {
	Platform Platform
	// HalfPrecision keeps the sm_52 code paths out when false (compute
	// capability 5.2 flags are only emitted together with the
	// HALF_PRECISION define).
	HalfPrecision bool
}

// Locate searches for a CUDA installation. The environment variables
// CUDA_PATH, CUDAHOME and CUDA_HOME are checked first, in that order; the
// first one set wins. Otherwise every PATH entry is searched for the nvcc
// binary. Failure to find a complete installation is reported with a single
// warning and ErrNotFound.
func Locate(opts Options, log *zap.Logger) (*Toolkit, error) {
	if opts.Platform == "" {
		opts.Platform = HostPlatform()
	}

	nvccBin := "nvcc"
	if opts.Platform == PlatformWindows {
		nvccBin = "nvcc.exe"
	}

	var home, nvcc string
	found := false
	for _, name := range envVars {
		value, ok := os.LookupEnv(name)
		if !ok {
			continue
		}
		found = true
		home = value
		nvcc = filepath.Join(home, "bin", nvccBin)
		break
	}
	if !found {
		nvcc = findInPath(nvccBin, os.Getenv("PATH"))
		if nvcc == "" {
			log.Warn("The nvcc binary could not be located in your PATH. " +
				"Either add it to your PATH, or set CUDA_HOME to enable CUDA extensions")
			return nil, ErrNotFound
		}
		home = filepath.Dir(filepath.Dir(nvcc))
	}

	tk := &Toolkit{
		Home:     home,
		NVCC:     nvcc,
		Include:  filepath.Join(home, "include"),
		Lib:      filepath.Join(home, "lib64"),
		Platform: opts.Platform,
	}
	if opts.Platform == PlatformWindows {
		tk.Lib = filepath.Join(home, "lib", "x64")
	}
	tk.Flags = assembleFlags(opts)

	for _, p := range []struct{ key, path string }{
		{"home", tk.Home},
		{"nvcc", tk.NVCC},
		{"include", tk.Include},
		{"lib", tk.Lib},
	} {
		if _, err := os.Stat(p.path); err != nil {
			log.Warn("The CUDA path could not be located",
				zap.String("key", p.key), zap.String("path", p.path))
			return nil, fmt.Errorf("cuda %s path missing at %s: %w", p.key, p.path, ErrNotFound)
		}
	}

	return tk, nil
}

// findInPath returns the absolute path of the first entry in pathList that
// contains name, or "" if none does.
func findInPath(name, pathList string) string {
	for _, dir := range filepath.SplitList(pathList) {
		binPath := filepath.Join(dir, name)
		if _, err := os.Stat(binPath); err != nil {
			continue
		}
		abs, err := filepath.Abs(binPath)
		if err != nil {
			continue
		}
		return abs
	}
	return ""
}

// assembleFlags builds the nvcc argument bundle for the platform profile.
func assembleFlags(opts Options) []string {
	flags := make([]string, 0, len(gencodeFlags)+8)
	for _, f := range gencodeFlags {
		// sm_52 targets are tied to the half-precision mode.
		if !opts.HalfPrecision && strings.Contains(f, "52") {
			continue
		}
		flags = append(flags, f)
	}

	if opts.Platform == PlatformWindows {
		flags = append(flags, "-Xcompiler", "/MD", "-std=c++14", "-Xcompiler", "/openmp")
		if opts.HalfPrecision {
			flags = append(flags, "-Xcompiler", "/D HALF_PRECISION")
		}
	} else {
		flags = append(flags, "-c", "--compiler-options", "-fPIC",
			"--compiler-options", "-std=c++14")
		if opts.HalfPrecision {
			flags = append(flags, "--compiler-options", "-D HALF_PRECISION")
		}
	}
	return flags
}
