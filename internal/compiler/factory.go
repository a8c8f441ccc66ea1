package compiler

import (
	"go.uber.org/zap"

	"github.com/cubuild/cubuild/internal/toolkit"
)

// NewDriver selects the compiler driver for the platform. With a located
// toolkit the CUDA-aware variant is returned; without one the plain native
// driver is, and .cu sources will fail through it.
func NewDriver(tk *toolkit.Toolkit, platform toolkit.Platform, runner Runner, log *zap.Logger) Driver {
	if platform == toolkit.PlatformWindows {
		native := NewMSVCDriver(runner, log)
		if tk == nil {
			return native
		}
		return NewCUDAMSVCDriver(native, tk)
	}

	native := NewUnixDriver(runner, log)
	if tk == nil {
		return native
	}
	return NewCUDAUnixDriver(native, tk)
}
