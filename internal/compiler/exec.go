package compiler

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// Runner spawns a compiler process and waits for it. Abstracted so the
// drivers can be exercised without real compilers on the host.
type Runner interface {
	Run(ctx context.Context, bin string, args []string) error
}

type execRunner struct{}

// NewRunner returns the os/exec backed Runner used outside of tests.
func NewRunner() Runner {
	return execRunner{}
}

func (execRunner) Run(ctx context.Context, bin string, args []string) error {
	cmd := exec.CommandContext(ctx, bin, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		output = bytes.TrimSpace(output)
		if len(output) > 0 {
			return fmt.Errorf("%s: %w: %s", bin, err, output)
		}
		return fmt.Errorf("%s: %w", bin, err)
	}
	return nil
}
