// Package pipeline invokes the appliance's merge/restart pipeline after a
// settings change. The pipeline itself is an external program; this package
// only owns the invocation contract: blocking, bounded by a timeout, with
// timeouts reported distinctly from ordinary failures.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/owl-os/retina-console/pkg/logger"
)

// ErrTimeout indicates a collaborator operation exceeded its bound. Callers
// can offer "retry" instead of "fix input" when they see it.
var ErrTimeout = errors.New("operation timed out")

// Applier triggers the external apply pipeline.
type Applier interface {
	Apply(ctx context.Context) error
}

// DefaultApplyCommand is the merge/restart entry point installed on the
// appliance image.
var DefaultApplyCommand = []string{"retina-apply"}

// ExecApplier runs the apply pipeline as an external process.
type ExecApplier struct {
	command []string
	timeout time.Duration
}

// NewExecApplier creates an applier that runs command with the given
// timeout bound. An empty command falls back to DefaultApplyCommand.
func NewExecApplier(command []string, timeout time.Duration) *ExecApplier {
	if len(command) == 0 {
		command = DefaultApplyCommand
	}
	return &ExecApplier{command: command, timeout: timeout}
}

// Apply runs the pipeline and reports its outcome verbatim.
func (a *ExecApplier) Apply(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	logger.Infof("running apply pipeline: %s", strings.Join(a.command, " "))
	// #nosec G204: the command comes from operator configuration, not from
	// request input.
	cmd := exec.CommandContext(ctx, a.command[0], a.command[1:]...)
	output, err := cmd.CombinedOutput()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("apply pipeline exceeded %v: %w", a.timeout, ErrTimeout)
	}
	if err != nil {
		if msg := strings.TrimSpace(string(output)); msg != "" {
			return fmt.Errorf("apply pipeline failed: %s: %w", msg, err)
		}
		return fmt.Errorf("apply pipeline failed: %w", err)
	}
	return nil
}
