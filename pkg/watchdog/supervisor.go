package watchdog

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Supervisor stops the agent being watched.
type Supervisor interface {
	Terminate(ctx context.Context, target string) error
}

// ErrNoProcess means no running process matched the target.
var ErrNoProcess = errors.New("no matching process")

// ProcessSupervisor signals processes whose command line matches the target,
// via pkill -f.
type ProcessSupervisor struct {
	// Signal defaults to TERM.
	Signal string

	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewProcessSupervisor creates a supervisor sending signal (TERM when empty).
func NewProcessSupervisor(signal string) *ProcessSupervisor {
	if signal == "" {
		signal = "TERM"
	}
	return &ProcessSupervisor{Signal: signal, run: runCommand}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Terminate signals every process matching target.
func (p *ProcessSupervisor) Terminate(ctx context.Context, target string) error {
	if strings.TrimSpace(target) == "" {
		return fmt.Errorf("terminate: empty target")
	}
	out, err := p.run(ctx, "pkill", "-"+p.Signal, "-f", target)
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return fmt.Errorf("terminate %q: %w", target, ErrNoProcess)
	}
	return fmt.Errorf("terminate %q: %w: %s", target, err, strings.TrimSpace(string(out)))
}

// CancelSupervisor stops an in-process agent by cancelling its context.
type CancelSupervisor struct {
	Cancel context.CancelFunc
}

// Terminate cancels the agent; target is only informational.
func (c CancelSupervisor) Terminate(context.Context, string) error {
	if c.Cancel == nil {
		return fmt.Errorf("terminate: no cancel func")
	}
	c.Cancel()
	return nil
}
