package relay

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"media-relay/internal/platform/proc"
)

// DefaultTerminateGrace is how long a child gets between SIGTERM and SIGKILL.
const DefaultTerminateGrace = 2 * time.Second

// Process is a running toolchain child whose stdout carries the media.
type Process interface {
	Stdout() io.Reader
	// Terminate stops the child and everything it spawned, waits for it to
	// be reaped and releases its pipes. It is idempotent.
	Terminate() error
}

// Launcher starts toolchain children.
type Launcher interface {
	Launch(ctx context.Context, inv Invocation) (Process, error)
}

// ExecLauncher runs invocations as real subprocesses. Each child leads its
// own process group; cancelling ctx kills the whole group.
type ExecLauncher struct {
	Grace time.Duration
}

// Launch implements Launcher. The child's stderr is discarded.
func (l ExecLauncher) Launch(ctx context.Context, inv Invocation) (Process, error) {
	grace := l.Grace
	if grace <= 0 {
		grace = DefaultTerminateGrace
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}

	// #nosec G204 -- argv is built by the selector; the source URL follows "--".
	cmd := exec.CommandContext(ctx, inv.Executable, inv.Args...)
	proc.SetGroup(cmd)
	cmd.Cancel = func() error { return proc.Kill(cmd) }
	cmd.WaitDelay = grace
	cmd.Stdout = pw

	if err := cmd.Start(); err != nil {
		_ = pr.Close()
		_ = pw.Close()
		return nil, fmt.Errorf("start %s: %w", inv.Executable, err)
	}
	// The child holds its own copy; ours must go so EOF arrives when it exits.
	_ = pw.Close()

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	return &execProcess{cmd: cmd, stdout: pr, waitCh: waitCh, grace: grace}, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	stdout *os.File
	waitCh chan error
	grace  time.Duration

	once    sync.Once
	waitErr error
}

func (p *execProcess) Stdout() io.Reader { return p.stdout }

func (p *execProcess) Terminate() error {
	p.once.Do(func() {
		p.waitErr = proc.Terminate(p.cmd, p.waitCh, p.grace)
		_ = p.stdout.Close()
	})
	return p.waitErr
}
