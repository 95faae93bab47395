// Package proc manages child processes that must never outlive the request
// that started them. Children run in their own process group so that helpers
// they spawn (yt-dlp forks ffmpeg) are signalled together.
package proc

import (
	"os/exec"
	"time"
)

// Terminate stops cmd's process group: SIGTERM, wait up to grace for waitCh,
// then SIGKILL and drain waitCh. It returns the error delivered on waitCh.
// waitCh must receive the result of cmd.Wait exactly once.
// Safe to call on a command that was never started.
func Terminate(cmd *exec.Cmd, waitCh <-chan error, grace time.Duration) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}

	_ = Interrupt(cmd)

	select {
	case err := <-waitCh:
		return err
	case <-time.After(grace):
	}

	_ = Kill(cmd)
	return <-waitCh
}
