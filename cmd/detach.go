package cmd

import (
	"fmt"
	"os"
	"os/exec"
)

// spawnDetached starts nudge again with args, detached from this process
// and its terminal, and does not wait for it.
func spawnDetached(args ...string) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to locate executable: %w", err)
	}
	c := exec.Command(exe, args...)
	c.SysProcAttr = detachAttr()
	if err := c.Start(); err != nil {
		return fmt.Errorf("failed to start recorder: %w", err)
	}
	return c.Process.Release()
}
