/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

//go:build unix

package player

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// detachProcess makes the child a session/process-group leader so signals can
// address the whole group.
func detachProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// signalGroup targets the process group rather than the single pid.
func signalGroup(pid int, sig unix.Signal) error {
	if err := unix.Kill(-pid, sig); err != nil {
		// Fall back to the lone process if the group is gone already.
		return unix.Kill(pid, sig)
	}
	return nil
}

func suspendGroup(pid int) error   { return signalGroup(pid, unix.SIGSTOP) }
func resumeGroup(pid int) error    { return signalGroup(pid, unix.SIGCONT) }
func terminateGroup(pid int) error { return signalGroup(pid, unix.SIGTERM) }
func killGroup(pid int) error      { return signalGroup(pid, unix.SIGKILL) }
