/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

//go:build !unix

package player

import (
	"errors"
	"os"
	"os/exec"
)

// Pause-by-signal is not portable; on non-unix platforms the handle can start
// and kill the player but not suspend it.
var errUnsupported = errors.New("process suspension unsupported on this platform")

func detachProcess(cmd *exec.Cmd) {}

func suspendGroup(pid int) error { return errUnsupported }
func resumeGroup(pid int) error  { return nil }

func terminateGroup(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Kill()
}

func killGroup(pid int) error { return terminateGroup(pid) }
