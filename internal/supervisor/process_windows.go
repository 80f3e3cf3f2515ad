//go:build windows

package supervisor

import (
	"bytes"
	"fmt"
	"os/exec"
	"strconv"
	"syscall"
)

func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}

// terminate 通过 taskkill 终止进程树
func terminate(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	kill := exec.Command("taskkill", "/T", "/PID", strconv.Itoa(cmd.Process.Pid))
	var out bytes.Buffer
	kill.Stdout = &out
	kill.Stderr = &out
	if err := kill.Run(); err != nil {
		// Console processes without a window ignore the polite request.
		if ferr := exec.Command("taskkill", "/F", "/T", "/PID", strconv.Itoa(cmd.Process.Pid)).Run(); ferr != nil {
			return fmt.Errorf("taskkill failed: %w, output: %s", err, out.String())
		}
	}
	return nil
}

func forceKill(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	_ = exec.Command("taskkill", "/F", "/T", "/PID", strconv.Itoa(cmd.Process.Pid)).Run()
}
