package executive

import (
	"errors"
	"os"

	"github.com/shirou/gopsutil/v3/process"
)

// terminateTree sends SIGTERM to a process and all of its descendants,
// children first so the MCP server does not outlive the CLI.
func terminateTree(pid int) error {
	root, err := process.NewProcess(int32(pid))
	if err != nil {
		return os.ErrProcessDone
	}
	return terminate(root)
}

func terminate(p *process.Process) error {
	var errs []error
	children, _ := p.Children()
	for _, child := range children {
		if err := terminate(child); err != nil {
			errs = append(errs, err)
		}
	}
	if err := p.Terminate(); err != nil {
		if running, _ := p.IsRunning(); running {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
