package sandbox

import (
	"github.com/shirou/gopsutil/v3/process"
)

// killTree kills pid and every descendant. The tree is collected before anything is
// killed, since orphaned children are reparented and can no longer be found.
func killTree(pid int) error {
	root, err := process.NewProcess(int32(pid)) //nolint:gosec // pids fit in int32
	if err != nil {
		return err
	}

	tree := collectTree(root)
	var firstErr error
	for _, p := range tree {
		if err := p.Kill(); err != nil && firstErr == nil && p.Pid == root.Pid {
			firstErr = err
		}
	}
	return firstErr
}

func collectTree(p *process.Process) []*process.Process {
	tree := []*process.Process{p}
	children, err := p.Children()
	if err != nil {
		return tree
	}
	for _, child := range children {
		tree = append(tree, collectTree(child)...)
	}
	return tree
}
