package mode

import (
	"context"
	"slices"

	"github.com/shirou/gopsutil/v3/process"
)

// BackendStatus reports whether the process serving a mode is alive.
type BackendStatus struct {
	Process string  `json:"process"`
	Running bool    `json:"running"`
	PIDs    []int32 `json:"pids"`
}

type procInfo struct {
	PID  int32
	Name string
}

// Probe inspects the process table for the backend daemons.
type Probe struct {
	processes map[Mode]string
	list      func(ctx context.Context) ([]procInfo, error)
}

// NewProbe maps each mode to the process name that serves it.
func NewProbe(processes map[string]string) *Probe {
	byMode := make(map[Mode]string, len(processes))
	for name, proc := range processes {
		byMode[Mode(name)] = proc
	}
	return &Probe{processes: byMode, list: listProcesses}
}

func listProcesses(ctx context.Context) ([]procInfo, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]procInfo, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		out = append(out, procInfo{PID: p.Pid, Name: name})
	}
	return out, nil
}

// Backends returns the status of every configured mode, keyed by mode.
func (p *Probe) Backends(ctx context.Context) (map[string]BackendStatus, error) {
	out := make(map[string]BackendStatus, len(p.processes))
	if len(p.processes) == 0 {
		return out, nil
	}

	procs, err := p.list(ctx)
	if err != nil {
		return nil, err
	}
	for m, name := range p.processes {
		status := BackendStatus{Process: name, PIDs: []int32{}}
		for _, proc := range procs {
			if proc.Name == name {
				status.PIDs = append(status.PIDs, proc.PID)
			}
		}
		slices.Sort(status.PIDs)
		status.Running = len(status.PIDs) > 0
		out[m.String()] = status
	}
	return out, nil
}
