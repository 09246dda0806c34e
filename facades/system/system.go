// Copyright (C) 2017 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package system reports on the host the server is running on.
package system

import (
	"context"
	"sort"

	"github.com/google/jsonrpcd/core/log"
	"github.com/google/jsonrpcd/method"
	"github.com/google/jsonrpcd/session"
	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// HostInfo describes the host.
type HostInfo struct {
	Hostname        string `json:"hostname"`
	OS              string `json:"os"`
	Platform        string `json:"platform"`
	PlatformVersion string `json:"platformVersion"`
	KernelVersion   string `json:"kernelVersion"`
	Arch            string `json:"arch"`
	Uptime          uint64 `json:"uptime"`
}

// MemoryInfo describes the host memory in bytes.
type MemoryInfo struct {
	Total       uint64  `json:"total"`
	Available   uint64  `json:"available"`
	Used        uint64  `json:"used"`
	UsedPercent float64 `json:"usedPercent"`
}

// CPUCount is the number of processors of the host.
type CPUCount struct {
	Logical  int `json:"logical"`
	Physical int `json:"physical"`
}

// Process is a single running process.
type Process struct {
	PID  int32  `json:"pid"`
	Name string `json:"name"`
}

type facade struct{}

// New is the session.Factory of the system facade.
func New(ctx context.Context, s *session.Session) (session.Facade, error) {
	return facade{}, nil
}

func (facade) Methods() []*method.Method {
	return []*method.Method{
		method.Must(method.Func("systemHostInfo", hostInfo)).
			Describe("Returns the host name, operating system and kernel."),
		method.Must(method.Func("systemMemoryInfo", memoryInfo)).
			Describe("Returns the host memory usage."),
		method.Must(method.Func("systemCpuCount", cpuCount)).
			Describe("Returns the number of logical and physical processors."),
		method.Must(method.Func("systemProcesses", processes)).
			Describe("Returns the running processes ordered by pid."),
	}
}

func hostInfo(ctx context.Context) (HostInfo, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return HostInfo{}, errors.Wrap(err, "reading host info")
	}
	return HostInfo{
		Hostname:        info.Hostname,
		OS:              info.OS,
		Platform:        info.Platform,
		PlatformVersion: info.PlatformVersion,
		KernelVersion:   info.KernelVersion,
		Arch:            info.KernelArch,
		Uptime:          info.Uptime,
	}, nil
}

func memoryInfo(ctx context.Context) (MemoryInfo, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return MemoryInfo{}, errors.Wrap(err, "reading memory info")
	}
	return MemoryInfo{
		Total:       vm.Total,
		Available:   vm.Available,
		Used:        vm.Used,
		UsedPercent: vm.UsedPercent,
	}, nil
}

func cpuCount(ctx context.Context) (CPUCount, error) {
	logical, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return CPUCount{}, errors.Wrap(err, "counting logical cpus")
	}
	physical, err := cpu.CountsWithContext(ctx, false)
	if err != nil {
		// Not every platform reports physical cores.
		log.D(ctx, "Counting physical cpus: %v", err)
		physical = 0
	}
	return CPUCount{Logical: logical, Physical: physical}, nil
}

func processes(ctx context.Context) ([]Process, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listing processes")
	}
	out := make([]Process, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			// The process may have exited since it was listed.
			continue
		}
		out = append(out, Process{PID: p.Pid, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PID < out[j].PID })
	return out, nil
}
