package hardware

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Summary describes the host for the status endpoint.
type Summary struct {
	GPUType     string `json:"gpu_type" example:"NVIDIA" doc:"GPU vendor family used for encoding"`
	Codec       string `json:"codec" example:"h264_nvenc" doc:"Encoder selected for this host"`
	CPUModel    string `json:"cpu_model" example:"AMD Ryzen 7 5800X" doc:"Host CPU model"`
	CPUCores    int    `json:"cpu_cores" example:"8" doc:"Physical core count"`
	TotalMemory string `json:"total_memory" example:"32.0 GiB" doc:"Total system memory"`
}

// Summarize combines the loaded profile, the resolved encoder, and live host
// probes into a status summary. Probe failures leave fields at the profile's
// static values rather than failing the status call.
func Summarize(p Profile, ep EncoderProfile) Summary {
	s := Summary{
		GPUType:  string(p.GPUType),
		Codec:    ep.Codec,
		CPUModel: p.CPUType,
	}

	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		if infos[0].ModelName != "" {
			s.CPUModel = infos[0].ModelName
		}
	}
	if count, err := cpu.Counts(false); err == nil {
		s.CPUCores = count
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		s.TotalMemory = fmt.Sprintf("%.1f GiB", float64(vm.Total)/(1<<30))
	}

	return s
}
