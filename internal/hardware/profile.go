// Package hardware describes the host's encoding hardware and derives the
// encoder profile used for every session on this machine.
package hardware

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// GPUType identifies the GPU vendor family used for encoder selection.
type GPUType string

// Supported GPU vendor families. Anything else resolves to software encoding.
const (
	GPUNvidia   GPUType = "NVIDIA"
	GPUAMD      GPUType = "AMD"
	GPUIntel    GPUType = "INTEL"
	GPUArm      GPUType = "ARM_GPU"
	GPUSoftware GPUType = "SOFTWARE"
)

// Profile is the hardware-description record loaded once at process start.
// It is immutable for the process lifetime.
type Profile struct {
	GPUType          GPUType `toml:"gpu_type"`
	CPUType          string  `toml:"cpu_type"`
	TargetBitrate    string  `toml:"target_bitrate"`
	TargetResolution string  `toml:"target_resolution"`
	TargetFps        uint    `toml:"target_fps"`
}

// Defaults returns the software fallback profile.
func Defaults() Profile {
	return Profile{
		GPUType:          GPUSoftware,
		CPUType:          "generic",
		TargetBitrate:    "8000k",
		TargetResolution: "1920x1080",
		TargetFps:        60,
	}
}

// Load reads the hardware description from a TOML file. Any failure (missing
// file, parse error, invalid values) falls back to software defaults and is
// logged, never fatal.
func Load(path string, logger *slog.Logger) Profile {
	profile := Defaults()

	if path == "" {
		return profile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("Hardware profile not readable, using software defaults", "path", path, "error", err)
		return profile
	}

	var loaded Profile
	if err := toml.Unmarshal(data, &loaded); err != nil {
		logger.Warn("Hardware profile malformed, using software defaults", "path", path, "error", err)
		return profile
	}

	// Merge: only fields present in the file override defaults.
	if loaded.GPUType != "" {
		profile.GPUType = GPUType(strings.ToUpper(string(loaded.GPUType)))
	}
	if loaded.CPUType != "" {
		profile.CPUType = loaded.CPUType
	}
	if loaded.TargetBitrate != "" {
		profile.TargetBitrate = loaded.TargetBitrate
	}
	if loaded.TargetResolution != "" {
		profile.TargetResolution = loaded.TargetResolution
	}
	if loaded.TargetFps > 0 {
		profile.TargetFps = loaded.TargetFps
	}

	logger.Info("Hardware profile loaded",
		"gpu", profile.GPUType,
		"cpu", profile.CPUType,
		"fps", profile.TargetFps,
		"resolution", profile.TargetResolution)
	return profile
}

// String returns a short human-readable summary of the profile.
func (p Profile) String() string {
	return fmt.Sprintf("%s/%s %s@%dfps", p.GPUType, p.CPUType, p.TargetResolution, p.TargetFps)
}
