package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/XxishikuxX/ROMulus-sub001/internal/hardware"
	"github.com/XxishikuxX/ROMulus-sub001/internal/logging"
)

// CreateProbeHardwareCmd creates the probe-hardware command. It loads the
// hardware profile, resolves the encoder that sessions on this host would
// use, and prints the result without starting the server.
func CreateProbeHardwareCmd() *cobra.Command {
	probeCmd := &cobra.Command{
		Use:   "probe-hardware",
		Short: "Show the encoder profile this host resolves to",
		Long:  `Loads the hardware profile file, resolves the encoder selection for this host, and prints it together with live CPU and memory information.`,
		Run: func(cmd *cobra.Command, args []string) {
			profileFile, _ := cmd.Flags().GetString("profile")

			profile := hardware.Load(profileFile, logging.GetLogger("hardware"))
			ep := hardware.ResolveEncoderProfile(profile)
			summary := hardware.Summarize(profile, ep)

			fmt.Printf("GPU type:       %s\n", summary.GPUType)
			fmt.Printf("Codec:          %s\n", summary.Codec)
			if ep.HWAccelMode != "" {
				fmt.Printf("HW accel:       %s\n", ep.HWAccelMode)
			}
			if ep.HWAccelDevice != "" {
				fmt.Printf("HW device:      %s\n", ep.HWAccelDevice)
			}
			if len(ep.ExtraArgs) > 0 {
				fmt.Printf("Encoder args:   %s\n", strings.Join(ep.ExtraArgs, " "))
			}
			fmt.Printf("CPU:            %s (%d cores)\n", summary.CPUModel, summary.CPUCores)
			fmt.Printf("Memory:         %s\n", summary.TotalMemory)
			fmt.Printf("Target:         %s @ %dfps, %s\n", profile.TargetResolution, profile.TargetFps, profile.TargetBitrate)
		},
	}

	probeCmd.Flags().StringP("profile", "f", "hardware.toml", "Hardware profile file")
	return probeCmd
}
