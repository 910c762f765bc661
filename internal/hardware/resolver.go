package hardware

// EncoderProfile is the codec selection derived from a hardware profile:
// codec name, acceleration mode, and codec-specific low-latency arguments.
type EncoderProfile struct {
	Codec         string
	HWAccelMode   string // empty = software
	HWAccelDevice string
	ExtraArgs     []string
}

// Hardware() reports whether the profile uses a hardware-accelerated encoder.
func (e EncoderProfile) Hardware() bool {
	return e.HWAccelMode != ""
}

// ResolveEncoderProfile maps a hardware profile to an encoder profile. It is
// total: every GPU type, including unrecognized ones, yields a defined
// profile, with software x264 as the universal fallback.
func ResolveEncoderProfile(p Profile) EncoderProfile {
	switch p.GPUType {
	case GPUNvidia:
		return EncoderProfile{
			Codec:       "h264_nvenc",
			HWAccelMode: "cuda",
			ExtraArgs: []string{
				"-preset", "p1",
				"-tune", "ull",
				"-zerolatency", "1",
				"-delay", "0",
			},
		}
	case GPUAMD:
		return EncoderProfile{
			Codec:         "h264_vaapi",
			HWAccelMode:   "vaapi",
			HWAccelDevice: "/dev/dri/renderD128",
			ExtraArgs: []string{
				"-quality", "speed",
				"-async_depth", "1",
			},
		}
	case GPUIntel:
		return EncoderProfile{
			Codec:       "h264_qsv",
			HWAccelMode: "qsv",
			ExtraArgs: []string{
				"-preset", "veryfast",
				"-low_power", "1",
				"-async_depth", "1",
			},
		}
	case GPUArm:
		return EncoderProfile{
			Codec:       "h264_v4l2m2m",
			HWAccelMode: "v4l2m2m",
			ExtraArgs: []string{
				"-num_output_buffers", "16",
				"-num_capture_buffers", "8",
			},
		}
	default:
		return softwareProfile()
	}
}

// softwareProfile is the universal fallback: x264 tuned for minimum latency.
func softwareProfile() EncoderProfile {
	return EncoderProfile{
		Codec: "libx264",
		ExtraArgs: []string{
			"-preset", "ultrafast",
			"-tune", "zerolatency",
			"-sc_threshold", "0",
		},
	}
}
