package encoder

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/XxishikuxX/ROMulus-sub001/internal/hardware"
)

// StreamParams carries everything needed to build one encoder invocation.
type StreamParams struct {
	SessionID string
	Display   string // X display of the captured virtual screen, e.g. ":99"
	AudioDev  string // pulse source, empty = "default"
	Profile   hardware.EncoderProfile
	Quality   QualitySpec
	FPS       uint
}

// BuildArgs constructs the ordered ffmpeg argument list for a session.
//
// The low-latency policy is fixed regardless of codec: no B-frames, a single
// reference frame, keyframe interval of 2x fps so a late joiner is at most
// ~2s from a clean join point, capped bitrate with a 2x buffer, and
// 2ch/48kHz/128k AAC audio. Hardware flags appear only when the profile
// carries an acceleration mode.
func BuildArgs(p StreamParams) []string {
	fps := p.FPS
	if fps == 0 {
		fps = 60
	}
	audio := p.AudioDev
	if audio == "" {
		audio = "default"
	}

	args := []string{
		"-hide_banner",
		"-nostdin",
		"-loglevel", "level+info",
	}

	// Hardware device setup precedes the inputs.
	switch p.Profile.HWAccelMode {
	case "":
		// software
	case "vaapi":
		device := p.Profile.HWAccelDevice
		if device == "" {
			device = "/dev/dri/renderD128"
		}
		args = append(args, "-vaapi_device", device)
	default:
		args = append(args, "-hwaccel", p.Profile.HWAccelMode)
	}

	// Video input: grab the session's virtual display.
	args = append(args,
		"-f", "x11grab",
		"-framerate", strconv.FormatUint(uint64(fps), 10),
		"-video_size", p.Quality.Resolution,
		"-i", p.Display,
	)

	// Audio input from the display's pulse sink.
	args = append(args,
		"-f", "pulse",
		"-i", audio,
	)

	// VAAPI encoders consume hardware surfaces.
	if p.Profile.HWAccelMode == "vaapi" {
		args = append(args, "-vf", "format=nv12,hwupload")
	}

	args = append(args, "-c:v", p.Profile.Codec)
	args = append(args, p.Profile.ExtraArgs...)

	args = append(args,
		"-bf", "0",
		"-refs", "1",
		"-g", strconv.FormatUint(uint64(fps*2), 10),
		"-b:v", p.Quality.Bitrate,
		"-maxrate", p.Quality.Bitrate,
		"-bufsize", doubleRate(p.Quality.Bitrate),
	)

	args = append(args,
		"-c:a", "aac",
		"-b:a", "128k",
		"-ar", "48000",
		"-ac", "2",
	)

	// MPEG-TS over stdout; the transport adds no framing of its own.
	args = append(args,
		"-muxdelay", "0",
		"-muxpreload", "0",
		"-flush_packets", "1",
		"-f", "mpegts",
		"pipe:1",
	)

	return args
}

// doubleRate doubles a bitrate string like "5000k". Unparseable rates are
// returned unchanged so ffmpeg reports them instead of us guessing.
func doubleRate(rate string) string {
	trimmed := strings.TrimSuffix(rate, "k")
	n, err := strconv.Atoi(trimmed)
	if err != nil || trimmed == rate {
		return rate
	}
	return fmt.Sprintf("%dk", n*2)
}
