package main

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/XxishikuxX/ROMulus-sub001/cmd"
	"github.com/XxishikuxX/ROMulus-sub001/internal/api"
	"github.com/XxishikuxX/ROMulus-sub001/internal/config"
	"github.com/XxishikuxX/ROMulus-sub001/internal/encoder"
	"github.com/XxishikuxX/ROMulus-sub001/internal/events"
	"github.com/XxishikuxX/ROMulus-sub001/internal/hardware"
	"github.com/XxishikuxX/ROMulus-sub001/internal/input"
	"github.com/XxishikuxX/ROMulus-sub001/internal/logging"
	"github.com/XxishikuxX/ROMulus-sub001/internal/session"
	"github.com/XxishikuxX/ROMulus-sub001/internal/transport"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Port to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`

	// Hardware settings
	HardwareProfileFile string `help:"Hardware profile file" default:"hardware.toml" toml:"hardware.profile_file" env:"HARDWARE_PROFILE_FILE"`

	// Encoder settings
	EncoderBinary       string `help:"Encoder binary" default:"ffmpeg" toml:"encoder.binary" env:"ENCODER_BINARY"`
	EncoderGraceSeconds uint   `help:"Seconds between SIGTERM and SIGKILL on session stop" default:"5" toml:"encoder.grace_seconds" env:"ENCODER_GRACE_SECONDS"`

	// Capture settings
	CaptureAudioDevice string `help:"Pulse audio source for capture" default:"default" toml:"capture.audio_device" env:"CAPTURE_AUDIO_DEVICE"`

	// Grant settings, used when no session-management layer is in front
	GrantOwner   string `help:"Owner user id for all sessions" default:"local" toml:"grants.owner" env:"GRANTS_OWNER"`
	GrantDisplay string `help:"X display captured for all sessions" default:":99" toml:"grants.display" env:"GRANTS_DISPLAY"`

	// Logging settings
	LoggingLevel     string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat    string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingSession   string `help:"Session hub logging level" default:"info" toml:"logging.session" env:"LOGGING_SESSION"`
	LoggingEncoder   string `help:"Encoder supervisor logging level" default:"info" toml:"logging.encoder" env:"LOGGING_ENCODER"`
	LoggingFFmpeg    string `help:"Encoder process output logging level" default:"warn" toml:"logging.ffmpeg" env:"LOGGING_FFMPEG"`
	LoggingInput     string `help:"Input relay logging level" default:"info" toml:"logging.input" env:"LOGGING_INPUT"`
	LoggingTransport string `help:"Transport logging level" default:"info" toml:"logging.transport" env:"LOGGING_TRANSPORT"`
	LoggingAPI       string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingHardware  string `help:"Hardware resolver logging level" default:"info" toml:"logging.hardware" env:"LOGGING_HARDWARE"`
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			logging.GetLogger("main").Warn("Failed to load config", "error", loadErr)
		}

		// The TOML [logging] table may name modules beyond the flags below;
		// flag and env values win for the modules they cover.
		logCfg := config.LoadLoggingConfig(opts.Config)
		logCfg.Level = opts.LoggingLevel
		logCfg.Format = opts.LoggingFormat
		for module, level := range map[string]string{
			"session":   opts.LoggingSession,
			"encoder":   opts.LoggingEncoder,
			"ffmpeg":    opts.LoggingFFmpeg,
			"input":     opts.LoggingInput,
			"transport": opts.LoggingTransport,
			"api":       opts.LoggingAPI,
			"hardware":  opts.LoggingHardware,
		} {
			logCfg.Modules[module] = level
		}
		logging.Initialize(logCfg)

		logger := logging.GetLogger("main")

		// Hardware resolution happens once, before any session can exist.
		profile := hardware.Load(opts.HardwareProfileFile, logging.GetLogger("hardware"))
		encoderProfile := hardware.ResolveEncoderProfile(profile)
		logger.Info("Resolved encoder",
			"gpu_type", string(profile.GPUType),
			"codec", encoderProfile.Codec,
			"hwaccel", encoderProfile.HWAccelMode)

		bus := events.New()
		logSessionEvents(bus, logger)

		supervisor := encoder.NewSupervisor(logging.GetLogger("encoder"), logging.GetLogger("ffmpeg"))
		supervisor.SetBinary(opts.EncoderBinary)
		if opts.EncoderGraceSeconds > 0 {
			grace := time.Duration(opts.EncoderGraceSeconds) * time.Second
			supervisor.SetGracePeriod(grace, grace)
		}

		grants := session.StaticGrants{Owner: opts.GrantOwner, Display: opts.GrantDisplay}
		registry := session.NewRegistry(
			logging.GetLogger("session"),
			bus,
			supervisor,
			grants,
			encoderProfile,
			profile.TargetFps,
			opts.CaptureAudioDevice,
		)

		relay := input.NewRelay(logging.GetLogger("input"), input.NewXDoTool())

		server := api.NewServer(api.Options{
			Registry:          registry,
			HardwareSummary:   hardware.Summarize(profile, encoderProfile),
			PrometheusHandler: promhttp.Handler(),
		})

		listener := transport.NewListener(logging.GetLogger("transport"), registry, relay)
		listener.SetupRoutes(server.GetMux())

		hooks.OnStart(func() {
			logger.Info("Starting server", "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")

			// Viewers get their shutdown close code before the HTTP
			// listener goes away.
			registry.Shutdown()

			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}
		})
	})

	cli.Root().AddCommand(cmd.CreateProbeHardwareCmd())

	cli.Run()
}

// logSessionEvents mirrors session lifecycle events into the log so operators
// see the session story without scraping metrics.
func logSessionEvents(bus *events.Bus, logger *slog.Logger) {
	bus.Subscribe(func(e events.SessionCreatedEvent) {
		logger.Info("Session event: created", "session_id", e.SessionID, "owner", e.OwnerUserID, "quality", e.Quality, "codec", e.Codec)
	})
	bus.Subscribe(func(e events.SessionEndedEvent) {
		logger.Info("Session event: ended", "session_id", e.SessionID, "reason", e.Reason)
	})
	bus.Subscribe(func(e events.EncoderFatalEvent) {
		logger.Warn("Session event: encoder fatal", "session_id", e.SessionID, "message", e.Message)
	})
}
