// Package api exposes the operational HTTP surface: status, health, version,
// and Prometheus metrics. The media plane does not pass through here.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/XxishikuxX/ROMulus-sub001/internal/api/models"
	"github.com/XxishikuxX/ROMulus-sub001/internal/hardware"
	"github.com/XxishikuxX/ROMulus-sub001/internal/logging"
	"github.com/XxishikuxX/ROMulus-sub001/internal/session"
	"github.com/XxishikuxX/ROMulus-sub001/internal/version"
)

// Server is the Huma v2 API server for the operational endpoints.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	registry   *session.Registry
	summary    hardware.Summary
	logger     *slog.Logger
}

// Options configures the API server.
type Options struct {
	Registry          *session.Registry
	HardwareSummary   hardware.Summary
	PrometheusHandler http.Handler
}

// NewServer creates the API server using Go 1.22+ native routing.
func NewServer(opts Options) *Server {
	mux := http.NewServeMux()

	corsConfig := DefaultCORSConfig()
	AddCORSHandler(mux, corsConfig)

	config := huma.DefaultConfig("ROMulus Core API", version.String())
	config.Info.Description = "Live retro-game streaming session core"
	// Empty servers list makes OpenAPI use relative paths, working with any host.
	config.Servers = []*huma.Server{}

	api := humago.New(mux, config)

	server := &Server{
		api:      api,
		mux:      mux,
		registry: opts.Registry,
		summary:  opts.HardwareSummary,
		logger:   logging.GetLogger("api"),
	}

	api.UseMiddleware(NewCORSMiddleware(corsConfig))
	api.UseMiddleware(HTTPLoggingMiddleware)

	if opts.PrometheusHandler != nil {
		mux.Handle("GET /metrics", opts.PrometheusHandler)
	}

	server.registerRoutes()
	return server
}

// GetMux returns the underlying mux so the stream endpoint can be mounted on
// the same listener.
func (s *Server) GetMux() *http.ServeMux {
	return s.mux
}

// GetAPI returns the Huma API instance.
func (s *Server) GetAPI() huma.API {
	return s.api
}

// Start serves the API on addr until Stop is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting API server", "addr", addr)
	s.logger.Info("OpenAPI documentation available", "url", "http://"+addr+"/docs")

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}
	return s.httpServer.ListenAndServe()
}

// Stop shuts the server down immediately. Viewer connections get their close
// codes from the registry teardown, not from HTTP draining.
func (s *Server) Stop() error {
	s.logger.Info("Stopping API server")
	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Check API health status",
		Tags:        []string{"health"},
	}, func(ctx context.Context, input *struct{}) (*models.HealthResponse, error) {
		return &models.HealthResponse{
			Body: models.HealthData{
				Status:  "ok",
				Message: "API is healthy",
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-status",
		Method:      http.MethodGet,
		Path:        "/api/status",
		Summary:     "Status",
		Description: "Service liveness, active session count, and hardware summary",
		Tags:        []string{"system"},
	}, func(ctx context.Context, input *struct{}) (*models.StatusResponse, error) {
		return &models.StatusResponse{
			Body: models.StatusData{
				Status:             "ok",
				ActiveSessionCount: len(s.registry.ActiveSessions()),
				HardwareSummary:    s.summary,
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Get application version information",
		Tags:        []string{"system"},
	}, func(ctx context.Context, input *struct{}) (*models.VersionResponse, error) {
		versionInfo := version.Get()
		return &models.VersionResponse{
			Body: models.VersionData{
				Version:   versionInfo.Version,
				GitCommit: versionInfo.GitCommit,
				BuildDate: versionInfo.BuildDate,
				BuildID:   versionInfo.BuildID,
				GoVersion: versionInfo.GoVersion,
				Compiler:  versionInfo.Compiler,
				Platform:  versionInfo.Platform,
			},
		}, nil
	})
}
