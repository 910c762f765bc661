// Package models defines the API request and response shapes.
package models

import "github.com/XxishikuxX/ROMulus-sub001/internal/hardware"

type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Health status"`
	Message string `json:"message" example:"API is healthy" doc:"Health message"`
}

type HealthResponse struct {
	Body HealthData
}

type StatusData struct {
	Status             string           `json:"status" example:"ok" doc:"Service status"`
	ActiveSessionCount int              `json:"active_session_count" example:"3" doc:"Number of live streaming sessions"`
	HardwareSummary    hardware.Summary `json:"hardware_summary" doc:"Host hardware and selected encoder"`
}

type StatusResponse struct {
	Body StatusData
}

type VersionData struct {
	Version   string `json:"version" example:"1.0.0" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc123" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2025-01-01T00:00:00Z" doc:"Build timestamp"`
	BuildID   string `json:"build_id" example:"12345" doc:"Build identifier"`
	GoVersion string `json:"go_version" example:"go1.24.0" doc:"Go toolchain version"`
	Compiler  string `json:"compiler" example:"gc" doc:"Go compiler"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"Build platform"`
}

type VersionResponse struct {
	Body VersionData
}
