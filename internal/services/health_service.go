package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"gscconsolidate/internal/validation"
	api "gscconsolidate/pkg/contracts/api/v1"
)

// HealthService provides health check functionality
type HealthService struct {
	version   string
	outputDir string
	validator *validation.FileValidator
	startTime time.Time
	logger    *slog.Logger
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// ReadinessStatus reports whether the service can accept work
type ReadinessStatus struct {
	Status   string                   `json:"status"`
	Version  string                   `json:"version"`
	Services map[string]ServiceHealth `json:"services"`
}

// NewHealthService creates a new health service. outputDir is probed for
// writability by ReadinessCheck.
func NewHealthService(version, outputDir string, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("HealthService initialized",
		slog.String("version", version),
		slog.String("output_dir", outputDir))

	return &HealthService{
		version:   version,
		outputDir: outputDir,
		validator: validation.NewFileValidator(logger),
		startTime: time.Now(),
		logger:    logger,
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) api.HealthResponse {
	uptime := time.Since(hs.startTime).Round(time.Second)

	hs.logger.DebugContext(ctx, "HealthCheck: performing health check",
		slog.String("version", hs.version),
		slog.String("uptime", uptime.String()))

	return api.HealthResponse{
		Status:    "ok",
		Version:   hs.version,
		Uptime:    uptime.String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// ReadinessCheck returns readiness status
func (hs *HealthService) ReadinessCheck(ctx context.Context) ReadinessStatus {
	status := ReadinessStatus{
		Status:   "ready",
		Version:  hs.version,
		Services: map[string]ServiceHealth{"output": hs.checkOutputHealth()},
	}

	for _, service := range status.Services {
		if service.Status != "ready" {
			status.Status = "not_ready"
			break
		}
	}

	if status.Status != "ready" {
		hs.logger.WarnContext(ctx, "ReadinessCheck: not ready", slog.Any("services", status.Services))
	}
	return status
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	return map[string]interface{}{
		"version":    hs.version,
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"uptime":     time.Since(hs.startTime).Seconds(),
		"start_time": hs.startTime.Format(time.RFC3339),
	}
}

func (hs *HealthService) checkOutputHealth() ServiceHealth {
	if err := hs.validator.ValidateOutputDirectory(hs.outputDir); err != nil {
		return ServiceHealth{Status: "not_ready", Message: err.Error()}
	}
	return ServiceHealth{Status: "ready"}
}
