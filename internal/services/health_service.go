package services

import (
	"context"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"campaignclean/internal/files"
	"campaignclean/pkg/contracts"
)

const readinessTimeout = 2 * time.Second

// readinessKey is looked up, never written, by storage readiness checks.
const readinessKey = ".readiness-check"

// Checker reports whether a dependency is usable.
type Checker interface {
	Ping(ctx context.Context) error
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context) error

// Ping calls f.
func (f CheckerFunc) Ping(ctx context.Context) error { return f(ctx) }

// StoreChecker checks a file store with a lookup of a name that never exists.
func StoreChecker(store files.Store) Checker {
	return CheckerFunc(func(ctx context.Context) error {
		_, err := store.Exists(ctx, readinessKey)
		return err
	})
}

// HealthService provides health check functionality
type HealthService struct {
	checks    map[string]Checker
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// VersionResponse is the version endpoint payload.
type VersionResponse struct {
	contracts.VersionInfo
	UptimeSeconds float64 `json:"uptime_seconds"`
	StartTime     string  `json:"start_time"`
}

// NewHealthService creates a health service over the named dependency checks.
func NewHealthService(checks map[string]Checker, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	if checks == nil {
		checks = map[string]Checker{}
	}
	return &HealthService{
		checks:    checks,
		startTime: time.Now(),
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   contracts.Version,
	}
}

// ReadinessCheck pings every dependency concurrently. The status is
// "not_ready" when any of them fails.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, readinessTimeout)
	defer cancel()

	names := make([]string, 0, len(hs.checks))
	for name := range hs.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]ServiceHealth, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := hs.checks[name].Ping(ctx); err != nil {
				hs.logger.WarnContext(ctx, "dependency not ready",
					slog.String("dependency", name),
					slog.String("error", err.Error()))
				results[i] = ServiceHealth{Status: "not_ready", Message: err.Error()}
				return
			}
			results[i] = ServiceHealth{Status: "ready"}
		}()
	}
	wg.Wait()

	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now().UTC(),
		Version:   contracts.Version,
		Services:  make(map[string]ServiceHealth, len(names)),
	}
	for i, name := range names {
		status.Services[name] = results[i]
		if results[i].Status != "ready" {
			status.Status = "not_ready"
		}
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now().UTC(),
		Version:   contracts.Version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() VersionResponse {
	return VersionResponse{
		VersionInfo:   contracts.GetVersionInfo(),
		UptimeSeconds: time.Since(hs.startTime).Seconds(),
		StartTime:     hs.startTime.UTC().Format(time.RFC3339),
	}
}
