package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/voltmart/storefront/internal/domain"
	"github.com/voltmart/storefront/internal/repositories"
)

const fallbackServingDetail = "static catalog is serving reads"

// BuildInfo captures runtime metadata exposed via health endpoints.
type BuildInfo struct {
	Version     string
	CommitSHA   string
	Environment string
	StartedAt   time.Time
}

// SystemServiceDeps bundles collaborators required to construct a system service.
type SystemServiceDeps struct {
	HealthRepository repositories.HealthRepository
	Clock            func() time.Time
	Build            BuildInfo
	// FallbackCheck names the dependency check whose failures the static catalog covers. Empty when
	// no fallback is configured.
	FallbackCheck string
}

type systemService struct {
	probes        repositories.HealthRepository
	now           func() time.Time
	build         BuildInfo
	fallbackCheck string
}

var _ SystemService = (*systemService)(nil)

// NewSystemService assembles the readiness reporter.
func NewSystemService(deps SystemServiceDeps) (SystemService, error) {
	if deps.HealthRepository == nil {
		return nil, errors.New("system service: health repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	build := deps.Build
	if build.StartedAt.IsZero() {
		build.StartedAt = clock()
	}
	return &systemService{
		probes:        deps.HealthRepository,
		now:           func() time.Time { return clock().UTC() },
		build:         build,
		fallbackCheck: strings.TrimSpace(deps.FallbackCheck),
	}, nil
}

// HealthReport runs the dependency probes and stamps the report with build metadata. A failing
// catalog probe that the fallback covers is annotated so operators can tell degraded reads apart
// from an outage.
func (s *systemService) HealthReport(ctx context.Context) (SystemHealthReport, error) {
	report, err := s.probes.Collect(ctx)
	if err != nil {
		return SystemHealthReport{}, err
	}

	now := s.now()
	if report.GeneratedAt.IsZero() {
		report.GeneratedAt = now
	}
	report.GeneratedAt = report.GeneratedAt.UTC()
	if report.Version == "" {
		report.Version = s.build.Version
	}
	if report.CommitSHA == "" {
		report.CommitSHA = s.build.CommitSHA
	}
	if report.Environment == "" {
		report.Environment = s.build.Environment
	}
	if report.Uptime <= 0 {
		report.Uptime = now.Sub(s.build.StartedAt)
	}
	if report.Checks == nil {
		report.Checks = map[string]domain.SystemHealthCheck{}
	}

	if check, ok := report.Checks[s.fallbackCheck]; ok && s.fallbackCheck != "" && check.Status != domain.HealthStatusOK {
		if check.Detail == "" {
			check.Detail = fallbackServingDetail
		} else {
			check.Detail += "; " + fallbackServingDetail
		}
		report.Checks[s.fallbackCheck] = check
	}

	if strings.TrimSpace(report.Status) == "" {
		report.Status = worstStatus(report.Checks)
	}
	return report, nil
}

func worstStatus(checks map[string]domain.SystemHealthCheck) string {
	status := domain.HealthStatusOK
	for _, check := range checks {
		switch check.Status {
		case domain.HealthStatusOK, "":
		case domain.HealthStatusError:
			return domain.HealthStatusError
		default:
			status = domain.HealthStatusDegraded
		}
	}
	return status
}
