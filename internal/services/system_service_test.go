package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/Chrilove/projekuas/internal/domain"
	"github.com/Chrilove/projekuas/internal/repositories"
)

type stubHealthRepository struct {
	report domain.SystemHealthReport
	err    error
}

var _ repositories.HealthRepository = (*stubHealthRepository)(nil)

func (s *stubHealthRepository) Collect(context.Context) (domain.SystemHealthReport, error) {
	return s.report, s.err
}

func newSystemServiceForTest(t *testing.T, repo repositories.HealthRepository, clock func() time.Time, build BuildInfo) SystemService {
	t.Helper()
	svc, err := NewSystemService(SystemServiceDeps{
		HealthRepository: repo,
		Clock:            clock,
		Build:            build,
	})
	if err != nil {
		t.Fatalf("NewSystemService: %v", err)
	}
	return svc
}

func TestNewSystemServiceRequiresRepository(t *testing.T) {
	if _, err := NewSystemService(SystemServiceDeps{}); err == nil {
		t.Fatal("expected error without health repository")
	}
}

func TestSystemServiceHealthFillsBuildMetadata(t *testing.T) {
	started := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	repo := &stubHealthRepository{
		report: domain.SystemHealthReport{
			Checks: map[string]domain.SystemHealthCheck{
				"firestore": {Status: domain.HealthStatusOK, CheckedAt: now},
			},
		},
	}
	svc := newSystemServiceForTest(t, repo, func() time.Time { return now }, BuildInfo{
		Version:     "1.4.0",
		CommitSHA:   "abc123",
		Environment: "staging",
		StartedAt:   started,
	})

	report, err := svc.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if report.Status != domain.HealthStatusOK {
		t.Errorf("expected ok status, got %q", report.Status)
	}
	if report.Version != "1.4.0" || report.CommitSHA != "abc123" || report.Environment != "staging" {
		t.Errorf("unexpected build metadata: %+v", report)
	}
	if report.Uptime != 30*time.Minute {
		t.Errorf("expected 30m uptime, got %s", report.Uptime)
	}
	if !report.GeneratedAt.Equal(now) {
		t.Errorf("expected generatedAt %s, got %s", now, report.GeneratedAt)
	}
}

func TestSystemServiceHealthDerivesDegradedStatus(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	repo := &stubHealthRepository{
		report: domain.SystemHealthReport{
			Checks: map[string]domain.SystemHealthCheck{
				"firestore": {Status: domain.HealthStatusOK},
				"pubsub":    {Status: domain.HealthStatusDegraded, Error: "deadline exceeded"},
			},
		},
	}
	svc := newSystemServiceForTest(t, repo, func() time.Time { return now }, BuildInfo{StartedAt: now})

	report, err := svc.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if report.Status != domain.HealthStatusDegraded {
		t.Errorf("expected degraded status, got %q", report.Status)
	}
}

func TestSystemServiceHealthErrorCheckWins(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	repo := &stubHealthRepository{
		report: domain.SystemHealthReport{
			Checks: map[string]domain.SystemHealthCheck{
				"firestore": {Status: domain.HealthStatusError, Error: "unavailable"},
				"pubsub":    {Status: domain.HealthStatusDegraded},
			},
		},
	}
	svc := newSystemServiceForTest(t, repo, func() time.Time { return now }, BuildInfo{StartedAt: now})

	report, err := svc.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if report.Status != domain.HealthStatusError {
		t.Errorf("expected error status, got %q", report.Status)
	}
}

func TestSystemServiceHealthPropagatesCollectError(t *testing.T) {
	collectErr := errors.New("collect failed")
	svc := newSystemServiceForTest(t, &stubHealthRepository{err: collectErr}, nil, BuildInfo{})

	if _, err := svc.Health(context.Background()); !errors.Is(err, collectErr) {
		t.Fatalf("expected collect error, got %v", err)
	}
}

func TestSystemServiceHealthKeepsRepositoryStatus(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	repo := &stubHealthRepository{
		report: domain.SystemHealthReport{
			Status: domain.HealthStatusDegraded,
			Checks: map[string]domain.SystemHealthCheck{
				"firestore": {Status: domain.HealthStatusOK},
			},
		},
	}
	svc := newSystemServiceForTest(t, repo, func() time.Time { return now }, BuildInfo{StartedAt: now})

	report, err := svc.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if report.Status != domain.HealthStatusDegraded {
		t.Errorf("expected repository status to be kept, got %q", report.Status)
	}
}
