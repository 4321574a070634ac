package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Togather-Foundation/ewm/internal/jobs"
	"github.com/Togather-Foundation/ewm/internal/metrics"
	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"
)

const (
	readyTimeout = 5 * time.Second
	checkTimeout = 2 * time.Second
)

const (
	checkPass = "pass"
	checkWarn = "warn"
	checkFail = "fail"
)

// HealthCheck is the /readyz body. Status is "healthy", "degraded" (a check
// warned) or "unhealthy" (a check failed, answered with 503).
type HealthCheck struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	GitCommit string                 `json:"git_commit"`
	Checks    map[string]CheckResult `json:"checks"`
	Timestamp string                 `json:"timestamp"`
}

type CheckResult struct {
	Status    string         `json:"status"`
	Message   string         `json:"message,omitempty"`
	LatencyMs int64          `json:"latency_ms,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// Querier is the slice of pgxpool.Pool the checks use.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// HealthChecker runs the readiness checks of one service against its
// database. The job queue check only applies where hits are queued.
type HealthChecker struct {
	db        Querier
	checkJobs bool
	version   string
	gitCommit string
}

func NewHealthChecker(db Querier, checkJobs bool, version, gitCommit string) *HealthChecker {
	return &HealthChecker{db: db, checkJobs: checkJobs, version: version, gitCommit: gitCommit}
}

type checkFunc func(ctx context.Context, db Querier) CheckResult

func (h *HealthChecker) checks() map[string]checkFunc {
	checks := map[string]checkFunc{
		"database":   checkDatabase,
		"migrations": checkMigrations,
	}
	if h.checkJobs {
		checks["job_queue"] = checkJobQueue
	}
	return checks
}

// Readyz runs every check concurrently, each under its own timeout.
func (h *HealthChecker) Readyz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Context().Err() != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "shutting_down"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		var (
			mu      sync.Mutex
			results = map[string]CheckResult{}
			g       errgroup.Group
		)
		for name, check := range h.checks() {
			g.Go(func() error {
				result := h.run(ctx, check)
				mu.Lock()
				results[name] = result
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()

		report := HealthCheck{
			Status:    "healthy",
			Version:   h.version,
			GitCommit: h.gitCommit,
			Checks:    results,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		code := http.StatusOK
		for name, result := range results {
			up := 1.0
			switch result.Status {
			case checkFail:
				up = 0
				report.Status = "unhealthy"
				code = http.StatusServiceUnavailable
			case checkWarn:
				if report.Status == "healthy" {
					report.Status = "degraded"
				}
			}
			metrics.HealthCheckStatus.WithLabelValues(name).Set(up)
		}
		writeJSON(w, code, report)
	}
}

func (h *HealthChecker) run(ctx context.Context, check checkFunc) CheckResult {
	if h.db == nil {
		return CheckResult{Status: checkFail, Message: "database pool not initialized"}
	}
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	start := time.Now()
	result := check(ctx, h.db)
	result.LatencyMs = time.Since(start).Milliseconds()
	return result
}

func failed(message string, err error) CheckResult {
	return CheckResult{Status: checkFail, Message: message, Details: map[string]any{"error": err.Error()}}
}

func checkDatabase(ctx context.Context, db Querier) CheckResult {
	var one int
	err := db.QueryRow(ctx, "SELECT 1").Scan(&one)
	switch {
	case err == nil:
		return CheckResult{Status: checkPass, Message: "postgres reachable"}
	case errors.Is(err, context.DeadlineExceeded):
		return failed("database query timed out", err)
	case strings.Contains(err.Error(), "connection refused"):
		return failed("database connection refused", err)
	case strings.Contains(err.Error(), "authentication failed"):
		return failed("database authentication failed", err)
	}
	return failed("database query failed", err)
}

// checkMigrations fails on a dirty or missing schema. The version itself is
// reported, not enforced.
func checkMigrations(ctx context.Context, db Querier) CheckResult {
	var (
		version int64
		dirty   bool
	)
	err := db.QueryRow(ctx, `SELECT version, dirty FROM schema_migrations ORDER BY version DESC LIMIT 1`).Scan(&version, &dirty)
	if err != nil {
		result := failed("cannot read schema version", err)
		if strings.Contains(err.Error(), "does not exist") {
			result.Message = "schema_migrations table missing"
		}
		result.Details["remediation"] = "run: server migrate up"
		return result
	}

	details := map[string]any{"version": version}
	if dirty {
		details["dirty"] = true
		return CheckResult{Status: checkFail, Message: "schema is dirty", Details: details}
	}
	return CheckResult{Status: checkPass, Message: fmt.Sprintf("schema at version %d", version), Details: details}
}

// checkJobQueue warns when River's tables are missing; hits then fall back to
// inline delivery so the service stays usable.
func checkJobQueue(ctx context.Context, db Querier) CheckResult {
	var exists bool
	err := db.QueryRow(ctx, `SELECT EXISTS (SELECT FROM information_schema.tables WHERE table_name = 'river_job')`).Scan(&exists)
	if err != nil {
		return failed("cannot inspect job queue tables", err)
	}
	if !exists {
		return CheckResult{Status: checkWarn, Message: "river_job table missing, hits are delivered inline"}
	}

	var pending int64
	err = db.QueryRow(ctx, `SELECT COUNT(*) FROM river_job WHERE kind = $1 AND state = ANY($2)`,
		jobs.JobKindRecordHit, []string{"available", "retryable", "running"}).Scan(&pending)
	if err != nil {
		return failed("cannot count pending hits", err)
	}
	return CheckResult{Status: checkPass, Message: "job queue operational", Details: map[string]any{"pending_hits": pending}}
}

// Healthz is the liveness probe; it never touches dependencies.
func Healthz() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}
