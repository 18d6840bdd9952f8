// Package healthapi exposes the gin HTTP surface every socrates stage binary
// runs alongside its queue loop: liveness, readiness (dependency connectivity),
// and a read-only view into the audit log.
package healthapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/socrates-project/socrates/pkg/audit"
	"github.com/socrates-project/socrates/pkg/version"
)

// Checker pings one dependency and reports whether it's reachable.
type Checker func(ctx context.Context) error

// AuditReader is the narrow slice of *audit.Client the recent-verdicts
// endpoint needs, named so tests can substitute a fake.
type AuditReader interface {
	RecentVerdicts(ctx context.Context, limit int) ([]audit.VerdictRecord, error)
}

// Server wraps a gin.Engine configured with the health/readiness/audit
// routes. Checks are named so /readyz can report per-dependency status,
// mirroring the teacher's handler_health.go checks map.
type Server struct {
	router            *gin.Engine
	checks            map[string]Checker
	auditReader       AuditReader
	recentVerdictsMax int
	checkTimeout      time.Duration
}

// Option configures a Server at construction time.
type Option func(*Server)

// WithCheck registers a named readiness dependency check.
func WithCheck(name string, check Checker) Option {
	return func(s *Server) { s.checks[name] = check }
}

// WithAuditReader wires the /verdicts/recent endpoint to a live audit
// store. Omit to serve 503 from that endpoint (audit persistence is
// opt-in, per DatabaseConfig being nilable).
func WithAuditReader(reader AuditReader, recentVerdictsMax int) Option {
	return func(s *Server) {
		s.auditReader = reader
		if recentVerdictsMax <= 0 {
			recentVerdictsMax = 20
		}
		s.recentVerdictsMax = recentVerdictsMax
	}
}

// New builds a Server with gin's release-friendly defaults left to the
// caller (gin.SetMode is a process-global switch set once in main, per the
// teacher's cmd/tarsy/main.go).
func New(opts ...Option) *Server {
	s := &Server{
		router:       gin.Default(),
		checks:       map[string]Checker{},
		checkTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router.GET("/healthz", s.handleHealthz)
	s.router.GET("/readyz", s.handleReadyz)
	s.router.GET("/verdicts/recent", s.handleRecentVerdicts)

	return s
}

// Router returns the underlying gin.Engine, for tests and for main to call
// Run/ListenAndServe on.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// handleHealthz is a liveness probe: if the process can answer HTTP at
// all, it's alive. No dependency checks, matching the teacher's note that
// an orchestrator should not restart the process over a flaky downstream.
func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version.Full()})
}

// handleReadyz runs every registered dependency check and reports 503 if
// any fails, 200 otherwise — the form a load balancer or orchestrator uses
// to decide whether to route traffic to this instance.
func (s *Server) handleReadyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.checkTimeout)
	defer cancel()

	results := make(gin.H, len(s.checks))
	healthy := true
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			results[name] = gin.H{"status": "unhealthy", "error": err.Error()}
			healthy = false
		} else {
			results[name] = gin.H{"status": "healthy"}
		}
	}

	status := http.StatusOK
	overall := "ready"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "not_ready"
	}
	c.JSON(status, gin.H{"status": overall, "checks": results})
}

// handleRecentVerdicts serves the most recent terminal investigation
// verdicts from the audit log, newest first.
func (s *Server) handleRecentVerdicts(c *gin.Context) {
	if s.auditReader == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit log not configured"})
		return
	}

	limit := s.recentVerdictsMax
	if q := c.Query("limit"); q != "" {
		if n, err := parsePositiveInt(q); err == nil && n > 0 && n <= s.recentVerdictsMax {
			limit = n
		}
	}

	verdicts, err := s.auditReader.RecentVerdicts(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"verdicts": verdicts})
}
