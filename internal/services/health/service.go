package health

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

const defaultCheckTimeout = 2 * time.Second

// Checker reports whether a dependency is reachable.
type Checker interface {
	Ping(ctx context.Context) error
}

// CheckFunc adapts a function to Checker.
type CheckFunc func(ctx context.Context) error

// Ping calls f.
func (f CheckFunc) Ping(ctx context.Context) error { return f(ctx) }

// Report is the health payload.
type Report struct {
	OK     bool              `json:"ok"`
	Checks map[string]string `json:"checks"`
}

// Service encapsulates health-related checks.
type Service struct {
	checks  map[string]Checker
	timeout time.Duration
}

// NewService constructs a new health service. Nil checkers are skipped.
func NewService(checks map[string]Checker) *Service {
	filtered := make(map[string]Checker, len(checks))
	for name, c := range checks {
		if c != nil {
			filtered[name] = c
		}
	}
	return &Service{checks: filtered, timeout: defaultCheckTimeout}
}

// Status pings every dependency concurrently.
func (s *Service) Status(ctx context.Context) Report {
	report := Report{OK: true, Checks: map[string]string{}}
	if s == nil {
		return report
	}

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	statuses := make([]string, len(names))
	var eg errgroup.Group
	for i, name := range names {
		c := s.checks[name]
		eg.Go(func() error {
			checkCtx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			statuses[i] = "ok"
			if err := c.Ping(checkCtx); err != nil {
				statuses[i] = "unavailable"
			}
			return nil
		})
	}
	_ = eg.Wait()

	for i, name := range names {
		report.Checks[name] = statuses[i]
		if statuses[i] != "ok" {
			report.OK = false
		}
	}
	return report
}
