package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Status of a component or of the worker as a whole.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Check is one component's probe result.
type Check struct {
	Component string        `json:"component"`
	Status    Status        `json:"status"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
	Critical  bool          `json:"critical"`
}

// Report aggregates all component checks. A failing critical
// component makes the worker unhealthy; a failing optional one only
// degrades it.
type Report struct {
	Status    Status    `json:"status"`
	Checks    []Check   `json:"checks"`
	Timestamp time.Time `json:"timestamp"`
}

type probe struct {
	name     string
	critical bool
	fn       func(ctx context.Context) error
}

// Manager runs registered probes on demand.
type Manager struct {
	mu      sync.Mutex
	probes  []probe
	timeout time.Duration
	logger  *zap.Logger
}

func NewManager(logger *zap.Logger) *Manager {
	return &Manager{timeout: 5 * time.Second, logger: logger}
}

// Register adds a probe. Critical probes gate readiness; optional
// ones (the cache, the store) only degrade the report.
func (m *Manager) Register(name string, critical bool, fn func(ctx context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probes = append(m.probes, probe{name: name, critical: critical, fn: fn})
}

// Report runs every probe and aggregates the results.
func (m *Manager) Report(ctx context.Context) Report {
	m.mu.Lock()
	probes := make([]probe, len(m.probes))
	copy(probes, m.probes)
	m.mu.Unlock()

	rep := Report{Status: StatusHealthy, Timestamp: time.Now().UTC()}
	for _, p := range probes {
		pctx, cancel := context.WithTimeout(ctx, m.timeout)
		start := time.Now()
		err := p.fn(pctx)
		cancel()

		check := Check{
			Component: p.name,
			Status:    StatusHealthy,
			Duration:  time.Since(start),
			Critical:  p.critical,
		}
		if err != nil {
			check.Status = StatusUnhealthy
			check.Error = err.Error()
			if p.critical {
				rep.Status = StatusUnhealthy
			} else if rep.Status == StatusHealthy {
				rep.Status = StatusDegraded
			}
			m.logger.Warn("health probe failed",
				zap.String("component", p.name),
				zap.Bool("critical", p.critical),
				zap.Error(err),
			)
		}
		rep.Checks = append(rep.Checks, check)
	}
	return rep
}

// Ready reports whether all critical probes pass.
func (m *Manager) Ready(ctx context.Context) bool {
	return m.Report(ctx).Status != StatusUnhealthy
}
