// Package health probes the evidence sources on a schedule and keeps the
// latest status of each.
package health

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/NullMeDev/factlens/internal/apperror"
	"github.com/NullMeDev/factlens/internal/fanout"
	"github.com/NullMeDev/factlens/internal/logging"
	"github.com/NullMeDev/factlens/internal/sources"
)

// DefaultProbeClaim is sent to every source during a check.
const DefaultProbeClaim = "fact check"

// Source states.
const (
	StateUnknown  = "unknown"
	StateHealthy  = "healthy"
	StateFailing  = "failing"
	StateDisabled = "disabled"
)

// SourceStatus is the last known state of one source.
type SourceStatus struct {
	Key                 string        `json:"key"`
	Name                string        `json:"name"`
	State               string        `json:"state"`
	LastCheck           time.Time     `json:"last_check"`
	LastError           string        `json:"last_error,omitempty"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	Items               int           `json:"items"`
	Latency             time.Duration `json:"latency_ns"`
}

// Report is the monitor's view of the whole system.
type Report struct {
	Status          string                `json:"status"`
	LastCheck       time.Time             `json:"last_check"`
	HealthyStreak   int                   `json:"healthy_streak"`
	UnhealthyStreak int                   `json:"unhealthy_streak"`
	Sources         []SourceStatus        `json:"sources"`
	RecentErrors    []apperror.ErrorEvent `json:"recent_errors"`
}

// Monitor tracks source health
type Monitor struct {
	probes map[string]sources.Source
	claim  string
	log    *logging.Logger

	mutex           sync.RWMutex
	status          map[string]*SourceStatus
	lastCheck       time.Time
	healthyStreak   int
	unhealthyStreak int
	errors          *apperror.ErrorBuffer

	scheduler *cron.Cron
}

// NewMonitor creates a monitor over probes, keyed by source key.
func NewMonitor(probes map[string]sources.Source, log *logging.Logger) *Monitor {
	if log == nil {
		log = logging.Default()
	}
	m := &Monitor{
		probes: probes,
		claim:  DefaultProbeClaim,
		log:    log,
		status: make(map[string]*SourceStatus, len(probes)),
		errors: apperror.NewErrorBuffer(100),
	}
	for key, src := range probes {
		m.status[key] = &SourceStatus{Key: key, Name: src.Name(), State: StateUnknown}
	}
	return m
}

// SetProbeClaim changes the claim sent during checks.
func (m *Monitor) SetProbeClaim(claim string) {
	if claim == "" {
		return
	}
	m.mutex.Lock()
	m.claim = claim
	m.mutex.Unlock()
}

// PerformChecks probes every source once, concurrently.
func (m *Monitor) PerformChecks(ctx context.Context) {
	m.mutex.RLock()
	claim := m.claim
	m.mutex.RUnlock()

	type outcome struct {
		items   int
		err     string
		latency time.Duration
	}
	results := make(map[string]*outcome, len(m.probes))
	tasks := make([]fanout.Task, 0, len(m.probes))
	for key, src := range m.probes {
		key, src := key, src
		out := &outcome{}
		results[key] = out
		tasks = append(tasks, fanout.Task{
			Name: key,
			Run: func(ctx context.Context) {
				start := time.Now()
				res := src.Fetch(ctx, claim)
				out.latency = time.Since(start)
				out.items = len(res.Items)
				out.err = res.Error
			},
			OnPanic: func(err error) { out.err = err.Error() },
		})
	}
	fanout.Join(ctx, tasks...)

	now := time.Now()
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.lastCheck = now
	failing := 0
	for key, out := range results {
		st := m.status[key]
		st.LastCheck = now
		st.Items = out.items
		st.Latency = out.latency
		st.LastError = out.err

		switch {
		case out.err == "":
			st.State = StateHealthy
			st.ConsecutiveFailures = 0
		case strings.Contains(out.err, apperror.ErrSourceCredential):
			st.State = StateDisabled
		default:
			st.State = StateFailing
			st.ConsecutiveFailures++
			failing++
			m.errors.Add(apperror.EventFromError(errors.New(out.err), key))
		}
	}

	if failing == 0 {
		m.healthyStreak++
		m.unhealthyStreak = 0
	} else {
		m.healthyStreak = 0
		m.unhealthyStreak++
		m.log.Warning("Health check: %d of %d sources failing", failing, len(results))
	}
	if m.unhealthyStreak >= 5 {
		m.log.Error("Sources have been unhealthy for %d consecutive checks", m.unhealthyStreak)
	}
}

// RecordError adds err to the recent error buffer.
func (m *Monitor) RecordError(err error, component string) {
	if err == nil {
		return
	}
	m.errors.Add(apperror.EventFromError(err, component))
}

// Start schedules checks with a standard five-field cron spec.
func (m *Monitor) Start(spec string) error {
	m.scheduler = cron.New()
	_, err := m.scheduler.AddFunc(spec, func() {
		defer func() {
			if r := recover(); r != nil {
				m.log.Error("Health check panicked: %v", r)
			}
		}()
		m.PerformChecks(context.Background())
	})
	if err != nil {
		return apperror.NewConfigError(apperror.ErrConfigValidation, "invalid HEALTH_CRON "+spec, err)
	}
	m.scheduler.Start()
	m.log.Info("Source health checks scheduled (%s)", spec)
	return nil
}

// Stop halts scheduled checks and waits for a running one to finish.
func (m *Monitor) Stop() {
	if m.scheduler != nil {
		<-m.scheduler.Stop().Done()
	}
}

// Report returns a snapshot of all source statuses, sorted by key.
func (m *Monitor) Report() Report {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	out := Report{
		LastCheck:       m.lastCheck,
		HealthyStreak:   m.healthyStreak,
		UnhealthyStreak: m.unhealthyStreak,
		Sources:         make([]SourceStatus, 0, len(m.status)),
		RecentErrors:    m.errors.GetRecent(20),
	}
	for _, st := range m.status {
		out.Sources = append(out.Sources, *st)
	}
	sort.Slice(out.Sources, func(i, j int) bool { return out.Sources[i].Key < out.Sources[j].Key })
	out.Status = overall(out.Sources, m.lastCheck)
	return out
}

func overall(statuses []SourceStatus, lastCheck time.Time) string {
	if lastCheck.IsZero() {
		return StateUnknown
	}
	usable := 0
	for _, st := range statuses {
		if st.State == StateFailing {
			return "degraded"
		}
		if st.State == StateHealthy {
			usable++
		}
	}
	if usable == 0 {
		return "degraded"
	}
	return StateHealthy
}
