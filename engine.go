package credstore

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rpgjournals/credstore/credential"
	"github.com/rpgjournals/credstore/internal/audit"
	"github.com/rpgjournals/credstore/internal/flows"
	"github.com/rpgjournals/credstore/internal/limiters"
	"github.com/rpgjournals/credstore/password"
	"github.com/rpgjournals/credstore/session"
)

// Engine runs the account flows (verification codes, registration, login,
// logout, password reset) over one Store.
//
// Engine is safe for concurrent use. Call Close on shutdown to flush the audit
// dispatcher.
type Engine struct {
	config       Config
	store        *Store
	sessions     *session.Manager
	credentials  credential.Repository
	hasher       *password.PBKDF2
	mailer       Mailer
	sendLimiter  *limiters.CooldownLimiter
	resetLimiter *limiters.CooldownLimiter
	audit        *audit.Dispatcher
	metrics      *Metrics
	logger       logrus.FieldLogger
	clock        func() time.Time
	flowDeps     flows.Deps
}

// Store returns the credential store facade the Engine was built on.
func (e *Engine) Store() *Store {
	return e.store
}

// Sessions returns the session lifecycle manager, for middleware.
func (e *Engine) Sessions() *session.Manager {
	return e.sessions
}

// Hasher returns the configured password hash engine.
func (e *Engine) Hasher() *password.PBKDF2 {
	return e.hasher
}

// Close stops the audit dispatcher after draining buffered events. Backend
// handles are owned by the caller and are not closed.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}
