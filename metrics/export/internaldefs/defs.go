package internaldefs

import (
	"github.com/rpgjournals/credstore"
)

type CounterDef struct {
	ID   credstore.MetricID
	Name string
	Help string
}

type HistogramDef struct {
	ID   credstore.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in MetricID order.
var CounterDefs = []CounterDef{
	{ID: credstore.MetricSessionCreated, Name: "credstore_session_created_total", Help: "Created sessions."},
	{ID: credstore.MetricSessionDestroyed, Name: "credstore_session_destroyed_total", Help: "Destroyed sessions."},
	{ID: credstore.MetricSessionLookupMiss, Name: "credstore_session_lookup_miss_total", Help: "Session lookups that found no live record."},
	{ID: credstore.MetricSessionCorrupt, Name: "credstore_session_corrupt_total", Help: "Session payloads discarded as undecodable."},
	{ID: credstore.MetricCodeIssued, Name: "credstore_verification_code_issued_total", Help: "Verification codes stored and mailed."},
	{ID: credstore.MetricCodeVerified, Name: "credstore_verification_code_verified_total", Help: "Verification codes consumed on a match."},
	{ID: credstore.MetricCodeRejected, Name: "credstore_verification_code_rejected_total", Help: "Verification code submissions that did not match."},
	{ID: credstore.MetricRateLimitHit, Name: "credstore_rate_limit_hit_total", Help: "Requests denied by a cooldown marker."},
	{ID: credstore.MetricLoginSuccess, Name: "credstore_login_success_total", Help: "Successful login attempts."},
	{ID: credstore.MetricLoginFailure, Name: "credstore_login_failure_total", Help: "Failed login attempts."},
	{ID: credstore.MetricLogout, Name: "credstore_logout_total", Help: "Logout operations."},
	{ID: credstore.MetricRegisterSuccess, Name: "credstore_register_success_total", Help: "Successful account registrations."},
	{ID: credstore.MetricRegisterDuplicate, Name: "credstore_register_duplicate_total", Help: "Registrations rejected as duplicate."},
	{ID: credstore.MetricRegisterFailure, Name: "credstore_register_failure_total", Help: "Registrations rejected for any other reason."},
	{ID: credstore.MetricPasswordResetRequest, Name: "credstore_password_reset_request_total", Help: "Password reset requests."},
	{ID: credstore.MetricPasswordResetConfirmSuccess, Name: "credstore_password_reset_confirm_success_total", Help: "Successful password reset confirmations."},
	{ID: credstore.MetricPasswordResetConfirmFailure, Name: "credstore_password_reset_confirm_failure_total", Help: "Failed password reset confirmations."},
	{ID: credstore.MetricBackendError, Name: "credstore_backend_error_total", Help: "Storage backend calls that failed."},
	{ID: credstore.MetricAuditDropped, Name: "credstore_audit_dropped_total", Help: "Dropped audit events due to dispatcher backpressure."},
}

var HistogramDefs = []HistogramDef{
	{ID: credstore.MetricStoreLatency, Name: "credstore_store_latency_seconds", Help: "Storage backend call latency."},
}

// HistogramBounds are the upper bounds, in seconds, of the fixed latency buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix renders HistogramBounds for use in instrument names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed array, zero-filling missing buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into le-style running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
