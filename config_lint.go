package credstore

import (
	"fmt"
	"strings"
	"time"
)

// LintSeverity ranks a configuration warning.
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return fmt.Sprintf("LintSeverity(%d)", int(s))
	}
}

// LintWarning is a valid but questionable setting.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

type LintWarnings []LintWarning

func (ws LintWarnings) Codes() []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Code)
	}
	return out
}

// BySeverity returns the warnings at or above min.
func (ws LintWarnings) BySeverity(min LintSeverity) LintWarnings {
	var out LintWarnings
	for _, w := range ws {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError folds every warning at or above min into one error, or returns nil.
func (ws LintWarnings) AsError(min LintSeverity) error {
	hits := ws.BySeverity(min)
	if len(hits) == 0 {
		return nil
	}
	parts := make([]string, 0, len(hits))
	for _, w := range hits {
		parts = append(parts, fmt.Sprintf("[%s] %s: %s", w.Severity, w.Code, w.Message))
	}
	return fmt.Errorf("config lint: %s", strings.Join(parts, "; "))
}

// Lint reports settings that pass Validate but weaken the deployment. It
// does not call Validate.
func (c *Config) Lint() LintWarnings {
	var ws LintWarnings
	add := func(code string, sev LintSeverity, msg string) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: msg})
	}

	if c.Verification.ResendCooldown == 0 {
		add("send_cooldown_disabled", LintHigh, "verification codes can be requested without limit")
	}
	if !c.Verification.EnableIPThrottle {
		add("ip_throttle_disabled", LintInfo, "send-code cooldown is per email only")
	}
	if c.Verification.CodeTTL > 30*time.Minute {
		add("code_ttl_long", LintWarn, "verification codes stay guessable for more than 30m")
	}
	if c.Verification.VerifiedTTL > 24*time.Hour {
		add("verified_ttl_long", LintWarn, "verified-email markers outlive a day")
	}
	if c.PasswordReset.RequestCooldown == 0 {
		add("reset_cooldown_disabled", LintWarn, "reset mails can be requested without limit")
	}
	if c.PasswordReset.TokenTTL > 2*time.Hour {
		add("reset_token_ttl_long", LintWarn, "reset tokens live longer than 2h")
	}
	if c.Session.TTL < time.Hour {
		add("session_ttl_short", LintInfo, "sessions expire in under an hour")
	}
	if !c.Audit.Enabled {
		add("audit_disabled", LintInfo, "no audit trail is recorded")
	}

	return ws
}
