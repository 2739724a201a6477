package flows

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rpgjournals/credstore/credential"
	"github.com/rpgjournals/credstore/session"
)

// VerifiedMarkers is the verified-email slice of the credential store facade.
type VerifiedMarkers interface {
	IsEmailVerified(ctx context.Context, email string) (bool, error)
	ClearVerifiedEmail(ctx context.Context, email string) error
}

type RegisterRequest struct {
	Email           string
	Name            string
	Password        string
	PasswordConfirm string
	Role            string
	JournalID       *int64
	Affiliation     string
}

type AccountMetrics struct {
	RegisterSuccess   int
	RegisterDuplicate int
	RegisterFailure   int
}

type AccountEvents struct {
	Register string
}

type AccountDeps struct {
	Credentials credential.Repository
	Verified    VerifiedMarkers
	Hasher      Hasher
	Sessions    SessionStarter
	NewID       func() string
	Now         func() time.Time

	Hooks   Hooks
	Metrics AccountMetrics
	Events  AccountEvents
}

// RunRegister creates a credential for a verified email and starts its first
// session.
func RunRegister(ctx context.Context, req RegisterRequest, deps AccountDeps) (*AuthResult, error) {
	deps.Hooks.normalize()
	if deps.Credentials == nil || deps.Verified == nil || deps.Hasher == nil || deps.Sessions == nil || deps.NewID == nil {
		return nil, ErrEngineNotReady
	}

	email := credential.NormalizeEmail(req.Email)
	name := strings.TrimSpace(req.Name)
	affiliation := strings.TrimSpace(req.Affiliation)

	fail := func(err error) (*AuthResult, error) {
		deps.Hooks.MetricInc(deps.Metrics.RegisterFailure)
		deps.Hooks.EmitAudit(ctx, deps.Events.Register, false, "", err, emailMeta(email))
		return nil, err
	}

	if email == "" || name == "" || req.Password == "" {
		return fail(ErrMissingFields)
	}
	if len(email) > MaxEmailLength || utf8.RuneCountInString(name) > MaxNameLength || utf8.RuneCountInString(affiliation) > MaxAffiliationLength {
		return fail(ErrInvalidInput)
	}
	if !ValidEmail(email) {
		return fail(ErrInvalidEmail)
	}
	if err := checkPassword(req.Password, req.PasswordConfirm); err != nil {
		return fail(err)
	}

	role := credential.Role(strings.TrimSpace(req.Role))
	if role == "" {
		role = credential.RoleAuthor
	}
	if !role.Valid() {
		return fail(ErrInvalidRole)
	}
	if role.NeedsJournal() && (req.JournalID == nil || *req.JournalID <= 0) {
		return fail(ErrMissingJournal)
	}

	if _, err := deps.Credentials.ByEmail(ctx, email); err == nil {
		deps.Hooks.MetricInc(deps.Metrics.RegisterDuplicate)
		deps.Hooks.EmitAudit(ctx, deps.Events.Register, false, "", ErrAccountExists, emailMeta(email))
		return nil, ErrAccountExists
	} else if !errors.Is(err, credential.ErrNotFound) {
		return fail(err)
	}

	verified, err := deps.Verified.IsEmailVerified(ctx, email)
	if err != nil {
		return fail(err)
	}
	if !verified {
		return fail(ErrVerificationRequired)
	}

	hash, err := deps.Hasher.Hash(req.Password)
	if err != nil {
		return fail(err)
	}

	c := &credential.Credential{
		ID:           deps.NewID(),
		Email:        email,
		PasswordHash: hash,
		DisplayName:  name,
		Role:         role,
		Verified:     true,
	}
	if role.NeedsJournal() {
		jid := *req.JournalID
		c.JournalID = &jid
	}
	if affiliation != "" {
		c.Affiliation = &affiliation
	}
	if deps.Now != nil {
		c.CreatedAt = deps.Now()
	}

	if err := deps.Credentials.Create(ctx, c); err != nil {
		if errors.Is(err, credential.ErrDuplicate) {
			deps.Hooks.MetricInc(deps.Metrics.RegisterDuplicate)
			deps.Hooks.EmitAudit(ctx, deps.Events.Register, false, "", ErrAccountExists, emailMeta(email))
			return nil, ErrAccountExists
		}
		return fail(err)
	}

	// The credential exists now; a stale marker only lives out its TTL.
	if err := deps.Verified.ClearVerifiedEmail(ctx, email); err != nil {
		deps.Hooks.Logger.WithField("email", email).WithError(err).Warn("clear verified-email marker")
	}

	result, err := startSession(ctx, c, deps.Sessions)
	if err != nil {
		return fail(err)
	}

	deps.Hooks.MetricInc(deps.Metrics.RegisterSuccess)
	deps.Hooks.EmitAudit(ctx, deps.Events.Register, true, c.ID, nil, emailMeta(email))
	return result, nil
}

func startSession(ctx context.Context, c *credential.Credential, sessions SessionStarter) (*AuthResult, error) {
	data := session.Data{
		UserID:    c.ID,
		Email:     c.Email,
		Name:      c.DisplayName,
		Role:      string(c.Role),
		JournalID: c.JournalID,
	}
	token, cookie, err := sessions.Start(ctx, data)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		UserID:    c.ID,
		Email:     c.Email,
		Role:      string(c.Role),
		Token:     token,
		SetCookie: cookie,
	}, nil
}
