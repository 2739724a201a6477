package credstore

import (
	"errors"

	"github.com/rpgjournals/credstore/internal/flows"
	"github.com/rpgjournals/credstore/internal/stores"
)

var (
	// ErrBackendUnavailable wraps every storage failure surfaced by Store.
	// It is fatal to the calling request; Store never switches backends mid-flight.
	ErrBackendUnavailable = stores.ErrUnavailable
	// ErrBuilderUsed is returned by a second call to Builder.Build.
	ErrBuilderUsed = errors.New("builder already used")

	ErrInvalidEmail         = flows.ErrInvalidEmail
	ErrInvalidInput         = flows.ErrInvalidInput
	ErrMissingFields        = flows.ErrMissingFields
	ErrWeakPassword         = flows.ErrWeakPassword
	ErrPasswordMismatch     = flows.ErrPasswordMismatch
	ErrInvalidRole          = flows.ErrInvalidRole
	ErrMissingJournal       = flows.ErrMissingJournal
	ErrAccountExists        = flows.ErrAccountExists
	ErrVerificationRequired = flows.ErrVerificationRequired
	// ErrInvalidCredentials covers unknown email, unverified account and wrong
	// password alike.
	ErrInvalidCredentials = flows.ErrInvalidCredentials
	ErrRateLimited        = flows.ErrRateLimited
	ErrMailerUnavailable  = flows.ErrMailerUnavailable
	ErrResetInvalid       = flows.ErrResetInvalid
	ErrEngineNotReady     = flows.ErrEngineNotReady
)
