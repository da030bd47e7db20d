package authcore

import (
	"errors"
	"fmt"

	"github.com/nebulaclass/authcore/revocation"
	"github.com/nebulaclass/authcore/sso"
	"github.com/nebulaclass/authcore/store"
	"github.com/nebulaclass/authcore/token"
)

var (
	// ErrInvalidCredentials is returned for a bad account identifier,
	// password, or one-time code. It deliberately never distinguishes
	// which field was wrong, to prevent account enumeration.
	ErrInvalidCredentials = errors.New("account or password incorrect")
	// ErrUnknownAccount is returned by SendEmailCode when the address is
	// not registered.
	ErrUnknownAccount = errors.New("account not registered")
	// ErrAccountDisabled is returned for identities whose status is not active.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrAccountExpired is the base error wrapped by ExpiredAccountError.
	ErrAccountExpired = errors.New("account expired")
	// ErrWrongLoginMode is returned when a password login is attempted
	// against an SSO-provisioned identity or vice versa.
	ErrWrongLoginMode = errors.New("wrong login mode for account")
	// ErrInvalidEmail is returned for a syntactically invalid address.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrCodeMalformed is returned when the supplied one-time code does not
	// match the configured digit count or contains non-digits.
	ErrCodeMalformed = errors.New("verification code malformed")
	// ErrCodeExpired is returned when no code is on record for the
	// address, whether it expired or was already redeemed.
	ErrCodeExpired = errors.New("verification code expired")
	// ErrCodeMismatch is returned when the stored code differs from the
	// supplied one.
	ErrCodeMismatch = errors.New("verification code mismatch")
	// ErrCodeCooldown is returned when a code was already issued for the
	// address within the resend window.
	ErrCodeCooldown = errors.New("verification code resend cooldown active")
	// ErrCodeDelivery is returned when the mail collaborator failed; the
	// stored code is rolled back so the user can retry immediately.
	ErrCodeDelivery = errors.New("verification code delivery failed")
	// ErrStoreUnavailable is returned when the verification store cannot
	// be reached on a path where it is a hard dependency.
	ErrStoreUnavailable = errors.New("verification store unavailable")
	// ErrTokenInvalid is returned for any access or refresh token that
	// fails verification.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenRevoked is returned when a presented refresh token's family
	// has an active revocation entry.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrLoginRateLimited is returned when the failed-attempt throttle for
	// an identifier is exhausted.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrEngineNotReady is returned when an engine was constructed without
	// a required dependency.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// ExpiredAccountError wraps ErrAccountExpired with the overdue day count,
// the one failure where enough detail is surfaced for the user to contact an
// administrator meaningfully.
type ExpiredAccountError struct {
	DaysOverdue int
}

func (e *ExpiredAccountError) Error() string {
	return fmt.Sprintf("account expired %d days ago", e.DaysOverdue)
}

// Unwrap makes errors.Is(err, ErrAccountExpired) hold.
func (e *ExpiredAccountError) Unwrap() error {
	return ErrAccountExpired
}

// Kind is the coarse error taxonomy the host maps to HTTP status codes.
type Kind uint8

const (
	// KindUnknown covers errors outside the taxonomy.
	KindUnknown Kind = iota
	// KindValidation marks malformed, user-correctable input.
	KindValidation
	// KindUnauthorized marks bad credentials, codes, signatures, or tokens.
	KindUnauthorized
	// KindForbidden marks disabled accounts, wrong login modes, disabled
	// SSO, and rejected caller addresses.
	KindForbidden
	// KindExpiredAccount marks identities past their account expiry.
	KindExpiredAccount
	// KindUnavailable marks unreachable backing dependencies.
	KindUnavailable
	// KindFatal marks operator misconfiguration that should have prevented
	// startup.
	KindFatal
)

// KindOf classifies err into the taxonomy. Unrecognized errors map to
// KindUnknown.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrInvalidEmail), errors.Is(err, ErrCodeMalformed):
		return KindValidation
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrUnknownAccount),
		errors.Is(err, ErrCodeExpired),
		errors.Is(err, ErrCodeMismatch),
		errors.Is(err, ErrTokenInvalid),
		errors.Is(err, ErrTokenRevoked),
		errors.Is(err, token.ErrInvalidToken),
		errors.Is(err, sso.ErrRequestExpired),
		errors.Is(err, sso.ErrSignatureMismatch):
		return KindUnauthorized
	case errors.Is(err, ErrAccountDisabled),
		errors.Is(err, ErrWrongLoginMode),
		errors.Is(err, ErrCodeCooldown),
		errors.Is(err, ErrLoginRateLimited),
		errors.Is(err, sso.ErrDisabled),
		errors.Is(err, sso.ErrIPNotAllowed):
		return KindForbidden
	case errors.Is(err, ErrAccountExpired):
		return KindExpiredAccount
	case errors.Is(err, ErrStoreUnavailable),
		errors.Is(err, ErrCodeDelivery),
		errors.Is(err, store.ErrUnavailable):
		return KindUnavailable
	case errors.Is(err, ErrEngineNotReady), errors.Is(err, sso.ErrSecretMissing):
		return KindFatal
	default:
		return KindUnknown
	}
}

// revocationPolicy maps the config enum onto the ledger package type.
func revocationPolicy(p RevocationPolicy) revocation.Policy {
	if p == RevocationFailClosed {
		return revocation.FailClosed
	}
	return revocation.FailOpen
}
