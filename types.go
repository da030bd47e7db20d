package authcore

import (
	"context"
	"time"

	"github.com/nebulaclass/authcore/sso"
)

// Role is the coarse authorization level carried in token claims.
type Role string

const (
	// RoleUser is a standard account.
	RoleUser Role = "user"
	// RoleGroupAdmin administers a single tenant group.
	RoleGroupAdmin Role = "group_admin"
	// RoleSuperAdmin administers the whole deployment.
	RoleSuperAdmin Role = "super_admin"
)

// IdentityStatus is the account lifecycle state as far as this subsystem
// cares: it only ever distinguishes active from everything else.
type IdentityStatus uint8

const (
	// IdentityActive allows every login path.
	IdentityActive IdentityStatus = iota
	// IdentityDisabled blocks every login path.
	IdentityDisabled
)

// IdentityOrigin tags how the account was created. Password logins are
// rejected for SSO-provisioned identities and vice versa.
type IdentityOrigin uint8

const (
	// OriginPassword marks accounts registered with a password.
	OriginPassword IdentityOrigin = iota
	// OriginSSO marks accounts provisioned by the SSO path.
	OriginSSO
)

// Identity is the engine's read view of a user account. It is owned by the
// host's user store; the engine only reads it and writes the last
// authenticated timestamp.
type Identity struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	Status       IdentityStatus
	Origin       IdentityOrigin
	// ExpiresAt, when non-nil and in the past, blocks login with an
	// ExpiredAccountError carrying the overdue day count.
	ExpiresAt *time.Time
}

// Active reports whether the identity may authenticate at all.
func (i Identity) Active() bool {
	return i.Status == IdentityActive
}

// IdentityProvider is the host-side user store. Lookups that find no account
// should return an error; the engine maps it to a generic credential failure
// on login paths.
type IdentityProvider interface {
	GetByIdentifier(ctx context.Context, identifier string) (Identity, error)
	GetByID(ctx context.Context, id int64) (Identity, error)

	// GetPermissions and GetPresentation are pass-through collaborator
	// calls made after a successful policy check; the engine does not
	// retry them.
	GetPermissions(ctx context.Context, id int64) ([]string, error)
	GetPresentation(ctx context.Context, id int64) (map[string]string, error)

	// UpdateLastLogin is fire-and-forget: a failure is logged and never
	// fails the login response.
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error

	// GetOrCreateSSOIdentity resolves an identity for a validated SSO
	// assertion, provisioning one under the configured target group and
	// default credit grant if none exists.
	GetOrCreateSSOIdentity(ctx context.Context, sourceID, name string, cfg sso.Config) (Identity, error)
}

// Mailer delivers one-time login codes. Delivery failure rolls back the
// stored code so the user can retry immediately.
type Mailer interface {
	SendLoginCode(ctx context.Context, email, code string) error
}

// SettingsProvider exposes the mutable system settings the engine reads per
// request: the refresh token lifetime and the SSO configuration record.
type SettingsProvider interface {
	RefreshTokenTTL(ctx context.Context) (time.Duration, error)
	SSOConfig(ctx context.Context) (sso.Config, error)
}

// LoginResult is returned by every successful login path.
type LoginResult struct {
	Identity     Identity
	Permissions  []string
	Presentation map[string]string

	AccessToken  string
	RefreshToken string
	// AccessTokenTTL lets the caller advertise the expiry without
	// decoding the token.
	AccessTokenTTL time.Duration
}

// RefreshResult is returned by Refresh. The refresh token itself is not
// rotated; only a new access token is issued.
type RefreshResult struct {
	AccessToken    string
	AccessTokenTTL time.Duration
}

// AuthResult is the outcome of verifying an access token, as consumed by
// the HTTP guard middleware.
type AuthResult struct {
	SubjectID int64
	Role      Role
	JTI       string
}
