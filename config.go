package authcore

import (
	"errors"
	"time"

	"github.com/nebulaclass/authcore/password"
)

// Config is the static engine configuration. Instances are intended to be
// assembled during initialization and then treated as immutable. Mutable
// settings (refresh lifetime, SSO record) come from the SettingsProvider
// instead.
type Config struct {
	Token      TokenConfig
	Code       CodeConfig
	Throttle   ThrottleConfig
	Revocation RevocationConfig
	Store      StoreConfig
	Password   password.Config
	Audit      AuditConfig
	Metrics    MetricsConfig
}

// TokenConfig carries the signing parameters handed to the token issuer.
// Access and refresh secrets must differ so that compromise of one does not
// compromise the other.
type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte

	AccessTTL         time.Duration
	DefaultRefreshTTL time.Duration

	Issuer   string
	Audience string
	Leeway   time.Duration
}

// CodeConfig tunes the email one-time-code flow.
type CodeConfig struct {
	Digits         int
	TTL            time.Duration
	ResendCooldown time.Duration
}

// ThrottleConfig tunes the failed-password-attempt limiter. Disabled by
// default.
type ThrottleConfig struct {
	Enabled     bool
	MaxFailures int64
	Window      time.Duration
}

// RevocationPolicy decides refresh/verify behavior when the revocation
// ledger's store is unreachable.
type RevocationPolicy uint8

const (
	// RevocationFailOpen treats tokens as not revoked during a store
	// outage. Availability over strict enforcement; the tradeoff is
	// explicit and configurable rather than silent.
	RevocationFailOpen RevocationPolicy = iota
	// RevocationFailClosed rejects tokens whose revocation status cannot
	// be established.
	RevocationFailClosed
)

// RevocationConfig selects the ledger outage policy.
type RevocationConfig struct {
	Policy RevocationPolicy
}

// StoreConfig bounds every verification-store round trip.
type StoreConfig struct {
	OpTimeout time.Duration
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull sheds events instead of blocking the request path when
	// the buffer is full.
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			AccessTTL:         24 * time.Hour,
			DefaultRefreshTTL: 14 * 24 * time.Hour,
			Issuer:            "authcore",
			Leeway:            30 * time.Second,
		},
		Code: CodeConfig{
			Digits:         6,
			TTL:            5 * time.Minute,
			ResendCooldown: 60 * time.Second,
		},
		Throttle: ThrottleConfig{
			Enabled:     false,
			MaxFailures: 10,
			Window:      15 * time.Minute,
		},
		Revocation: RevocationConfig{
			Policy: RevocationFailOpen,
		},
		Store: StoreConfig{
			OpTimeout: 3 * time.Second,
		},
		Password: password.DefaultConfig(),
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate checks the parts of Config the token issuer and password hasher
// do not validate themselves.
func (c Config) Validate() error {
	if c.Code.Digits < 4 || c.Code.Digits > 10 {
		return errors.New("code digits must be between 4 and 10")
	}
	if c.Code.TTL <= 0 {
		return errors.New("code TTL must be positive")
	}
	if c.Code.ResendCooldown <= 0 {
		return errors.New("code resend cooldown must be positive")
	}
	if c.Code.ResendCooldown > c.Code.TTL {
		return errors.New("code resend cooldown must not exceed code TTL")
	}
	if c.Throttle.Enabled {
		if c.Throttle.MaxFailures <= 0 {
			return errors.New("throttle max failures must be positive")
		}
		if c.Throttle.Window <= 0 {
			return errors.New("throttle window must be positive")
		}
	}
	if string(c.Token.AccessSecret) == string(c.Token.RefreshSecret) && len(c.Token.AccessSecret) > 0 {
		return errors.New("access and refresh secrets must differ")
	}
	return nil
}
