package sso

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Scheme selects the keyed digest used for assertion signatures.
type Scheme string

const (
	// SchemeLegacyMD5 signs with hex(md5(sourceID + timestamp + secret)).
	// Kept for wire compatibility with existing callers only.
	SchemeLegacyMD5 Scheme = "legacy-md5"
	// SchemeHMACSHA256 signs with hex(hmac-sha256(secret, sourceID + timestamp)).
	SchemeHMACSHA256 Scheme = "hmac-sha256"
)

var (
	// ErrDisabled is returned when SSO login is switched off in configuration.
	ErrDisabled = errors.New("sso login disabled")
	// ErrIPNotAllowed is returned when an allowlist is enabled and the
	// caller address is not a member.
	ErrIPNotAllowed = errors.New("sso caller ip not allowed")
	// ErrRequestExpired is returned when the assertion timestamp falls
	// outside the replay window, in either direction.
	ErrRequestExpired = errors.New("sso request expired")
	// ErrSecretMissing is returned when no shared secret is configured.
	// This is operator error, surfaced distinctly from bad caller input.
	ErrSecretMissing = errors.New("sso shared secret not configured")
	// ErrSignatureMismatch is returned when the presented signature does
	// not match the expected digest.
	ErrSignatureMismatch = errors.New("sso signature mismatch")
)

// Config is the mutable SSO settings record, resolved per request from
// system settings. TargetGroupID and DefaultCreditGrant are passed through
// to identity provisioning and play no role in validation.
type Config struct {
	Enabled      bool
	SharedSecret string
	ReplayWindow time.Duration

	IPAllowlistEnabled bool
	// IPAllowlist is a comma-separated list of literal addresses. Matching
	// is exact string comparison; CIDR ranges are not supported.
	IPAllowlist string

	Scheme Scheme

	TargetGroupID      int64
	DefaultCreditGrant int64
}

// Assertion is the transient input validated once per request and never
// stored.
type Assertion struct {
	SourceID  string
	Name      string
	Timestamp int64
	Signature string
}

// Validator performs single-shot assertion validation. The zero value is not
// usable; construct with NewValidator.
type Validator struct {
	now func() time.Time
}

// NewValidator returns a Validator using the wall clock.
func NewValidator() *Validator {
	return &Validator{now: time.Now}
}

// Validate runs the check sequence against assertion and returns the
// validated configuration on success so the caller can provision the
// identity. The signature comparison is constant time.
func (v *Validator) Validate(assertion Assertion, callerIP string, cfg Config) (Config, error) {
	if !cfg.Enabled {
		return Config{}, ErrDisabled
	}

	if cfg.IPAllowlistEnabled && !ipAllowed(callerIP, cfg.IPAllowlist) {
		return Config{}, ErrIPNotAllowed
	}

	delta := v.now().Unix() - assertion.Timestamp
	if delta < 0 {
		delta = -delta
	}
	if cfg.ReplayWindow > 0 && delta > int64(cfg.ReplayWindow/time.Second) {
		return Config{}, ErrRequestExpired
	}

	if cfg.SharedSecret == "" {
		return Config{}, ErrSecretMissing
	}

	expected := Sign(cfg.Scheme, assertion.SourceID, assertion.Timestamp, cfg.SharedSecret)
	presented := strings.ToLower(strings.TrimSpace(assertion.Signature))
	if subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) != 1 {
		return Config{}, ErrSignatureMismatch
	}

	return cfg, nil
}

// Sign computes the hex signature for the given inputs under scheme. An
// unknown scheme falls back to SchemeHMACSHA256.
func Sign(scheme Scheme, sourceID string, timestamp int64, secret string) string {
	payload := sourceID + strconv.FormatInt(timestamp, 10)

	switch scheme {
	case SchemeLegacyMD5:
		sum := md5.Sum([]byte(payload + secret))
		return hex.EncodeToString(sum[:])
	default:
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write([]byte(payload))
		return hex.EncodeToString(mac.Sum(nil))
	}
}

func ipAllowed(callerIP, allowlist string) bool {
	if callerIP == "" {
		return false
	}
	for _, entry := range strings.Split(allowlist, ",") {
		if strings.TrimSpace(entry) == callerIP {
			return true
		}
	}
	return false
}
