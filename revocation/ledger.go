// Package revocation records token family identifiers that were explicitly
// invalidated before their natural expiry. Entries carry a TTL equal to the
// remaining lifetime of the revoked token, so the ledger self-expires and
// never grows unbounded.
package revocation

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/nebulaclass/authcore/store"
)

const keyPrefix = "authcore:rvk:"

// Policy decides how IsRevoked behaves when the backing store is
// unreachable.
type Policy uint8

const (
	// FailOpen treats tokens as not revoked when the store is down, so a
	// store outage does not lock every authenticated user out.
	FailOpen Policy = iota
	// FailClosed rejects tokens when revocation status cannot be
	// established.
	FailClosed
)

// Ledger is the revocation record keeper. Safe for concurrent use.
type Ledger struct {
	store  *store.Store
	policy Policy
	logger zerolog.Logger
}

// NewLedger builds a ledger over s with the given outage policy.
func NewLedger(s *store.Store, policy Policy, logger zerolog.Logger) *Ledger {
	return &Ledger{
		store:  s,
		policy: policy,
		logger: logger,
	}
}

// Revoke records jti as invalidated until expiresAt. A token already past
// its expiry is a no-op. Store failures are logged and swallowed: logout
// must not fail the user-visible flow because a ledger write failed.
func (l *Ledger) Revoke(ctx context.Context, jti string, subjectID int64, expiresAt time.Time) {
	if jti == "" {
		return
	}

	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return
	}

	if err := l.store.Set(ctx, keyPrefix+jti, strconv.FormatInt(subjectID, 10), ttl); err != nil {
		l.logger.Warn().Err(err).Str("jti", jti).Msg("revocation write failed")
	}
}

// IsRevoked reports whether jti has an active revocation entry. Under
// FailOpen a store outage is logged and reported as not revoked; under
// FailClosed the store error is returned.
func (l *Ledger) IsRevoked(ctx context.Context, jti string) (bool, error) {
	revoked, err := l.store.Exists(ctx, keyPrefix+jti)
	if err != nil {
		if l.policy == FailClosed {
			return false, err
		}
		l.logger.Warn().Err(err).Str("jti", jti).Msg("revocation check failed, failing open")
		return false, nil
	}
	return revoked, nil
}
