package authcore

import (
	"context"
	"errors"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/nebulaclass/authcore/store"
)

const throttleKeyPrefix = "authcore:thr:"

// loginLimiter counts failed password attempts per identifier in a fixed
// window. Store outages are logged and the attempt allowed: the password
// path must not acquire a hard Redis dependency for a supplementary
// throttle.
type loginLimiter struct {
	store  *store.Store
	cfg    ThrottleConfig
	logger zerolog.Logger
}

func newLoginLimiter(s *store.Store, cfg ThrottleConfig, logger zerolog.Logger) *loginLimiter {
	if !cfg.Enabled {
		return nil
	}
	return &loginLimiter{
		store:  s,
		cfg:    cfg,
		logger: logger,
	}
}

func (l *loginLimiter) key(identifier string) string {
	return throttleKeyPrefix + identifier
}

// Check returns ErrLoginRateLimited when the identifier has exhausted its
// failure budget for the current window.
func (l *loginLimiter) Check(ctx context.Context, identifier string) error {
	if l == nil {
		return nil
	}

	val, err := l.store.Get(ctx, l.key(identifier))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		l.logger.Warn().Err(err).Msg("login throttle check failed, allowing attempt")
		return nil
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return nil
	}
	if count >= l.cfg.MaxFailures {
		return ErrLoginRateLimited
	}
	return nil
}

// Failure records one failed attempt.
func (l *loginLimiter) Failure(ctx context.Context, identifier string) {
	if l == nil {
		return
	}
	if _, err := l.store.Incr(ctx, l.key(identifier), l.cfg.Window); err != nil {
		l.logger.Warn().Err(err).Msg("login throttle increment failed")
	}
}

// Reset clears the counter after a successful login.
func (l *loginLimiter) Reset(ctx context.Context, identifier string) {
	if l == nil {
		return
	}
	if err := l.store.Del(ctx, l.key(identifier)); err != nil {
		l.logger.Warn().Err(err).Msg("login throttle reset failed")
	}
}
