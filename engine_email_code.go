package authcore

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/mail"

	"github.com/nebulaclass/authcore/internal"
	"github.com/nebulaclass/authcore/store"
)

const (
	codeKeyPrefix  = "authcore:code:"
	guardKeyPrefix = "authcore:guard:"
)

func codeKey(email string) string {
	return codeKeyPrefix + email
}

func guardKey(email string) string {
	return guardKeyPrefix + email
}

// SendEmailCode issues a single-use numeric login code for the address. The
// verification store is a hard dependency here: there is no silent
// fallback. Delivery failure deletes both the code and the resend guard so
// the user can retry immediately.
func (e *Engine) SendEmailCode(ctx context.Context, email string) error {
	if e == nil || e.mailer == nil {
		return ErrEngineNotReady
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidEmail
	}

	identity, err := e.identities.GetByIdentifier(ctx, email)
	if err != nil {
		e.metricInc(MetricCodeIssueFailure)
		return ErrUnknownAccount
	}
	if !identity.Active() {
		e.metricInc(MetricCodeIssueFailure)
		return ErrAccountDisabled
	}

	// One round trip both checks and arms the cooldown, so concurrent
	// issues for the same address cannot race past each other.
	armed, err := e.store.SetNX(ctx, guardKey(email), "1", e.config.Code.ResendCooldown)
	if err != nil {
		e.metricInc(MetricCodeIssueFailure)
		return errors.Join(ErrStoreUnavailable, err)
	}
	if !armed {
		e.metricInc(MetricCodeIssueFailure)
		e.emitAudit(ctx, auditEventCodeIssued, false, identity.ID, ErrCodeCooldown, nil)
		return ErrCodeCooldown
	}

	code, err := internal.NewNumericCode(e.config.Code.Digits)
	if err != nil {
		e.metricInc(MetricCodeIssueFailure)
		return err
	}

	if err := e.store.Set(ctx, codeKey(email), code, e.config.Code.TTL); err != nil {
		// Drop the armed guard so the user is not cooldown-blocked with no
		// code on record.
		if delErr := e.store.Del(ctx, guardKey(email)); delErr != nil {
			e.logger.Warn().Err(delErr).Msg("guard rollback delete failed")
		}
		e.metricInc(MetricCodeIssueFailure)
		return errors.Join(ErrStoreUnavailable, err)
	}

	if err := e.mailer.SendLoginCode(ctx, email, code); err != nil {
		// Roll back so a retry is not blocked by a code that never arrived.
		if delErr := e.store.Del(ctx, codeKey(email), guardKey(email)); delErr != nil {
			e.logger.Warn().Err(delErr).Msg("code rollback delete failed")
		}
		e.metricInc(MetricCodeIssueFailure)
		e.emitAudit(ctx, auditEventDeliveryFailed, false, identity.ID, err, nil)
		return errors.Join(ErrCodeDelivery, err)
	}

	e.metricInc(MetricCodeIssued)
	e.emitAudit(ctx, auditEventCodeIssued, true, identity.ID, nil, nil)
	return nil
}

// redeemCode consumes the stored code for the address. The stored and
// supplied codes are compared as strings so leading zeros survive; the
// resend guard is deliberately left to expire, so a fresh send inside the
// cooldown window stays blocked even after a successful redemption.
func (e *Engine) redeemCode(ctx context.Context, email, supplied string) error {
	if !validCodeFormat(supplied, e.config.Code.Digits) {
		return ErrCodeMalformed
	}

	stored, err := e.store.Get(ctx, codeKey(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrCodeExpired
		}
		return errors.Join(ErrStoreUnavailable, err)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) != 1 {
		return ErrCodeMismatch
	}

	// Single use: delete before returning success.
	if err := e.store.Del(ctx, codeKey(email)); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

func validCodeFormat(code string, digits int) bool {
	if len(code) != digits {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

// EmailCodeLogin authenticates with an emailed one-time code.
func (e *Engine) EmailCodeLogin(ctx context.Context, email, code string) (*LoginResult, error) {
	if e == nil || e.identities == nil {
		return nil, ErrEngineNotReady
	}

	if err := e.redeemCode(ctx, email, code); err != nil {
		e.metricInc(MetricCodeRedeemFailure)
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventCodeLogin, false, 0, err, func() map[string]string {
			return map[string]string{"email": email}
		})
		return nil, err
	}
	e.metricInc(MetricCodeRedeemed)

	identity, err := e.identities.GetByIdentifier(ctx, email)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventCodeLogin, false, 0, ErrInvalidCredentials, nil)
		return nil, ErrInvalidCredentials
	}

	result, err := e.finishLogin(ctx, identity)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventCodeLogin, false, identity.ID, err, nil)
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventCodeLogin, true, identity.ID, nil, nil)
	return result, nil
}

// PasswordWithCodeLogin requires both the account password and an emailed
// one-time code. The password is checked first so a bad password does not
// burn the single-use code.
func (e *Engine) PasswordWithCodeLogin(ctx context.Context, email, secret, code string) (*LoginResult, error) {
	if e == nil || e.hasher == nil {
		return nil, ErrEngineNotReady
	}

	if err := e.limiter.Check(ctx, email); err != nil {
		e.metricInc(MetricLoginRateLimited)
		e.emitAudit(ctx, auditEventThrottleTrip, false, 0, err, func() map[string]string {
			return map[string]string{"identifier": email}
		})
		return nil, err
	}

	identity, err := e.identities.GetByIdentifier(ctx, email)
	if err != nil {
		e.limiter.Failure(ctx, email)
		e.metricInc(MetricLoginFailure)
		return nil, ErrInvalidCredentials
	}
	if identity.Origin == OriginSSO {
		e.metricInc(MetricLoginFailure)
		return nil, ErrWrongLoginMode
	}

	ok, err := e.hasher.Verify(secret, identity.PasswordHash)
	if err != nil || !ok {
		e.limiter.Failure(ctx, email)
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventCodeLogin, false, identity.ID, ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"reason": "password_mismatch"}
		})
		return nil, ErrInvalidCredentials
	}
	secret = ""

	if err := e.redeemCode(ctx, email, code); err != nil {
		e.metricInc(MetricCodeRedeemFailure)
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventCodeLogin, false, identity.ID, err, nil)
		return nil, err
	}
	e.metricInc(MetricCodeRedeemed)

	result, err := e.finishLogin(ctx, identity)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventCodeLogin, false, identity.ID, err, nil)
		return nil, err
	}

	e.limiter.Reset(ctx, email)
	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventCodeLogin, true, identity.ID, nil, nil)
	return result, nil
}
