package authcore

import (
	"context"

	"github.com/nebulaclass/authcore/sso"
)

// PasswordLogin authenticates with an account identifier (email, phone, or
// username) and a password. Lookup failures and password mismatches both
// map to ErrInvalidCredentials so the response never reveals which field
// was wrong.
func (e *Engine) PasswordLogin(ctx context.Context, identifier, secret string) (*LoginResult, error) {
	if e == nil || e.hasher == nil {
		return nil, ErrEngineNotReady
	}

	if err := e.limiter.Check(ctx, identifier); err != nil {
		e.metricInc(MetricLoginRateLimited)
		e.emitAudit(ctx, auditEventThrottleTrip, false, 0, err, func() map[string]string {
			return map[string]string{"identifier": identifier}
		})
		return nil, err
	}

	if secret == "" {
		e.limiter.Failure(ctx, identifier)
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventPasswordLogin, false, 0, ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"identifier": identifier, "reason": "empty_password"}
		})
		return nil, ErrInvalidCredentials
	}

	identity, err := e.identities.GetByIdentifier(ctx, identifier)
	if err != nil {
		e.limiter.Failure(ctx, identifier)
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventPasswordLogin, false, 0, ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"identifier": identifier, "reason": "identity_not_found"}
		})
		return nil, ErrInvalidCredentials
	}

	if identity.Origin == OriginSSO {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventPasswordLogin, false, identity.ID, ErrWrongLoginMode, nil)
		return nil, ErrWrongLoginMode
	}

	ok, err := e.hasher.Verify(secret, identity.PasswordHash)
	if err != nil || !ok {
		e.limiter.Failure(ctx, identifier)
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventPasswordLogin, false, identity.ID, ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"identifier": identifier, "reason": "password_mismatch"}
		})
		return nil, ErrInvalidCredentials
	}
	secret = ""

	result, err := e.finishLogin(ctx, identity)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventPasswordLogin, false, identity.ID, err, nil)
		return nil, err
	}

	e.limiter.Reset(ctx, identifier)
	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventPasswordLogin, true, identity.ID, nil, nil)

	return result, nil
}

// SSOLogin validates a signed single-sign-on assertion and provisions or
// resolves the identity it names. The caller address comes from
// WithClientIP; the SSO configuration record is read from settings per
// request so operators can rotate the secret or allowlist live.
func (e *Engine) SSOLogin(ctx context.Context, assertion sso.Assertion) (*LoginResult, error) {
	if e == nil || e.sso == nil {
		return nil, ErrEngineNotReady
	}
	if e.settings == nil {
		return nil, ErrEngineNotReady
	}

	cfg, err := e.settings.SSOConfig(ctx)
	if err != nil {
		e.metricInc(MetricSSORejected)
		return nil, err
	}

	validated, err := e.sso.Validate(assertion, clientIPFromContext(ctx), cfg)
	if err != nil {
		e.metricInc(MetricSSORejected)
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventSSOLogin, false, 0, err, func() map[string]string {
			return map[string]string{"source_id": assertion.SourceID}
		})
		return nil, err
	}

	identity, err := e.identities.GetOrCreateSSOIdentity(ctx, assertion.SourceID, assertion.Name, validated)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventSSOLogin, false, 0, err, func() map[string]string {
			return map[string]string{"source_id": assertion.SourceID}
		})
		return nil, err
	}

	result, err := e.finishLogin(ctx, identity)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventSSOLogin, false, identity.ID, err, nil)
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventSSOLogin, true, identity.ID, nil, func() map[string]string {
		return map[string]string{"source_id": assertion.SourceID}
	})

	return result, nil
}
