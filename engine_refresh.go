package authcore

import (
	"context"

	"github.com/nebulaclass/authcore/token"
)

// Refresh mints a new access token from a valid, unrevoked refresh token.
// The refresh token itself is not rotated; it stays valid until its own
// expiry or an explicit revocation.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	if e == nil || e.issuer == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.issuer.Verify(refreshToken, token.KindRefresh)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefresh, false, 0, ErrTokenInvalid, func() map[string]string {
			return map[string]string{"reason": "verify_failed"}
		})
		return nil, ErrTokenInvalid
	}

	revoked, err := e.ledger.IsRevoked(ctx, claims.ID)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, ErrStoreUnavailable
	}
	if revoked {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefresh, false, 0, ErrTokenRevoked, func() map[string]string {
			return map[string]string{"jti": claims.ID}
		})
		return nil, ErrTokenRevoked
	}

	subjectID, err := claims.SubjectID()
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, ErrTokenInvalid
	}

	// Re-resolve the identity: status or expiry may have changed since the
	// refresh token was minted.
	identity, err := e.identities.GetByID(ctx, subjectID)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefresh, false, subjectID, ErrTokenInvalid, func() map[string]string {
			return map[string]string{"reason": "identity_not_found"}
		})
		return nil, ErrTokenInvalid
	}
	if err := e.checkAccountPolicy(identity); err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefresh, false, subjectID, err, nil)
		return nil, err
	}

	access, ttl, err := e.issuer.MintAccess(identity.ID, string(identity.Role))
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefresh, true, identity.ID, nil, nil)

	return &RefreshResult{
		AccessToken:    access,
		AccessTokenTTL: ttl,
	}, nil
}

// Logout revokes the presented access token, best effort. It never
// fails to the caller: a malformed token or a ledger write failure still
// returns success, because the client is discarding its tokens either way.
func (e *Engine) Logout(ctx context.Context, accessToken string) {
	if e == nil || e.issuer == nil {
		return
	}
	if accessToken == "" {
		return
	}

	// Decode checks the signature but not expiry: revoking an expired
	// token is a harmless no-op inside the ledger.
	claims, err := e.issuer.Decode(accessToken, token.KindAccess)
	if err != nil {
		e.emitAudit(ctx, auditEventLogout, false, 0, err, func() map[string]string {
			return map[string]string{"reason": "decode_failed"}
		})
		return
	}

	subjectID, err := claims.SubjectID()
	if err != nil {
		subjectID = 0
	}

	if claims.ExpiresAt != nil {
		e.ledger.Revoke(ctx, claims.ID, subjectID, claims.ExpiresAt.Time)
		e.metricInc(MetricTokenRevoked)
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, subjectID, nil, nil)
}
