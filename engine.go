package authcore

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/nebulaclass/authcore/password"
	"github.com/nebulaclass/authcore/revocation"
	"github.com/nebulaclass/authcore/sso"
	"github.com/nebulaclass/authcore/store"
	"github.com/nebulaclass/authcore/token"
)

// Engine is the session orchestrator every login entry point calls. It is
// configured once via the Builder and safe for concurrent use.
type Engine struct {
	config     Config
	issuer     *token.Issuer
	hasher     *password.Hasher
	store      *store.Store
	ledger     *revocation.Ledger
	sso        *sso.Validator
	identities IdentityProvider
	mailer     Mailer
	settings   SettingsProvider
	limiter    *loginLimiter
	audit      *auditDispatcher
	metrics    *Metrics
	logger     zerolog.Logger
}

// Close flushes and stops the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// AuditDropped reports how many audit events were shed under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies the engine counters.
func (e *Engine) MetricsSnapshot() map[MetricID]uint64 {
	if e == nil {
		return map[MetricID]uint64{}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil {
		return
	}
	e.metrics.Inc(id)
}

// checkAccountPolicy applies the status and expiry checks shared by every
// login path and by Refresh.
func (e *Engine) checkAccountPolicy(identity Identity) error {
	if !identity.Active() {
		return ErrAccountDisabled
	}
	if identity.ExpiresAt != nil {
		overdue := time.Since(*identity.ExpiresAt)
		if overdue > 0 {
			return &ExpiredAccountError{
				DaysOverdue: int(overdue.Hours() / 24),
			}
		}
	}
	return nil
}

// finishLogin is the shared tail of all three login paths: policy checks,
// collaborator fetches, token pair mint, and the fire-and-forget last-login
// update.
func (e *Engine) finishLogin(ctx context.Context, identity Identity) (*LoginResult, error) {
	if err := e.checkAccountPolicy(identity); err != nil {
		return nil, err
	}

	perms, err := e.identities.GetPermissions(ctx, identity.ID)
	if err != nil {
		return nil, err
	}
	presentation, err := e.identities.GetPresentation(ctx, identity.ID)
	if err != nil {
		return nil, err
	}

	pair, err := e.issuer.MintPair(ctx, identity.ID, string(identity.Role))
	if err != nil {
		return nil, err
	}

	if err := e.identities.UpdateLastLogin(ctx, identity.ID, time.Now()); err != nil {
		e.logger.Warn().Err(err).Int64("subject_id", identity.ID).Msg("last login update failed")
	}

	return &LoginResult{
		Identity:       identity,
		Permissions:    perms,
		Presentation:   presentation,
		AccessToken:    pair.AccessToken,
		RefreshToken:   pair.RefreshToken,
		AccessTokenTTL: pair.AccessTTL,
	}, nil
}

// Verify checks an access token and its revocation status and returns the
// authenticated subject. This is what the HTTP guard middleware calls on
// every request.
func (e *Engine) Verify(ctx context.Context, accessToken string) (*AuthResult, error) {
	claims, err := e.issuer.Verify(accessToken, token.KindAccess)
	if err != nil {
		e.metricInc(MetricVerifyFailure)
		return nil, ErrTokenInvalid
	}

	revoked, err := e.ledger.IsRevoked(ctx, claims.ID)
	if err != nil {
		e.metricInc(MetricVerifyFailure)
		return nil, ErrStoreUnavailable
	}
	if revoked {
		e.metricInc(MetricVerifyFailure)
		e.emitAudit(ctx, auditEventTokenRejected, false, 0, ErrTokenRevoked, func() map[string]string {
			return map[string]string{"jti": claims.ID}
		})
		return nil, ErrTokenRevoked
	}

	subjectID, err := claims.SubjectID()
	if err != nil {
		e.metricInc(MetricVerifyFailure)
		return nil, ErrTokenInvalid
	}

	return &AuthResult{
		SubjectID: subjectID,
		Role:      Role(claims.Role),
		JTI:       claims.ID,
	}, nil
}
