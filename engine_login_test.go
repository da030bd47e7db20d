package authcore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nebulaclass/authcore/sso"
	"github.com/nebulaclass/authcore/token"
)

func TestPasswordLoginSucceeds(t *testing.T) {
	f := newTestEngine(t, nil)
	f.addPasswordUser(t, 7, "alice@example.com", "correct horse battery")

	result, err := f.engine.PasswordLogin(context.Background(), "alice@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if result.Identity.ID != 7 {
		t.Errorf("identity id = %d, want 7", result.Identity.ID)
	}
	if len(result.Permissions) != 2 {
		t.Errorf("permissions = %v, want two entries", result.Permissions)
	}
	if result.Presentation["theme"] != "default" {
		t.Errorf("presentation = %v, want theme entry", result.Presentation)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatal("expected a full token pair")
	}
	if result.AccessTokenTTL <= 0 {
		t.Errorf("access ttl = %v, want positive", result.AccessTokenTTL)
	}

	// Both tokens must verify under their own kind and carry the subject.
	auth, err := f.engine.Verify(context.Background(), result.AccessToken)
	if err != nil {
		t.Fatalf("verify after login failed: %v", err)
	}
	if auth.SubjectID != 7 {
		t.Errorf("verified subject = %d, want 7", auth.SubjectID)
	}
	if auth.Role != RoleUser {
		t.Errorf("verified role = %q, want %q", auth.Role, RoleUser)
	}

	if _, ok := f.provider.lastLoginAt(7); !ok {
		t.Error("last login timestamp was not recorded")
	}
}

func TestPasswordLoginWrongPassword(t *testing.T) {
	f := newTestEngine(t, nil)
	f.addPasswordUser(t, 7, "alice@example.com", "right")

	_, err := f.engine.PasswordLogin(context.Background(), "alice@example.com", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestPasswordLoginUnknownAccount(t *testing.T) {
	f := newTestEngine(t, nil)

	// Unknown identifier and bad password are indistinguishable to callers.
	_, err := f.engine.PasswordLogin(context.Background(), "nobody@example.com", "whatever")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestPasswordLoginEmptyPassword(t *testing.T) {
	f := newTestEngine(t, nil)
	f.addPasswordUser(t, 7, "alice@example.com", "right")

	_, err := f.engine.PasswordLogin(context.Background(), "alice@example.com", "")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestPasswordLoginRejectsSSOOriginAccount(t *testing.T) {
	f := newTestEngine(t, nil)
	f.provider.add(Identity{
		ID:     8,
		Email:  "federated@example.com",
		Role:   RoleUser,
		Status: IdentityActive,
		Origin: OriginSSO,
	})

	_, err := f.engine.PasswordLogin(context.Background(), "federated@example.com", "anything")
	if !errors.Is(err, ErrWrongLoginMode) {
		t.Fatalf("err = %v, want ErrWrongLoginMode", err)
	}
}

func TestPasswordLoginDisabledAccount(t *testing.T) {
	f := newTestEngine(t, nil)
	identity := f.addPasswordUser(t, 9, "bob@example.com", "pw")
	identity.Status = IdentityDisabled
	f.provider.add(identity)

	_, err := f.engine.PasswordLogin(context.Background(), "bob@example.com", "pw")
	if !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("err = %v, want ErrAccountDisabled", err)
	}
}

func TestPasswordLoginExpiredAccountReportsDaysOverdue(t *testing.T) {
	f := newTestEngine(t, nil)
	identity := f.addPasswordUser(t, 10, "carol@example.com", "pw")
	expired := time.Now().Add(-10*24*time.Hour - time.Hour)
	identity.ExpiresAt = &expired
	f.provider.add(identity)

	_, err := f.engine.PasswordLogin(context.Background(), "carol@example.com", "pw")
	if !errors.Is(err, ErrAccountExpired) {
		t.Fatalf("err = %v, want ErrAccountExpired", err)
	}

	var expiredErr *ExpiredAccountError
	if !errors.As(err, &expiredErr) {
		t.Fatalf("err = %T, want *ExpiredAccountError", err)
	}
	if expiredErr.DaysOverdue != 10 {
		t.Errorf("days overdue = %d, want 10", expiredErr.DaysOverdue)
	}
}

func TestPasswordLoginSurvivesLastLoginWriteFailure(t *testing.T) {
	f := newTestEngine(t, nil)
	f.addPasswordUser(t, 7, "alice@example.com", "pw")
	f.provider.failLogin = true

	// The last-login update is fire-and-forget; its failure never reaches
	// the caller.
	if _, err := f.engine.PasswordLogin(context.Background(), "alice@example.com", "pw"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
}

func TestPasswordLoginPermissionFetchFailure(t *testing.T) {
	f := newTestEngine(t, nil)
	f.addPasswordUser(t, 7, "alice@example.com", "pw")
	f.provider.permsError = errors.New("permission backend down")

	if _, err := f.engine.PasswordLogin(context.Background(), "alice@example.com", "pw"); err == nil {
		t.Fatal("expected the collaborator error to propagate")
	}
}

func TestPasswordLoginThrottle(t *testing.T) {
	f := newTestEngine(t, func(cfg *Config) {
		cfg.Throttle.Enabled = true
		cfg.Throttle.MaxFailures = 3
		cfg.Throttle.Window = time.Minute
	})
	f.addPasswordUser(t, 7, "alice@example.com", "right")

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := f.engine.PasswordLogin(ctx, "alice@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: err = %v, want ErrInvalidCredentials", i, err)
		}
	}

	// The limit is reached, so even the correct password is rejected.
	if _, err := f.engine.PasswordLogin(ctx, "alice@example.com", "right"); !errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("err = %v, want ErrLoginRateLimited", err)
	}

	// The window elapsing clears the counter.
	f.redis.FastForward(61 * time.Second)
	if _, err := f.engine.PasswordLogin(ctx, "alice@example.com", "right"); err != nil {
		t.Fatalf("login after window: %v", err)
	}
}

func TestPasswordLoginThrottleResetOnSuccess(t *testing.T) {
	f := newTestEngine(t, func(cfg *Config) {
		cfg.Throttle.Enabled = true
		cfg.Throttle.MaxFailures = 3
		cfg.Throttle.Window = time.Minute
	})
	f.addPasswordUser(t, 7, "alice@example.com", "right")

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, _ = f.engine.PasswordLogin(ctx, "alice@example.com", "wrong")
	}
	if _, err := f.engine.PasswordLogin(ctx, "alice@example.com", "right"); err != nil {
		t.Fatalf("login below limit: %v", err)
	}

	// Success cleared the counter: two more failures do not trip the limit.
	for i := 0; i < 2; i++ {
		_, _ = f.engine.PasswordLogin(ctx, "alice@example.com", "wrong")
	}
	if _, err := f.engine.PasswordLogin(ctx, "alice@example.com", "right"); err != nil {
		t.Fatalf("login after reset: %v", err)
	}
}

func ssoTestConfig() sso.Config {
	return sso.Config{
		Enabled:            true,
		SharedSecret:       "sso-shared-secret",
		ReplayWindow:       5 * time.Minute,
		Scheme:             sso.SchemeHMACSHA256,
		TargetGroupID:      3,
		DefaultCreditGrant: 100,
	}
}

func signedAssertion(cfg sso.Config, sourceID, name string) sso.Assertion {
	ts := time.Now().Unix()
	return sso.Assertion{
		SourceID:  sourceID,
		Name:      name,
		Timestamp: ts,
		Signature: sso.Sign(cfg.Scheme, sourceID, ts, cfg.SharedSecret),
	}
}

func TestSSOLoginProvisionsIdentity(t *testing.T) {
	f := newTestEngine(t, nil)
	f.settings.ssoCfg = ssoTestConfig()

	assertion := signedAssertion(f.settings.ssoCfg, "ext-501", "Dana")
	result, err := f.engine.SSOLogin(context.Background(), assertion)
	if err != nil {
		t.Fatalf("sso login failed: %v", err)
	}
	if result.Identity.Origin != OriginSSO {
		t.Errorf("origin = %q, want %q", result.Identity.Origin, OriginSSO)
	}
	if result.AccessToken == "" {
		t.Fatal("expected an access token")
	}

	// The same assertion source resolves to the same identity on repeat login.
	again, err := f.engine.SSOLogin(context.Background(), signedAssertion(f.settings.ssoCfg, "ext-501", "Dana"))
	if err != nil {
		t.Fatalf("repeat sso login failed: %v", err)
	}
	if again.Identity.ID != result.Identity.ID {
		t.Errorf("repeat login id = %d, want %d", again.Identity.ID, result.Identity.ID)
	}
}

func TestSSOLoginRejectsBadSignature(t *testing.T) {
	f := newTestEngine(t, nil)
	f.settings.ssoCfg = ssoTestConfig()

	assertion := signedAssertion(f.settings.ssoCfg, "ext-501", "Dana")
	assertion.Signature = "deadbeef"

	_, err := f.engine.SSOLogin(context.Background(), assertion)
	if !errors.Is(err, sso.ErrSignatureMismatch) {
		t.Fatalf("err = %v, want ErrSignatureMismatch", err)
	}
}

func TestSSOLoginDisabled(t *testing.T) {
	f := newTestEngine(t, nil)
	cfg := ssoTestConfig()
	cfg.Enabled = false
	f.settings.ssoCfg = cfg

	_, err := f.engine.SSOLogin(context.Background(), signedAssertion(ssoTestConfig(), "ext-501", "Dana"))
	if !errors.Is(err, sso.ErrDisabled) {
		t.Fatalf("err = %v, want ErrDisabled", err)
	}
}

func TestSSOLoginIPAllowlist(t *testing.T) {
	f := newTestEngine(t, nil)
	cfg := ssoTestConfig()
	cfg.IPAllowlistEnabled = true
	cfg.IPAllowlist = "10.0.0.1, 10.0.0.2"
	f.settings.ssoCfg = cfg

	assertion := signedAssertion(cfg, "ext-501", "Dana")

	_, err := f.engine.SSOLogin(WithClientIP(context.Background(), "192.168.1.9"), assertion)
	if !errors.Is(err, sso.ErrIPNotAllowed) {
		t.Fatalf("blocked ip: err = %v, want ErrIPNotAllowed", err)
	}

	if _, err := f.engine.SSOLogin(WithClientIP(context.Background(), "10.0.0.2"), assertion); err != nil {
		t.Fatalf("allowed ip: %v", err)
	}
}

func TestSSOLoginStaleTimestamp(t *testing.T) {
	f := newTestEngine(t, nil)
	f.settings.ssoCfg = ssoTestConfig()

	ts := time.Now().Add(-10 * time.Minute).Unix()
	assertion := sso.Assertion{
		SourceID:  "ext-501",
		Name:      "Dana",
		Timestamp: ts,
		Signature: sso.Sign(sso.SchemeHMACSHA256, "ext-501", ts, "sso-shared-secret"),
	}

	_, err := f.engine.SSOLogin(context.Background(), assertion)
	if !errors.Is(err, sso.ErrRequestExpired) {
		t.Fatalf("err = %v, want ErrRequestExpired", err)
	}
}

func TestLoginRefreshTokenUsesDynamicTTL(t *testing.T) {
	f := newTestEngine(t, nil)
	f.settings.refreshTTL = 48 * time.Hour
	f.addPasswordUser(t, 7, "alice@example.com", "pw")

	result, err := f.engine.PasswordLogin(context.Background(), "alice@example.com", "pw")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	claims, err := f.engine.issuer.Verify(result.RefreshToken, token.KindRefresh)
	if err != nil {
		t.Fatalf("refresh verify failed: %v", err)
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl < 47*time.Hour || ttl > 49*time.Hour {
		t.Errorf("refresh ttl = %v, want about 48h", ttl)
	}
}
