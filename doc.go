// Package authcore is the authentication and token lifecycle engine for the
// NebulaClass platform. It issues and verifies short-lived access tokens and
// longer-lived refresh tokens, and drives password, email one-time-code, and
// shared-secret single sign-on logins through one shared session policy.
//
// The engine is an embeddable library: user persistence, permission lookup,
// and email delivery are consumed through the [IdentityProvider],
// [SettingsProvider], and [Mailer] interfaces the host application supplies.
// Redis backs the ephemeral state (one-time codes, resend cooldowns, login
// throttle counters, and the token revocation ledger).
//
// Construct an engine with the fluent [Builder]:
//
//	eng, err := authcore.New().
//		WithRedis(rdb).
//		WithIdentityProvider(users).
//		WithMailer(mailer).
//		WithSettings(settings).
//		Build()
//
// All configuration errors surface at Build time; per-request operations
// never fail on misconfiguration.
package authcore
