// Package sso validates inbound single-sign-on assertions: a source
// identity id, a unix timestamp, and a hex signature computed over both with
// a shared secret.
//
// Validation is stateless and single-shot. Checks run in a fixed order and
// fail fast with a specific sentinel error: feature disabled, caller IP not
// allowlisted, timestamp outside the replay window, missing shared secret,
// and finally signature mismatch. The replay window is symmetric, bounding
// future-dated assertions as well as stale ones, and inclusive at the
// boundary.
//
// Two signature schemes are supported. [SchemeLegacyMD5] reproduces the wire
// format of existing third-party callers and should only be used where that
// compatibility is required; new deployments should configure
// [SchemeHMACSHA256].
package sso
