// Package token mints and verifies the self-contained signed tokens that
// carry an authenticated session: a short-lived access token and a
// longer-lived refresh token.
//
// The two kinds are signed with independent HS256 secrets so that compromise
// of one secret does not compromise the other. The refresh token's family
// identifier is derived from the access token's by a fixed prefix, which
// lets the pair be correlated for auditing without storing a mapping.
//
// The refresh lifetime is resolved at mint time through an injected
// [RefreshTTLProvider], so operators can tune session length without a
// redeploy. The change affects newly minted tokens only; already-issued
// tokens keep the expiry they were signed with.
package token
