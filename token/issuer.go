package token

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nebulaclass/authcore/internal"
)

// Kind discriminates the two token flavors carried in the "kind" claim.
type Kind string

const (
	// KindAccess marks short-lived tokens presented on every request.
	KindAccess Kind = "access"
	// KindRefresh marks long-lived tokens presented only to mint new access tokens.
	KindRefresh Kind = "refresh"
)

// RefreshJTIPrefix is the fixed transform applied to an access token's
// family identifier to derive the paired refresh token's identifier.
const RefreshJTIPrefix = "refresh-"

var (
	// ErrInvalidToken covers every verification failure: bad signature,
	// wrong issuer or audience, expiry, and kind mismatch. Callers that
	// need to present "expired" separately can use IsExpired.
	ErrInvalidToken = errors.New("invalid token")
)

// Config holds the static signing parameters. Secrets are validated once at
// construction; a missing secret is operator error and must prevent startup,
// never surface per request.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte

	AccessTTL         time.Duration
	DefaultRefreshTTL time.Duration

	Issuer   string
	Audience string
	Leeway   time.Duration
}

// RefreshTTLProvider resolves the refresh token lifetime from mutable system
// settings at mint time. Implementations may hit a database or settings
// cache; an error falls back to Config.DefaultRefreshTTL.
type RefreshTTLProvider interface {
	RefreshTokenTTL(ctx context.Context) (time.Duration, error)
}

// Claims is the signed claim set. Subject carries the identity id in
// decimal, ID the token family identifier.
type Claims struct {
	Role string `json:"role"`
	Kind Kind   `json:"kind"`
	jwt.RegisteredClaims
}

// SubjectID decodes the numeric identity id from the subject claim.
func (c *Claims) SubjectID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: malformed subject", ErrInvalidToken)
	}
	return id, nil
}

// Pair is the result of a single login event.
type Pair struct {
	AccessToken  string
	RefreshToken string
	AccessJTI    string
	RefreshJTI   string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
}

// Issuer mints and verifies token pairs. Safe for concurrent use.
type Issuer struct {
	config     Config
	refreshTTL RefreshTTLProvider
	now        func() time.Time
}

// NewIssuer validates cfg and returns a ready Issuer. The provider may be
// nil, in which case Config.DefaultRefreshTTL is always used.
func NewIssuer(cfg Config, provider RefreshTTLProvider) (*Issuer, error) {
	if len(cfg.AccessSecret) == 0 {
		return nil, errors.New("token: access secret not configured")
	}
	if len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("token: refresh secret not configured")
	}
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("token: invalid access TTL")
	}
	if cfg.DefaultRefreshTTL <= 0 {
		return nil, errors.New("token: invalid default refresh TTL")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("token: invalid leeway configuration")
	}
	if cfg.Issuer == "" {
		return nil, errors.New("token: issuer not configured")
	}

	return &Issuer{
		config:     cfg,
		refreshTTL: provider,
		now:        time.Now,
	}, nil
}

// MintPair issues an access/refresh pair for the given subject. The refresh
// token's family identifier is RefreshJTIPrefix + the access token's.
func (i *Issuer) MintPair(ctx context.Context, subjectID int64, role string) (Pair, error) {
	accessJTI := internal.NewJTI()
	refreshJTI := RefreshJTIPrefix + accessJTI
	refreshTTL := i.resolveRefreshTTL(ctx)

	access, err := i.mint(subjectID, role, KindAccess, accessJTI, i.config.AccessTTL)
	if err != nil {
		return Pair{}, err
	}

	refresh, err := i.mint(subjectID, role, KindRefresh, refreshJTI, refreshTTL)
	if err != nil {
		return Pair{}, err
	}

	return Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessJTI:    accessJTI,
		RefreshJTI:   refreshJTI,
		AccessTTL:    i.config.AccessTTL,
		RefreshTTL:   refreshTTL,
	}, nil
}

// MintAccess issues a standalone access token with a fresh family
// identifier. Used by the refresh flow, which does not rotate the refresh
// token.
func (i *Issuer) MintAccess(subjectID int64, role string) (string, time.Duration, error) {
	tok, err := i.mint(subjectID, role, KindAccess, internal.NewJTI(), i.config.AccessTTL)
	if err != nil {
		return "", 0, err
	}
	return tok, i.config.AccessTTL, nil
}

func (i *Issuer) resolveRefreshTTL(ctx context.Context) time.Duration {
	if i.refreshTTL == nil {
		return i.config.DefaultRefreshTTL
	}
	ttl, err := i.refreshTTL.RefreshTokenTTL(ctx)
	if err != nil || ttl <= 0 {
		return i.config.DefaultRefreshTTL
	}
	return ttl
}

func (i *Issuer) mint(subjectID int64, role string, kind Kind, jti string, ttl time.Duration) (string, error) {
	now := i.now()

	claims := Claims{
		Role: role,
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(subjectID, 10),
			ID:        jti,
			Issuer:    i.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if i.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{i.config.Audience}
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(i.secretFor(kind))
}

// Verify checks signature, issuer, audience, expiry, and that the embedded
// kind matches expected. Every failure maps to ErrInvalidToken; the jwt
// sub-error is preserved in the chain for presentation purposes.
func (i *Issuer) Verify(tokenStr string, expected Kind) (*Claims, error) {
	return i.parse(tokenStr, expected, true)
}

// Decode checks the signature and reads the claims without validating
// expiry. The revocation path uses it to read jti and exp from tokens that
// may already be past their lifetime.
func (i *Issuer) Decode(tokenStr string, expected Kind) (*Claims, error) {
	return i.parse(tokenStr, expected, false)
}

func (i *Issuer) parse(tokenStr string, expected Kind, validateClaims bool) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if validateClaims {
		if i.config.Leeway > 0 {
			options = append(options, jwt.WithLeeway(i.config.Leeway))
		}
		options = append(options, jwt.WithIssuer(i.config.Issuer))
		if i.config.Audience != "" {
			options = append(options, jwt.WithAudience(i.config.Audience))
		}
	} else {
		options = append(options, jwt.WithoutClaimsValidation())
	}

	parser := jwt.NewParser(options...)
	tok, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return i.secretFor(expected), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, jwt.ErrTokenInvalidClaims)
	}
	if claims.Kind != expected {
		return nil, fmt.Errorf("%w: unexpected token kind %q", ErrInvalidToken, claims.Kind)
	}

	return claims, nil
}

func (i *Issuer) secretFor(kind Kind) []byte {
	if kind == KindRefresh {
		return i.config.RefreshSecret
	}
	return i.config.AccessSecret
}

// IsExpired reports whether err is a verification failure caused by token
// expiry rather than a malformed or forged token.
func IsExpired(err error) bool {
	return errors.Is(err, jwt.ErrTokenExpired)
}
