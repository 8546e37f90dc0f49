package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Validation failures, reported in a fixed order: signature first, then
// expiry, then issuer, then audience. Downstream resource servers decide
// how much of this detail to expose.
var (
	ErrInvalidSignature = errors.New("token signature invalid")
	ErrTokenExpired     = errors.New("token expired")
	ErrIssuerMismatch   = errors.New("token issuer mismatch")
	ErrAudienceMismatch = errors.New("token audience mismatch")
)

const defaultTokenTTL = 300 * time.Second

// TokenManager issues and validates HS256-signed bearer tokens. The secret
// is shared between both paths and is immutable after construction.
type TokenManager struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration

	now func() time.Time
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret, issuer, audience string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &TokenManager{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Claims describes the JWT payload. The subject claim carries the
// authenticated username.
type Claims struct {
	Username string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Sign builds and signs a token asserting the given subject. Issued-at is
// always the current time; expiry is issued-at plus the configured TTL.
func (tm *TokenManager) Sign(subject string) (string, time.Time, error) {
	issuedAt := tm.now()
	expiresAt := issuedAt.Add(tm.ttl)
	claims := &Claims{
		Username: subject,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    tm.issuer,
			Audience:  jwt.ClaimStrings{tm.audience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// Validate checks the token and returns its claims. Checks run in order:
// signature integrity, expiry, issuer, audience; the first failing check is
// the one reported. A token exactly at its expiry instant is expired.
func (tm *TokenManager) Validate(tokenStr string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	parsed, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return tm.secret, nil
	})
	if err != nil || !parsed.Valid {
		// malformed and tampered tokens are indistinguishable to callers
		return nil, ErrInvalidSignature
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, ErrInvalidSignature
	}

	if claims.ExpiresAt == nil || !tm.now().Before(claims.ExpiresAt.Time) {
		return nil, ErrTokenExpired
	}
	if claims.Issuer != tm.issuer {
		return nil, ErrIssuerMismatch
	}
	if !audienceContains(claims.Audience, tm.audience) {
		return nil, ErrAudienceMismatch
	}
	return claims, nil
}

func audienceContains(aud jwt.ClaimStrings, expected string) bool {
	for _, a := range aud {
		if a == expected {
			return true
		}
	}
	return false
}
