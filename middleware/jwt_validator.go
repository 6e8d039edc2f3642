package middleware

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

var (
	// ErrTokenExpired is returned when JWT validation fails due to expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid is returned for signature and format failures.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenMissingClaim is returned if the sub claim is missing.
	ErrTokenMissingClaim = errors.New("token missing required claim")
	// ErrJWKSKeyNotFound is returned if the key named by kid is not published.
	ErrJWKSKeyNotFound = errors.New("jwks key not found")
)

// Claims are the parts of a Supabase access token the API relies on.
type Claims struct {
	UserID string
	Email  string
}

// Validator verifies bearer tokens.
type Validator interface {
	Validate(ctx context.Context, token string) (*Claims, error)
}

// JWTValidator accepts HS256 tokens signed with the project secret and, when a
// JWKS cache is configured, asymmetric tokens carrying a kid.
type JWTValidator struct {
	secret []byte
	jwks   *JWKSCache
	clock  jwt.Clock
}

var _ Validator = (*JWTValidator)(nil)

func NewJWTValidator(secret string, jwks *JWKSCache) (*JWTValidator, error) {
	if secret == "" && jwks == nil {
		return nil, fmt.Errorf("jwt validator: a JWT secret or a JWKS URL is required")
	}
	v := &JWTValidator{jwks: jwks, clock: jwt.ClockFunc(time.Now)}
	if secret != "" {
		v.secret = []byte(secret)
	}
	return v, nil
}

func (v *JWTValidator) Validate(ctx context.Context, token string) (*Claims, error) {
	kid, alg, err := tokenHeader(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	var parsed jwt.Token
	switch {
	case alg == jwa.HS256.String() && len(v.secret) > 0:
		parsed, err = jwt.Parse([]byte(token),
			jwt.WithKey(jwa.HS256, v.secret),
			jwt.WithValidate(true),
			jwt.WithClock(v.clock),
		)
	case kid != "" && v.jwks != nil:
		key, keyErr := v.jwks.GetKey(ctx, kid)
		if keyErr != nil {
			return nil, keyErr
		}
		keyAlg := key.Algorithm()
		if keyAlg == nil || keyAlg.String() == "" {
			keyAlg = jwa.SignatureAlgorithm(alg)
		}
		parsed, err = jwt.Parse([]byte(token),
			jwt.WithKey(keyAlg, key),
			jwt.WithValidate(true),
			jwt.WithClock(v.clock),
		)
	default:
		return nil, fmt.Errorf("%w: unsupported algorithm %q", ErrTokenInvalid, alg)
	}
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired()) {
			return nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims := &Claims{UserID: parsed.Subject()}
	if claims.UserID == "" {
		return nil, ErrTokenMissingClaim
	}
	if email, ok := parsed.Get("email"); ok {
		claims.Email, _ = email.(string)
	}
	return claims, nil
}

// tokenHeader reads kid and alg without verifying the token.
func tokenHeader(token string) (kid, alg string, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", "", fmt.Errorf("expected 3 parts, got %d", len(parts))
	}
	raw, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", "", fmt.Errorf("decode header: %w", err)
	}
	var header struct {
		Kid string `json:"kid"`
		Alg string `json:"alg"`
	}
	if err := json.Unmarshal(raw, &header); err != nil {
		return "", "", fmt.Errorf("unmarshal header: %w", err)
	}
	return header.Kid, header.Alg, nil
}
