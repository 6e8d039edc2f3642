package publicflow

import (
	"errors"
	"fmt"
	"time"

	apperrors "github.com/NomadCrew/formflow-backend/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionClaims identify a respondent working through one form.
type SessionClaims struct {
	FormID string `json:"form"`
	Start  int64  `json:"start"`
	jwt.RegisteredClaims
}

// StartTime returns when the respondent opened the form.
func (c *SessionClaims) StartTime() time.Time {
	return time.UnixMilli(c.Start).UTC()
}

func (c *SessionClaims) Key() DraftKey {
	return DraftKey{FormID: c.FormID, RespondentID: c.Subject}
}

type SessionIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionIssuer(secret string, ttl time.Duration) *SessionIssuer {
	return &SessionIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a new respondent session for formID.
func (s *SessionIssuer) Issue(formID string) (string, *SessionClaims, error) {
	if len(s.secret) == 0 {
		return "", nil, errors.New("respondent session secret is not configured")
	}
	now := s.now()
	claims := &SessionClaims{
		FormID: formID,
		Start:  now.UnixMilli(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  uuid.NewString(),
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if s.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, claims, nil
}

// Verify checks the token signature and that it belongs to formID.
func (s *SessionIssuer) Verify(tokenString, formID string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{},
		func(token *jwt.Token) (interface{}, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, apperrors.Unauthorized("invalid_session", "Invalid respondent session")
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || claims.Subject == "" {
		return nil, apperrors.Unauthorized("invalid_claims", "Invalid token structure")
	}
	if claims.FormID != formID {
		return nil, apperrors.Unauthorized("session_form_mismatch", "Session does not belong to this form")
	}
	return claims, nil
}
