package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	jwt "github.com/golang-jwt/jwt/v4"
)

// SessionClaims are the claims carried by storefront session tokens.
type SessionClaims struct {
	UserID    string `json:"id"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	jwt.RegisteredClaims
}

// SessionVerifier validates HS256 session tokens issued by the storefront sign-in flow.
type SessionVerifier struct {
	secret []byte
	issuer string
	parser *jwt.Parser
}

// NewSessionVerifier constructs a verifier for tokens signed with secret. A non-empty issuer is
// enforced on every token.
func NewSessionVerifier(secret, issuer string) (*SessionVerifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("session secret is required")
	}
	return &SessionVerifier{
		secret: []byte(secret),
		issuer: strings.TrimSpace(issuer),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}, nil
}

// Verify parses the token and maps its claims onto an Identity.
func (v *SessionVerifier) Verify(_ context.Context, token string) (*Identity, error) {
	if v == nil {
		return nil, errors.New("session verifier not initialised")
	}
	claims := &SessionClaims{}
	_, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, true) {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrTokenInvalid, claims.Issuer)
	}

	uid := strings.TrimSpace(claims.UserID)
	if uid == "" {
		uid = strings.TrimSpace(claims.Subject)
	}
	if uid == "" {
		return nil, fmt.Errorf("%w: subject missing", ErrTokenInvalid)
	}
	role := normaliseRole(claims.Role)
	if role == "" {
		role = RoleUser
	}
	return &Identity{
		UID:       uid,
		Email:     claims.Email,
		FirstName: claims.FirstName,
		Roles:     []string{role},
		Source:    SourceSession,
	}, nil
}
