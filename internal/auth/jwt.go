package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims defines the JWT claims structure. The subject is the username;
// no other identity data is embedded.
type Claims struct {
	jwt.RegisteredClaims
}

type contextKey string

const userClaimsKey = contextKey("userClaims")

// ErrInvalidToken is returned when a token parses but fails validation
// for a reason jwt/v5 does not classify. Specific failures remain
// distinguishable with errors.Is against jwt.ErrTokenMalformed,
// jwt.ErrTokenSignatureInvalid and jwt.ErrTokenExpired.
var ErrInvalidToken = errors.New("invalid token")

// TokenService issues and verifies signed, time-bound identity tokens.
// It holds no server-side state: validity is computed entirely from the
// signature and the embedded timestamps, which trades revocability for
// horizontal scalability. That is an accepted limitation here, not an
// oversight.
type TokenService struct {
	key []byte
	ttl time.Duration
}

// NewTokenService creates a TokenService around a signing key sourced
// from configuration. Key length is validated at config load.
func NewTokenService(key []byte, ttl time.Duration) *TokenService {
	return &TokenService{key: key, ttl: ttl}
}

// Issue creates a new HS256-signed token for a subject, valid from now
// until now plus the configured TTL.
func (s *TokenService) Issue(subject string) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.key)
}

// Verify parses and validates a token string: signature, expiry and
// signing method in a single path. There is no way to extract a subject
// without passing through this check.
func (s *TokenService) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return s.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ExtractSubject verifies a token and returns its subject.
func (s *TokenService) ExtractSubject(tokenStr string) (string, error) {
	claims, err := s.Verify(tokenStr)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Middleware creates a middleware for protecting routes. The verified
// claims are passed down via the request context.
func (s *TokenService) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var tokenStr string

			// 1. Try to get the token from the Authorization header
			authHeader := r.Header.Get("Authorization")
			if authHeader != "" {
				parts := strings.SplitN(authHeader, "Bearer ", 2)
				if len(parts) == 2 {
					tokenStr = strings.TrimSpace(parts[1])
				}
			}

			// 2. If not in header, fall back to the cookie
			if tokenStr == "" {
				if cookie, err := r.Cookie("token"); err == nil {
					tokenStr = cookie.Value
				}
			}

			if tokenStr == "" {
				http.Error(w, "Missing auth token", http.StatusUnauthorized)
				return
			}

			claims, err := s.Verify(tokenStr)
			if err != nil {
				http.Error(w, "Invalid auth token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext retrieves verified claims stored by Middleware.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(userClaimsKey).(*Claims)
	return claims, ok
}
