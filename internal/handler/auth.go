package handler

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// AuthHeader is the header name for JWT authentication
	AuthHeader = "Authorization"
	// TokenExpiry is the JWT token expiry duration
	TokenExpiry = 24 * time.Hour

	tokenIssuer = "tideshell-diag"
)

// AuthMiddleware guards the diagnostics API with a password-derived JWT.
// An empty password disables it.
type AuthMiddleware struct {
	password string
	now      func() time.Time
}

// NewAuthMiddleware 创建认证中间件
func NewAuthMiddleware(password string) *AuthMiddleware {
	return &AuthMiddleware{
		password: password,
		now:      time.Now,
	}
}

// IsEnabled returns true if authentication is enabled
func (m *AuthMiddleware) IsEnabled() bool {
	return m.password != ""
}

// GenerateToken generates a JWT token
func (m *AuthMiddleware) GenerateToken() (string, error) {
	now := m.now()
	claims := jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(TokenExpiry)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    tokenIssuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.password))
}

// ValidateToken validates a JWT token
func (m *AuthMiddleware) ValidateToken(tokenString string) bool {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(m.password), nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(m.now))

	return err == nil && token.Valid
}

// Wrap wraps a handler with JWT authentication. Browsers cannot set headers
// on websocket upgrades, so a token query parameter is accepted as well.
func (m *AuthMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.IsEnabled() {
			next.ServeHTTP(w, r)
			return
		}

		token := r.URL.Query().Get("token")
		if authHeader := r.Header.Get(AuthHeader); authHeader != "" {
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}

		if token == "" || !m.ValidateToken(token) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// VerifyPassword checks if the provided password is correct
func (m *AuthMiddleware) VerifyPassword(password string) bool {
	if !m.IsEnabled() {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(m.password), []byte(password)) == 1
}
