package httpadapter

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kirillkom/movement-studio/internal/core/domain"
)

const (
	sessionCookieName = "movement_session"
	sessionTokenScope = "movement"
)

type sessionClaims struct {
	SessionID string `json:"sid"`
	Scope     string `json:"scope"`
	jwt.RegisteredClaims
}

// SessionTokens issues and verifies the HS256 tokens that bind a visitor to
// one movement session.
type SessionTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionTokens(secret string, ttl time.Duration) *SessionTokens {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionTokens{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *SessionTokens) Issue(sessionID string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := sessionClaims{
		SessionID: sessionID,
		Scope:     sessionTokenScope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return token, expiresAt, nil
}

// Verify returns the session id the token was issued for.
func (s *SessionTokens) Verify(raw string) (string, error) {
	var claims sessionClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return "", domain.WrapError(domain.ErrUnauthorized, "verify session token", errors.New("invalid session token"))
	}
	if claims.Scope != sessionTokenScope || claims.SessionID == "" {
		return "", domain.WrapError(domain.ErrUnauthorized, "verify session token", errors.New("invalid token claims"))
	}
	return claims.SessionID, nil
}

func sessionTokenFromRequest(r *http.Request) string {
	if auth := strings.TrimSpace(r.Header.Get("Authorization")); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func (rt *Router) setSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		HttpOnly: true,
		Secure:   rt.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		Expires:  expiresAt,
	})
}

// authorizeSession checks that the caller holds a token for the session in
// the path and returns that session id.
func (rt *Router) authorizeSession(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "authorize session", errors.New("session id is required"))
	}
	raw := sessionTokenFromRequest(r)
	if raw == "" {
		return "", domain.WrapError(domain.ErrUnauthorized, "authorize session", errors.New("session token is required"))
	}
	sid, err := rt.tokens.Verify(raw)
	if err != nil {
		return "", err
	}
	if sid != id {
		return "", domain.WrapError(domain.ErrUnauthorized, "authorize session", errors.New("token belongs to another session"))
	}
	return id, nil
}
