package api

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dontwait/dontwait/internal/sessions"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

var errNoVisitorSession = errors.New("no visitor session")

// visitorSessionID returns the session id carried by the signed session cookie.
// With create set, a missing or invalid cookie is replaced by a fresh session.
func (handler *Handler) visitorSessionID(c *fiber.Ctx, create bool) (string, error) {
	if id, err := handler.parseVisitorToken(c.Cookies(sessionCookieName)); err == nil {
		return id, nil
	}
	if !create {
		return "", errNoVisitorSession
	}

	id, err := sessions.NewID()
	if err != nil {
		return "", err
	}
	token, err := handler.buildVisitorToken(id, handler.sessionTTL)
	if err != nil {
		return "", err
	}
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		Secure:   handler.cookieSecure,
		SameSite: "Lax",
		Expires:  time.Now().Add(handler.sessionTTL),
	})
	return id, nil
}

func (handler *Handler) buildVisitorToken(sessionID string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	now := time.Now()

	claims := visitorClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(handler.secretKey)
}

func (handler *Handler) parseVisitorToken(raw string) (string, error) {
	tokenValue := strings.TrimSpace(raw)
	if tokenValue == "" {
		return "", errNoVisitorSession
	}

	claims := &visitorClaims{}
	token, err := jwt.ParseWithClaims(tokenValue, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return handler.secretKey, nil
	})
	if err != nil || !token.Valid {
		return "", errors.New("invalid session token")
	}
	if claims.ExpiresAt == nil || claims.ExpiresAt.Time.Before(time.Now()) {
		return "", errors.New("session token expired")
	}
	if strings.TrimSpace(claims.SessionID) == "" {
		return "", errors.New("session token has no session id")
	}
	return claims.SessionID, nil
}
