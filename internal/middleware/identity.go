// Package middleware contains the HTTP middleware for the shop: the
// identity resolver, the Redis token-bucket rate limiter and the
// response cache.  The identity resolver must run before the cache,
// whose keys are identity-scoped.
package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/lovisadi/web/internal/identity"
)

// SessionCookie names the cookie carrying the anonymous session token.
const SessionCookie = "shop_session"

// identityKey is the echo context key under which the resolved
// requester identity is stored.
const identityKey = "identity"

// Requester returns the identity stored by Identify.  It returns the
// zero identity when the middleware did not run, which matches no
// ownership rows.
func Requester(c echo.Context) identity.Identity {
	if id, ok := c.Get(identityKey).(identity.Identity); ok {
		return id
	}
	return identity.Identity{}
}

// Identify resolves every request to an identity.Identity and stores
// it in the context.  A request carrying a Bearer token is resolved to
// the member id in the token's `sub` claim; the token must be signed
// with the shared HS256 secret, but issuing it is the identity
// provider's business.  Requests without a token get an anonymous
// session identity from the shop_session cookie, minted on first
// sight.  A present-but-invalid token is rejected with 401 rather than
// silently downgraded to anonymous.
func Identify(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				raw := strings.TrimPrefix(auth, "Bearer ")
				tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
					if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
						return nil, echo.ErrUnauthorized
					}
					return []byte(secret), nil
				})
				if err != nil || !tok.Valid {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
				}
				claims, ok := tok.Claims.(jwt.MapClaims)
				if !ok {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
				}
				memberID := memberIDFromClaims(claims)
				if memberID == 0 {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing subject"})
				}
				c.Set(identityKey, identity.Member(memberID))
				return next(c)
			}

			if ck, err := c.Cookie(SessionCookie); err == nil && ck.Value != "" {
				c.Set(identityKey, identity.Session(ck.Value))
				return next(c)
			}

			token, err := randomToken(32)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session error"})
			}
			c.SetCookie(&http.Cookie{
				Name:     SessionCookie,
				Value:    token,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
				MaxAge:   180 * 24 * 60 * 60, // keep anonymous carts across visits
			})
			c.Set(identityKey, identity.Session(token))
			return next(c)
		}
	}
}

// memberIDFromClaims reads the member id from the `sub` claim, which
// identity providers emit either as a decimal string or as a JSON
// number.
func memberIDFromClaims(claims jwt.MapClaims) uint64 {
	switch v := claims["sub"].(type) {
	case string:
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
	case float64:
		if v > 0 {
			return uint64(v)
		}
	}
	return 0
}

// randomToken generates a cryptographically random hex string of n
// bytes (2n characters).
func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
