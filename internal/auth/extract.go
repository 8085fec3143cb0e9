package auth

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// CookieName is the session cookie holding the access token.
const CookieName = "access_token"

// TokenFromRequest returns the session token carried by the request, preferring the
// access_token cookie over an "Authorization: Bearer" header. It returns "" when
// neither is present.
func TokenFromRequest(c *fiber.Ctx) string {
	if token := strings.TrimSpace(c.Cookies(CookieName)); token != "" {
		return strings.TrimPrefix(token, "Bearer ")
	}

	scheme, token, ok := strings.Cut(strings.TrimSpace(c.Get(fiber.HeaderAuthorization)), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// SetSessionCookie stores token in an http-only, SameSite=Lax cookie living as long as ttl.
func SetSessionCookie(c *fiber.Ctx, token string, ttl time.Duration, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie on the client.
func ClearSessionCookie(c *fiber.Ctx, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
