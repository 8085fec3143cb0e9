package middleware

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/rai-team-aiframe/dreamly/internal/auth"
	"github.com/rai-team-aiframe/dreamly/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ClaimsKey is the Fiber locals key under which the gate stores verified *auth.Claims.
const ClaimsKey = "claims"

// DefaultPublicPaths never require a session.
var DefaultPublicPaths = []string{
	"/login",
	"/register",
	"/static",
	"/users/token",
	"/users/register",
	"/api/health",
	"/api/auth/status",
	"/explore",
	"/",
	"/metrics",
	"/swagger",
}

// DefaultAPIPrefixes receive JSON 401s instead of login redirects.
var DefaultAPIPrefixes = []string{"/users/", "/posts/", "/api/"}

// TokenVerifier verifies session tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// GateConfig configures AuthGate.
type GateConfig struct {
	Tokens      TokenVerifier
	Revoker     auth.Revoker
	PublicPaths []string
	APIPrefixes []string
	LoginPath   string
}

// AuthGate enforces a valid session on every path outside the public allowlist.
// API paths get a 401 JSON body; everything else is redirected to the login page
// with the requested path in ?next=. Verified claims are stored once in locals.
func AuthGate(cfg GateConfig) fiber.Handler {
	if cfg.PublicPaths == nil {
		cfg.PublicPaths = DefaultPublicPaths
	}
	if cfg.APIPrefixes == nil {
		cfg.APIPrefixes = DefaultAPIPrefixes
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}

	return func(c *fiber.Ctx) error {
		path := c.Path()
		if IsPublicPath(path, cfg.PublicPaths) {
			return c.Next()
		}

		token := auth.TokenFromRequest(c)
		if token == "" {
			return deny(c, cfg, path, "Not authenticated")
		}

		claims, err := cfg.Tokens.Verify(token)
		if err != nil {
			return deny(c, cfg, path, "Invalid token")
		}

		if cfg.Revoker != nil {
			revoked, err := cfg.Revoker.IsRevoked(c.UserContext(), claims)
			if err != nil {
				Logger.WarnContext(c.UserContext(), "revocation check failed", slog.String("error", err.Error()))
			} else if revoked {
				return deny(c, cfg, path, "Invalid token")
			}
		}

		c.Locals(ClaimsKey, claims)
		c.Locals("userID", claims.UserID)
		c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, claims.UserID))

		return c.Next()
	}
}

// ClaimsFrom returns the claims stored by AuthGate, or nil.
func ClaimsFrom(c *fiber.Ctx) *auth.Claims {
	claims, _ := c.Locals(ClaimsKey).(*auth.Claims)
	return claims
}

// IsPublicPath matches path against public entries exactly or as a path prefix.
// "/" only ever matches itself.
func IsPublicPath(path string, public []string) bool {
	for _, p := range public {
		if path == p {
			return true
		}
		if p != "/" && strings.HasPrefix(path, strings.TrimSuffix(p, "/")+"/") {
			return true
		}
	}
	return false
}

// IsAPIPath reports whether path produces JSON.
func IsAPIPath(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) || path == strings.TrimSuffix(p, "/") {
			return true
		}
	}
	return false
}

func deny(c *fiber.Ctx, cfg GateConfig, path, detail string) error {
	if IsAPIPath(path, cfg.APIPrefixes) {
		c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{Detail: detail})
	}
	return c.Redirect(cfg.LoginPath+"?next="+url.QueryEscape(path), fiber.StatusFound)
}
