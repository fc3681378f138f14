package middleware

import (
	"strings"

	"gemstore/internal/services"

	"github.com/gofiber/fiber/v2"
)

const (
	// SessionCookie is the cookie carrying the session credential.
	SessionCookie = "sessionId"
	// SessionHeader is the header fallback for clients without cookies.
	SessionHeader = "X-Session-Id"

	principalKey = "principal"
)

// Credential returns the session credential presented with the request:
// the cookie first, then the X-Session-Id header, then a bearer token.
func Credential(c *fiber.Ctx) string {
	if v := c.Cookies(SessionCookie); v != "" {
		return v
	}
	if v := c.Get(SessionHeader); v != "" {
		return v
	}
	parts := strings.SplitN(c.Get(fiber.HeaderAuthorization), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// Session resolves the caller and stores the principal for later handlers.
// Invalid credentials leave the request anonymous rather than failing it.
func Session(guard *services.Guard) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, err := guard.Authenticate(Credential(c))
		if err != nil {
			return err
		}
		c.Locals(principalKey, principal)
		return c.Next()
	}
}

// PrincipalFrom returns the principal stored by Session, or the anonymous
// principal.
func PrincipalFrom(c *fiber.Ctx) services.Principal {
	if p, ok := c.Locals(principalKey).(services.Principal); ok {
		return p
	}
	return services.Principal{}
}

// RequireUser rejects anonymous requests with 401.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := services.RequireUser(PrincipalFrom(c)); err != nil {
			return err
		}
		return c.Next()
	}
}

// RequireAdmin rejects anonymous requests with 401 and non-admins with 403.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := services.RequireAdmin(PrincipalFrom(c)); err != nil {
			return err
		}
		return c.Next()
	}
}
