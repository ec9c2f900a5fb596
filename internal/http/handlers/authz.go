package handlers

import (
	"golang.org/x/crypto/bcrypt"

	applog "waitline/internal/log"

	"github.com/gofiber/fiber/v2"
)

// RequireAdmin guards admin and internal routes with a shared token carried
// in the X-Admin-Token header. The token is kept in memory only as a bcrypt
// hash. Full user authn is the caller's concern; this is the minimal fence
// in front of operator actions.
func RequireAdmin(tokenHash []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tok := c.Get("X-Admin-Token")
		if tok == "" {
			tok = c.FormValue("admin_token")
		}
		if tok == "" || bcrypt.CompareHashAndPassword(tokenHash, []byte(tok)) != nil {
			applog.Security(c, "access.denied.admin", nil)
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "admin token required"})
		}
		return c.Next()
	}
}
