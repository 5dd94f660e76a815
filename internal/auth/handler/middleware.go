package handler

import (
	"crypto/subtle"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/AldJayR/DormFinder/internal/auth/fingerprint"
	"github.com/AldJayR/DormFinder/internal/auth/service"
	apperrors "github.com/AldJayR/DormFinder/internal/errors"
	"github.com/AldJayR/DormFinder/pkg/constant"
)

const identityLocal = "identity"

// IdentityFromCtx returns the authenticated identity stored by RequireAuth,
// or nil when the request never passed through it.
func IdentityFromCtx(c *fiber.Ctx) *service.Identity {
	identity, _ := c.Locals(identityLocal).(*service.Identity)
	return identity
}

// SecurityHeaders sets the browser hardening headers on every response.
func SecurityHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Content-Security-Policy", "default-src 'self'")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		return c.Next()
	}
}

// Middleware carries the request-gate handlers built on the authenticator.
type Middleware struct {
	authenticator *service.Authenticator
}

func NewMiddleware(authenticator *service.Authenticator) *Middleware {
	return &Middleware{authenticator: authenticator}
}

func requestContext(c *fiber.Ctx) fingerprint.Context {
	return fingerprint.Context{
		UserAgent:      string(c.Request().Header.UserAgent()),
		AcceptLanguage: c.Get(fiber.HeaderAcceptLanguage),
		IPAddress:      c.IP(),
	}
}

// RequireAuth runs the access-token cookie through the full authentication
// pipeline and, on non-GET requests, enforces the CSRF double-submit check.
// Every failure except lockout collapses into one generic 401.
func (m *Middleware) RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := m.authenticator.Authenticate(
			c.UserContext(), c.Cookies(constant.AccessTokenCookie), requestContext(c))
		if err != nil {
			if errors.Is(err, apperrors.ErrTooManyLoginAttempts) {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"error": "too many attempts, try again later",
				})
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "authentication required",
			})
		}

		if c.Method() != fiber.MethodGet && !csrfValid(c) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "csrf token mismatch",
			})
		}

		c.Locals(identityLocal, identity)
		return c.Next()
	}
}

// RequireCSRF enforces the double-submit check on cookie-authenticated
// non-GET routes that do not go through RequireAuth, such as refresh and
// logout.
func (m *Middleware) RequireCSRF() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !csrfValid(c) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "csrf token mismatch",
			})
		}
		return c.Next()
	}
}

// RequireRole gates a route to the named roles. It must run after RequireAuth.
func (m *Middleware) RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity := IdentityFromCtx(c)
		if identity == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "authentication required",
			})
		}
		for _, role := range roles {
			if identity.User.Role == role {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "permission denied",
		})
	}
}

// csrfValid implements the double-submit check: the header must match the
// cookie the login handler issued.
func csrfValid(c *fiber.Ctx) bool {
	cookie := c.Cookies(constant.CSRFCookie)
	header := c.Get(constant.CSRFHeader)
	if cookie == "" || header == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookie), []byte(header)) == 1
}
