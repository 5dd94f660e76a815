package handler

import (
	"crypto/rand"
	"encoding/hex"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/AldJayR/DormFinder/internal/auth/domain"
	"github.com/AldJayR/DormFinder/internal/auth/dto"
	"github.com/AldJayR/DormFinder/internal/auth/service"
	apperrors "github.com/AldJayR/DormFinder/internal/errors"
	"github.com/AldJayR/DormFinder/pkg/constant"
)

// CookieOptions carries the deployment-dependent cookie attributes; Secure is
// off only in local development.
type CookieOptions struct {
	Domain string
	Secure bool
}

type AuthHandler struct {
	userService *service.UserService
	cookies     CookieOptions
	validate    *validator.Validate
}

func NewAuthHandler(userService *service.UserService, cookies CookieOptions) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		cookies:     cookies,
		validate:    validator.New(),
	}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var input dto.RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid input",
		})
	}
	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid input",
		})
	}

	user, err := h.userService.Register(c.UserContext(), input)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":       user.ID,
		"username": user.Username,
	})
}

// Login verifies credentials and moves the issued tokens into HTTP-only
// cookies. Token strings never appear in a response body.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input dto.LoginInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid input",
		})
	}
	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid input",
		})
	}

	input.IPAddress = c.IP()
	input.UserAgent = string(c.Request().Header.UserAgent())
	input.AcceptLanguage = c.Get(fiber.HeaderAcceptLanguage)

	user, pair, err := h.userService.Login(c.UserContext(), input)
	if err != nil {
		return authFailure(c, err)
	}

	if err := h.setSessionCookies(c, pair); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal error",
		})
	}

	return c.Status(fiber.StatusOK).JSON(profile(user))
}

// Refresh redeems the refresh cookie for a rotated token pair.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	input := dto.RefreshInput{
		RefreshToken:   c.Cookies(constant.RefreshTokenCookie),
		IPAddress:      c.IP(),
		UserAgent:      string(c.Request().Header.UserAgent()),
		AcceptLanguage: c.Get(fiber.HeaderAcceptLanguage),
	}
	if input.RefreshToken == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "authentication required",
		})
	}

	user, pair, err := h.userService.Refresh(c.UserContext(), input)
	if err != nil {
		return authFailure(c, err)
	}

	if err := h.setSessionCookies(c, pair); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal error",
		})
	}

	return c.Status(fiber.StatusOK).JSON(profile(user))
}

// Logout puts both session tokens on the revocation ledger and clears the
// cookies. Always succeeds from the client's point of view.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	h.userService.Logout(c.UserContext(),
		c.Cookies(constant.AccessTokenCookie),
		c.Cookies(constant.RefreshTokenCookie))

	h.clearSessionCookies(c)
	return c.SendStatus(fiber.StatusNoContent)
}

// Me echoes the authenticated profile.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	identity := IdentityFromCtx(c)
	if identity == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "authentication required",
		})
	}
	return c.Status(fiber.StatusOK).JSON(profile(identity.User))
}

func profile(user *domain.User) dto.ProfileOutput {
	return dto.ProfileOutput{
		ID:         user.ID,
		Username:   user.Username,
		Role:       user.Role,
		IsVerified: user.IsVerified,
	}
}

// authFailure collapses every authentication error into a generic 401 so the
// response never leaks which check failed; only the lockout is distinct.
func authFailure(c *fiber.Ctx, err error) error {
	if errors.Is(err, apperrors.ErrTooManyLoginAttempts) {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error": "too many attempts, try again later",
		})
	}
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": "invalid credentials",
	})
}

// setSessionCookies writes the token pair into HTTP-only cookies and issues a
// fresh CSRF token for the double-submit check. The CSRF cookie stays
// readable by scripts on purpose.
func (h *AuthHandler) setSessionCookies(c *fiber.Ctx, pair *dto.TokenPair) error {
	h.sessionCookie(c, constant.AccessTokenCookie, pair.AccessToken, pair.AccessExpirySec, true)
	h.sessionCookie(c, constant.RefreshTokenCookie, pair.RefreshToken, pair.RefreshExpirySec, true)

	csrf := make([]byte, 32)
	if _, err := rand.Read(csrf); err != nil {
		return err
	}
	csrfToken := hex.EncodeToString(csrf)

	h.sessionCookie(c, constant.CSRFCookie, csrfToken, pair.AccessExpirySec, false)
	c.Set(constant.CSRFHeader, csrfToken)
	return nil
}

func (h *AuthHandler) sessionCookie(c *fiber.Ctx, name, value string, maxAge int, httpOnly bool) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		MaxAge:   maxAge,
		Domain:   h.cookies.Domain,
		HTTPOnly: httpOnly,
		Secure:   h.cookies.Secure,
		SameSite: fiber.CookieSameSiteStrictMode,
		Path:     "/",
	})
}

func (h *AuthHandler) clearSessionCookies(c *fiber.Ctx) {
	for _, name := range []string{
		constant.AccessTokenCookie, constant.RefreshTokenCookie, constant.CSRFCookie,
	} {
		h.sessionCookie(c, name, "", -1, name != constant.CSRFCookie)
	}
}
