package handlers

import (
	"errors"
	"time"

	"gemstore/internal/apperrors"
	"gemstore/internal/middleware"
	"gemstore/internal/models"
	"gemstore/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// AuthHandler handles HTTP requests for accounts and sessions.
type AuthHandler struct {
	authService  *services.AuthService
	guard        *services.Guard
	cookieSecure bool
	logger       logrus.FieldLogger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, guard *services.Guard, cookieSecure bool, logger logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		guard:        guard,
		cookieSecure: cookieSecure,
		logger:       logger,
	}
}

// RegisterRoutes registers the authentication routes. limit, when not nil,
// guards the credential endpoints.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, limit fiber.Handler) {
	authRoutes := router.Group("/auth")
	if limit != nil {
		authRoutes.Post("/register", limit, h.HandleRegister)
		authRoutes.Post("/login", limit, h.HandleLogin)
	} else {
		authRoutes.Post("/register", h.HandleRegister)
		authRoutes.Post("/login", h.HandleLogin)
	}
	authRoutes.Post("/logout", h.HandleLogout)
	authRoutes.Get("/me", middleware.RequireUser(), h.HandleMe)
	authRoutes.Put("/me", middleware.RequireUser(), h.HandleUpdateMe)
}

// RegisterRequest represents the request body for registration.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister creates an account and signs it in.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	user, err := h.authService.Register(req.Name, req.Email, req.Password)
	if err != nil {
		// Registration reports a taken email as a plain 400.
		if appErr, ok := apperrors.As(err); ok && errors.Is(err, apperrors.ErrConflict) {
			return apperrors.Validation("email", appErr.Message)
		}
		return err
	}

	if err := h.startSession(c, user); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

// HandleLogin verifies credentials and opens a session.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	user, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, apperrors.ErrUnauthenticated) {
			h.logger.WithField("ip", c.IP()).Info("failed login")
		}
		return err
	}

	if err := h.startSession(c, user); err != nil {
		return err
	}
	return c.JSON(user)
}

// HandleLogout destroys the caller's session. It succeeds without one.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	if err := h.guard.Revoke(middleware.Credential(c)); err != nil {
		return err
	}
	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   h.cookieSecure,
	})
	return c.JSON(fiber.Map{"ok": true})
}

// HandleMe returns the current user.
func (h *AuthHandler) HandleMe(c *fiber.Ctx) error {
	return c.JSON(middleware.PrincipalFrom(c).User)
}

// HandleUpdateMe applies a partial profile update. Changing the password
// signs out the user's other sessions.
func (h *AuthHandler) HandleUpdateMe(c *fiber.Ctx) error {
	principal := middleware.PrincipalFrom(c)

	var update services.ProfileUpdate
	if err := parseBody(c, &update); err != nil {
		return err
	}

	user, passwordChanged, err := h.authService.UpdateProfile(principal.User.ID, update)
	if err != nil {
		return err
	}
	if passwordChanged {
		if err := h.guard.RevokeOthers(user.ID, principal.SessionToken); err != nil {
			return err
		}
	}
	return c.JSON(user)
}

func (h *AuthHandler) startSession(c *fiber.Ctx, user *models.UserView) error {
	credential, session, err := h.guard.Issue(user.ID)
	if err != nil {
		return err
	}
	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    credential,
		Path:     "/",
		Expires:  session.ExpiresAt,
		MaxAge:   int(time.Until(session.ExpiresAt).Seconds()),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   h.cookieSecure,
	})
	c.Set(middleware.SessionHeader, credential)
	return nil
}
