package api

import (
	"errors"
	"log"
	"time"

	"goalcoach/internal/auth"
	"goalcoach/internal/models"
	"goalcoach/internal/store"

	"github.com/gofiber/fiber/v2"
)

const refreshCookie = "refresh_token"

func setRefreshCookie(c *fiber.Ctx, value string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     refreshCookie,
		Value:    value,
		Expires:  expires,
		HTTPOnly: true,
		Secure:   auth.CookieSecure,
		SameSite: "Lax",
		Path:     "/api/auth",
	})
}

// issueTokens creates an access token and a stored refresh token, and sets
// the refresh cookie.
func issueTokens(c *fiber.Ctx, s *store.Store, user *models.User, days int) (string, error) {
	accessToken, err := auth.GenerateToken(user.ID, user.Username)
	if err != nil {
		return "", fiber.NewError(fiber.StatusInternalServerError, "Failed to generate token")
	}
	refreshToken, err := auth.GenerateRefreshToken(user.ID, user.Username, days)
	if err != nil {
		return "", fiber.NewError(fiber.StatusInternalServerError, "Failed to generate refresh token")
	}

	expiresAt := time.Now().Add(time.Duration(days) * 24 * time.Hour)
	if err := s.StoreRefreshToken(c.Context(), user.ID, refreshToken, expiresAt, days); err != nil {
		log.Printf("Failed to store refresh token: %v", err)
		return "", fiber.NewError(fiber.StatusInternalServerError, "Failed to store refresh token")
	}
	setRefreshCookie(c, refreshToken, expiresAt)
	return accessToken, nil
}

func RegisterHandler(s *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.RegisterRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		if req.Username == "" || req.Password == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Username and password are required")
		}

		hashedPassword, err := auth.HashPassword(req.Password)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to hash password")
		}

		user, err := s.CreateUser(c.Context(), req.Username, hashedPassword)
		if err != nil {
			return fiber.NewError(fiber.StatusConflict, "Username already exists")
		}

		token, err := issueTokens(c, s, user, auth.RefreshDays(req.Remember))
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(models.AuthResponse{Token: token, User: *user})
	}
}

func LoginHandler(s *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.LoginRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		user, err := s.GetUserByUsername(c.Context(), req.Username)
		if errors.Is(err, store.ErrNotFound) {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid username or password")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Database error")
		}

		if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid username or password")
		}

		token, err := issueTokens(c, s, user, auth.RefreshDays(req.Remember))
		if err != nil {
			return err
		}
		return c.JSON(models.AuthResponse{Token: token, User: *user})
	}
}

// RefreshTokenHandler trades a valid refresh cookie for a new access token
// and rotates the refresh token, keeping its TTL.
func RefreshTokenHandler(s *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		refreshToken := c.Cookies(refreshCookie)
		if refreshToken == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Refresh token not found")
		}

		claims, err := auth.ValidateRefreshToken(refreshToken)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid or expired refresh token")
		}

		dbUserID, ttlDays, err := s.ValidateRefreshToken(c.Context(), refreshToken)
		if err != nil {
			log.Printf("Refresh token DB validation failed: %v", err)
			return fiber.NewError(fiber.StatusUnauthorized, "Refresh token not valid")
		}
		if dbUserID != claims.UserID {
			return fiber.NewError(fiber.StatusUnauthorized, "Token user mismatch")
		}

		user := &models.User{ID: claims.UserID, Username: claims.Username}
		token, err := issueTokens(c, s, user, ttlDays)
		if err != nil {
			return err
		}
		if err := s.RevokeRefreshToken(c.Context(), refreshToken); err != nil {
			log.Printf("Failed to revoke rotated refresh token: %v", err)
		}

		return c.JSON(fiber.Map{"token": token})
	}
}

// LogoutHandler revokes the refresh token and clears its cookie.
func LogoutHandler(s *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if old := c.Cookies(refreshCookie); old != "" {
			_ = s.RevokeRefreshToken(c.Context(), old)
		}
		setRefreshCookie(c, "", time.Now().Add(-1*time.Hour))

		return c.JSON(fiber.Map{
			"message": "Logged out successfully",
		})
	}
}
