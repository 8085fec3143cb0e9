package server

import (
	"log/slog"

	"github.com/rai-team-aiframe/dreamly/internal/auth"
	"github.com/rai-team-aiframe/dreamly/internal/middleware"
	"github.com/rai-team-aiframe/dreamly/internal/models"
	"github.com/rai-team-aiframe/dreamly/internal/service"

	"github.com/gofiber/fiber/v2"
)

type registerRequest struct {
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Bio      *string `json:"bio"`
}

// loginRequest accepts OAuth2 password-form bodies as well as JSON.
type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// TokenResponse is returned by a successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Register handles POST /users/register
// @Summary Register
// @Description Create an account and start a session
// @Tags users
// @Accept json
// @Produce json
// @Param request body object{username=string,email=string,password=string,bio=string} true "Registration"
// @Success 201 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Router /users/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.Register(c.UserContext(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Bio:      req.Bio,
	})
	if err != nil {
		return s.respondError(c, err)
	}

	token, _, err := s.tokens.Issue(user.Username, user.ID, 0)
	if err != nil {
		return s.respondError(c, models.NewInternalError(err))
	}
	auth.SetSessionCookie(c, token, s.tokens.TTL(), s.config.CookieSecure)

	return c.Status(fiber.StatusCreated).JSON(user)
}

// Login handles POST /users/token
// @Summary Login
// @Description Exchange username and password for a bearer token; also sets the session cookie
// @Tags users
// @Accept x-www-form-urlencoded,json
// @Produce json
// @Param username formData string true "Username"
// @Param password formData string true "Password"
// @Success 200 {object} TokenResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /users/token [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.Authenticate(c.UserContext(), req.Username, req.Password)
	if err != nil {
		if service.IsBadCredentials(err) {
			middleware.Logger.InfoContext(c.UserContext(), "login rejected",
				slog.String("username", req.Username),
				slog.String("ip", c.IP()))
		}
		return s.respondError(c, err)
	}

	token, _, err := s.tokens.Issue(user.Username, user.ID, 0)
	if err != nil {
		return s.respondError(c, models.NewInternalError(err))
	}
	auth.SetSessionCookie(c, token, s.tokens.TTL(), s.config.CookieSecure)

	return c.JSON(TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// Logout handles POST /users/logout
// @Summary Logout
// @Description Clear the session cookie and revoke the token when revocation is available
// @Tags users
// @Produce json
// @Success 200 {object} object{message=string}
// @Router /users/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	if claims := middleware.ClaimsFrom(c); claims != nil {
		if err := s.revoker.Revoke(c.UserContext(), claims); err != nil {
			middleware.Logger.WarnContext(c.UserContext(), "token revocation failed",
				slog.String("error", err.Error()))
		}
	}
	auth.ClearSessionCookie(c, s.config.CookieSecure)
	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}

// AuthStatus handles GET /api/auth/status. The path is public, so the token is
// checked here rather than by the gate.
// @Summary Session status
// @Tags auth
// @Produce json
// @Success 200 {object} object{authenticated=bool,username=string,user_id=int}
// @Router /api/auth/status [get]
func (s *Server) AuthStatus(c *fiber.Ctx) error {
	unauthenticated := fiber.Map{"authenticated": false}

	token := auth.TokenFromRequest(c)
	if token == "" {
		return c.JSON(unauthenticated)
	}
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return c.JSON(unauthenticated)
	}
	if revoked, err := s.revoker.IsRevoked(c.UserContext(), claims); err == nil && revoked {
		return c.JSON(unauthenticated)
	}

	user, err := s.userService.GetByID(c.UserContext(), claims.UserID)
	if err != nil {
		if models.IsNotFound(err) {
			return c.JSON(unauthenticated)
		}
		return s.respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"authenticated": true,
		"username":      user.Username,
		"user_id":       user.ID,
	})
}
