package server

import (
	"net/url"

	"github.com/rai-team-aiframe/dreamly/internal/models"
	"github.com/rai-team-aiframe/dreamly/internal/service"

	"github.com/gofiber/fiber/v2"
)

type updateProfileRequest struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Bio      *string `json:"bio"`
}

// GetMe handles GET /users/me
// @Summary Get current user
// @Tags users
// @Produce json
// @Success 200 {object} models.User
// @Failure 401 {object} models.ErrorResponse
// @Router /users/me [get]
func (s *Server) GetMe(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(user)
}

// UpdateMe handles PUT /users/me
// @Summary Update current user
// @Description Change email, password or bio; omitted fields are left unchanged
// @Tags users
// @Accept json
// @Produce json
// @Param request body object{email=string,password=string,bio=string} true "Profile changes"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Router /users/me [put]
func (s *Server) UpdateMe(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return s.respondError(c, err)
	}

	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	updated, err := s.userService.UpdateProfile(c.UserContext(), service.UpdateProfileInput{
		UserID:   user.ID,
		Email:    req.Email,
		Password: req.Password,
		Bio:      req.Bio,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(updated)
}

// GetProfile handles GET /users/profile/:username
// @Summary Get profile
// @Tags users
// @Produce json
// @Param username path string true "Username"
// @Success 200 {object} models.Profile
// @Failure 404 {object} models.ErrorResponse
// @Router /users/profile/{username} [get]
func (s *Server) GetProfile(c *fiber.Ctx) error {
	username, err := url.PathUnescape(c.Params("username"))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid username"))
	}
	profile, err := s.userService.Profile(c.UserContext(), username, viewerID(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(profile)
}

// ToggleFollow handles POST /users/follow/:user_id
// @Summary Follow or unfollow a user
// @Tags users
// @Produce json
// @Param user_id path int true "User ID"
// @Success 200 {object} object{message=string,action=string,follower_count=int}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/follow/{user_id} [post]
func (s *Server) ToggleFollow(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "user_id")
	if err != nil {
		return nil
	}
	user, err := s.currentUser(c)
	if err != nil {
		return s.respondError(c, err)
	}

	result, err := s.userService.ToggleFollow(c.UserContext(), user, targetID)
	if err != nil {
		return s.respondError(c, err)
	}

	message := "Followed successfully"
	if result.Action == models.ActionUnfollowed {
		message = "Unfollowed successfully"
	}
	return c.JSON(fiber.Map{
		"message":        message,
		"action":         result.Action,
		"follower_count": result.Count,
	})
}

// GetFollowers handles GET /users/followers/:user_id
// @Summary List followers
// @Tags users
// @Produce json
// @Param user_id path int true "User ID"
// @Success 200 {array} models.UserSummary
// @Router /users/followers/{user_id} [get]
func (s *Server) GetFollowers(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "user_id")
	if err != nil {
		return nil
	}
	users, err := s.userService.Followers(c.UserContext(), userID, viewerID(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(emptyIfNil(users))
}

// GetFollowing handles GET /users/following/:user_id
// @Summary List followed users
// @Tags users
// @Produce json
// @Param user_id path int true "User ID"
// @Success 200 {array} models.UserSummary
// @Router /users/following/{user_id} [get]
func (s *Server) GetFollowing(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "user_id")
	if err != nil {
		return nil
	}
	users, err := s.userService.Following(c.UserContext(), userID, viewerID(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(emptyIfNil(users))
}

// SearchUsers handles GET /users/search/:query
// @Summary Search users
// @Description Case-insensitive substring match on username or email, at most 20 results
// @Tags users
// @Produce json
// @Param query path string true "Search text"
// @Success 200 {array} models.UserSummary
// @Router /users/search/{query} [get]
func (s *Server) SearchUsers(c *fiber.Ctx) error {
	query, err := url.PathUnescape(c.Params("query"))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid search query"))
	}
	users, err := s.userService.Search(c.UserContext(), query, viewerID(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(emptyIfNil(users))
}

// GetFeed handles GET /users/feed
// @Summary Home feed
// @Description Posts by the caller and everyone they follow, newest first
// @Tags users
// @Produce json
// @Param page query int false "Page, starting at 1"
// @Success 200 {array} models.Post
// @Router /users/feed [get]
func (s *Server) GetFeed(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return s.respondError(c, err)
	}
	posts, err := s.postService.Feed(c.UserContext(), user.ID, page(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(emptyIfNil(posts))
}

// GetLikedPosts handles GET /users/liked
// @Summary Liked posts
// @Description Posts the caller liked, most recently liked first
// @Tags users
// @Produce json
// @Success 200 {array} models.Post
// @Router /users/liked [get]
func (s *Server) GetLikedPosts(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return s.respondError(c, err)
	}
	posts, err := s.postService.Liked(c.UserContext(), user.ID)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(emptyIfNil(posts))
}

// emptyIfNil keeps list endpoints rendering [] instead of null.
func emptyIfNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
