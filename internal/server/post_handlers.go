package server

import (
	"strings"

	"github.com/rai-team-aiframe/dreamly/internal/featureflags"
	"github.com/rai-team-aiframe/dreamly/internal/imagegen"
	"github.com/rai-team-aiframe/dreamly/internal/models"
	"github.com/rai-team-aiframe/dreamly/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createPostRequest struct {
	Prompt  string  `json:"prompt"`
	Caption *string `json:"caption"`
}

type searchPostsRequest struct {
	SearchTerm string `json:"search_term" form:"search_term"`
}

// CreatePost handles POST /posts/
// @Summary Create post
// @Description Generate an image from the prompt and publish it
// @Tags posts
// @Accept json
// @Produce json
// @Param request body object{prompt=string,caption=string} true "Post"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /posts/ [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return s.respondError(c, err)
	}

	var req createPostRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.Create(c.UserContext(), service.CreatePostInput{
		Author:  user,
		Prompt:  req.Prompt,
		Caption: req.Caption,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// Explore handles GET /posts/
// @Summary Explore posts
// @Tags posts
// @Produce json
// @Param filter query string false "latest, popular or trending"
// @Param page query int false "Page, starting at 1"
// @Param category query string false "Substring matched against caption and prompt"
// @Success 200 {array} models.Post
// @Router /posts/ [get]
func (s *Server) Explore(c *fiber.Ctx) error {
	posts, err := s.postService.Explore(c.UserContext(), service.ExploreInput{
		Filter:   models.ParseExploreFilter(c.Query("filter")),
		Page:     page(c),
		Category: strings.TrimSpace(c.Query("category")),
		ViewerID: viewerID(c),
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(emptyIfNil(posts))
}

// GetPost handles GET /posts/:id
// @Summary Get post
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.Post
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.postService.Get(c.UserContext(), id, viewerID(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /posts/:id
// @Summary Delete post
// @Description Only the author can delete; other posts look missing
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} object{message=string}
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	user, err := s.currentUser(c)
	if err != nil {
		return s.respondError(c, err)
	}
	if err := s.postService.Delete(c.UserContext(), id, user.ID); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post deleted successfully"})
}

// ToggleLike handles POST /posts/like/:id
// @Summary Like or unlike a post
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} object{message=string,action=string,like_count=int}
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/like/{id} [post]
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	user, err := s.currentUser(c)
	if err != nil {
		return s.respondError(c, err)
	}

	result, err := s.postService.ToggleLike(c.UserContext(), user, id)
	if err != nil {
		return s.respondError(c, err)
	}

	message := "Post liked successfully"
	if result.Action == models.ActionUnliked {
		message = "Post unliked successfully"
	}
	return c.JSON(fiber.Map{
		"message":    message,
		"action":     result.Action,
		"like_count": result.Count,
	})
}

// GetUserPosts handles GET /posts/user/:user_id
// @Summary Posts by user
// @Tags posts
// @Produce json
// @Param user_id path int true "User ID"
// @Success 200 {array} models.Post
// @Router /posts/user/{user_id} [get]
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "user_id")
	if err != nil {
		return nil
	}
	posts, err := s.postService.ByUser(c.UserContext(), userID, viewerID(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(emptyIfNil(posts))
}

// SearchPosts handles POST /posts/search
// @Summary Search posts
// @Description Substring match on prompt or caption, newest first, at most 50 results
// @Tags posts
// @Produce json
// @Param search_term query string false "Search text; may also be sent in the body"
// @Success 200 {array} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Router /posts/search [post]
func (s *Server) SearchPosts(c *fiber.Ctx) error {
	term := c.Query("search_term")
	if term == "" && len(c.Body()) > 0 {
		var req searchPostsRequest
		if err := c.BodyParser(&req); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid request body"))
		}
		term = req.SearchTerm
	}

	posts, err := s.postService.Search(c.UserContext(), term, viewerID(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(emptyIfNil(posts))
}

// GeneratePreview handles POST /posts/generate-preview
// @Summary Preview an image
// @Description Generate an image for the prompt without publishing it
// @Tags posts
// @Accept json
// @Produce json
// @Param request body object{prompt=string} true "Prompt"
// @Success 200 {object} object{success=bool,image_data=string,prompt=string}
// @Failure 400 {object} models.ErrorResponse
// @Router /posts/generate-preview [post]
func (s *Server) GeneratePreview(c *fiber.Ctx) error {
	if !s.featureFlags.Enabled(featureflags.ImagePreview, viewerID(c)) {
		return fiber.NewError(fiber.StatusNotFound, "Image preview is disabled")
	}

	var req createPostRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	image, err := s.postService.Preview(c.UserContext(), req.Prompt)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":    true,
		"image_data": image,
		"prompt":     strings.TrimSpace(req.Prompt),
	})
}

// GetThumbnail handles GET /posts/:id/thumbnail
// @Summary Post thumbnail
// @Tags posts
// @Produce image/webp
// @Param id path int true "Post ID"
// @Param size query int false "Longest side in pixels, 32 to 512"
// @Success 200 {file} binary
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/thumbnail [get]
func (s *Server) GetThumbnail(c *fiber.Ctx) error {
	if !s.featureFlags.Enabled(featureflags.Thumbnails, viewerID(c)) {
		return fiber.NewError(fiber.StatusNotFound, "Thumbnails are disabled")
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	thumb, err := s.postService.Thumbnail(c.UserContext(), id, c.QueryInt("size", imagegen.DefaultThumbnailSize))
	if err != nil {
		return s.respondError(c, err)
	}

	c.Set(fiber.HeaderContentType, "image/webp")
	c.Set(fiber.HeaderCacheControl, "private, max-age=3600")
	return c.Send(thumb)
}
