package service

import (
	"context"
	"strings"

	"github.com/rai-team-aiframe/dreamly/internal/imagegen"
	"github.com/rai-team-aiframe/dreamly/internal/models"
	"github.com/rai-team-aiframe/dreamly/internal/notifications"
	"github.com/rai-team-aiframe/dreamly/internal/observability"
	"github.com/rai-team-aiframe/dreamly/internal/repository"
	"github.com/rai-team-aiframe/dreamly/internal/validation"
)

const (
	msgEmptyPrompt     = "Prompt cannot be empty"
	msgGenerationError = "Error generating image"
	msgSearchTerm      = "Search term is required"
)

type PostService struct {
	posts     repository.PostRepository
	follows   repository.FollowRepository
	generator imagegen.Generator
	notifier  EventNotifier
}

type CreatePostInput struct {
	Author  *models.User
	Prompt  string
	Caption *string
}

type ExploreInput struct {
	Filter   models.ExploreFilter
	Page     int
	Category string
	ViewerID uint
}

func NewPostService(
	posts repository.PostRepository,
	follows repository.FollowRepository,
	generator imagegen.Generator,
	notifier EventNotifier,
) *PostService {
	return &PostService{
		posts:     posts,
		follows:   follows,
		generator: generator,
		notifier:  notifier,
	}
}

// Create generates an image for the prompt and stores it as a post. Nothing is
// written when generation fails.
func (s *PostService) Create(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if in.Author == nil {
		return nil, models.NewUnauthorizedError("Not authenticated")
	}
	prompt, err := cleanPrompt(in.Prompt)
	if err != nil {
		return nil, err
	}
	var caption *string
	if in.Caption != nil {
		if c := strings.TrimSpace(*in.Caption); c != "" {
			if err := validation.ValidateCaption(c); err != nil {
				return nil, models.NewValidationError(err.Error())
			}
			caption = &c
		}
	}

	image, err := s.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		UserID:    in.Author.ID,
		Prompt:    prompt,
		ImageData: image,
		Caption:   caption,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	observability.PostsCreated.Inc()

	created, err := s.posts.GetByID(ctx, post.ID, in.Author.ID)
	if err != nil {
		return nil, err
	}

	if followers, err := s.follows.FollowerIDs(ctx, in.Author.ID); err == nil {
		notify(ctx, s.notifier, followers,
			notifications.NewEvent(notifications.EventNewPost, in.Author.ID, in.Author.Username, created.ID))
	}
	return created, nil
}

// Preview generates an image without storing anything.
func (s *PostService) Preview(ctx context.Context, prompt string) (string, error) {
	cleaned, err := cleanPrompt(prompt)
	if err != nil {
		return "", err
	}
	return s.generate(ctx, cleaned)
}

func (s *PostService) generate(ctx context.Context, prompt string) (string, error) {
	image, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return "", models.NewUpstreamError(msgGenerationError, err)
	}
	if image == "" {
		return "", models.NewUpstreamError(msgGenerationError, imagegen.ErrGeneration)
	}
	return image, nil
}

func cleanPrompt(prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", models.NewValidationError(msgEmptyPrompt)
	}
	if err := validation.ValidatePrompt(prompt); err != nil {
		return "", models.NewValidationError(err.Error())
	}
	return prompt, nil
}

func (s *PostService) Get(ctx context.Context, id, viewerID uint) (*models.Post, error) {
	return s.posts.GetByID(ctx, id, viewerID)
}

// ToggleLike likes postID, or removes the like when it already exists.
func (s *PostService) ToggleLike(ctx context.Context, actor *models.User, postID uint) (*ToggleResult, error) {
	if actor == nil {
		return nil, models.NewUnauthorizedError("Not authenticated")
	}
	post, err := s.posts.GetByID(ctx, postID, actor.ID)
	if err != nil {
		return nil, err
	}

	result := &ToggleResult{}
	if post.LikedByUser {
		if err := s.posts.Unlike(ctx, actor.ID, postID); err != nil {
			return nil, err
		}
		result.Action = models.ActionUnliked
	} else {
		if err := s.posts.Like(ctx, actor.ID, postID); err != nil {
			return nil, err
		}
		result.Action = models.ActionLiked
	}

	if result.Count, err = s.posts.CountLikes(ctx, postID); err != nil {
		return nil, err
	}
	observability.ToggleActions.WithLabelValues(string(result.Action)).Inc()

	if result.Action == models.ActionLiked && post.UserID != actor.ID {
		notify(ctx, s.notifier, []uint{post.UserID},
			notifications.NewEvent(notifications.EventLiked, actor.ID, actor.Username, postID))
	}
	return result, nil
}

// Delete removes a post owned by ownerID together with its likes.
func (s *PostService) Delete(ctx context.Context, id, ownerID uint) error {
	return s.posts.DeleteOwned(ctx, id, ownerID)
}

func (s *PostService) Explore(ctx context.Context, in ExploreInput) ([]*models.Post, error) {
	page := max(in.Page, 1)
	return s.posts.Explore(ctx, repository.ExploreQuery{
		Filter:   in.Filter,
		Category: strings.TrimSpace(in.Category),
		Limit:    repository.ExplorePageSize,
		Offset:   (page - 1) * repository.ExplorePageSize,
	}, in.ViewerID)
}

// Feed lists the caller's posts and those of everyone they follow, newest first.
func (s *PostService) Feed(ctx context.Context, userID uint, page int) ([]*models.Post, error) {
	page = max(page, 1)
	return s.posts.Feed(ctx, userID, repository.DefaultFeedLimit, (page-1)*repository.DefaultFeedLimit)
}

func (s *PostService) Search(ctx context.Context, term string, viewerID uint) ([]*models.Post, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, models.NewValidationError(msgSearchTerm)
	}
	return s.posts.Search(ctx, term, viewerID, repository.PostSearchLimit)
}

func (s *PostService) ByUser(ctx context.Context, userID, viewerID uint) ([]*models.Post, error) {
	return s.posts.ListByUser(ctx, userID, viewerID)
}

func (s *PostService) Liked(ctx context.Context, userID uint) ([]*models.Post, error) {
	return s.posts.ListLiked(ctx, userID)
}

// Thumbnail renders a webp preview of a stored post image.
func (s *PostService) Thumbnail(ctx context.Context, id uint, size int) ([]byte, error) {
	if size < imagegen.MinThumbnailSize || size > imagegen.MaxThumbnailSize {
		return nil, models.NewValidationError("size must be between 32 and 512")
	}
	post, err := s.posts.GetByID(ctx, id, 0)
	if err != nil {
		return nil, err
	}
	thumb, err := imagegen.Thumbnail(post.ImageData, size)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return thumb, nil
}
