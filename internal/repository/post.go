package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rai-team-aiframe/dreamly/internal/models"

	"gorm.io/gorm"
)

// Result caps.
const (
	ExplorePageSize  = 12
	PostSearchLimit  = 50
	UserSearchLimit  = 20
	DefaultFeedLimit = 20
)

// ExploreQuery selects one explore page.
type ExploreQuery struct {
	Filter   models.ExploreFilter
	Category string
	Limit    int
	Offset   int
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id, viewerID uint) (*models.Post, error)
	Explore(ctx context.Context, q ExploreQuery, viewerID uint) ([]*models.Post, error)
	Feed(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error)
	Search(ctx context.Context, term string, viewerID uint, limit int) ([]*models.Post, error)
	ListByUser(ctx context.Context, userID, viewerID uint) ([]*models.Post, error)
	ListLiked(ctx context.Context, userID uint) ([]*models.Post, error)
	DeleteOwned(ctx context.Context, id, ownerID uint) error
	IsLiked(ctx context.Context, userID, postID uint) (bool, error)
	Like(ctx context.Context, userID, postID uint) error
	Unlike(ctx context.Context, userID, postID uint) error
	CountLikes(ctx context.Context, postID uint) (int64, error)
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id, viewerID uint) (*models.Post, error) {
	var post models.Post
	err := r.applyPostDetails(r.db.WithContext(ctx), viewerID).
		Where("posts.id = ?", id).
		Take(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

func (r *postRepository) Explore(ctx context.Context, q ExploreQuery, viewerID uint) ([]*models.Post, error) {
	if q.Limit <= 0 {
		q.Limit = ExplorePageSize
	}

	base := r.applyPostDetails(r.db.WithContext(ctx), viewerID)
	if q.Category != "" {
		like := likePattern(q.Category)
		base = base.Where(`(COALESCE(posts.caption, '') LIKE ? ESCAPE '\' OR posts.prompt LIKE ? ESCAPE '\')`, like, like)
	}

	var posts []*models.Post
	if err := applySort(base, q.Filter).Limit(q.Limit).Offset(q.Offset).Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// applySort appends the ORDER BY for the explore filter. like_count is a SELECT
// alias from applyPostDetails; SQLite resolves it inside ORDER BY expressions.
// The trending score adds age in seconds, so older posts rank higher at equal likes.
func applySort(db *gorm.DB, filter models.ExploreFilter) *gorm.DB {
	switch filter {
	case models.FilterPopular:
		return db.Order("like_count DESC, posts.created_at DESC")
	case models.FilterTrending:
		return db.Order(gorm.Expr("(like_count * 10 + (julianday('now') - julianday(posts.created_at)) * 86400) DESC"))
	default:
		return db.Order("posts.created_at DESC, posts.id DESC")
	}
}

func (r *postRepository) Feed(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error) {
	if limit <= 0 {
		limit = DefaultFeedLimit
	}
	var posts []*models.Post
	err := r.applyPostDetails(r.db.WithContext(ctx), userID).
		Where("(posts.user_id = ? OR posts.user_id IN (SELECT followed_id FROM followers WHERE follower_id = ?))", userID, userID).
		Order("posts.created_at DESC, posts.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) Search(ctx context.Context, term string, viewerID uint, limit int) ([]*models.Post, error) {
	like := likePattern(term)
	var posts []*models.Post
	err := r.applyPostDetails(r.db.WithContext(ctx), viewerID).
		Where(`(posts.prompt LIKE ? ESCAPE '\' OR COALESCE(posts.caption, '') LIKE ? ESCAPE '\')`, like, like).
		Order("posts.created_at DESC, posts.id DESC").
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) ListByUser(ctx context.Context, userID, viewerID uint) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.applyPostDetails(r.db.WithContext(ctx), viewerID).
		Where("posts.user_id = ?", userID).
		Order("posts.created_at DESC, posts.id DESC").
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// ListLiked returns the posts userID liked, most recently liked first.
func (r *postRepository) ListLiked(ctx context.Context, userID uint) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.applyPostDetails(r.db.WithContext(ctx), userID).
		Joins("JOIN likes ul ON ul.post_id = posts.id AND ul.user_id = ?", userID).
		Order("ul.created_at DESC").
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// applyPostDetails selects the author name, like count and the viewer's like flag
// in a single query.
func (r *postRepository) applyPostDetails(db *gorm.DB, viewerID uint) *gorm.DB {
	selectQuery := "posts.*, users.username AS username, " +
		"(SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id) AS like_count"

	db = db.Model(&models.Post{}).Joins("JOIN users ON users.id = posts.user_id")
	if viewerID != 0 {
		return db.Select(selectQuery+", EXISTS(SELECT 1 FROM likes WHERE likes.post_id = posts.id AND likes.user_id = ?) AS liked_by_user", viewerID)
	}
	return db.Select(selectQuery + ", 0 AS liked_by_user")
}

// DeleteOwned removes a post and its likes. A missing post and a post owned by
// someone else are indistinguishable to the caller.
func (r *postRepository) DeleteOwned(ctx context.Context, id, ownerID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Post{}).Where("id = ? AND user_id = ?", id, ownerID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return models.NewNotFoundError("Post", id)
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ? AND user_id = ?", id, ownerID).Delete(&models.Post{}).Error
	})
	if err != nil {
		if models.IsNotFound(err) {
			return err
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) IsLiked(ctx context.Context, userID, postID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// Like inserts the edge; a concurrent duplicate is absorbed by ON CONFLICT.
func (r *postRepository) Like(ctx context.Context, userID, postID uint) error {
	err := r.db.WithContext(ctx).Exec(
		`INSERT INTO likes (user_id, post_id, created_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (user_id, post_id) DO NOTHING`,
		userID, postID, time.Now().UTC(),
	).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) Unlike(ctx context.Context, userID, postID uint) error {
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.Like{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) CountLikes(ctx context.Context, postID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Like{}).Where("post_id = ?", postID).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}
