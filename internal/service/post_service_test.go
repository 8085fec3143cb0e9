package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rai-team-aiframe/dreamly/internal/imagegen"
	"github.com/rai-team-aiframe/dreamly/internal/models"
	"github.com/rai-team-aiframe/dreamly/internal/notifications"
	"github.com/rai-team-aiframe/dreamly/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostService_Create(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ada := f.register(t, "ada")
	bob := f.register(t, "bob")
	_, err := f.users.ToggleFollow(ctx, bob, ada.ID)
	require.NoError(t, err)

	caption := "  first light  "
	post, err := f.posts.Create(ctx, CreatePostInput{Author: ada, Prompt: "  a lighthouse at dawn ", Caption: &caption})
	require.NoError(t, err)
	assert.NotZero(t, post.ID)
	assert.Equal(t, "a lighthouse at dawn", post.Prompt)
	require.NotNil(t, post.Caption)
	assert.Equal(t, "first light", *post.Caption)
	assert.Equal(t, "ada", post.Username)
	assert.Zero(t, post.LikeCount)
	assert.False(t, post.LikedByUser)
	assert.Equal(t, f.generator.Image, post.ImageData)
	assert.Equal(t, []string{"a lighthouse at dawn"}, f.generator.Prompts())

	var newPost []sentEvent
	for _, s := range f.notifier.Sent() {
		if s.Event.Type == notifications.EventNewPost {
			newPost = append(newPost, s)
		}
	}
	require.Len(t, newPost, 1)
	assert.Equal(t, bob.ID, newPost[0].UserID)
	assert.Equal(t, post.ID, newPost[0].Event.Payload.PostID)
}

func TestPostService_Create_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ada := f.register(t, "ada")

	_, err := f.posts.Create(ctx, CreatePostInput{Author: ada, Prompt: "   "})
	assertCode(t, err, models.CodeValidation)
	assert.Contains(t, err.Error(), "Prompt cannot be empty")
	assert.Empty(t, f.generator.Prompts(), "no provider call for an empty prompt")

	f.generator.Err = errors.New("provider timeout")
	_, err = f.posts.Create(ctx, CreatePostInput{Author: ada, Prompt: "storm"})
	assertCode(t, err, models.CodeUpstream)
	assert.Equal(t, 500, models.StatusFor(err))

	posts, err := f.posts.ByUser(ctx, ada.ID, ada.ID)
	require.NoError(t, err)
	assert.Empty(t, posts, "failed generation must not create a post")
}

func TestPostService_Preview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	image, err := f.posts.Preview(ctx, "moonlit garden")
	require.NoError(t, err)
	assert.Equal(t, f.generator.Image, image)

	_, err = f.posts.Preview(ctx, "")
	assertCode(t, err, models.CodeValidation)

	f.generator.Err = imagegen.ErrGeneration
	_, err = f.posts.Preview(ctx, "moonlit garden")
	assertCode(t, err, models.CodeUpstream)
	assert.ErrorIs(t, err, imagegen.ErrGeneration)
}

func TestPostService_ToggleLike(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ada := f.register(t, "ada")
	bob := f.register(t, "bob")
	post, err := f.posts.Create(ctx, CreatePostInput{Author: ada, Prompt: "koi pond"})
	require.NoError(t, err)

	result, err := f.posts.ToggleLike(ctx, bob, post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ActionLiked, result.Action)
	assert.Equal(t, int64(1), result.Count)

	sent := f.notifier.Sent()
	require.NotEmpty(t, sent)
	last := sent[len(sent)-1]
	assert.Equal(t, ada.ID, last.UserID)
	assert.Equal(t, notifications.EventLiked, last.Event.Type)

	result, err = f.posts.ToggleLike(ctx, bob, post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ActionUnliked, result.Action)
	assert.Zero(t, result.Count)

	before := len(f.notifier.Sent())
	_, err = f.posts.ToggleLike(ctx, ada, post.ID)
	require.NoError(t, err)
	assert.Len(t, f.notifier.Sent(), before, "liking your own post does not notify")

	_, err = f.posts.ToggleLike(ctx, bob, 9999)
	assert.True(t, models.IsNotFound(err))
}

func TestPostService_DeleteRemovesLikes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ada := f.register(t, "ada")
	bob := f.register(t, "bob")
	post, err := f.posts.Create(ctx, CreatePostInput{Author: ada, Prompt: "origami"})
	require.NoError(t, err)
	_, err = f.posts.ToggleLike(ctx, bob, post.ID)
	require.NoError(t, err)

	err = f.posts.Delete(ctx, post.ID, bob.ID)
	assert.True(t, models.IsNotFound(err), "only the owner can delete")

	require.NoError(t, f.posts.Delete(ctx, post.ID, ada.ID))

	_, err = f.posts.Get(ctx, post.ID, ada.ID)
	assert.True(t, models.IsNotFound(err))
	_, err = f.posts.ToggleLike(ctx, bob, post.ID)
	assert.True(t, models.IsNotFound(err))

	liked, err := f.posts.Liked(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, liked)
}

func TestPostService_ExploreFeedSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ada := f.register(t, "ada")
	bob := f.register(t, "bob")
	carol := f.register(t, "carol")

	var created []*models.Post
	for i, prompt := range []string{"red fox", "blue whale", "green frog"} {
		author := []*models.User{ada, bob, carol}[i]
		p, err := f.posts.Create(ctx, CreatePostInput{Author: author, Prompt: prompt})
		require.NoError(t, err)
		created = append(created, p)
	}
	_, err := f.posts.ToggleLike(ctx, ada, created[1].ID)
	require.NoError(t, err)

	popular, err := f.posts.Explore(ctx, ExploreInput{Filter: models.FilterPopular, Page: 1, ViewerID: ada.ID})
	require.NoError(t, err)
	require.Len(t, popular, 3)
	assert.Equal(t, created[1].ID, popular[0].ID)
	for i := 1; i < len(popular); i++ {
		assert.LessOrEqual(t, popular[i].LikeCount, popular[i-1].LikeCount)
	}

	latest, err := f.posts.Explore(ctx, ExploreInput{Filter: models.FilterLatest, Page: 0})
	require.NoError(t, err)
	for i := 1; i < len(latest); i++ {
		assert.False(t, latest[i].CreatedAt.After(latest[i-1].CreatedAt))
	}

	empty, err := f.posts.Explore(ctx, ExploreInput{Filter: models.FilterLatest, Page: 2})
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = f.users.ToggleFollow(ctx, ada, bob.ID)
	require.NoError(t, err)
	feed, err := f.posts.Feed(ctx, ada.ID, 1)
	require.NoError(t, err)
	require.Len(t, feed, 2)
	for _, p := range feed {
		assert.Contains(t, []uint{ada.ID, bob.ID}, p.UserID)
	}

	found, err := f.posts.Search(ctx, "WHALE", carol.ID)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "bob", found[0].Username)

	_, err = f.posts.Search(ctx, "", carol.ID)
	assertCode(t, err, models.CodeValidation)

	liked, err := f.posts.Liked(ctx, ada.ID)
	require.NoError(t, err)
	require.Len(t, liked, 1)
	assert.True(t, liked[0].LikedByUser)
}

func TestPostService_Thumbnail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ada := f.register(t, "ada")
	post, err := f.posts.Create(ctx, CreatePostInput{Author: ada, Prompt: "tiny"})
	require.NoError(t, err)

	thumb, err := f.posts.Thumbnail(ctx, post.ID, imagegen.DefaultThumbnailSize)
	require.NoError(t, err)
	assert.NotEmpty(t, thumb)

	_, err = f.posts.Thumbnail(ctx, post.ID, 8)
	assertCode(t, err, models.CodeValidation)

	_, err = f.posts.Thumbnail(ctx, 9999, imagegen.DefaultThumbnailSize)
	assert.True(t, models.IsNotFound(err))
}

// countFailingPostRepo returns an existing, unliked post but fails to count likes.
type countFailingPostRepo struct {
	repository.PostRepository
}

func (countFailingPostRepo) GetByID(_ context.Context, id, _ uint) (*models.Post, error) {
	return &models.Post{ID: id, UserID: 1}, nil
}

func (countFailingPostRepo) Like(context.Context, uint, uint) error { return nil }

func (countFailingPostRepo) CountLikes(context.Context, uint) (int64, error) {
	return 0, models.NewInternalError(errors.New("database is locked"))
}

func TestPostService_ToggleLike_CountError(t *testing.T) {
	svc := NewPostService(countFailingPostRepo{}, nil, nil, nil)
	_, err := svc.ToggleLike(context.Background(), &models.User{ID: 2, Username: "bob"}, 5)
	assertCode(t, err, models.CodeInternal)
}
