package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/rai-team-aiframe/dreamly/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createPost(t *testing.T, db *gorm.DB, userID uint, prompt string, caption *string, createdAt time.Time) *models.Post {
	t.Helper()
	post := &models.Post{UserID: userID, Prompt: prompt, ImageData: "aW1n", Caption: caption, CreatedAt: createdAt}
	require.NoError(t, NewPostRepository(db).Create(context.Background(), post))
	return post
}

func strPtr(s string) *string { return &s }

func postIDs(posts []*models.Post) []uint {
	ids := make([]uint, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestPostRepository_GetByIDWithDetails(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	ada := createUser(t, db, "ada")
	bob := createUser(t, db, "bob")
	post := createPost(t, db, ada.ID, "a lighthouse in fog", strPtr("moody"), time.Now().UTC())

	require.NoError(t, repo.Like(ctx, bob.ID, post.ID))
	require.NoError(t, repo.Like(ctx, bob.ID, post.ID))

	asBob, err := repo.GetByID(ctx, post.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada", asBob.Username)
	assert.Equal(t, int64(1), asBob.LikeCount)
	assert.True(t, asBob.LikedByUser)

	asAda, err := repo.GetByID(ctx, post.ID, ada.ID)
	require.NoError(t, err)
	assert.False(t, asAda.LikedByUser)

	anonymous, err := repo.GetByID(ctx, post.ID, 0)
	require.NoError(t, err)
	assert.False(t, anonymous.LikedByUser)

	_, err = repo.GetByID(ctx, 9999, ada.ID)
	assert.True(t, models.IsNotFound(err))
}

func TestPostRepository_LikeLifecycle(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	ada := createUser(t, db, "ada")
	post := createPost(t, db, ada.ID, "desert bloom", nil, time.Now().UTC())

	liked, err := repo.IsLiked(ctx, ada.ID, post.ID)
	require.NoError(t, err)
	assert.False(t, liked)

	require.NoError(t, repo.Like(ctx, ada.ID, post.ID))
	liked, err = repo.IsLiked(ctx, ada.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, liked)

	count, err := repo.CountLikes(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, repo.Unlike(ctx, ada.ID, post.ID))
	count, err = repo.CountLikes(ctx, post.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestPostRepository_Explore(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	ada := createUser(t, db, "ada")
	bob := createUser(t, db, "bob")
	now := time.Now().UTC()

	oldest := createPost(t, db, ada.ID, "forest spirit", strPtr("Nature"), now.Add(-3*time.Hour))
	middle := createPost(t, db, ada.ID, "city at night", nil, now.Add(-2*time.Hour))
	newest := createPost(t, db, bob.ID, "ocean NATURE documentary still", nil, now.Add(-time.Hour))

	require.NoError(t, repo.Like(ctx, ada.ID, middle.ID))
	require.NoError(t, repo.Like(ctx, bob.ID, middle.ID))
	require.NoError(t, repo.Like(ctx, bob.ID, oldest.ID))

	t.Run("latest", func(t *testing.T) {
		posts, err := repo.Explore(ctx, ExploreQuery{Filter: models.FilterLatest}, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, []uint{newest.ID, middle.ID, oldest.ID}, postIDs(posts))
	})

	t.Run("popular", func(t *testing.T) {
		posts, err := repo.Explore(ctx, ExploreQuery{Filter: models.FilterPopular}, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, []uint{middle.ID, oldest.ID, newest.ID}, postIDs(posts))
		assert.Equal(t, int64(2), posts[0].LikeCount)
		assert.True(t, posts[0].LikedByUser)
	})

	t.Run("trending favours age at equal likes", func(t *testing.T) {
		posts, err := repo.Explore(ctx, ExploreQuery{Filter: models.FilterTrending}, 0)
		require.NoError(t, err)
		require.Len(t, posts, 3)
		assert.Equal(t, oldest.ID, posts[0].ID)
		assert.Equal(t, newest.ID, posts[2].ID)
	})

	t.Run("category matches caption or prompt", func(t *testing.T) {
		posts, err := repo.Explore(ctx, ExploreQuery{Filter: models.FilterLatest, Category: "nature"}, 0)
		require.NoError(t, err)
		assert.Equal(t, []uint{newest.ID, oldest.ID}, postIDs(posts))
	})

	t.Run("pagination", func(t *testing.T) {
		page, err := repo.Explore(ctx, ExploreQuery{Filter: models.FilterLatest, Limit: 2, Offset: 2}, 0)
		require.NoError(t, err)
		assert.Equal(t, []uint{oldest.ID}, postIDs(page))
	})
}

func TestPostRepository_FeedSearchAndLists(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	follows := NewFollowRepository(db)
	ctx := context.Background()

	ada := createUser(t, db, "ada")
	bob := createUser(t, db, "bob")
	carol := createUser(t, db, "carol")
	now := time.Now().UTC()

	adaPost := createPost(t, db, ada.ID, "red fox", nil, now.Add(-3*time.Minute))
	bobPost := createPost(t, db, bob.ID, "blue whale", strPtr("100% ocean"), now.Add(-2*time.Minute))
	carolPost := createPost(t, db, carol.ID, "green frog", nil, now.Add(-time.Minute))

	require.NoError(t, follows.Follow(ctx, ada.ID, bob.ID))

	feed, err := repo.Feed(ctx, ada.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint{bobPost.ID, adaPost.ID}, postIDs(feed))

	found, err := repo.Search(ctx, "FROG", ada.ID, PostSearchLimit)
	require.NoError(t, err)
	assert.Equal(t, []uint{carolPost.ID}, postIDs(found))

	found, err = repo.Search(ctx, "100%", ada.ID, PostSearchLimit)
	require.NoError(t, err)
	assert.Equal(t, []uint{bobPost.ID}, postIDs(found))

	byBob, err := repo.ListByUser(ctx, bob.ID, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{bobPost.ID}, postIDs(byBob))

	require.NoError(t, repo.Like(ctx, ada.ID, carolPost.ID))
	require.NoError(t, db.Exec("UPDATE likes SET created_at = ? WHERE post_id = ?", now.Add(-time.Hour), carolPost.ID).Error)
	require.NoError(t, repo.Like(ctx, ada.ID, bobPost.ID))

	liked, err := repo.ListLiked(ctx, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{bobPost.ID, carolPost.ID}, postIDs(liked))
	for _, p := range liked {
		assert.True(t, p.LikedByUser)
	}

	posts, err := NewUserRepository(db).CountPosts(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), posts)
}

func TestPostRepository_DeleteOwned(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	ada := createUser(t, db, "ada")
	bob := createUser(t, db, "bob")
	post := createPost(t, db, ada.ID, "paper boats", nil, time.Now().UTC())
	require.NoError(t, repo.Like(ctx, bob.ID, post.ID))

	err := repo.DeleteOwned(ctx, post.ID, bob.ID)
	assert.True(t, models.IsNotFound(err))

	require.NoError(t, repo.DeleteOwned(ctx, post.ID, ada.ID))

	_, err = repo.GetByID(ctx, post.ID, 0)
	assert.True(t, models.IsNotFound(err))

	var likes int64
	require.NoError(t, db.Model(&models.Like{}).Where("post_id = ?", post.ID).Count(&likes).Error)
	assert.Zero(t, likes)

	err = repo.DeleteOwned(ctx, post.ID, ada.ID)
	assert.True(t, models.IsNotFound(err))
}

func TestPostRepository_CountLikes_DatabaseError(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "likes" WHERE post_id = $1`)).
		WillReturnError(errors.New("disk I/O error"))

	_, err := repo.CountLikes(context.Background(), 7)
	assert.Equal(t, 500, models.StatusFor(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearch_NonASCIITerms(t *testing.T) {
	db := setupTestDB(t)
	posts := NewPostRepository(db)
	users := NewUserRepository(db)
	ctx := context.Background()

	adne := createUser(t, db, "Ådne")
	eclair := createPost(t, db, adne.ID, "Éclair au café", nil, time.Now().UTC())
	createPost(t, db, adne.ID, "plain toast", nil, time.Now().UTC().Add(-time.Minute))

	found, err := posts.Search(ctx, "Éclair", 0, PostSearchLimit)
	require.NoError(t, err)
	assert.Equal(t, []uint{eclair.ID}, postIDs(found))

	found, err = posts.Search(ctx, "CAFé", 0, PostSearchLimit)
	require.NoError(t, err)
	assert.Equal(t, []uint{eclair.ID}, postIDs(found))

	byCategory, err := posts.Explore(ctx, ExploreQuery{Filter: models.FilterLatest, Category: "Éclair"}, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint{eclair.ID}, postIDs(byCategory))

	matched, err := users.Search(ctx, "Ådne", 0, UserSearchLimit)
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "Ådne", matched[0].Username)
}
