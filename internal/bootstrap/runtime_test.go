package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rai-team-aiframe/dreamly/internal/config"
	"github.com/rai-team-aiframe/dreamly/internal/database"
	"github.com/rai-team-aiframe/dreamly/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{Env: "test", DBPath: ":memory:"}
}

func writePlan(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestInitRuntime_WithoutRedis(t *testing.T) {
	db, rdb, err := InitRuntime(context.Background(), testConfig(), Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	assert.Nil(t, rdb)
	assert.True(t, db.Migrator().HasTable("users"))
}

func TestInitRuntime_WithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.RedisURL = "redis://" + mr.Addr()

	db, rdb, err := InitRuntime(context.Background(), cfg, Options{})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = rdb.Close()
		_ = database.Close(db)
	})
	require.NotNil(t, rdb)
	assert.NoError(t, rdb.Ping(context.Background()).Err())
}

func TestInitRuntime_UnreachableRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig()
	cfg.RedisURL = addr
	db, rdb, err := InitRuntime(context.Background(), cfg, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	assert.Nil(t, rdb)

	cfg.Env = "production"
	_, _, err = InitRuntime(context.Background(), cfg, Options{})
	assert.Error(t, err)
}

func TestInitRuntime_SeedsEmptyDatabase(t *testing.T) {
	plan := writePlan(t, "users: 3\nposts_per_user: 1\nfollows_per_user: 1\nlikes_per_post: 1\n")

	db, _, err := InitRuntime(context.Background(), testConfig(), Options{SeedPlan: plan})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	var users int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	assert.EqualValues(t, 3, users)

	require.NoError(t, seedIfEmpty(context.Background(), db, plan))
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	assert.EqualValues(t, 3, users)
}

func TestInitRuntime_BadSeedPlan(t *testing.T) {
	plan := writePlan(t, "users: nope\n")
	_, _, err := InitRuntime(context.Background(), testConfig(), Options{SeedPlan: plan})
	assert.Error(t, err)
}
