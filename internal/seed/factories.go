// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/rai-team-aiframe/dreamly/internal/auth"
	"github.com/rai-team-aiframe/dreamly/internal/middleware"
	"github.com/rai-team-aiframe/dreamly/internal/models"
	"github.com/rai-team-aiframe/dreamly/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/chai2010/webp"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// PlaceholderSize is the edge length of generated placeholder images.
const PlaceholderSize = 96

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

var styles = []string{
	"watercolor", "oil painting", "pixel art", "studio photograph", "ukiyo-e print",
	"charcoal sketch", "isometric render", "film still", "stained glass", "claymation",
}

// Options tune a Factory.
type Options struct {
	Password string
	MaxDays  int
	// FastHash hashes passwords at bcrypt.MinCost.
	FastHash bool
	// DryRun assigns synthetic IDs and skips every database write.
	DryRun bool
}

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db   *gorm.DB
	opts Options
	rng  *rand.Rand

	passwordHash string
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	if opts.Password == "" {
		opts.Password = DefaultPassword
	}
	if opts.MaxDays <= 0 {
		opts.MaxDays = 90
	}
	seed := time.Now().UnixNano()
	gofakeit.Seed(seed)
	return &Factory{
		db:   db,
		opts: opts,
		// #nosec G404: acceptable for seeding
		rng:    rand.New(rand.NewSource(seed)),
		nextID: 1000,
	}
}

func (f *Factory) hash() (string, error) {
	if f.passwordHash != "" {
		return f.passwordHash, nil
	}
	var (
		hashed string
		err    error
	)
	if f.opts.FastHash {
		var raw []byte
		raw, err = bcrypt.GenerateFromPassword([]byte(f.opts.Password), bcrypt.MinCost)
		hashed = string(raw)
	} else {
		hashed, err = auth.HashPassword(f.opts.Password)
	}
	if err != nil {
		return "", fmt.Errorf("hash seed password: %w", err)
	}
	f.passwordHash = hashed
	return hashed, nil
}

// Username derives a valid, unique-per-n username from a fake handle.
func Username(handle string, n int) string {
	base := nonAlnum.ReplaceAllString(strings.ToLower(handle), "")
	if len(base) > 20 {
		base = base[:20]
	}
	if base == "" {
		base = "dreamer"
	}
	return fmt.Sprintf("%s%d", base, n)
}

// CreateUser constructs and persists a sample user. The n-th user gets a
// username suffixed with n so repeated calls never collide.
func (f *Factory) CreateUser(ctx context.Context, n int, overrides ...func(*models.User)) (*models.User, error) {
	username := Username(gofakeit.Username(), n)
	bio := gofakeit.Sentence(10)
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Bio:      &bio,
	}
	for _, override := range overrides {
		override(user)
	}
	if err := validation.ValidateUsername(user.Username); err != nil {
		return nil, fmt.Errorf("seed user %q: %w", user.Username, err)
	}

	hashed, err := f.hash()
	if err != nil {
		return nil, err
	}
	user.Password = hashed

	if f.opts.DryRun {
		f.nextID++
		user.ID = f.nextID
		middleware.Logger.Debug("[dry-run] CreateUser", "username", user.Username)
		return user, nil
	}
	if err := f.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// Prompt returns a random image prompt, drawn from choices when non-empty.
func (f *Factory) Prompt(choices []string) string {
	if len(choices) > 0 {
		return choices[f.rng.Intn(len(choices))]
	}
	return fmt.Sprintf("a %s %s %s, %s",
		gofakeit.Adjective(), strings.ToLower(gofakeit.Color()), gofakeit.Noun(), styles[f.rng.Intn(len(styles))])
}

// BuildPost constructs a post for user without persisting it. Creation times
// are spread over the last MaxDays days.
func (f *Factory) BuildPost(user *models.User, prompt string, overrides ...func(*models.Post)) (*models.Post, error) {
	img, err := f.Placeholder()
	if err != nil {
		return nil, err
	}
	post := &models.Post{
		UserID:    user.ID,
		Prompt:    prompt,
		ImageData: img,
		Username:  user.Username,
	}
	if f.rng.Intn(2) == 0 {
		caption := gofakeit.Sentence(6)
		post.Caption = &caption
	}

	daysBack := f.rng.Intn(f.opts.MaxDays)
	hoursBack := f.rng.Intn(24)
	minsBack := f.rng.Intn(60)
	post.CreatedAt = time.Now().UTC().Add(-time.Duration(daysBack)*24*time.Hour - time.Duration(hoursBack)*time.Hour - time.Duration(minsBack)*time.Minute)

	for _, override := range overrides {
		override(post)
	}
	return post, nil
}

// CreatePostsBatch persists multiple posts in batched inserts.
func (f *Factory) CreatePostsBatch(ctx context.Context, posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	if f.opts.DryRun {
		for _, p := range posts {
			f.nextID++
			p.ID = f.nextID
		}
		middleware.Logger.Debug("[dry-run] CreatePostsBatch", "posts", len(posts))
		return nil
	}
	return f.db.WithContext(ctx).CreateInBatches(posts, 100).Error
}

// CreateFollow persists follower following followed.
func (f *Factory) CreateFollow(ctx context.Context, follower, followed *models.User) error {
	if follower.ID == followed.ID {
		return fmt.Errorf("user %d cannot follow themselves", follower.ID)
	}
	if f.opts.DryRun {
		return nil
	}
	return f.db.WithContext(ctx).Create(&models.Follow{FollowerID: follower.ID, FollowedID: followed.ID}).Error
}

// CreateLike persists a like from user on post.
func (f *Factory) CreateLike(ctx context.Context, user *models.User, post *models.Post) error {
	if f.opts.DryRun {
		return nil
	}
	return f.db.WithContext(ctx).Create(&models.Like{UserID: user.ID, PostID: post.ID}).Error
}

// Placeholder renders a two-color diagonal gradient as a base64 lossless webp,
// the same encoding the image provider's payloads are stored in.
func (f *Factory) Placeholder() (string, error) {
	from := randomColor(f.rng)
	to := randomColor(f.rng)

	img := image.NewRGBA(image.Rect(0, 0, PlaceholderSize, PlaceholderSize))
	span := 2 * (PlaceholderSize - 1)
	for x := 0; x < PlaceholderSize; x++ {
		for y := 0; y < PlaceholderSize; y++ {
			t := float64(x+y) / float64(span)
			img.Set(x, y, color.RGBA{
				R: lerp(from.R, to.R, t),
				G: lerp(from.G, to.G, t),
				B: lerp(from.B, to.B, t),
				A: 255,
			})
		}
	}

	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Lossless: true}); err != nil {
		return "", fmt.Errorf("encode placeholder: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func randomColor(r *rand.Rand) color.RGBA {
	return color.RGBA{R: uint8(r.Intn(256)), G: uint8(r.Intn(256)), B: uint8(r.Intn(256)), A: 255}
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t)
}
