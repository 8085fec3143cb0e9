package models

import "time"

// Post is a generated image shared by a user.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Prompt    string    `gorm:"type:text;not null" json:"prompt"`
	ImageData string    `gorm:"column:image_data;type:text;not null" json:"image_data"`
	Caption   *string   `gorm:"type:text" json:"caption"`
	CreatedAt time.Time `json:"created_at"`

	// Username of the author, joined at query time.
	Username string `gorm:"->;-:migration" json:"username"`
	// LikeCount is not persisted; computed at query time
	LikeCount int64 `gorm:"->;-:migration" json:"like_count"`
	// LikedByUser indicates whether the requesting user liked this post (computed)
	LikedByUser bool `gorm:"->;-:migration" json:"liked_by_user"`
}

func (Post) TableName() string {
	return "posts"
}

// ExploreFilter selects the explore ordering.
type ExploreFilter string

const (
	FilterLatest   ExploreFilter = "latest"
	FilterPopular  ExploreFilter = "popular"
	FilterTrending ExploreFilter = "trending"
)

// ParseExploreFilter maps a query value to a filter; unknown values mean latest.
func ParseExploreFilter(raw string) ExploreFilter {
	switch ExploreFilter(raw) {
	case FilterPopular:
		return FilterPopular
	case FilterTrending:
		return FilterTrending
	default:
		return FilterLatest
	}
}
