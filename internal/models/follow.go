package models

import "time"

// Follow is a directed edge from Follower to Followed.
type Follow struct {
	FollowerID uint      `gorm:"primaryKey;autoIncrement:false" json:"follower_id"`
	FollowedID uint      `gorm:"primaryKey;autoIncrement:false" json:"followed_id"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Follow) TableName() string {
	return "followers"
}

// Like records that a user liked a post.
type Like struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	PostID    uint      `gorm:"primaryKey;autoIncrement:false" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (Like) TableName() string {
	return "likes"
}

// ToggleAction is the outcome of a toggle operation.
type ToggleAction string

const (
	ActionFollowed   ToggleAction = "followed"
	ActionUnfollowed ToggleAction = "unfollowed"
	ActionLiked      ToggleAction = "liked"
	ActionUnliked    ToggleAction = "unliked"
)
