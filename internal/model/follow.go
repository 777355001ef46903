package model

import (
	"time"
)

// Follow 关注关系（FollowingID 关注 FollowedID）
type Follow struct {
	ID          string `gorm:"primaryKey;type:varchar(36)"`
	FollowingID string `gorm:"type:varchar(36);index:idx_follow_following;uniqueIndex:ux_follow_pair;not null"`
	FollowedID  string `gorm:"type:varchar(36);index:idx_follow_followed;uniqueIndex:ux_follow_pair;not null"`
	// 复合唯一键，避免重复关注
	// ux_follow_pair = (following_id, followed_id)
	CreatedAt time.Time
}

func (Follow) TableName() string { return "follows" }
