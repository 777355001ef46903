package model

import "time"

// Like 点赞关系（UserID 点赞 PostID）
type Like struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	UserID    string `gorm:"type:varchar(36);index:idx_like_user;uniqueIndex:ux_like_pair;not null"`
	PostID    string `gorm:"type:varchar(36);index:idx_like_post;uniqueIndex:ux_like_pair;not null"`
	CreatedAt time.Time
}

func (Like) TableName() string { return "likes" }
