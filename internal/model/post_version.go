package model

import "time"

// PostVersion 帖子被修改前的内容快照，只追加不修改
type PostVersion struct {
	ID      string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Content string    `json:"content" gorm:"type:text;not null"`
	Version time.Time `json:"version" gorm:"not null"`
	PostID  string    `json:"post_id" gorm:"type:varchar(36);not null;uniqueIndex:ux_history_post_revision"`

	// 复合唯一键，同一帖子的同一修订号只能出现一次
	// ux_history_post_revision = (post_id, revision)
	Revision int `json:"revision" gorm:"not null;uniqueIndex:ux_history_post_revision"`
}

func (PostVersion) TableName() string { return "posts_history" }
