package model

import "time"

// Post 帖子；Deleted 为软删除标记，内容与历史版本均保留
type Post struct {
	ID            string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Content       string    `json:"content" gorm:"type:text;not null"`
	UserID        string    `json:"user_id" gorm:"type:varchar(36);index:idx_post_user_created;not null"`
	Edited        bool      `json:"edited" gorm:"not null;default:false"`
	CreatedAt     time.Time `json:"created_at" gorm:"index:idx_post_user_created;not null"`
	LastUpdatedAt time.Time `json:"last_updated_at" gorm:"not null"`
	Deleted       bool      `json:"-" gorm:"index;not null;default:false"`
}

func (Post) TableName() string { return "posts" }
