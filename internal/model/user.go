package model

import "time"

// User 用户；HashPassword 只在凭证存储内部使用，不参与序列化
type User struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Username     string    `json:"username" gorm:"type:varchar(64);uniqueIndex:ux_users_username;not null"`
	Email        string    `json:"email" gorm:"type:varchar(255);uniqueIndex:ux_users_email;not null"`
	Name         string    `json:"name" gorm:"type:varchar(128);not null"`
	HashPassword string    `json:"-" gorm:"column:hash_password;type:text;not null"`
	CreatedAt    time.Time `json:"-"`
}

func (User) TableName() string { return "users" }

// UserPublic 关系列表中展示的公开字段
type UserPublic struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}
