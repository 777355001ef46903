package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/postr/internal/model"
)

type LikeRepository interface {
	Create(ctx context.Context, userID, postID string) (bool, error)
	Delete(ctx context.Context, userID, postID string) (bool, error)
	Count(ctx context.Context, userID, postID string) (int64, error)
	ListLikers(ctx context.Context, postID string) ([]*model.UserPublic, error)
}

type likeRepository struct{ db *gorm.DB }

func NewLikeRepository(db *gorm.DB) LikeRepository { return &likeRepository{db: db} }

func (r *likeRepository) Create(ctx context.Context, userID, postID string) (bool, error) {
	l := &model.Like{ID: uuid.New().String(), UserID: userID, PostID: postID}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(l)
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *likeRepository) Delete(ctx context.Context, userID, postID string) (bool, error) {
	res := r.db.WithContext(ctx).Where("user_id = ? AND post_id = ?", userID, postID).Delete(&model.Like{})
	return res.RowsAffected > 0, res.Error
}

func (r *likeRepository) Count(ctx context.Context, userID, postID string) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.Like{}).Where("user_id = ? AND post_id = ?", userID, postID).Count(&cnt).Error
	return cnt, err
}

func (r *likeRepository) ListLikers(ctx context.Context, postID string) ([]*model.UserPublic, error) {
	res := make([]*model.UserPublic, 0)
	err := r.db.WithContext(ctx).
		Table("users").
		Select("users.id", "users.username", "users.name").
		Joins("JOIN likes ON likes.user_id = users.id").
		Where("likes.post_id = ?", postID).
		Order("likes.created_at DESC").
		Scan(&res).Error
	return res, err
}
