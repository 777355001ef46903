package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/postr/internal/model"
)

type FollowRepository interface {
	// Create 返回是否新建了关注边；重复关注为 no-op
	Create(ctx context.Context, followingID, followedID string) (bool, error)
	Delete(ctx context.Context, followingID, followedID string) (bool, error)
	Exists(ctx context.Context, followingID, followedID string) (bool, error)
	Count(ctx context.Context, followingID, followedID string) (int64, error)
	ListFollowedIDs(ctx context.Context, followingID string) ([]string, error)
	ListFollowing(ctx context.Context, userID string) ([]*model.UserPublic, error)
	ListFollowers(ctx context.Context, userID string) ([]*model.UserPublic, error)
}

type followRepository struct {
	db *gorm.DB
}

func NewFollowRepository(db *gorm.DB) FollowRepository { return &followRepository{db: db} }

func (r *followRepository) Create(ctx context.Context, followingID, followedID string) (bool, error) {
	f := &model.Follow{ID: uuid.New().String(), FollowingID: followingID, FollowedID: followedID}
	// 幂等：重复关注不报错
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(f)
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *followRepository) Delete(ctx context.Context, followingID, followedID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("following_id = ? AND followed_id = ?", followingID, followedID).
		Delete(&model.Follow{})
	return res.RowsAffected > 0, res.Error
}

func (r *followRepository) Exists(ctx context.Context, followingID, followedID string) (bool, error) {
	cnt, err := r.Count(ctx, followingID, followedID)
	return cnt > 0, err
}

func (r *followRepository) Count(ctx context.Context, followingID, followedID string) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).
		Model(&model.Follow{}).
		Where("following_id = ? AND followed_id = ?", followingID, followedID).
		Count(&cnt).Error
	return cnt, err
}

func (r *followRepository) ListFollowedIDs(ctx context.Context, followingID string) ([]string, error) {
	ids := make([]string, 0)
	err := r.db.WithContext(ctx).
		Model(&model.Follow{}).
		Where("following_id = ?", followingID).
		Pluck("followed_id", &ids).Error
	return ids, err
}

func (r *followRepository) ListFollowing(ctx context.Context, userID string) ([]*model.UserPublic, error) {
	res := make([]*model.UserPublic, 0)
	err := r.db.WithContext(ctx).
		Table("users").
		Select("users.id", "users.username", "users.name").
		Joins("JOIN follows ON follows.followed_id = users.id").
		Where("follows.following_id = ?", userID).
		Order("follows.created_at DESC").
		Scan(&res).Error
	return res, err
}

func (r *followRepository) ListFollowers(ctx context.Context, userID string) ([]*model.UserPublic, error) {
	res := make([]*model.UserPublic, 0)
	err := r.db.WithContext(ctx).
		Table("users").
		Select("users.id", "users.username", "users.name").
		Joins("JOIN follows ON follows.following_id = users.id").
		Where("follows.followed_id = ?", userID).
		Order("follows.created_at DESC").
		Scan(&res).Error
	return res, err
}
