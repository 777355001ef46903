package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/postr/internal/model"
)

type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	// FindVisible 返回 ownerID 名下未删除的帖子
	FindVisible(ctx context.Context, id, ownerID string) (*model.Post, error)
	Exists(ctx context.Context, id string) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Post, error)
	// ListByAuthors 按创建时间倒序返回多个作者的帖子（feed 聚合）
	ListByAuthors(ctx context.Context, authorIDs []string) ([]*model.Post, error)
	ListLikedBy(ctx context.Context, userID string) ([]*model.Post, error)
	// ArchiveAndUpdate 在同一事务内先归档当前内容，再写入新内容
	ArchiveAndUpdate(ctx context.Context, id, ownerID, content string, now time.Time) (*model.Post, error)
	SoftDelete(ctx context.Context, id, ownerID string, now time.Time) (bool, error)
	History(ctx context.Context, postID string) ([]*model.PostVersion, error)
}

type postRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepository { return &postRepository{db: db} }

func (r *postRepository) Create(ctx context.Context, post *model.Post) error {
	return translate(r.db.WithContext(ctx).Create(post).Error)
}

func (r *postRepository) FindVisible(ctx context.Context, id, ownerID string) (*model.Post, error) {
	var p model.Post
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND deleted = ?", id, ownerID, false).
		First(&p).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *postRepository) Exists(ctx context.Context, id string) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.Post{}).
		Where("id = ? AND deleted = ?", id, false).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (r *postRepository) ListByUser(ctx context.Context, userID string) ([]*model.Post, error) {
	var res []*model.Post
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND deleted = ?", userID, false).
		Order("created_at DESC").
		Find(&res).Error
	return res, err
}

func (r *postRepository) ListByAuthors(ctx context.Context, authorIDs []string) ([]*model.Post, error) {
	res := make([]*model.Post, 0)
	if len(authorIDs) == 0 {
		return res, nil
	}
	err := r.db.WithContext(ctx).
		Where("user_id IN ? AND deleted = ?", authorIDs, false).
		Order("created_at DESC").
		Find(&res).Error
	return res, err
}

func (r *postRepository) ListLikedBy(ctx context.Context, userID string) ([]*model.Post, error) {
	var res []*model.Post
	err := r.db.WithContext(ctx).
		Select("posts.*").
		Joins("JOIN likes ON likes.post_id = posts.id").
		Where("likes.user_id = ? AND posts.deleted = ?", userID, false).
		Order("likes.created_at DESC").
		Find(&res).Error
	return res, err
}

func (r *postRepository) ArchiveAndUpdate(ctx context.Context, id, ownerID, content string, now time.Time) (*model.Post, error) {
	var updated model.Post
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 行锁：并发修改同一帖子时串行化归档
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND user_id = ? AND deleted = ?", id, ownerID, false).
			First(&updated).Error; err != nil {
			return err
		}

		var last int
		if err := tx.Model(&model.PostVersion{}).
			Select("COALESCE(MAX(revision), 0)").
			Where("post_id = ?", id).
			Row().Scan(&last); err != nil {
			return err
		}

		snapshot := &model.PostVersion{
			ID:       uuid.New().String(),
			Content:  updated.Content,
			Version:  now,
			PostID:   id,
			Revision: last + 1,
		}
		if err := tx.Create(snapshot).Error; err != nil {
			return err
		}

		if err := tx.Model(&model.Post{}).
			Where("id = ?", id).
			Updates(map[string]any{"content": content, "edited": true, "last_updated_at": now}).Error; err != nil {
			return err
		}
		updated.Content = content
		updated.Edited = true
		updated.LastUpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return &updated, nil
}

func (r *postRepository) SoftDelete(ctx context.Context, id, ownerID string, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Post{}).
		Where("id = ? AND user_id = ? AND deleted = ?", id, ownerID, false).
		Updates(map[string]any{"deleted": true, "last_updated_at": now})
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *postRepository) History(ctx context.Context, postID string) ([]*model.PostVersion, error) {
	var res []*model.PostVersion
	err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("revision ASC").
		Find(&res).Error
	return res, err
}
