package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/d60-Lab/postr/internal/model"
	"github.com/d60-Lab/postr/internal/repository"
	"github.com/d60-Lab/postr/pkg/logger"
)

// PostService 帖子读写与版本管理
//
// 修改、删除、历史查询都要求 actor 是作者本人；
// 非作者看到的结果与帖子不存在一致（ErrNotFound）。
type PostService interface {
	Create(ctx context.Context, authorID, content string) (bool, error)
	Get(ctx context.Context, postID, actorID string) (*model.Post, error)
	ListOwn(ctx context.Context, actorID string) ([]*model.Post, error)
	// Update 先归档旧内容再写入新内容，两步在同一事务里完成
	Update(ctx context.Context, postID, actorID, content string) (*model.Post, error)
	Delete(ctx context.Context, postID, actorID string) (bool, error)
	History(ctx context.Context, postID, actorID string) ([]*model.PostVersion, error)
	Likers(ctx context.Context, postID string) ([]*model.UserPublic, error)
}

type postService struct {
	posts repository.PostRepository
	likes repository.LikeRepository
	now   func() time.Time
}

func NewPostService(posts repository.PostRepository, likes repository.LikeRepository) PostService {
	return &postService{posts: posts, likes: likes, now: time.Now}
}

// NewPostServiceWithClock 注入时钟，测试中用来固定 created_at 的先后
func NewPostServiceWithClock(posts repository.PostRepository, likes repository.LikeRepository, now func() time.Time) PostService {
	return &postService{posts: posts, likes: likes, now: now}
}

func (s *postService) Create(ctx context.Context, authorID, content string) (bool, error) {
	now := s.now().UTC()
	p := &model.Post{
		ID:            uuid.New().String(),
		Content:       content,
		UserID:        authorID,
		CreatedAt:     now,
		LastUpdatedAt: now,
	}
	if err := s.posts.Create(ctx, p); err != nil {
		logger.Error("create post", zap.String("user_id", authorID), zap.Error(err))
		return false, mapRepoError(err, "create post")
	}
	logger.Debug("post created", zap.String("post_id", p.ID), zap.String("user_id", authorID))
	return true, nil
}

func (s *postService) Get(ctx context.Context, postID, actorID string) (*model.Post, error) {
	p, err := s.posts.FindVisible(ctx, postID, actorID)
	if err != nil {
		return nil, mapRepoError(err, "get post")
	}
	return p, nil
}

func (s *postService) ListOwn(ctx context.Context, actorID string) ([]*model.Post, error) {
	posts, err := s.posts.ListByUser(ctx, actorID)
	if err != nil {
		return nil, mapRepoError(err, "list own posts")
	}
	return nonNilPosts(posts), nil
}

func (s *postService) Update(ctx context.Context, postID, actorID, content string) (*model.Post, error) {
	p, err := s.posts.ArchiveAndUpdate(ctx, postID, actorID, content, s.now().UTC())
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			logger.Error("archive and update post", zap.String("post_id", postID), zap.Error(err))
		}
		return nil, mapRepoError(err, "update post")
	}
	return p, nil
}

func (s *postService) Delete(ctx context.Context, postID, actorID string) (bool, error) {
	ok, err := s.posts.SoftDelete(ctx, postID, actorID, s.now().UTC())
	if err != nil {
		return false, mapRepoError(err, "delete post")
	}
	if !ok {
		return false, ErrNotFound
	}
	return true, nil
}

func (s *postService) History(ctx context.Context, postID, actorID string) ([]*model.PostVersion, error) {
	if _, err := s.posts.FindVisible(ctx, postID, actorID); err != nil {
		return nil, mapRepoError(err, "find post for history")
	}
	versions, err := s.posts.History(ctx, postID)
	if err != nil {
		return nil, mapRepoError(err, "list post history")
	}
	if versions == nil {
		versions = make([]*model.PostVersion, 0)
	}
	return versions, nil
}

func (s *postService) Likers(ctx context.Context, postID string) ([]*model.UserPublic, error) {
	users, err := s.likes.ListLikers(ctx, postID)
	if err != nil {
		return nil, mapRepoError(err, "list likers")
	}
	return nonNilUsers(users), nil
}

func nonNilPosts(posts []*model.Post) []*model.Post {
	if posts == nil {
		return make([]*model.Post, 0)
	}
	return posts
}

func nonNilUsers(users []*model.UserPublic) []*model.UserPublic {
	if users == nil {
		return make([]*model.UserPublic, 0)
	}
	return users
}
