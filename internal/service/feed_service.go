package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/d60-Lab/postr/internal/cache"
	"github.com/d60-Lab/postr/internal/model"
	"github.com/d60-Lab/postr/internal/repository"
	"github.com/d60-Lab/postr/pkg/logger"
)

// FeedService 拉模式 feed：先取关注列表，再按作者集合聚合帖子
type FeedService interface {
	Feed(ctx context.Context, userID string) ([]*model.Post, error)
}

type feedService struct {
	follows repository.FollowRepository
	posts   repository.PostRepository
	cache   *cache.RelationCache
}

func NewFeedService(follows repository.FollowRepository, posts repository.PostRepository, relCache *cache.RelationCache) FeedService {
	return &feedService{follows: follows, posts: posts, cache: relCache}
}

// Feed 返回关注对象的未删除帖子，created_at 倒序；未关注任何人时不查询帖子表
func (s *feedService) Feed(ctx context.Context, userID string) ([]*model.Post, error) {
	ids, err := s.cache.FollowedIDs(ctx, userID, func(ctx context.Context) ([]string, error) {
		return s.follows.ListFollowedIDs(ctx, userID)
	})
	if err != nil {
		return nil, mapRepoError(err, "list followed ids")
	}
	if len(ids) == 0 {
		return make([]*model.Post, 0), nil
	}

	posts, err := s.posts.ListByAuthors(ctx, ids)
	if err != nil {
		logger.Error("compose feed", zap.String("user_id", userID), zap.Int("authors", len(ids)), zap.Error(err))
		return nil, mapRepoError(err, "list feed posts")
	}
	return nonNilPosts(posts), nil
}
