package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/d60-Lab/postr/internal/cache"
	"github.com/d60-Lab/postr/internal/model"
	"github.com/d60-Lab/postr/internal/repository"
	"github.com/d60-Lab/postr/pkg/logger"
)

// RelationshipService 关注与点赞；返回值表示这次调用是否真的改变了关系
type RelationshipService interface {
	Follow(ctx context.Context, actorID, targetID string) (bool, error)
	Unfollow(ctx context.Context, actorID, targetID string) (bool, error)
	ListFollowing(ctx context.Context, userID string) ([]*model.UserPublic, error)
	ListFollowers(ctx context.Context, userID string) ([]*model.UserPublic, error)
	Like(ctx context.Context, actorID, postID string) (bool, error)
	Unlike(ctx context.Context, actorID, postID string) (bool, error)
	LikedPosts(ctx context.Context, userID string) ([]*model.Post, error)
}

type relationshipService struct {
	users   repository.UserRepository
	posts   repository.PostRepository
	follows repository.FollowRepository
	likes   repository.LikeRepository
	cache   *cache.RelationCache
	retry   *cache.Invalidator
}

// NewRelationshipService cache 可为 nil，此时所有读取直接走数据库；
// retry 非 nil 时，同步失效失败的请求交给它异步重放
func NewRelationshipService(
	users repository.UserRepository,
	posts repository.PostRepository,
	follows repository.FollowRepository,
	likes repository.LikeRepository,
	relCache *cache.RelationCache,
	retry *cache.Invalidator,
) RelationshipService {
	return &relationshipService{users: users, posts: posts, follows: follows, likes: likes, cache: relCache, retry: retry}
}

func (s *relationshipService) invalidate(ctx context.Context, actorID, targetID string) {
	if err := s.cache.Invalidate(ctx, actorID, targetID); err != nil && s.retry != nil {
		s.retry.Enqueue(actorID, targetID)
	}
}

func (s *relationshipService) Follow(ctx context.Context, actorID, targetID string) (bool, error) {
	if actorID == targetID {
		return false, ErrFollowSelf
	}
	exists, err := s.users.Exists(ctx, targetID)
	if err != nil {
		return false, mapRepoError(err, "check follow target")
	}
	if !exists {
		return false, ErrNotFound
	}

	created, err := s.follows.Create(ctx, actorID, targetID)
	if err != nil {
		logger.Error("create follow", zap.String("following_id", actorID), zap.String("followed_id", targetID), zap.Error(err))
		return false, mapRepoError(err, "create follow")
	}
	if created {
		s.invalidate(ctx, actorID, targetID)
	}
	return created, nil
}

func (s *relationshipService) Unfollow(ctx context.Context, actorID, targetID string) (bool, error) {
	removed, err := s.follows.Delete(ctx, actorID, targetID)
	if err != nil {
		return false, mapRepoError(err, "delete follow")
	}
	if removed {
		s.invalidate(ctx, actorID, targetID)
	}
	return removed, nil
}

func (s *relationshipService) ListFollowing(ctx context.Context, userID string) ([]*model.UserPublic, error) {
	users, err := s.cache.Following(ctx, userID, func(ctx context.Context) ([]*model.UserPublic, error) {
		return s.follows.ListFollowing(ctx, userID)
	})
	if err != nil {
		return nil, mapRepoError(err, "list following")
	}
	return nonNilUsers(users), nil
}

func (s *relationshipService) ListFollowers(ctx context.Context, userID string) ([]*model.UserPublic, error) {
	users, err := s.cache.Followers(ctx, userID, func(ctx context.Context) ([]*model.UserPublic, error) {
		return s.follows.ListFollowers(ctx, userID)
	})
	if err != nil {
		return nil, mapRepoError(err, "list followers")
	}
	return nonNilUsers(users), nil
}

func (s *relationshipService) Like(ctx context.Context, actorID, postID string) (bool, error) {
	exists, err := s.posts.Exists(ctx, postID)
	if err != nil {
		return false, mapRepoError(err, "check like target")
	}
	if !exists {
		return false, ErrNotFound
	}
	created, err := s.likes.Create(ctx, actorID, postID)
	if err != nil {
		logger.Error("create like", zap.String("user_id", actorID), zap.String("post_id", postID), zap.Error(err))
		return false, mapRepoError(err, "create like")
	}
	return created, nil
}

func (s *relationshipService) Unlike(ctx context.Context, actorID, postID string) (bool, error) {
	removed, err := s.likes.Delete(ctx, actorID, postID)
	if err != nil {
		return false, mapRepoError(err, "delete like")
	}
	return removed, nil
}

func (s *relationshipService) LikedPosts(ctx context.Context, userID string) ([]*model.Post, error) {
	posts, err := s.posts.ListLikedBy(ctx, userID)
	if err != nil {
		return nil, mapRepoError(err, "list liked posts")
	}
	return nonNilPosts(posts), nil
}
