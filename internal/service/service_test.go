package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/d60-Lab/postr/internal/auth"
	"github.com/d60-Lab/postr/internal/cache"
	"github.com/d60-Lab/postr/internal/repository"
	"github.com/d60-Lab/postr/internal/testutil"
)

const testSecret = "service-test-secret"

type fixture struct {
	users repository.UserRepository
	posts repository.PostRepository

	userSvc UserService
	postSvc PostService
	relSvc  RelationshipService
	feedSvc FeedService

	tokens *auth.TokenManager
	clock  *testutil.Clock
	cache  *cache.RelationCache
	redis  *miniredis.Miniredis
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	relCache := cache.NewRelationCache(client, "svc:", time.Minute)

	tokens, err := auth.NewTokenManager(testSecret, 0)
	require.NoError(t, err)

	users := repository.NewUserRepository(db)
	posts := repository.NewPostRepository(db)
	follows := repository.NewFollowRepository(db)
	likes := repository.NewLikeRepository(db)
	clock := testutil.NewClock(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC))

	return &fixture{
		users:   users,
		posts:   posts,
		userSvc: NewUserService(users, auth.NewPasswordHasher(bcrypt.MinCost), tokens),
		postSvc: NewPostServiceWithClock(posts, likes, clock.Now),
		relSvc:  NewRelationshipService(users, posts, follows, likes, relCache, nil),
		feedSvc: NewFeedService(follows, posts, relCache),
		tokens:  tokens,
		clock:   clock,
		cache:   relCache,
		redis:   mr,
	}
}

// register creates a user and returns its id.
func (f *fixture) register(t *testing.T, username string) string {
	t.Helper()
	ok, err := f.userSvc.Register(context.Background(), RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Name:     username,
		Password: "pw-" + username,
	})
	require.NoError(t, err)
	require.True(t, ok)

	res, err := f.userSvc.Login(context.Background(), username, "", "pw-"+username)
	require.NoError(t, err)
	return res.ID
}

// post creates a post one minute after the previous one and returns its id.
func (f *fixture) post(t *testing.T, authorID, content string) string {
	t.Helper()
	f.clock.Advance(time.Minute)
	ok, err := f.postSvc.Create(context.Background(), authorID, content)
	require.NoError(t, err)
	require.True(t, ok)

	own, err := f.postSvc.ListOwn(context.Background(), authorID)
	require.NoError(t, err)
	require.NotEmpty(t, own)
	return own[0].ID
}
