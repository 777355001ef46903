package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/d60-Lab/postr/internal/api/handler"
	"github.com/d60-Lab/postr/internal/auth"
	"github.com/d60-Lab/postr/internal/cache"
	"github.com/d60-Lab/postr/internal/model"
	"github.com/d60-Lab/postr/internal/repository"
	"github.com/d60-Lab/postr/internal/service"
	"github.com/d60-Lab/postr/internal/testutil"
	"github.com/d60-Lab/postr/pkg/response"
)

type testServer struct {
	t      *testing.T
	router *gin.Engine
	clock  *testutil.Clock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := testutil.NewDB(t)
	tokens, err := auth.NewTokenManager("router-test-secret", time.Hour)
	require.NoError(t, err)

	users := repository.NewUserRepository(db)
	posts := repository.NewPostRepository(db)
	follows := repository.NewFollowRepository(db)
	likes := repository.NewLikeRepository(db)
	relCache := cache.NewRelationCache(nil, "", 0)
	clock := testutil.NewClock(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	h := handler.NewHandler(
		service.NewUserService(users, auth.NewPasswordHasher(bcrypt.MinCost), tokens),
		service.NewPostServiceWithClock(posts, likes, func() time.Time { return clock.Advance(time.Second) }),
		service.NewRelationshipService(users, posts, follows, likes, relCache, nil),
		service.NewFeedService(follows, posts, relCache),
		func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	)
	r := NewRouter(h, tokens, RouterOptions{Mode: gin.TestMode, StoreDeadline: 5 * time.Second})
	return &testServer{t: t, router: r, clock: clock}
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) decode(w *httptest.ResponseRecorder, out interface{}) {
	s.t.Helper()
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}

// signup registers and logs in, returning (id, token).
func (s *testServer) signup(username, password string) (string, string) {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/user", "", gin.H{
		"username": username, "email": username + "@x.com", "name": username, "password": password,
	})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(s.t, "true", w.Body.String())

	w = s.do(http.MethodPost, "/api/user/login", "", gin.H{"username": username, "password": password})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	var res service.LoginResult
	s.decode(w, &res)
	require.NotEmpty(s.t, res.Token)
	return res.ID, res.Token
}

func (s *testServer) createPost(token, content string) *model.Post {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/post", token, gin.H{"content": content})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/api/post", token, nil)
	require.Equal(s.t, http.StatusOK, w.Code)
	var res struct {
		Posts []*model.Post `json:"posts"`
	}
	s.decode(w, &res)
	require.NotEmpty(s.t, res.Posts)
	return res.Posts[0]
}

func TestRouter_FollowFeedScenario(t *testing.T) {
	s := newTestServer(t)
	aliceID, aliceToken := s.signup("alice", "secret1")
	_, bobToken := s.signup("bob", "secret2")

	w := s.do(http.MethodGet, "/api/actions/follow/"+aliceID, bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "true", w.Body.String())

	s.createPost(aliceToken, "hello")

	w = s.do(http.MethodGet, "/api/feed", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var feed struct {
		Posts []map[string]interface{} `json:"posts"`
	}
	s.decode(w, &feed)
	require.Len(t, feed.Posts, 1)
	assert.Equal(t, "hello", feed.Posts[0]["content"])
	assert.Equal(t, false, feed.Posts[0]["edited"])
	assert.Equal(t, aliceID, feed.Posts[0]["user_id"])
	assert.NotContains(t, feed.Posts[0], "deleted")

	w = s.do(http.MethodGet, "/api/user/follows", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var follows struct {
		Users []model.UserPublic `json:"users"`
	}
	s.decode(w, &follows)
	require.Len(t, follows.Users, 1)
	assert.Equal(t, "alice", follows.Users[0].Username)

	w = s.do(http.MethodGet, "/api/user/followers", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	s.decode(w, &follows)
	require.Len(t, follows.Users, 1)
	assert.Equal(t, "bob", follows.Users[0].Username)

	w = s.do(http.MethodGet, "/api/feed", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"posts":[]}`, w.Body.String())
}

func TestRouter_EditHistoryScenario(t *testing.T) {
	s := newTestServer(t)
	_, aliceToken := s.signup("alice", "secret1")
	p := s.createPost(aliceToken, "v1")

	w := s.do(http.MethodPut, "/api/post/"+p.ID, aliceToken, gin.H{"content": "v2"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated model.Post
	s.decode(w, &updated)
	assert.Equal(t, "v2", updated.Content)
	assert.True(t, updated.Edited)

	w = s.do(http.MethodGet, "/api/post/"+p.ID+"/edits", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history struct {
		PostVersions []model.PostVersion `json:"post_versions"`
	}
	s.decode(w, &history)
	require.Len(t, history.PostVersions, 1)
	assert.Equal(t, "v1", history.PostVersions[0].Content)
	assert.Equal(t, p.ID, history.PostVersions[0].PostID)

	w = s.do(http.MethodGet, "/api/post/"+p.ID, aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var current model.Post
	s.decode(w, &current)
	assert.Equal(t, "v2", current.Content)
	assert.True(t, current.Edited)
}

func TestRouter_OtherUsersCannotTouchPost(t *testing.T) {
	s := newTestServer(t)
	_, aliceToken := s.signup("alice", "secret1")
	_, bobToken := s.signup("bob", "secret2")
	p := s.createPost(aliceToken, "mine")

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPut, "/api/post/"+p.ID, bobToken, gin.H{"content": "x"}).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, "/api/post/"+p.ID, bobToken, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/post/"+p.ID+"/edits", bobToken, nil).Code)

	w := s.do(http.MethodDelete, "/api/post/"+p.ID, aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "true", w.Body.String())
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/post/"+p.ID, aliceToken, nil).Code)
}

func TestRouter_LikesAreIdempotent(t *testing.T) {
	s := newTestServer(t)
	_, aliceToken := s.signup("alice", "secret1")
	bobID, bobToken := s.signup("bob", "secret2")
	p := s.createPost(aliceToken, "like me")

	w := s.do(http.MethodGet, "/api/actions/like/"+p.ID, bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "true", w.Body.String())
	w = s.do(http.MethodGet, "/api/actions/like/"+p.ID, bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "false", w.Body.String())

	w = s.do(http.MethodGet, "/api/post/"+p.ID+"/likes", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var likers struct {
		Users []model.UserPublic `json:"users"`
	}
	s.decode(w, &likers)
	require.Len(t, likers.Users, 1)
	assert.Equal(t, bobID, likers.Users[0].ID)

	w = s.do(http.MethodGet, "/api/user/likes", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var liked struct {
		Posts []model.Post `json:"posts"`
	}
	s.decode(w, &liked)
	require.Len(t, liked.Posts, 1)

	w = s.do(http.MethodGet, "/api/actions/unlike/"+p.ID, bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "true", w.Body.String())
}

func TestRouter_UserEndpoints(t *testing.T) {
	s := newTestServer(t)
	aliceID, aliceToken := s.signup("alice", "secret1")

	w := s.do(http.MethodGet, "/api/user", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"users":[{"id":"`+aliceID+`","username":"alice","email":"alice@x.com","name":"alice"}]}`, w.Body.String())

	w = s.do(http.MethodGet, "/api/user/"+aliceID, aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"`+aliceID+`","username":"alice","email":"alice@x.com","name":"alice"}`, w.Body.String())

	w = s.do(http.MethodPost, "/api/user/login", "", gin.H{"email": "alice@x.com", "password": "secret1"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/api/user/login", "", gin.H{"username": "alice", "password": "wrong"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodPost, "/api/user", "", gin.H{
		"username": "alice", "email": "again@x.com", "name": "A", "password": "pw",
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRouter_ErrorStatuses(t *testing.T) {
	s := newTestServer(t)
	aliceID, aliceToken := s.signup("alice", "secret1")

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		body   interface{}
		status int
	}{
		{"no token", http.MethodGet, "/api/feed", "", nil, http.StatusUnauthorized},
		{"bad token", http.MethodGet, "/api/feed", "garbage", nil, http.StatusUnauthorized},
		{"unknown route", http.MethodGet, "/api/nope", "", nil, http.StatusNotFound},
		{"non-uuid id", http.MethodGet, "/api/post/123", aliceToken, nil, http.StatusBadRequest},
		{"missing content", http.MethodPost, "/api/post", aliceToken, gin.H{}, http.StatusBadRequest},
		{"bad email", http.MethodPost, "/api/user", "", gin.H{"username": "x", "email": "nope", "name": "x", "password": "p"}, http.StatusBadRequest},
		{"follow self", http.MethodGet, "/api/actions/follow/" + aliceID, aliceToken, nil, http.StatusBadRequest},
		{"follow unknown", http.MethodGet, "/api/actions/follow/00000000-0000-0000-0000-000000000000", aliceToken, nil, http.StatusNotFound},
		{"like unknown", http.MethodGet, "/api/actions/like/00000000-0000-0000-0000-000000000000", aliceToken, nil, http.StatusNotFound},
		{"unknown user", http.MethodGet, "/api/user/00000000-0000-0000-0000-000000000000", aliceToken, nil, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := s.do(tc.method, tc.path, tc.token, tc.body)
			assert.Equal(t, tc.status, w.Code, w.Body.String())

			var body response.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.status, body.Status)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestRouter_Healthz(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
