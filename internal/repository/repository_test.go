package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/postr/internal/model"
	"github.com/d60-Lab/postr/internal/testutil"
)

func seedUser(t *testing.T, db *gorm.DB, username string) *model.User {
	t.Helper()
	u := &model.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        username + "@example.com",
		Name:         username,
		HashPassword: "digest",
	}
	require.NoError(t, NewUserRepository(db).Create(context.Background(), u))
	return u
}

func seedPost(t *testing.T, db *gorm.DB, authorID, content string, at time.Time) *model.Post {
	t.Helper()
	p := &model.Post{ID: uuid.NewString(), Content: content, UserID: authorID, CreatedAt: at, LastUpdatedAt: at}
	require.NoError(t, NewPostRepository(db).Create(context.Background(), p))
	return p
}

func TestTranslate(t *testing.T) {
	assert.Nil(t, translate(nil))
	assert.ErrorIs(t, translate(gorm.ErrRecordNotFound), ErrNotFound)
	assert.ErrorIs(t, translate(gorm.ErrDuplicatedKey), ErrDuplicateEntry)
	assert.ErrorIs(t, translate(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})), ErrDuplicateEntry)
	assert.ErrorIs(t, translate(errors.New("UNIQUE constraint failed: users.email")), ErrDuplicateEntry)

	other := errors.New("connection refused")
	assert.Equal(t, other, translate(other))
}

func TestUserRepository_UniqueAndLookup(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	alice := seedUser(t, db, "alice")

	dup := &model.User{ID: uuid.NewString(), Username: "alice", Email: "other@example.com", Name: "x", HashPassword: "d"}
	assert.ErrorIs(t, repo.Create(ctx, dup), ErrDuplicateEntry)

	byName, err := repo.FindByLogin(ctx, "alice", "")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, byName.ID)

	byEmail, err := repo.FindByLogin(ctx, "", "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, byEmail.ID)

	_, err = repo.FindByLogin(ctx, "", "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.FindByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)

	ok, err := repo.Exists(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPostRepository_ArchiveAndUpdate(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()
	alice := seedUser(t, db, "alice")
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p := seedPost(t, db, alice.ID, "C1", t0)

	t1 := t0.Add(time.Minute)
	updated, err := repo.ArchiveAndUpdate(ctx, p.ID, alice.ID, "C2", t1)
	require.NoError(t, err)
	assert.Equal(t, "C2", updated.Content)
	assert.True(t, updated.Edited)
	assert.True(t, updated.LastUpdatedAt.Equal(t1))
	assert.True(t, updated.CreatedAt.Equal(t0))

	history, err := repo.History(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "C1", history[0].Content)
	assert.Equal(t, 1, history[0].Revision)
	assert.True(t, history[0].Version.Equal(t1))

	_, err = repo.ArchiveAndUpdate(ctx, p.ID, uuid.NewString(), "C3", t1)
	assert.ErrorIs(t, err, ErrNotFound)

	history, err = repo.History(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1, "failed update must not archive")
}

// editConcurrently runs editors*edits updates of one post from parallel goroutines and
// checks the archived revisions come out as 1..n with the first snapshot holding v0.
func editConcurrently(t *testing.T, db *gorm.DB, editors, edits int) {
	t.Helper()
	repo := NewPostRepository(db)
	ctx := context.Background()
	alice := seedUser(t, db, "alice")
	p := seedPost(t, db, alice.ID, "v0", time.Now().UTC())

	var wg sync.WaitGroup
	errs := make(chan error, editors*edits)
	for w := 0; w < editors; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for k := 0; k < edits; k++ {
				_, err := repo.ArchiveAndUpdate(ctx, p.ID, alice.ID, fmt.Sprintf("v%d-%d", w, k), time.Now().UTC())
				errs <- err
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	history, err := repo.History(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, history, editors*edits)
	for i, v := range history {
		assert.Equal(t, i+1, v.Revision)
	}
	assert.Equal(t, "v0", history[0].Content)
}

// sqlite ignores row locks and the test pool has one connection, so edits are serialized
// by the pool; this covers revision numbering, not lock contention.
func TestPostRepository_SerializedEditsKeepRevisionsDense(t *testing.T) {
	editConcurrently(t, testutil.NewDB(t), 4, 5)
}

// Exercises SELECT ... FOR UPDATE and the (post_id, revision) unique index under real
// contention. Needs POSTR_TEST_PG_DSN.
func TestPostRepository_ConcurrentEditsKeepRevisionsDensePostgres(t *testing.T) {
	editConcurrently(t, testutil.NewPostgresDB(t), 8, 10)
}

func TestPostRepository_SoftDeleteAndVisibility(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a1 := seedPost(t, db, alice.ID, "a1", t0)
	b1 := seedPost(t, db, bob.ID, "b1", t0.Add(time.Minute))
	a2 := seedPost(t, db, alice.ID, "a2", t0.Add(2*time.Minute))

	ok, err := repo.SoftDelete(ctx, a1.ID, bob.ID, t0)
	require.NoError(t, err)
	assert.False(t, ok, "only the owner can delete")

	ok, err = repo.SoftDelete(ctx, a1.ID, alice.ID, t0)
	require.NoError(t, err)
	assert.True(t, ok)

	exists, err := repo.Exists(ctx, a1.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	feed, err := repo.ListByAuthors(ctx, []string{alice.ID, bob.ID})
	require.NoError(t, err)
	require.Len(t, feed, 2)
	assert.Equal(t, a2.ID, feed[0].ID)
	assert.Equal(t, b1.ID, feed[1].ID)

	empty, err := repo.ListByAuthors(ctx, nil)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestFollowRepository_Idempotent(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	created, err := repo.Create(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Create(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, created)

	cnt, err := repo.Count(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, cnt)

	ids, err := repo.ListFollowedIDs(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{bob.ID}, ids)

	followers, err := repo.ListFollowers(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, &model.UserPublic{ID: alice.ID, Username: "alice", Name: "alice"}, followers[0])

	removed, err := repo.Delete(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = repo.Delete(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestLikeRepository_Idempotent(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewLikeRepository(db)
	ctx := context.Background()
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	p := seedPost(t, db, alice.ID, "hi", time.Now().UTC())

	for i, want := range []bool{true, false} {
		created, err := repo.Create(ctx, bob.ID, p.ID)
		require.NoError(t, err)
		assert.Equal(t, want, created, "attempt %d", i)
	}
	cnt, err := repo.Count(ctx, bob.ID, p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, cnt)

	liked, err := NewPostRepository(db).ListLikedBy(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, liked, 1)
	assert.Equal(t, p.ID, liked[0].ID)
}
