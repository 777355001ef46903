package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/d60-Lab/postr/config"
	"github.com/d60-Lab/postr/internal/cache"
	"github.com/d60-Lab/postr/internal/model"
	"github.com/d60-Lab/postr/internal/repository"
	"github.com/d60-Lab/postr/internal/service"
	"github.com/d60-Lab/postr/pkg/database"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	xs := append([]time.Duration(nil), vs...)
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	k := int(math.Ceil(p*float64(len(xs)))) - 1
	if k < 0 {
		k = 0
	}
	if k >= len(xs) {
		k = len(xs) - 1
	}
	return xs[k]
}

func avg(vs []time.Duration) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range vs {
		sum += d
	}
	return sum / time.Duration(len(vs))
}

func envInt(name string, def int) int {
	if s := os.Getenv(name); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			return v
		}
	}
	return def
}

func main() {
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))
	if err := database.Migrate(db); err != nil {
		panic(err)
	}
	ctx := context.Background()

	authors := envInt("AUTHORS", 200) // users the reader follows
	posts := envInt("POSTS", 20)      // posts per author
	reads := envInt("READS", 200)     // feed reads to sample
	editors := envInt("EDITORS", 8)   // concurrent editors of one post
	edits := envInt("EDITS", 25)      // edits per editor

	// 清空表，保证每次运行可复现（仅用于本地压测）
	for _, tbl := range []string{"likes", "follows", "posts_history", "posts", "users"} {
		_ = db.Exec("DELETE FROM " + tbl).Error
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		_ = rdb.FlushDB(ctx).Err()
	}
	relCache := cache.NewRelationCache(rdb, cfg.Redis.Prefix, cfg.Redis.TTL)

	followRepo := repository.NewFollowRepository(db)
	postRepo := repository.NewPostRepository(db)
	feedSvc := service.NewFeedService(followRepo, postRepo, relCache)

	// seed: 1 reader + AUTHORS authors, each with POSTS posts
	reader := model.User{ID: uuid.NewString(), Username: "reader", Email: "reader@example.com", Name: "reader", HashPassword: "x"}
	if err := db.Create(&reader).Error; err != nil {
		panic(err)
	}
	users := make([]model.User, authors)
	for i := range users {
		id := uuid.NewString()
		users[i] = model.User{ID: id, Username: "a" + id[:8], Email: id[:8] + "@example.com", Name: "author", HashPassword: "x"}
	}
	if err := db.CreateInBatches(&users, 500).Error; err != nil {
		panic(err)
	}
	base := time.Now().UTC().Add(-time.Duration(authors*posts) * time.Second)
	rows := make([]model.Post, 0, authors*posts)
	for i, u := range users {
		for j := 0; j < posts; j++ {
			at := base.Add(time.Duration(i*posts+j) * time.Second)
			rows = append(rows, model.Post{ID: uuid.NewString(), Content: fmt.Sprintf("post %d of %s", j, u.Username), UserID: u.ID, CreatedAt: at, LastUpdatedAt: at})
		}
		if _, err := followRepo.Create(ctx, reader.ID, u.ID); err != nil {
			panic(err)
		}
	}
	if err := db.CreateInBatches(&rows, 1000).Error; err != nil {
		panic(err)
	}

	// feed reads
	lat := make([]time.Duration, 0, reads)
	var size int
	for i := 0; i < reads; i++ {
		st := time.Now()
		feed, err := feedSvc.Feed(ctx, reader.ID)
		if err != nil {
			panic(err)
		}
		lat = append(lat, time.Since(st))
		size = len(feed)
	}
	fmt.Printf("AUTHORS=%d POSTS=%d READS=%d cache=%v\n", authors, posts, reads, relCache.Enabled())
	fmt.Printf("Feed read: items=%d avg=%v p95=%v p99=%v\n", size, avg(lat), pct(lat, 0.95), pct(lat, 0.99))
	if relCache.Enabled() {
		st := relCache.Stats()
		fmt.Printf("Relation cache: hits=%d misses=%d\n", st.Hits, st.Misses)
	}

	// 并发编辑同一帖子：修订号必须连续且不重复
	target := rows[0]
	var wg sync.WaitGroup
	var mu sync.Mutex
	editLat := make([]time.Duration, 0, editors*edits)
	failed := 0
	for w := 0; w < editors; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for k := 0; k < edits; k++ {
				st := time.Now()
				_, err := postRepo.ArchiveAndUpdate(ctx, target.ID, target.UserID, fmt.Sprintf("edit %d/%d", w, k), time.Now().UTC())
				mu.Lock()
				if err != nil {
					failed++
				} else {
					editLat = append(editLat, time.Since(st))
				}
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	history := must(postRepo.History(ctx, target.ID))
	gaps := 0
	for i, v := range history {
		if v.Revision != i+1 {
			gaps++
		}
	}
	fmt.Printf("Edits: ok=%d failed=%d avg=%v p95=%v history=%d revision_gaps=%d\n",
		len(editLat), failed, avg(editLat), pct(editLat, 0.95), len(history), gaps)
}
