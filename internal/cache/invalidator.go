package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/postr/pkg/logger"
)

type invalidateJob struct {
	followingID string
	followedID  string
	attempt     int
}

// Invalidator 本地异步重试队列：同步失效失败（redis 抖动）时把失效请求排队重放，
// 直到成功或达到最大次数；放弃的条目最迟在 TTL 到期后自然过期。
type Invalidator struct {
	cache       *RelationCache
	ch          chan invalidateJob
	maxAttempts int
	backoff     time.Duration
}

func NewInvalidator(c *RelationCache, queueSize, maxAttempts int, backoff time.Duration) *Invalidator {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	return &Invalidator{cache: c, ch: make(chan invalidateJob, queueSize), maxAttempts: maxAttempts, backoff: backoff}
}

// Start 启动 workers 个消费协程，返回的 stop 函数会等待队列排空（受 ctx 约束）
func (r *Invalidator) Start(workers int) func(context.Context) error {
	if workers <= 0 {
		workers = 2
	}
	stopCh := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case job := <-r.ch:
					r.run(job, stopCh)
				case <-stopCh:
					return
				}
			}
		}()
	}
	return func(ctx context.Context) error {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for len(r.ch) > 0 {
			select {
			case <-ctx.Done():
				close(stopCh)
				wg.Wait()
				return ctx.Err()
			case <-ticker.C:
			}
		}
		close(stopCh)
		wg.Wait()
		return nil
	}
}

func (r *Invalidator) run(job invalidateJob, stopCh <-chan struct{}) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err := r.cache.Invalidate(ctx, job.followingID, job.followedID)
	cancel()
	if err == nil {
		return
	}

	job.attempt++
	if job.attempt >= r.maxAttempts {
		logger.Error("relation cache: give up invalidation",
			zap.String("following_id", job.followingID),
			zap.String("followed_id", job.followedID),
			zap.Int("attempts", job.attempt),
			zap.Error(err))
		return
	}
	select {
	case <-time.After(r.backoff * time.Duration(job.attempt)):
	case <-stopCh:
		logger.Warn("relation cache: drop invalidation on shutdown",
			zap.String("following_id", job.followingID),
			zap.String("followed_id", job.followedID),
			zap.Int("attempts", job.attempt),
			zap.Error(err))
		return
	}
	r.push(job)
}

// Enqueue 非阻塞入队；队列满时丢弃并告警
func (r *Invalidator) Enqueue(followingID, followedID string) {
	r.push(invalidateJob{followingID: followingID, followedID: followedID})
}

func (r *Invalidator) push(job invalidateJob) {
	select {
	case r.ch <- job:
	default:
		logger.Warn("invalidation queue full, drop",
			zap.String("following_id", job.followingID),
			zap.String("followed_id", job.followedID))
	}
}

// QueueLen 当前排队数（采样值）
func (r *Invalidator) QueueLen() int { return len(r.ch) }
