package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"snowtricks-server/internal/cache"
	"snowtricks-server/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

type IPRateLimiter struct {
	ips sync.Map
	mu  sync.Mutex
	r   rate.Limit
	b   int
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	i := &IPRateLimiter{
		r: r,
		b: b,
	}

	go i.cleanupLoop()

	return i
}

func (i *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	if v, ok := i.ips.Load(ip); ok {
		c := v.(*client)
		c.lastSeen = time.Now()
		return c.limiter
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	// Double check
	if v, ok := i.ips.Load(ip); ok {
		c := v.(*client)
		c.lastSeen = time.Now()
		return c.limiter
	}

	limiter := rate.NewLimiter(i.r, i.b)
	i.ips.Store(ip, &client{limiter: limiter, lastSeen: time.Now()})

	return limiter
}

func (i *IPRateLimiter) cleanupLoop() {
	for {
		time.Sleep(1 * time.Minute)
		i.ips.Range(func(key, value interface{}) bool {
			client := value.(*client)
			if time.Since(client.lastSeen) > 3*time.Minute {
				i.ips.Delete(key)
			}
			return true
		})
	}
}

// allowByRedis 固定一秒窗口计数，多实例部署时共享限额。
// 窗口内允许 max(burst, ceil(rps)) 次请求。
func allowByRedis(ctx context.Context, rdb *redis.Client, scope, ip string, rps float64, burst int) (bool, error) {
	if rdb == nil || rps <= 0 || burst <= 0 {
		return true, nil
	}
	limit := int64(math.Max(float64(burst), math.Ceil(rps)))
	window := time.Now().Unix()
	key := cache.Key("rate", scope, ip, strconv.FormatInt(window, 10))

	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	pipe := rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, 2*time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return incr.Val() <= limit, nil
}

// RateLimitMiddleware 按 IP 限流。启用 Redis 时使用共享计数，Redis 出错时回退进程内令牌桶。
// cfg 每次请求读取，配置热更新后立即生效。
func RateLimitMiddleware(scope string, cfg func() config.RateLimitConfig) gin.HandlerFunc {
	var limiter *IPRateLimiter
	var once sync.Once

	return func(c *gin.Context) {
		current := cfg()
		if !current.Enabled {
			c.Next()
			return
		}

		ip := c.ClientIP()
		if rdb := cache.Client(); rdb != nil {
			allowed, err := allowByRedis(c.Request.Context(), rdb, scope, ip, current.UploadRPS, current.UploadBurst)
			if err == nil {
				if !allowed {
					c.JSON(http.StatusTooManyRequests, gin.H{"error": "请求过于频繁，请稍后再试"})
					c.Abort()
					return
				}
				c.Next()
				return
			}
		}

		once.Do(func() {
			limiter = NewIPRateLimiter(rate.Limit(current.UploadRPS), current.UploadBurst)
		})
		l := limiter.getLimiter(ip)

		// 动态更新 limit 和 burst (如果配置发生变更)
		if l.Limit() != rate.Limit(current.UploadRPS) {
			l.SetLimit(rate.Limit(current.UploadRPS))
		}
		if l.Burst() != current.UploadBurst {
			l.SetBurst(current.UploadBurst)
		}

		if !l.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "请求过于频繁，请稍后再试"})
			c.Abort()
			return
		}
		c.Next()
	}
}
