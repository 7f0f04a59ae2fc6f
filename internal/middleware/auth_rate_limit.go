package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// AuthRateLimit limits authentication attempts per wallet address, email or IP
// using Redis if available.
func AuthRateLimit(cache *redis.Client, maxPerMin int) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 5
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next() // no-op without Redis
		}
		var req struct {
			WalletAddress string `json:"wallet_address"`
			Email         string `json:"email"`
		}
		_ = c.BodyParser(&req)
		subject := strings.TrimSpace(strings.ToLower(req.WalletAddress))
		if subject == "" {
			subject = strings.TrimSpace(strings.ToLower(req.Email))
		}
		if subject == "" {
			subject = c.IP()
		}
		key := "rl:auth:" + subject
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err == nil && cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if err != nil {
			return c.Next() // fail-open on cache errors
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "too many attempts, try again later")
		}
		return c.Next()
	}
}
