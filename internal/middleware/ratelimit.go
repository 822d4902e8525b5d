package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// UpgradeLimit bounds how often one client may open a relay connection.
type UpgradeLimit struct {
	Max    int
	Window time.Duration
	// Key names the client being counted; the remote IP when nil.
	Key func(*fiber.Ctx) string
}

// Throttle counts websocket upgrade attempts only. Once a client is over the
// limit it gets 429 with Retry-After set to the window in seconds.
func Throttle(l UpgradeLimit) fiber.Handler {
	if l.Max <= 0 {
		l.Max = 60
	}
	if l.Window <= 0 {
		l.Window = time.Minute
	}
	key := l.Key
	if key == nil {
		key = func(c *fiber.Ctx) string { return c.IP() }
	}
	retryAfter := int((l.Window + time.Second - 1) / time.Second)

	return limiter.New(limiter.Config{
		Next: func(c *fiber.Ctx) bool {
			return !websocket.IsWebSocketUpgrade(c)
		},
		Max:          l.Max,
		Expiration:   l.Window,
		KeyGenerator: key,
		LimitReached: func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "too many connection attempts",
				"retry_after": retryAfter,
			})
		},
	})
}
