package middleware

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

// Logger logs only slow or failed requests to dest. A zerolog.Logger works
// as dest.
func Logger(dest io.Writer, slow time.Duration) fiber.Handler {
	return logger.New(logger.Config{
		Format:     "${status} | ${latency} | ${method} ${path}\n",
		TimeFormat: "15:04:05",
		Output: &filteredWriter{
			dest:             dest,
			slowThreshold:    slow,
			errorStatusFloor: fiber.StatusBadRequest,
		},
	})
}

// filteredWriter drops lines for fast, successful requests. Lines look like
//
//	"200 | 1.23ms | GET /path\n"
type filteredWriter struct {
	dest             io.Writer
	slowThreshold    time.Duration
	errorStatusFloor int
}

func (w *filteredWriter) Write(p []byte) (int, error) {
	parts := strings.Split(strings.TrimSpace(string(p)), " | ")
	if len(parts) < 3 {
		return w.dest.Write(p)
	}

	if status, err := strconv.Atoi(strings.TrimSpace(parts[0])); err == nil && status >= w.errorStatusFloor {
		return w.dest.Write(p)
	}
	if latency, err := time.ParseDuration(strings.TrimSpace(parts[1])); err == nil && latency >= w.slowThreshold {
		return w.dest.Write(p)
	}
	return len(p), nil
}
