package api

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/insightdelivered/txn-verifier/internal/log"
)

const RequestIDKey = "X-Request-ID"

// requestID reuses the caller's X-Request-ID or assigns a new ULID.
func requestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(RequestIDKey)
		if id == "" {
			id = newULID(time.Now())
		}

		c.Locals(RequestIDKey, id)
		c.Set(RequestIDKey, id)

		return c.Next()
	}
}

func newULID(t time.Time) string {
	id, err := ulid.New(ulid.Timestamp(t), ulid.Monotonic(rand.Reader, 0))
	if err != nil {
		return "unknown"
	}
	return id.String()
}

func getRequestID(c *fiber.Ctx) string {
	id, ok := c.Locals(RequestIDKey).(string)
	if !ok || id == "" {
		return "unknown"
	}
	return id
}

func requestLogger(logger *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		fields := log.Fields{
			"request_id": getRequestID(c),
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
			"ip":         c.IP(),
		}

		entry := logger.WithFields(fields)
		switch {
		case status >= 500:
			entry.Error("Server error")
		case status >= 400:
			entry.Warn("Client error")
		default:
			entry.Info("Success")
		}

		return err
	}
}

// recoverer turns a handler panic into a 500 response instead of killing the server.
func recoverer(logger *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				traceID := log.ErrorWithTraceID(logger, log.Fields{
					"request_id": getRequestID(c),
					"path":       c.Path(),
					"panic":      fmt.Sprint(rec),
				}, "recovered from panic")
				err = writeError(c, fiber.StatusInternalServerError, ErrorBody{
					Type:    "INTERNAL_ERROR",
					Message: "internal server error",
					TraceID: traceID,
				})
			}
		}()
		return c.Next()
	}
}

// limiterIdleTTL is how long a client's bucket survives without requests.
const limiterIdleTTL = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter keeps one token bucket per client IP. Buckets idle for longer
// than idleTTL are swept on access, at most once per idleTTL.
type rateLimiter struct {
	bucket    map[string]*visitor
	rate      rate.Limit
	burstSize int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
	mutex     sync.Mutex
	log       *logrus.Logger
}

func newRateLimiter(logger *logrus.Logger, reqRate float64, burstSize int) *rateLimiter {
	return &rateLimiter{
		bucket:    make(map[string]*visitor),
		rate:      rate.Limit(reqRate),
		burstSize: burstSize,
		idleTTL:   limiterIdleTTL,
		lastSweep: time.Now(),
		now:       time.Now,
		log:       logger,
	}
}

func (r *rateLimiter) limiterFor(ip string) *rate.Limiter {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	now := r.now()
	if now.Sub(r.lastSweep) >= r.idleTTL {
		r.sweep(now)
	}

	v, ok := r.bucket[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(r.rate, r.burstSize)}
		r.bucket[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

// sweep drops idle buckets. The caller holds the mutex.
func (r *rateLimiter) sweep(now time.Time) {
	for ip, v := range r.bucket {
		if now.Sub(v.lastSeen) >= r.idleTTL {
			delete(r.bucket, ip)
		}
	}
	r.lastSweep = now
}

func (r *rateLimiter) handle(c *fiber.Ctx) error {
	ip := c.IP()
	if !r.limiterFor(ip).Allow() {
		r.log.WithFields(log.Fields{
			"request_id": getRequestID(c),
			"ip":         ip,
		}).Warn("too many requests")
		return writeError(c, fiber.StatusTooManyRequests, ErrorBody{
			Type:    "TOO_MANY_REQUESTS",
			Message: "too many requests",
		})
	}
	return c.Next()
}
