package common

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	idemPending      = "pending"
	idemReplayHeader = "Idempotent-Replayed"
)

// Idem replays the stored response of a request carrying a previously seen
// Idempotency-Key. Keys are scoped to the caller, method and path. A request
// arriving while the first one is still running gets 409.
type Idem struct {
	R       redis.Cmdable
	TTL     time.Duration
	LockTTL time.Duration
}

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (c *captureWriter) WriteHeader(status int) {
	if c.status == 0 {
		c.status = status
	}
	c.ResponseWriter.WriteHeader(status)
}

func (c *captureWriter) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.buf.Write(b)
	return c.ResponseWriter.Write(b)
}

func (i Idem) key(r *http.Request, header string) string {
	caller, ok := UserID(r.Context())
	if !ok {
		caller = "ip:" + ClientIP(r)
	}
	sum := sha256.Sum256([]byte(caller + "\n" + r.Method + "\n" + r.URL.Path + "\n" + header))
	return "idem:" + hex.EncodeToString(sum[:])
}

// Middleware enforces idempotency semantics for write endpoints. Redis
// failures let the request through untouched.
func (i Idem) Middleware(next http.Handler) http.Handler {
	ttl := i.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	lockTTL := i.LockTTL
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Idempotency-Key")
		if header == "" || i.R == nil {
			next.ServeHTTP(w, r)
			return
		}
		if len(header) > 255 {
			JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "Idempotency-Key too long", nil)
			return
		}
		ctx := r.Context()
		logger := zerolog.Ctx(ctx)
		key := i.key(r, header)

		acquired, err := i.R.SetNX(ctx, key, idemPending, lockTTL).Result()
		if err != nil {
			logger.Warn().Err(err).Msg("idempotency store unavailable")
			next.ServeHTTP(w, r)
			return
		}
		if !acquired {
			i.replay(ctx, w, key)
			return
		}

		rec := &captureWriter{ResponseWriter: w}
		defer func() {
			// a panicking or failing handler must not pin the key
			if rec.status == 0 || rec.status >= http.StatusInternalServerError {
				_ = i.R.Del(context.Background(), key).Err()
				return
			}
			payload, err := json.Marshal(storedResponse{
				Status:      rec.status,
				ContentType: rec.Header().Get("Content-Type"),
				Body:        rec.buf.Bytes(),
			})
			if err == nil {
				err = i.R.Set(context.Background(), key, payload, ttl).Err()
			}
			if err != nil {
				logger.Warn().Err(err).Msg("idempotency response not stored")
				_ = i.R.Del(context.Background(), key).Err()
			}
		}()
		next.ServeHTTP(rec, r)
	})
}

func (i Idem) replay(ctx context.Context, w http.ResponseWriter, key string) {
	raw, err := i.R.Get(ctx, key).Bytes()
	if err != nil && !errors.Is(err, redis.Nil) {
		JSONError(w, http.StatusInternalServerError, "INTERNAL", "idempotency store error", nil)
		return
	}
	if err != nil || string(raw) == idemPending {
		JSONError(w, http.StatusConflict, "IDEMPOTENCY_IN_PROGRESS", "a request with this Idempotency-Key is still running", nil)
		return
	}
	var stored storedResponse
	if err := json.Unmarshal(raw, &stored); err != nil {
		JSONError(w, http.StatusInternalServerError, "INTERNAL", "idempotency store error", nil)
		return
	}
	if stored.ContentType != "" {
		w.Header().Set("Content-Type", stored.ContentType)
	}
	w.Header().Set(idemReplayHeader, "true")
	w.WriteHeader(stored.Status)
	_, _ = w.Write(stored.Body)
}
