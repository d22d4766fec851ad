package ratelimit

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"
)

// Global is a fixed-window limit applied to every API request. Store
// failures fail open like the sliding limiter.
type Global struct {
	limiter *limiter.Limiter
	logger  zerolog.Logger
}

// NewGlobal parses rate in the "<limit>-<period>" format, for example "600-M".
func NewGlobal(store limiter.Store, rate string, logger zerolog.Logger) (*Global, error) {
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, err
	}
	return &Global{limiter: limiter.New(store, parsed), logger: logger}, nil
}

// Middleware implements the http.Handler middleware interface.
func (g *Global) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g == nil || g.limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		state, err := g.limiter.Get(r.Context(), "global:"+CallerKey(r))
		if err != nil {
			g.logger.Warn().Err(err).Str("path", r.URL.Path).Msg("global rate limiter unavailable")
			next.ServeHTTP(w, r)
			return
		}
		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.FormatInt(state.Limit, 10))
		headers.Set("X-RateLimit-Remaining", strconv.FormatInt(state.Remaining, 10))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(state.Reset, 10))
		if state.Reached {
			tooManyRequests(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
