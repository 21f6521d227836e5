package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/threatlens/threatlens-stack/common/httputil"
	"github.com/threatlens/threatlens-stack/common/logging"
	"github.com/threatlens/threatlens-stack/respond/internal/auth"
	"github.com/threatlens/threatlens-stack/respond/internal/metrics"
	"github.com/threatlens/threatlens-stack/respond/internal/ratelimit"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// accessLog logs every request and records the HTTP metrics. The route label
// is the matched ServeMux pattern so ids do not explode label cardinality.
func accessLog(logger *logging.Logger, next *http.ServeMux) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		_, route := next.Handler(r)
		if route == "" {
			route = "unmatched"
		}

		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())

		logger.InfoContext(r.Context(), "http request",
			logging.Method(r.Method),
			logging.Path(r.URL.Path),
			logging.Status(rec.status),
			logging.Duration(elapsed.Milliseconds()),
		)
	})
}

// rateLimit rejects submissions over the caller's budget with 429. It runs
// behind RequireAuth and keys on the authenticated user. A limiter error
// lets the request through.
func rateLimit(limiter ratelimit.RateLimiter, logger *logging.Logger, next http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := auth.UserIDFromContext(r.Context())

		allowed, err := limiter.Allow(r.Context(), key)
		if err != nil {
			logger.WarnContext(r.Context(), "rate limiter unavailable, allowing request", logging.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			httputil.WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many submissions, retry later")
			return
		}

		next.ServeHTTP(w, r)
	})
}
