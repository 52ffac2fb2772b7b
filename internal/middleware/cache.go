package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/rewear-app/rewear-api/internal/config"
)

// cachedResponse is the Redis value for one cache entry.  Body rides
// through encoding/json as base64.
type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"contentType"`
	Body        []byte `json:"body"`
}

// bodyRecorder tees the response body into a buffer while streaming it to
// the client.  Bodies larger than limit are not worth caching, so the
// buffer is dropped instead of truncated.
type bodyRecorder struct {
	http.ResponseWriter
	status   int
	buf      bytes.Buffer
	overflow bool
	limit    int
}

func (w *bodyRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	if !w.overflow {
		if w.buf.Len()+len(b) > w.limit {
			w.overflow = true
			w.buf.Reset()
		} else {
			w.buf.Write(b)
		}
	}
	return w.ResponseWriter.Write(b)
}

func catalogKey(prefix, path, rawQuery string) string {
	sum := sha1.Sum([]byte(path + "?" + rawQuery))
	return fmt.Sprintf("%s:%x", prefix, sum)
}

// NewCatalogCache caches successful GET responses for anonymous catalog
// browsing.  Requests carrying a session cookie or an Authorization header
// bypass the cache entirely: logged-in users always see live data, and
// nothing user-specific can leak into a shared entry.
func NewCatalogCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Method != http.MethodGet {
				return next(c)
			}
			if _, err := req.Cookie(SessionCookie); err == nil || req.Header.Get("Authorization") != "" {
				return next(c)
			}

			key := catalogKey(cfg.Prefix, req.URL.Path, req.URL.RawQuery)
			if raw, err := rdb.Get(req.Context(), key).Bytes(); err == nil {
				var entry cachedResponse
				if json.Unmarshal(raw, &entry) == nil && entry.Status != 0 {
					h := c.Response().Header()
					if entry.ContentType != "" {
						h.Set(echo.HeaderContentType, entry.ContentType)
					}
					h.Set("X-Cache", "HIT")
					c.Response().WriteHeader(entry.Status)
					_, werr := c.Response().Write(entry.Body)
					return werr
				}
			}

			rec := &bodyRecorder{
				ResponseWriter: c.Response().Writer,
				status:         http.StatusOK,
				limit:          cfg.MaxBodyBytes,
			}
			c.Response().Writer = rec
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}

			if rec.status == http.StatusOK && !rec.overflow {
				entry := cachedResponse{
					Status:      rec.status,
					ContentType: c.Response().Header().Get(echo.HeaderContentType),
					Body:        rec.buf.Bytes(),
				}
				if raw, err := json.Marshal(entry); err == nil {
					// Detached context: the store must not race the
					// request context being cancelled after the
					// response is flushed.
					_ = rdb.SetEx(context.Background(), key, raw, cfg.TTL).Err()
				}
			}
			return nil
		}
	}
}
