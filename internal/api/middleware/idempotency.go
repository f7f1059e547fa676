package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/makers/loans-api/internal/core/ports"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplayed       = "Idempotent-Replayed"

	maxIdempotencyKeyLen = 255
	storeTimeout         = 2 * time.Second
)

type respRecorder struct {
	w    http.ResponseWriter
	buf  *bytes.Buffer
	code int
}

func (r *respRecorder) Header() http.Header { return r.w.Header() }
func (r *respRecorder) Write(b []byte) (int, error) {
	r.buf.Write(b)
	return r.w.Write(b)
}
func (r *respRecorder) WriteHeader(statusCode int) { r.code = statusCode; r.w.WriteHeader(statusCode) }

// Idempotency replays the recorded response of a request that is retried
// with the same Idempotency-Key. Keys are scoped by method, route and caller.
// Requests without the header pass through, as do all requests when store is
// nil. Server errors are not recorded so the client may retry.
func Idempotency(store ports.IdempotencyStore, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if store == nil {
			return next
		}
		return func(c echo.Context) error {
			req := c.Request()
			idemKey := strings.TrimSpace(req.Header.Get(HeaderIdempotencyKey))
			if idemKey == "" {
				return next(c)
			}
			if len(idemKey) > maxIdempotencyKeyLen {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "Idempotency-Key is too long"})
			}

			var body []byte
			if req.Body != nil {
				body, _ = io.ReadAll(req.Body)
			}
			req.Body = io.NopCloser(bytes.NewReader(body))
			bhash := bodyHash(body)

			caller := "anonymous"
			if id, ok := Identity(c); ok {
				caller = id.UserID.String()
			}
			key := buildKey(req.Method, c.Path(), caller, idemKey)

			ctx, cancel := context.WithTimeout(req.Context(), storeTimeout)
			defer cancel()

			reserved, err := store.Reserve(ctx, key, ports.IdempotentResponse{
				InProgress: true,
				BodySHA256: bhash,
				CreatedAt:  time.Now().UTC(),
			})
			if err != nil {
				log.Error().Err(err).Str("key", key).Msg("idempotency store unavailable")
				return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "idempotency store unavailable"})
			}
			if !reserved {
				return replay(ctx, c, store, key, bhash, log)
			}

			rec := &respRecorder{w: c.Response().Writer, buf: &bytes.Buffer{}, code: http.StatusOK}
			c.Response().Writer = rec
			func() {
				// a panicking handler must not keep the key locked until the lock expires
				defer func() {
					if r := recover(); r != nil {
						release(store, key, log)
						panic(r)
					}
				}()
				if err := next(c); err != nil {
					c.Error(err)
				}
			}()

			if rec.code >= http.StatusInternalServerError {
				release(store, key, log)
				return nil
			}

			// the request context may already be done once the response is written
			saveCtx, saveCancel := context.WithTimeout(context.Background(), storeTimeout)
			defer saveCancel()
			if err := store.Complete(saveCtx, key, ports.IdempotentResponse{
				Code:        rec.code,
				ContentType: rec.Header().Get(echo.HeaderContentType),
				Body:        rec.buf.Bytes(),
				BodySHA256:  bhash,
				CreatedAt:   time.Now().UTC(),
			}); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("idempotency save failed")
			}
			return nil
		}
	}
}

func release(store ports.IdempotencyStore, key string, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := store.Release(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("idempotency release failed")
	}
}

func replay(ctx context.Context, c echo.Context, store ports.IdempotencyStore, key, bhash string, log zerolog.Logger) error {
	cur, err := store.Load(ctx, key)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("idempotency load failed")
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "idempotency store unavailable"})
	}
	if cur == nil {
		// expired between Reserve and Load
		return c.JSON(http.StatusConflict, map[string]string{"error": "request is already in progress"})
	}
	if cur.BodySHA256 != bhash {
		return c.JSON(http.StatusConflict, map[string]string{"error": "Idempotency-Key reused with different body"})
	}
	if cur.InProgress {
		return c.JSON(http.StatusConflict, map[string]string{"error": "request is already in progress"})
	}

	contentType := cur.ContentType
	if contentType == "" {
		contentType = echo.MIMEApplicationJSONCharsetUTF8
	}
	c.Response().Header().Set(HeaderReplayed, "true")
	return c.Blob(cur.Code, contentType, cur.Body)
}

func buildKey(method, route, caller, idemKey string) string {
	return "idemp:" + strings.ToLower(method) + ":" + route + ":" + caller + ":" + idemKey
}

func bodyHash(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
