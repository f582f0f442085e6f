package common

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	redis "github.com/redis/go-redis/v9"
)

const (
	// IdempotencyHeader is the request header carrying the client's replay key.
	IdempotencyHeader = "Idempotency-Key"
	// IdempotentReplayHeader marks a response served from the idempotency store.
	IdempotentReplayHeader = "Idempotent-Replayed"

	maxReplayBody = 256 << 10
)

// Idem guards a route with the Idempotency-Key header. A successful response is
// stored and replayed for repeated keys. A key whose request is still running or
// ended with a client error answers 409. A key whose request failed with a server
// error is released so the client can retry it.
type Idem struct {
	R   *redis.Client
	TTL time.Duration
}

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"contentType,omitempty"`
	Body        []byte `json:"body"`
}

func idemKey(r *http.Request, key string) string {
	return "idem:" + Sha256Hex(r.Method+" "+r.URL.Path+" "+key)
}

// Middleware implements chi middleware.
func (i Idem) Middleware(next http.Handler) http.Handler {
	if i.R == nil {
		return next
	}
	ttl := i.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(IdempotencyHeader)
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		key := idemKey(r, header)
		ok, err := i.R.SetNX(r.Context(), key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
		if err != nil {
			JSONError(w, http.StatusInternalServerError, "INTERNAL", "idempotency store error", nil)
			return
		}
		if !ok {
			i.replay(w, r, key)
			return
		}

		var body bytes.Buffer
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		ww.Tee(&body)
		completed := false
		defer func() {
			// the request context may already be cancelled
			ctx := context.WithoutCancel(r.Context())
			status := ww.Status()
			switch {
			case !completed || status >= http.StatusInternalServerError:
				_ = i.R.Del(ctx, key).Err()
			case status < http.StatusMultipleChoices && body.Len() <= maxReplayBody:
				payload, err := json.Marshal(storedResponse{
					Status:      status,
					ContentType: ww.Header().Get("Content-Type"),
					Body:        body.Bytes(),
				})
				if err == nil {
					_ = i.R.Set(ctx, key, payload, ttl).Err()
				}
			}
		}()
		next.ServeHTTP(ww, r)
		completed = true
	})
}

func (i Idem) replay(w http.ResponseWriter, r *http.Request, key string) {
	raw, err := i.R.Get(r.Context(), key).Bytes()
	var stored storedResponse
	if err != nil || json.Unmarshal(raw, &stored) != nil || stored.Status == 0 {
		JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "duplicate request", nil)
		return
	}
	if stored.ContentType != "" {
		w.Header().Set("Content-Type", stored.ContentType)
	}
	w.Header().Set(IdempotentReplayHeader, "true")
	w.WriteHeader(stored.Status)
	_, _ = w.Write(stored.Body)
}
