package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/tradeflow-backend/api/responses"
	pkgerrors "github.com/angelmondragon/tradeflow-backend/pkg/errors"
	"github.com/angelmondragon/tradeflow-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/tradeflow-backend/pkg/redis"
)

const (
	IdempotencyHeader = "Idempotency-Key"

	// DefaultIdempotencyTTL covers assignment and directory writes.
	DefaultIdempotencyTTL = 24 * time.Hour
	// OrderCreateIdempotencyTTL keeps order intake keys for a week.
	OrderCreateIdempotencyTTL = 7 * 24 * time.Hour

	// pendingReservation bounds how long a crashed request can hold a key.
	pendingReservation = 2 * time.Minute
)

// replay is what gets stored under an idempotency key. Pending entries mark
// a request that is still running.
type replay struct {
	Pending     bool   `json:"pending,omitempty"`
	Fingerprint string `json:"fingerprint"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Idempotency makes a write route safe to retry. The first request with a
// given Idempotency-Key reserves it, runs, and stores its response for ttl;
// later requests with the same key and body get that response back. Server
// errors release the reservation so the client can retry.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger, ttl time.Duration) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return func(next http.Handler) http.Handler {
		if store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			clientKey := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if clientKey == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, IdempotencyHeader+" header required"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			fingerprint := fingerprintRequest(r, body)
			key := store.IdempotencyKey(idempotencyScope(r), clientKey)

			reserved, err := reserve(r, store, key, fingerprint)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve idempotency key"))
				return
			}
			if !reserved {
				existing, err := load(r, store, key)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotency record"))
					return
				}
				switch {
				case existing == nil:
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "idempotency key expired mid-request; retry"))
				case existing.Fingerprint != fingerprint:
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with a different request"))
				case existing.Pending:
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "a request with this idempotency key is still running"))
				default:
					existing.writeTo(w)
				}
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			status := capture.statusOrOK()
			if status >= http.StatusInternalServerError {
				if err := store.Del(ctx, key); err != nil {
					logg.Error(ctx, "release idempotency key", err)
				}
				return
			}
			done := replay{
				Fingerprint: fingerprint,
				Status:      status,
				ContentType: capture.Header().Get("Content-Type"),
				Body:        capture.body.Bytes(),
			}
			if err := save(r, store, key, done, ttl); err != nil {
				logg.Error(ctx, "store idempotent response", err)
			}
		})
	}
}

// idempotencyScope keeps keys private to the caller and the route they hit.
func idempotencyScope(r *http.Request) string {
	return strings.Join([]string{UserIDFromContext(r.Context()), r.Method, r.URL.Path}, "|")
}

func fingerprintRequest(r *http.Request, body []byte) string {
	h := sha256.New()
	h.Write([]byte(r.Method + " " + r.URL.RequestURI() + "\n"))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

func reserve(r *http.Request, store pkgredis.IdempotencyStore, key, fingerprint string) (bool, error) {
	payload, err := json.Marshal(replay{Pending: true, Fingerprint: fingerprint})
	if err != nil {
		return false, err
	}
	return store.SetNX(r.Context(), key, string(payload), pendingReservation)
}

// save replaces the pending reservation. The Del+SetNX pair is not atomic,
// but only the reserving request ever reaches it.
func save(r *http.Request, store pkgredis.IdempotencyStore, key string, rec replay, ttl time.Duration) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := store.Del(r.Context(), key); err != nil {
		return err
	}
	_, err = store.SetNX(r.Context(), key, string(payload), ttl)
	return err
}

func load(r *http.Request, store pkgredis.IdempotencyStore, key string) (*replay, error) {
	raw, err := store.Get(r.Context(), key)
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec replay
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (rec *replay) writeTo(w http.ResponseWriter) {
	if rec.ContentType != "" {
		w.Header().Set("Content-Type", rec.ContentType)
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(rec.Status)
	_, _ = w.Write(rec.Body)
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *responseCapture) statusOrOK() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}
