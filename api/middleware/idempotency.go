package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/buildmart-backend/api/responses"
	pkgerrors "github.com/angelmondragon/buildmart-backend/pkg/errors"
	"github.com/angelmondragon/buildmart-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/buildmart-backend/pkg/redis"
)

const (
	idempotencyHeader = "Idempotency-Key"
	replayedHeader    = "Idempotent-Replayed"
	maxIdempotencyKey = 255

	replayWindow      = 24 * time.Hour
	moneyReplayWindow = 7 * 24 * time.Hour
	// inFlightTTL bounds how long a crashed request can block its key.
	inFlightTTL = 2 * time.Minute
)

// replayRoute marks a write endpoint whose response is replayed for a
// repeated Idempotency-Key. A "{}" segment matches any single path segment.
type replayRoute struct {
	method   string
	template string
	window   time.Duration
}

var replayRoutes = []replayRoute{
	{http.MethodPost, "/api/v1/orders", moneyReplayWindow},
	{http.MethodPost, "/api/v1/orders/{}/payments", moneyReplayWindow},
	{http.MethodPost, "/api/v1/admin/orders/{}/deductions", moneyReplayWindow},
	{http.MethodPost, "/api/v1/admin/settlements/run", moneyReplayWindow},
	{http.MethodPost, "/api/v1/admin/settlements/{}/corrections", moneyReplayWindow},
	{http.MethodPost, "/api/v1/orders/{}/issues", replayWindow},
	{http.MethodPost, "/api/v1/issues/{}/escalate", replayWindow},
	{http.MethodPost, "/api/v1/disputes", replayWindow},
	{http.MethodPost, "/api/v1/disputes/{}/evidence", replayWindow},
}

// storedResponse is what sits under an idempotency key. A pending entry
// holds the key while the first request is still being served.
type storedResponse struct {
	Fingerprint string `json:"fingerprint"`
	Pending     bool   `json:"pending,omitempty"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Idempotency makes the money-moving and record-creating endpoints safe to
// retry. The first request under a key runs; later ones with the same body
// get the recorded response, and ones with a different body are rejected.
// Server errors release the key so the client can try again.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			window, ok := replayWindowFor(r.Method, r.URL.Path)
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if clientKey == "" || len(clientKey) > maxIdempotencyKey {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required (max 255 characters)"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			fingerprint := requestFingerprint(r, body)
			storeKey := store.IdempotencyKey(actorScope(ctx), clientKey)

			pending, _ := json.Marshal(storedResponse{Fingerprint: fingerprint, Pending: true})
			claimed, err := store.SetNX(ctx, storeKey, string(pending), inFlightTTL)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key"))
				return
			}
			if !claimed {
				replayStored(ctx, w, store, storeKey, fingerprint, logg)
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			// The response is already on the wire; bookkeeping must not
			// depend on the client staying connected.
			saveCtx := context.WithoutCancel(ctx)
			if capture.code() >= http.StatusInternalServerError {
				if err := store.Del(saveCtx, storeKey); err != nil {
					logFailure(saveCtx, logg, "release idempotency key", err)
				}
				return
			}
			record, _ := json.Marshal(storedResponse{
				Fingerprint: fingerprint,
				Status:      capture.code(),
				ContentType: capture.Header().Get("Content-Type"),
				Body:        capture.body.Bytes(),
			})
			if err := store.Set(saveCtx, storeKey, string(record), window); err != nil {
				logFailure(saveCtx, logg, "persist idempotency record", err)
			}
		})
	}
}

func replayStored(ctx context.Context, w http.ResponseWriter, store pkgredis.IdempotencyStore, storeKey, fingerprint string, logg *logger.Logger) {
	raw, err := store.Get(ctx, storeKey)
	if errors.Is(err, redis.Nil) {
		// Released by a failed first attempt between our claim and read.
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "idempotent request was released; retry"))
		return
	}
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotency record"))
		return
	}

	var stored storedResponse
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode idempotency record"))
		return
	}
	switch {
	case stored.Fingerprint != fingerprint:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "idempotency key reused with a different request"))
	case stored.Pending:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "a request with this idempotency key is still in progress"))
	default:
		if stored.ContentType != "" {
			w.Header().Set("Content-Type", stored.ContentType)
		}
		w.Header().Set(replayedHeader, "true")
		w.WriteHeader(stored.Status)
		_, _ = w.Write(stored.Body)
	}
}

func replayWindowFor(method, path string) (time.Duration, bool) {
	for _, route := range replayRoutes {
		if route.method == method && matchTemplate(route.template, path) {
			return route.window, true
		}
	}
	return 0, false
}

func matchTemplate(template, path string) bool {
	want := strings.Split(strings.Trim(template, "/"), "/")
	got := strings.Split(strings.Trim(path, "/"), "/")
	if len(want) != len(got) {
		return false
	}
	for i, segment := range want {
		if got[i] == "" || (segment != "{}" && segment != got[i]) {
			return false
		}
	}
	return true
}

// requestFingerprint binds a key to one endpoint and one body so that
// reusing it elsewhere is caught.
func requestFingerprint(r *http.Request, body []byte) string {
	h := sha256.New()
	h.Write([]byte(r.Method + " " + strings.TrimSuffix(r.URL.Path, "/") + "\n"))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

func actorScope(ctx context.Context) string {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return "anonymous"
	}
	return string(actor.Type) + ":" + actor.ID.String()
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

func (c *responseCapture) code() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}

func logFailure(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg != nil {
		logg.Error(ctx, msg, err)
	}
}
