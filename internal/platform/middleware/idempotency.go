package middleware

import (
	"bytes"
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// DefaultIdempotencyTTL is how long a replayable response is kept.
const DefaultIdempotencyTTL = 24 * time.Hour

// IdempotencyKeyHeader names the client-chosen key of a write request.
const IdempotencyKeyHeader = "Idempotency-Key"

// IdempotencyPendingTTL bounds how long a reservation held by an in-flight
// request survives if its process dies before releasing it.
const IdempotencyPendingTTL = 2 * time.Minute

// IdempotencyEntry is a stored response for one idempotency key. A pending
// entry marks a key whose first request is still being handled.
type IdempotencyEntry struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Pending     bool   `json:"pending,omitempty"`
	StatusCode  int    `json:"status_code,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// IdempotencyStore persists responses by key. Implementations must be safe
// for concurrent use.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*IdempotencyEntry, bool, error)
	// Reserve stores pending only if key holds nothing yet and reports
	// whether it did.
	Reserve(ctx context.Context, key string, pending *IdempotencyEntry, ttl time.Duration) (bool, error)
	// Set overwrites key with the final response.
	Set(ctx context.Context, key string, entry *IdempotencyEntry, ttl time.Duration) error
	// Release drops key so the request may be retried.
	Release(ctx context.Context, key string) error
}

// MemoryIdempotencyStore keeps entries in process memory. Expired entries are
// dropped on access and by StartCleanup.
type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	nowFunc func() time.Time
}

type memoryEntry struct {
	entry     IdempotencyEntry
	expiresAt time.Time
}

// NewMemoryIdempotencyStore creates an empty in-memory store.
func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{
		entries: make(map[string]memoryEntry),
		nowFunc: time.Now,
	}
}

// live returns the unexpired entry under key. Callers hold s.mu.
func (s *MemoryIdempotencyStore) live(key string) (memoryEntry, bool) {
	e, ok := s.entries[key]
	if ok && s.nowFunc().After(e.expiresAt) {
		delete(s.entries, key)
		return memoryEntry{}, false
	}
	return e, ok
}

func (s *MemoryIdempotencyStore) Get(_ context.Context, key string) (*IdempotencyEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	if !ok {
		return nil, false, nil
	}
	cp := e.entry
	cp.Body = append([]byte(nil), e.entry.Body...)
	return &cp, true, nil
}

func (s *MemoryIdempotencyStore) Reserve(_ context.Context, key string, pending *IdempotencyEntry, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.live(key); taken {
		return false, nil
	}
	s.entries[key] = memoryEntry{entry: *pending, expiresAt: s.nowFunc().Add(ttl)}
	return true, nil
}

func (s *MemoryIdempotencyStore) Set(_ context.Context, key string, entry *IdempotencyEntry, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *entry
	cp.Body = append([]byte(nil), entry.Body...)
	s.entries[key] = memoryEntry{entry: cp, expiresAt: s.nowFunc().Add(ttl)}
	return nil
}

func (s *MemoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// StartCleanup removes expired entries every interval until ctx is done.
func (s *MemoryIdempotencyStore) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	}()
}

func (s *MemoryIdempotencyStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.nowFunc()
	for k, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, k)
		}
	}
}

// Idempotency replays the stored response of a POST, PUT or PATCH whose
// Idempotency-Key was already seen for the same method and path. The key is
// reserved before the handler runs, so a duplicate arriving while the first
// request is in flight gets 409 instead of running twice. Reusing a key for
// another operation yields 422. Only 2xx responses are stored; any other
// outcome releases the key so the request may be retried. Store failures are
// logged and the request proceeds without replay protection.
func Idempotency(store IdempotencyStore, ttl time.Duration, logger zerolog.Logger) echo.MiddlewareFunc {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			switch req.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch:
			default:
				return next(c)
			}
			key := req.Header.Get(IdempotencyKeyHeader)
			if key == "" {
				return next(c)
			}
			ctx := req.Context()
			path := req.URL.Path

			cached, ok, err := store.Get(ctx, key)
			if err != nil {
				logger.Warn().Err(err).Str("key", key).Msg("idempotency lookup failed")
				return next(c)
			}
			if ok {
				return replay(c, cached)
			}

			reserved, err := store.Reserve(ctx, key, &IdempotencyEntry{Method: req.Method, Path: path, Pending: true}, IdempotencyPendingTTL)
			if err != nil {
				logger.Warn().Err(err).Str("key", key).Msg("idempotency reservation failed")
				return next(c)
			}
			if !reserved {
				if cached, ok, _ := store.Get(ctx, key); ok {
					return replay(c, cached)
				}
				return inFlight()
			}
			// The reservation outlives a cancelled request context.
			storeCtx := context.WithoutCancel(ctx)

			origWriter := c.Response().Writer
			rec := &idempotencyRecorder{
				ResponseWriter: origWriter,
				body:           &bytes.Buffer{},
				statusCode:     http.StatusOK,
			}
			c.Response().Writer = rec
			err = next(c)
			c.Response().Writer = origWriter

			if err != nil || rec.statusCode < 200 || rec.statusCode >= 300 {
				if relErr := store.Release(storeCtx, key); relErr != nil {
					logger.Warn().Err(relErr).Str("key", key).Msg("idempotency release failed")
				}
				if err != nil {
					return err
				}
			} else {
				entry := &IdempotencyEntry{
					Method:      req.Method,
					Path:        path,
					StatusCode:  rec.statusCode,
					ContentType: origWriter.Header().Get(echo.HeaderContentType),
					Body:        rec.body.Bytes(),
				}
				if setErr := store.Set(storeCtx, key, entry, ttl); setErr != nil {
					logger.Warn().Err(setErr).Str("key", key).Msg("idempotency store failed")
				}
			}

			origWriter.WriteHeader(rec.statusCode)
			_, err = origWriter.Write(rec.body.Bytes())
			return err
		}
	}
}

func replay(c echo.Context, cached *IdempotencyEntry) error {
	req := c.Request()
	if cached.Method != req.Method || cached.Path != req.URL.Path {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "idempotency key was already used for a different operation")
	}
	if cached.Pending {
		return inFlight()
	}
	resp := c.Response()
	if cached.ContentType != "" {
		resp.Header().Set(echo.HeaderContentType, cached.ContentType)
	}
	resp.Header().Set("Idempotency-Replayed", "true")
	resp.WriteHeader(cached.StatusCode)
	_, err := resp.Write(cached.Body)
	return err
}

func inFlight() error {
	return echo.NewHTTPError(http.StatusConflict, "a request with this idempotency key is still in progress")
}

// idempotencyRecorder buffers the status and body written by the handler.
// Headers go straight to the underlying writer.
type idempotencyRecorder struct {
	http.ResponseWriter
	body       *bytes.Buffer
	statusCode int
	wroteHead  bool
}

func (r *idempotencyRecorder) WriteHeader(code int) {
	if r.wroteHead {
		return
	}
	r.statusCode = code
	r.wroteHead = true
}

func (r *idempotencyRecorder) Write(b []byte) (int, error) {
	if !r.wroteHead {
		r.WriteHeader(http.StatusOK)
	}
	return r.body.Write(b)
}
