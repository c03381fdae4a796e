package cms

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/MelnikovEI/fish-shop/core/logger"
	"log/slog"
)

// expiryMargin keeps a token from being handed out right before it expires
// mid-request. A token is refreshed once it has less than this left to live.
const expiryMargin = 100 * time.Second

// TokenStore persists the shared bearer token slot between refreshes.
type TokenStore interface {
	Load(ctx context.Context) (token string, expiresAt time.Time, err error)
	Save(ctx context.Context, token string, expiresAt time.Time) error
}

// TokenSource caches the commerce backend bearer token, refreshing it
// before expiry via a client-credentials exchange.
type TokenSource struct {
	store      TokenStore
	conf       clientcredentials.Config
	httpClient *http.Client
	now        func() time.Time

	// mu keeps a single refresh in flight per process; concurrent
	// processes sharing the store may still refresh redundantly.
	mu sync.Mutex
}

// NewTokenSource builds a TokenSource for the given backend credentials.
// httpClient may be nil; the oauth2 default is used then.
func NewTokenSource(store TokenStore, baseURL, clientID, clientSecret string, httpClient *http.Client) *TokenSource {
	return &TokenSource{
		store: store,
		conf: clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     baseURL + "/oauth/access_token",
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		httpClient: httpClient,
		now:        time.Now,
	}
}

// Token returns a bearer token valid for at least the expiry margin,
// performing at most one exchange per process when the cached one is stale.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	if tok, ok := s.cached(ctx); ok {
		return tok, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another caller may have refreshed while we waited for the lock.
	if tok, ok := s.cached(ctx); ok {
		return tok, nil
	}

	if s.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	}

	start := s.now()
	tok, err := s.conf.Token(ctx)
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) {
			logger.CMS.Error("token exchange rejected",
				slog.String("event", "cms.token"),
				slog.Int("http_code", rerr.Response.StatusCode),
			)
			return "", &AuthError{Err: err}
		}
		return "", &BackendError{Err: fmt.Errorf("token exchange: %w", err)}
	}

	if err := s.store.Save(ctx, tok.AccessToken, tok.Expiry); err != nil {
		return "", fmt.Errorf("save token: %w", err)
	}

	logger.CMS.Debug("token refreshed",
		slog.String("event", "cms.token"),
		slog.String("cache", "refresh"),
		slog.Time("expires_at", tok.Expiry),
		slog.Duration("duration", logger.Took(start)),
	)
	return tok.AccessToken, nil
}

func (s *TokenSource) cached(ctx context.Context) (string, bool) {
	tok, expiresAt, err := s.store.Load(ctx)
	if err != nil || tok == "" {
		return "", false
	}
	if expiresAt.After(s.now().Add(expiryMargin)) {
		return tok, true
	}
	return "", false
}

const (
	redisTokenKey   = "access_token"
	redisExpiresKey = "expires"
)

// RedisTokenStore keeps the token slot in Redis so restarts and sibling
// processes reuse the same credential.
type RedisTokenStore struct {
	rdb *redis.Client
}

// NewRedisTokenStore wraps a Redis client as a TokenStore.
func NewRedisTokenStore(rdb *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{rdb: rdb}
}

// Load reads the token and its absolute expiry from Redis.
func (s *RedisTokenStore) Load(ctx context.Context) (string, time.Time, error) {
	expires, err := s.rdb.Get(ctx, redisExpiresKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", time.Time{}, nil
	}
	if err != nil {
		return "", time.Time{}, fmt.Errorf("load expires: %w", err)
	}
	unix, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("parse expires %q: %w", expires, err)
	}

	tok, err := s.rdb.Get(ctx, redisTokenKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", time.Time{}, nil
	}
	if err != nil {
		return "", time.Time{}, fmt.Errorf("load token: %w", err)
	}
	return tok, time.Unix(unix, 0), nil
}

// Save writes the token and its expiry to Redis.
func (s *RedisTokenStore) Save(ctx context.Context, token string, expiresAt time.Time) error {
	if err := s.rdb.Set(ctx, redisExpiresKey, strconv.FormatInt(expiresAt.Unix(), 10), 0).Err(); err != nil {
		return fmt.Errorf("save expires: %w", err)
	}
	if err := s.rdb.Set(ctx, redisTokenKey, token, 0).Err(); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// MemoryTokenStore is an in-process TokenStore for tests and development.
type MemoryTokenStore struct {
	mu        sync.RWMutex
	token     string
	expiresAt time.Time
}

// NewMemoryTokenStore constructs an empty in-memory token slot.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

// Load returns the stored token and expiry.
func (s *MemoryTokenStore) Load(context.Context) (string, time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.expiresAt, nil
}

// Save replaces the stored token and expiry.
func (s *MemoryTokenStore) Save(_ context.Context, token string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.expiresAt = expiresAt
	return nil
}
