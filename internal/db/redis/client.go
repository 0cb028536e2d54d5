package redis

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/questsearch/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Config holds connection parameters for a Redis store.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int
}

// Store implements db.Store via rueidis for Redis 8+ (or Redis Stack) with the query engine.
// The connection is dialed on first use, and a failed dial is retried by the next command,
// so a store created while the server is down recovers once it comes up.
type Store struct {
	opt  rueidis.ClientOption
	dial func(rueidis.ClientOption) (rueidis.Client, error)

	mu     sync.Mutex
	client rueidis.Client
}

// NewStore creates a Redis store. It only validates cfg; nothing is dialed until the first command.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}

	return &Store{
		opt: rueidis.ClientOption{
			InitAddress:  cfg.Addrs,
			Username:     cfg.Username,
			Password:     cfg.Password,
			SelectDB:     cfg.DB,
			DisableCache: true,
			AlwaysRESP2:  true, // FT.SEARCH result parsing expects RESP2 array format
		},
		dial: rueidis.NewClient,
	}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	c, err := s.conn()
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	if err := c.Do(ctx, c.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client if one was dialed.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		s.client.Close()
		s.client = nil
	}
}

// conn returns the shared client, dialing it if needed.
func (s *Store) conn() (rueidis.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}
	c, err := s.dial(s.opt)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", strings.Join(s.opt.InitAddress, ","), err)
	}
	s.client = c
	return c, nil
}

// isRedisErr checks if err is a Redis server error containing substr (case-insensitive).
func isRedisErr(err error, substr string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(re.Error()), strings.ToLower(substr))
}
