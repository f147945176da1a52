package resultcache

import (
	"context"
	"sync"
	"time"

	"github.com/fanfiq/fanfiq/pkg/config"
	"github.com/pkg/errors"
	"github.com/redis/rueidis"
)

// reconnectInterval is how long a failed dial is remembered before the next
// operation tries again.
const reconnectInterval = 10 * time.Second

// RedisStore is a Store backed by Redis through rueidis. The client is dialed
// on first use, so an unreachable server fails individual operations instead
// of startup.
type RedisStore struct {
	option rueidis.ClientOption

	mu        sync.Mutex
	client    rueidis.Client
	dialErr   error
	nextDial  time.Time
	newClient func(rueidis.ClientOption) (rueidis.Client, error)
}

// NewRedisStore prepares a store for the servers listed in cfg.RedisAddrs
// without connecting to them.
func NewRedisStore(cfg *config.Config) (*RedisStore, error) {
	if len(cfg.RedisAddrs) == 0 {
		return nil, errors.New("redis_addrs is required")
	}

	return &RedisStore{
		option: rueidis.ClientOption{
			InitAddress:  cfg.RedisAddrs,
			Username:     cfg.RedisUsername,
			Password:     cfg.RedisPassword,
			SelectDB:     cfg.RedisDB,
			DisableCache: true,
		},
		newClient: rueidis.NewClient,
	}, nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client rueidis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) conn() (rueidis.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return s.client, nil
	}
	if s.newClient == nil {
		return nil, errors.New("redis store is closed")
	}
	if time.Now().Before(s.nextDial) {
		return nil, s.dialErr
	}

	client, err := s.newClient(s.option)
	if err != nil {
		s.dialErr = errors.Wrap(err, "failed to connect to redis")
		s.nextDial = time.Now().Add(reconnectInterval)
		return nil, s.dialErr
	}
	s.client = client
	return client, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	client, err := s.conn()
	if err != nil {
		return nil, err
	}
	cmd := client.B().Get().Key(key).Build()
	data, err := client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, ErrMiss
		}
		return nil, errors.Wrap(err, "redis get")
	}
	return data, nil
}

func (s *RedisStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	client, err := s.conn()
	if err != nil {
		return err
	}
	cmd := client.B().Set().Key(key).Value(rueidis.BinaryString(value)).Ex(ttl).Build()
	if err := client.Do(ctx, cmd).Error(); err != nil {
		return errors.Wrap(err, "redis set")
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	client, err := s.conn()
	if err != nil {
		return err
	}
	cmd := client.B().Ping().Build()
	if err := client.Do(ctx, cmd).Error(); err != nil {
		return errors.Wrap(err, "redis ping")
	}
	return nil
}

func (s *RedisStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		s.client.Close()
		s.client = nil
	}
	s.newClient = nil
}
