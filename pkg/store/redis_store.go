package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"bookshelf/pkg/domain"
)

const defaultRedisKeyPrefix = "bookshelf"

var (
	// KEYS[1]=book hash; ARGV=field/value pairs. Returns the merged hash,
	// or nil when the book does not exist.
	updateBookScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return false
end
redis.call("HSET", KEYS[1], unpack(ARGV))
return redis.call("HGETALL", KEYS[1])
`)

	// KEYS[1]=book hash, KEYS[2]=order zset; ARGV[1]=book id.
	deleteBookScript = redis.NewScript(`
if redis.call("DEL", KEYS[1]) == 0 then
  return 0
end
redis.call("ZREM", KEYS[2], ARGV[1])
return 1
`)
)

// RedisStore keeps each book as a hash and tracks insertion order in a sorted set.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore builds a store on an existing client.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultRedisKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

// NewRedisStoreFromURL parses a redis:// url, connects and pings the server.
func NewRedisStoreFromURL(ctx context.Context, rawURL, prefix string) (*RedisStore, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisStore(client, prefix), nil
}

func (s *RedisStore) bookKey(id string) string {
	return s.prefix + ":book:" + id
}

func (s *RedisStore) orderKey() string {
	return s.prefix + ":books"
}

func (s *RedisStore) seqKey() string {
	return s.prefix + ":books:seq"
}

// SaveBook writes the hash and appends the id to the order set atomically.
func (s *RedisStore) SaveBook(ctx context.Context, b domain.Book) error {
	seq, err := s.client.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.bookKey(b.ID), bookHashFields(b))
		pipe.ZAdd(ctx, s.orderKey(), redis.Z{Score: float64(seq), Member: b.ID})
		return nil
	})
	return err
}

// ListBooks returns books ordered by insertion sequence.
func (s *RedisStore) ListBooks(ctx context.Context) ([]domain.Book, error) {
	ids, err := s.client.ZRange(ctx, s.orderKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	res := make([]domain.Book, 0, len(ids))
	if len(ids) == 0 {
		return res, nil
	}
	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, 0, len(ids))
	for _, id := range ids {
		cmds = append(cmds, pipe.HGetAll(ctx, s.bookKey(id)))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	for i, cmd := range cmds {
		fields, err := cmd.Result()
		if err != nil {
			return nil, err
		}
		if len(fields) == 0 {
			// deleted between ZRANGE and HGETALL
			continue
		}
		b, err := bookFromHash(ids[i], fields)
		if err != nil {
			return nil, err
		}
		res = append(res, b)
	}
	return res, nil
}

// GetBook reads one book hash.
func (s *RedisStore) GetBook(ctx context.Context, id string) (domain.Book, bool, error) {
	fields, err := s.client.HGetAll(ctx, s.bookKey(id)).Result()
	if err != nil {
		return domain.Book{}, false, err
	}
	if len(fields) == 0 {
		return domain.Book{}, false, nil
	}
	b, err := bookFromHash(id, fields)
	if err != nil {
		return domain.Book{}, false, err
	}
	return b, true, nil
}

// UpdateBook sets the present patch fields if the book exists.
func (s *RedisStore) UpdateBook(ctx context.Context, id string, patch domain.BookPatch) (domain.Book, bool, error) {
	if patch.Empty() {
		return s.GetBook(ctx, id)
	}
	args := make([]any, 0, 8)
	for field, value := range patch.Fields() {
		args = append(args, field, value)
	}
	pairs, err := updateBookScript.Run(ctx, s.client, []string{s.bookKey(id)}, args...).StringSlice()
	if errors.Is(err, redis.Nil) {
		return domain.Book{}, false, nil
	}
	if err != nil {
		return domain.Book{}, false, err
	}
	fields := make(map[string]string, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		fields[pairs[i]] = pairs[i+1]
	}
	b, err := bookFromHash(id, fields)
	if err != nil {
		return domain.Book{}, false, err
	}
	return b, true, nil
}

// DeleteBook removes the hash and its order entry.
func (s *RedisStore) DeleteBook(ctx context.Context, id string) (bool, error) {
	deleted, err := deleteBookScript.Run(ctx, s.client, []string{s.bookKey(id), s.orderKey()}, id).Int()
	if err != nil {
		return false, err
	}
	return deleted == 1, nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func bookHashFields(b domain.Book) map[string]any {
	return map[string]any{
		"title":  b.Title,
		"author": b.Author,
		"year":   b.Year,
		"genre":  b.Genre,
	}
}

func bookFromHash(id string, fields map[string]string) (domain.Book, error) {
	year, err := strconv.Atoi(fields["year"])
	if err != nil {
		return domain.Book{}, fmt.Errorf("book %s: invalid year %q", id, fields["year"])
	}
	return domain.Book{
		ID:     id,
		Title:  fields["title"],
		Author: fields["author"],
		Year:   year,
		Genre:  fields["genre"],
	}, nil
}
