package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"bookshelf/pkg/domain"
)

// ErrUnsupportedDSN is returned by Open for connection strings with an unknown scheme.
var ErrUnsupportedDSN = errors.New("unsupported database url")

// BookStore defines persistence operations for books.
// Implementations must be safe for concurrent use.
type BookStore interface {
	// ListBooks returns every book in insertion order. Never nil.
	ListBooks(ctx context.Context) ([]domain.Book, error)
	GetBook(ctx context.Context, id string) (domain.Book, bool, error)
	// SaveBook inserts a fully populated book.
	SaveBook(ctx context.Context, b domain.Book) error
	// UpdateBook merges the present patch fields into the stored book.
	UpdateBook(ctx context.Context, id string, patch domain.BookPatch) (domain.Book, bool, error)
	DeleteBook(ctx context.Context, id string) (bool, error)
	Close() error
}

// Options tune backend construction.
type Options struct {
	// RedisKeyPrefix namespaces keys of the redis backend.
	RedisKeyPrefix string
}

// Open connects to the backend selected by the dsn scheme:
// postgres:// and postgresql:// use GormStore, redis:// and rediss:// use
// RedisStore, memory:// uses MemoryStore.
func Open(ctx context.Context, dsn string, opts Options) (BookStore, error) {
	dsn = strings.TrimSpace(dsn)
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDSN, redactDSN(dsn))
	}
	switch strings.ToLower(u.Scheme) {
	case "postgres", "postgresql":
		s, err := NewGormStore(dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "redis", "rediss":
		s, err := NewRedisStoreFromURL(ctx, dsn, opts.RedisKeyPrefix)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: scheme %q", ErrUnsupportedDSN, u.Scheme)
	}
}

func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "<invalid>"
	}
	return u.Redacted()
}
