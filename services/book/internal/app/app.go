package app

import (
	"context"
	"fmt"

	"bookshelf/internal/util"
	"bookshelf/pkg/domain"
	"bookshelf/pkg/store"
)

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL    string
	RedisKeyPrefix string
	// Store overrides DatabaseURL when set.
	Store store.BookStore
}

// App is the core application service wiring the book store to domain rules.
type App struct {
	store store.BookStore
}

// New constructs the application, opening the store from DatabaseURL unless
// one is injected.
func New(ctx context.Context, cfg Config) (*App, error) {
	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.Open(ctx, cfg.DatabaseURL, store.Options{RedisKeyPrefix: cfg.RedisKeyPrefix})
		if err != nil {
			return nil, fmt.Errorf("init book store: %w", err)
		}
	}
	return &App{store: dataStore}, nil
}

// Close releases the store.
func (a *App) Close() error {
	return a.store.Close()
}

// ListBooks returns every book in store order.
func (a *App) ListBooks(ctx context.Context) ([]domain.Book, error) {
	books, err := a.store.ListBooks(ctx)
	if err != nil {
		return nil, storeErr("list books", err)
	}
	return books, nil
}

// GetBook retrieves a book by ID.
func (a *App) GetBook(ctx context.Context, id string) (domain.Book, error) {
	if !util.IsValidID(id) {
		return domain.Book{}, ErrBookNotFound
	}
	book, ok, err := a.store.GetBook(ctx, id)
	if err != nil {
		return domain.Book{}, storeErr("get book", err)
	}
	if !ok {
		return domain.Book{}, ErrBookNotFound
	}
	return book, nil
}

// CreateBook validates input, assigns an id and persists the book.
func (a *App) CreateBook(ctx context.Context, in domain.BookInput) (domain.Book, error) {
	patch, err := in.Validate()
	if err != nil {
		return domain.Book{}, err
	}
	book := patch.Apply(domain.Book{ID: util.NewID()})
	if err := a.store.SaveBook(ctx, book); err != nil {
		return domain.Book{}, storeErr("save book", err)
	}
	util.LoggerFromContext(ctx).Info("book created", "book_id", book.ID)
	return book, nil
}

// UpdateBook merges the supplied fields into an existing book.
func (a *App) UpdateBook(ctx context.Context, id string, in domain.BookInput) (domain.Book, error) {
	if !util.IsValidID(id) {
		return domain.Book{}, ErrBookNotFound
	}
	patch, err := in.ValidatePatch()
	if err != nil {
		return domain.Book{}, err
	}
	book, ok, err := a.store.UpdateBook(ctx, id, patch)
	if err != nil {
		return domain.Book{}, storeErr("update book", err)
	}
	if !ok {
		return domain.Book{}, ErrBookNotFound
	}
	util.LoggerFromContext(ctx).Info("book updated", "book_id", id)
	return book, nil
}

// DeleteBook permanently removes a book.
func (a *App) DeleteBook(ctx context.Context, id string) error {
	if !util.IsValidID(id) {
		return ErrBookNotFound
	}
	ok, err := a.store.DeleteBook(ctx, id)
	if err != nil {
		return storeErr("delete book", err)
	}
	if !ok {
		return ErrBookNotFound
	}
	util.LoggerFromContext(ctx).Info("book deleted", "book_id", id)
	return nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
