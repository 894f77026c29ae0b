package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"bookshelf/internal/util"
	"bookshelf/pkg/domain"
)

// testBookStore runs the behaviour every BookStore backend must share.
func testBookStore(t *testing.T, newStore func(t *testing.T) BookStore) {
	t.Run("empty list", func(t *testing.T) {
		s := newStore(t)
		books, err := s.ListBooks(context.Background())
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if books == nil || len(books) != 0 {
			t.Fatalf("expected empty non-nil slice, got %#v", books)
		}
	})

	t.Run("save get list in insertion order", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		saved := make([]domain.Book, 0, 3)
		for i := 0; i < 3; i++ {
			b := domain.Book{
				ID:     util.NewID(),
				Title:  fmt.Sprintf("Book %d", i),
				Author: "Author",
				Year:   2000 + i,
				Genre:  "Fiction",
			}
			if err := s.SaveBook(ctx, b); err != nil {
				t.Fatalf("save: %v", err)
			}
			saved = append(saved, b)
		}
		got, ok, err := s.GetBook(ctx, saved[1].ID)
		if err != nil || !ok {
			t.Fatalf("get: ok=%v err=%v", ok, err)
		}
		if got != saved[1] {
			t.Fatalf("get = %+v, want %+v", got, saved[1])
		}
		books, err := s.ListBooks(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(books) != len(saved) {
			t.Fatalf("list len = %d, want %d", len(books), len(saved))
		}
		for i := range saved {
			if books[i] != saved[i] {
				t.Fatalf("list[%d] = %+v, want %+v", i, books[i], saved[i])
			}
		}
	})

	t.Run("partial update keeps absent fields", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		b := domain.Book{ID: util.NewID(), Title: "Old Book", Author: "Old Author", Year: 2020, Genre: "Fiction"}
		if err := s.SaveBook(ctx, b); err != nil {
			t.Fatalf("save: %v", err)
		}
		title := "Updated Book"
		year := 2021
		updated, ok, err := s.UpdateBook(ctx, b.ID, domain.BookPatch{Title: &title, Year: &year})
		if err != nil || !ok {
			t.Fatalf("update: ok=%v err=%v", ok, err)
		}
		want := domain.Book{ID: b.ID, Title: "Updated Book", Author: "Old Author", Year: 2021, Genre: "Fiction"}
		if updated != want {
			t.Fatalf("updated = %+v, want %+v", updated, want)
		}
		stored, _, err := s.GetBook(ctx, b.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if stored != want {
			t.Fatalf("stored = %+v, want %+v", stored, want)
		}

		same, ok, err := s.UpdateBook(ctx, b.ID, domain.BookPatch{})
		if err != nil || !ok || same != want {
			t.Fatalf("empty patch: book=%+v ok=%v err=%v", same, ok, err)
		}
	})

	t.Run("missing ids report not found", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		const missing = "60c72b2f9b1e8a1f5c8b4567"
		if _, ok, err := s.GetBook(ctx, missing); err != nil || ok {
			t.Fatalf("get: ok=%v err=%v", ok, err)
		}
		title := "Non-existent"
		if _, ok, err := s.UpdateBook(ctx, missing, domain.BookPatch{Title: &title}); err != nil || ok {
			t.Fatalf("update: ok=%v err=%v", ok, err)
		}
		if ok, err := s.DeleteBook(ctx, missing); err != nil || ok {
			t.Fatalf("delete: ok=%v err=%v", ok, err)
		}
		books, err := s.ListBooks(ctx)
		if err != nil || len(books) != 0 {
			t.Fatalf("update on missing id must not create a record, got %+v err=%v", books, err)
		}
	})

	t.Run("delete is permanent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		keep := domain.Book{ID: util.NewID(), Title: "Keep", Author: "A", Year: 1, Genre: "G"}
		drop := domain.Book{ID: util.NewID(), Title: "Delete Book", Author: "Delete Author", Year: 2023, Genre: "Fiction"}
		for _, b := range []domain.Book{keep, drop} {
			if err := s.SaveBook(ctx, b); err != nil {
				t.Fatalf("save: %v", err)
			}
		}
		ok, err := s.DeleteBook(ctx, drop.ID)
		if err != nil || !ok {
			t.Fatalf("delete: ok=%v err=%v", ok, err)
		}
		if _, ok, _ := s.GetBook(ctx, drop.ID); ok {
			t.Fatalf("deleted book still readable")
		}
		if ok, _ := s.DeleteBook(ctx, drop.ID); ok {
			t.Fatalf("second delete should report not found")
		}
		books, err := s.ListBooks(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(books) != 1 || books[0] != keep {
			t.Fatalf("list after delete = %+v", books)
		}
	})

	t.Run("concurrent saves", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		const workers = 16
		var wg sync.WaitGroup
		errs := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs <- s.SaveBook(ctx, domain.Book{ID: util.NewID(), Title: fmt.Sprint(i), Author: "a", Year: i, Genre: "g"})
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Fatalf("save: %v", err)
			}
		}
		books, err := s.ListBooks(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(books) != workers {
			t.Fatalf("list len = %d, want %d", len(books), workers)
		}
	})
}

func TestOpenRejectsUnknownScheme(t *testing.T) {
	for _, dsn := range []string{"", "mongodb://localhost:27017/books", "not a url"} {
		if _, err := Open(context.Background(), dsn, Options{}); !errors.Is(err, ErrUnsupportedDSN) {
			t.Fatalf("Open(%q) err = %v, want ErrUnsupportedDSN", dsn, err)
		}
	}
}

func TestOpenMemory(t *testing.T) {
	s, err := Open(context.Background(), "memory://", Options{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	if _, ok := s.(*MemoryStore); !ok {
		t.Fatalf("expected *MemoryStore, got %T", s)
	}
}
