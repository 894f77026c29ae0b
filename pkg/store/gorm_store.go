package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"bookshelf/pkg/domain"
)

const migrateLockID int64 = 60722917

// GormStore implements BookStore on Postgres, one jsonb document per book.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and migrates the book_documents table.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&BookDocumentModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// ListBooks returns all books in insertion order.
func (s *GormStore) ListBooks(ctx context.Context) ([]domain.Book, error) {
	var models []BookDocumentModel
	if err := s.db.WithContext(ctx).Order("seq ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Book, 0, len(models))
	for _, m := range models {
		res = append(res, bookFromModel(m))
	}
	return res, nil
}

// GetBook retrieves a book.
func (s *GormStore) GetBook(ctx context.Context, id string) (domain.Book, bool, error) {
	var model BookDocumentModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Book{}, false, nil
		}
		return domain.Book{}, false, err
	}
	return bookFromModel(model), true, nil
}

// SaveBook inserts a new book document.
func (s *GormStore) SaveBook(ctx context.Context, b domain.Book) error {
	model := bookToModel(b)
	now := time.Now().UTC()
	model.CreatedAt = now
	model.UpdatedAt = now
	return s.db.WithContext(ctx).Create(&model).Error
}

// UpdateBook merges the patch into the stored document with jsonb
// concatenation in a single UPDATE ... RETURNING.
func (s *GormStore) UpdateBook(ctx context.Context, id string, patch domain.BookPatch) (domain.Book, bool, error) {
	if patch.Empty() {
		return s.GetBook(ctx, id)
	}
	raw, err := patchDocument(patch)
	if err != nil {
		return domain.Book{}, false, err
	}
	var model BookDocumentModel
	res := s.db.WithContext(ctx).
		Model(&model).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		Update("doc", gorm.Expr("doc || ?::jsonb", raw))
	if res.Error != nil {
		return domain.Book{}, false, res.Error
	}
	if res.RowsAffected == 0 {
		return domain.Book{}, false, nil
	}
	return bookFromModel(model), true, nil
}

// DeleteBook hard-deletes a book document.
func (s *GormStore) DeleteBook(ctx context.Context, id string) (bool, error) {
	res := s.db.WithContext(ctx).Delete(&BookDocumentModel{}, "id = ?", id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Close releases the connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func patchDocument(patch domain.BookPatch) (string, error) {
	raw, err := json.Marshal(patch.Fields())
	if err != nil {
		return "", fmt.Errorf("encode patch: %w", err)
	}
	return string(raw), nil
}

func bookToModel(b domain.Book) BookDocumentModel {
	return BookDocumentModel{
		ID: b.ID,
		Doc: datatypes.NewJSONType(BookDocument{
			Title:  b.Title,
			Author: b.Author,
			Year:   b.Year,
			Genre:  b.Genre,
		}),
	}
}

func bookFromModel(m BookDocumentModel) domain.Book {
	doc := m.Doc.Data()
	return domain.Book{
		ID:     m.ID,
		Title:  doc.Title,
		Author: doc.Author,
		Year:   doc.Year,
		Genre:  doc.Genre,
	}
}
