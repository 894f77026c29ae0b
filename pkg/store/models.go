package store

import (
	"time"

	"gorm.io/datatypes"
)

// BookDocument is the JSON document persisted for each book.
type BookDocument struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Year   int    `json:"year"`
	Genre  string `json:"genre"`
}

// BookDocumentModel is the GORM row wrapping one book document.
type BookDocumentModel struct {
	ID        string                           `gorm:"primaryKey;size:24"`
	Seq       int64                            `gorm:"autoIncrement;not null;uniqueIndex"`
	Doc       datatypes.JSONType[BookDocument] `gorm:"type:jsonb;not null"`
	CreatedAt time.Time                        `gorm:"not null;index"`
	UpdatedAt time.Time                        `gorm:"not null"`
}

// TableName keeps the collection name stable regardless of naming strategy.
func (BookDocumentModel) TableName() string {
	return "book_documents"
}
