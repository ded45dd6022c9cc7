// Package categories provides the category lookup-or-create facility the
// processing pipeline uses to assign a document its OCR-detected category.
package categories

import (
	"time"

	"github.com/google/uuid"
)

// Category is a named grouping assigned to documents.
type Category struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
