// Package backup converts a subject and its items to and from the
// versioned JSON interchange document.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"

	"github.com/hiansit/ankiflow/internal/domain"
)

// Version is written into every exported document.
const Version = 1

// ImportedSuffix is appended to the name of a restored subject.
const ImportedSuffix = " (Imported)"

// ErrInvalidFormat is returned for documents lacking a subject or items, or
// carrying out of range values.
var ErrInvalidFormat = errors.New("invalid backup format")

// Document is the interchange format. Unknown fields are ignored on read.
type Document struct {
	Version int         `json:"version" validate:"gte=0"`
	Subject *SubjectDoc `json:"subject" validate:"required"`
	Items   []ItemDoc   `json:"items" validate:"required,dive"`
}

// SubjectDoc is the exported part of a subject.
type SubjectDoc struct {
	Name     string          `json:"name"`
	Settings domain.Settings `json:"settings"`
}

// ItemDoc is one exported item with its progress.
type ItemDoc struct {
	Front       string `json:"front"`
	FrontInfo   string `json:"frontInfo"`
	Back        string `json:"back"`
	BackInfo    string `json:"backInfo"`
	Level       *int   `json:"level,omitempty" validate:"omitempty,min=0"`
	LastStudied int64  `json:"lastStudied" validate:"gte=0"`
}

// Store is what Import needs to write a restored subject.
type Store interface {
	CreateSubject(ctx context.Context, name string, settings domain.Settings) (int64, error)
	ImportItems(ctx context.Context, subjectID int64, records []domain.Record, clearExisting bool) (int, error)
	DeleteSubject(ctx context.Context, id int64) error
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Export builds the document for a subject and its merged items.
func Export(subject domain.Subject, items []domain.ItemWithProgress) *Document {
	doc := &Document{
		Version: Version,
		Subject: &SubjectDoc{Name: subject.Name, Settings: subject.Settings},
		Items:   make([]ItemDoc, 0, len(items)),
	}
	for _, it := range items {
		level := it.Level
		doc.Items = append(doc.Items, ItemDoc{
			Front:       it.Front,
			FrontInfo:   it.FrontInfo,
			Back:        it.Back,
			BackInfo:    it.BackInfo,
			Level:       &level,
			LastStudied: it.LastStudied,
		})
	}
	return doc
}

// Encode writes the document as indented JSON.
func Encode(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}
	return nil
}

// Decode reads and validates a document.
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}
	if err := Validate(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks that the document has a subject and items.
func Validate(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: empty document", ErrInvalidFormat)
	}
	if err := validate.Struct(doc); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}
	return nil
}

// Import restores the document into a new subject named after the original
// with ImportedSuffix, and returns the new subject id. Existing subjects are
// never overwritten. Items keep their level and last studied time when present.
func Import(ctx context.Context, doc *Document, store Store) (int64, error) {
	if err := Validate(doc); err != nil {
		return 0, err
	}

	subjectID, err := store.CreateSubject(ctx, doc.Subject.Name+ImportedSuffix, doc.Subject.Settings)
	if err != nil {
		return 0, fmt.Errorf("failed to create imported subject: %w", err)
	}

	if _, err := store.ImportItems(ctx, subjectID, Records(doc), true); err != nil {
		if delErr := store.DeleteSubject(ctx, subjectID); delErr != nil {
			return 0, fmt.Errorf("failed to import items into subject %d: %w (cleanup failed: %v)", subjectID, err, delErr)
		}
		return 0, fmt.Errorf("failed to import items into subject %d: %w", subjectID, err)
	}
	return subjectID, nil
}

// Records converts the document items to import records.
func Records(doc *Document) []domain.Record {
	records := make([]domain.Record, 0, len(doc.Items))
	for _, it := range doc.Items {
		r := domain.Record{
			Front:     it.Front,
			FrontInfo: it.FrontInfo,
			Back:      it.Back,
			BackInfo:  it.BackInfo,
		}
		if it.Level != nil {
			level := *it.Level
			r.Level = &level
			r.LastStudied = it.LastStudied
		}
		records = append(records, r)
	}
	return records
}
