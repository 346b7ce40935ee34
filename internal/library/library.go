// Package library ties the store, the importers and the playlist scheduler
// together behind the operations a user interface needs.
package library

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/hiansit/ankiflow/internal/backup"
	"github.com/hiansit/ankiflow/internal/domain"
	"github.com/hiansit/ankiflow/internal/level"
	"github.com/hiansit/ankiflow/internal/parser"
	"github.com/hiansit/ankiflow/internal/speech"
)

// DefaultSubjectName is the subject created for an empty store.
const DefaultSubjectName = "General"

// DefaultSettings are used for the default subject.
var DefaultSettings = domain.Settings{FrontLang: "en-US", BackLang: "en-US"}

// Store is the persistence contract the library relies on.
type Store interface {
	CreateSubject(ctx context.Context, name string, settings domain.Settings) (int64, error)
	GetSubjects(ctx context.Context) ([]domain.Subject, error)
	GetSubject(ctx context.Context, id int64) (*domain.Subject, error)
	UpdateSubject(ctx context.Context, id int64, patch domain.SubjectPatch) error
	DeleteSubject(ctx context.Context, id int64) error
	ImportItems(ctx context.Context, subjectID int64, records []domain.Record, clearExisting bool) (int, error)
	ClearItemsBySubject(ctx context.Context, subjectID int64) error
	GetAllItemsWithProgress(ctx context.Context, subjectID int64) ([]domain.ItemWithProgress, error)
	GetItemWithProgress(ctx context.Context, itemID int64) (*domain.ItemWithProgress, error)
	UpdateProgress(ctx context.Context, itemID int64, level int) error
	UpdateItem(ctx context.Context, item domain.Item) error
	DeleteItem(ctx context.Context, itemID int64) error
}

// Options configures a Library. Zero values select defaults.
type Options struct {
	Policy        *level.Policy
	Speaker       speech.Speaker
	SpeechRate    float64
	SpeechTimeout time.Duration
	Logger        *slog.Logger
	Rand          *rand.Rand
}

// Library is the façade used by the CLI and the HTTP API.
type Library struct {
	store         Store
	policy        *level.Policy
	speaker       speech.Speaker
	speechRate    float64
	speechTimeout time.Duration
	logger        *slog.Logger
	rng           *rand.Rand
}

// New creates a Library over store.
func New(store Store, opts Options) *Library {
	l := &Library{
		store:         store,
		policy:        opts.Policy,
		speaker:       opts.Speaker,
		speechRate:    opts.SpeechRate,
		speechTimeout: opts.SpeechTimeout,
		logger:        opts.Logger,
		rng:           opts.Rand,
	}
	if l.policy == nil {
		l.policy = level.DefaultPolicy()
	}
	if l.speaker == nil {
		l.speaker = speech.Nop{}
	}
	if l.speechRate <= 0 {
		l.speechRate = 1
	}
	if l.speechTimeout <= 0 {
		l.speechTimeout = 10 * time.Second
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l
}

// Policy returns the grading policy in use.
func (l *Library) Policy() *level.Policy {
	return l.policy
}

// Subjects lists all subjects, creating the default one when there are none.
func (l *Library) Subjects(ctx context.Context) ([]domain.Subject, error) {
	subjects, err := l.store.GetSubjects(ctx)
	if err != nil {
		return nil, err
	}
	if len(subjects) > 0 {
		return subjects, nil
	}

	id, err := l.store.CreateSubject(ctx, DefaultSubjectName, DefaultSettings)
	if err != nil {
		return nil, fmt.Errorf("failed to create default subject: %w", err)
	}
	l.logger.Info("created default subject", "subject_id", id)

	subject, err := l.store.GetSubject(ctx, id)
	if err != nil {
		return nil, err
	}
	return []domain.Subject{*subject}, nil
}

// Subject returns one subject.
func (l *Library) Subject(ctx context.Context, id int64) (*domain.Subject, error) {
	return l.store.GetSubject(ctx, id)
}

// CreateSubject adds a subject.
func (l *Library) CreateSubject(ctx context.Context, name string, settings domain.Settings) (int64, error) {
	return l.store.CreateSubject(ctx, name, settings)
}

// UpdateSubject patches a subject's name and/or settings.
func (l *Library) UpdateSubject(ctx context.Context, id int64, patch domain.SubjectPatch) error {
	return l.store.UpdateSubject(ctx, id, patch)
}

// DeleteSubject removes a subject with all of its items.
func (l *Library) DeleteSubject(ctx context.Context, id int64) error {
	return l.store.DeleteSubject(ctx, id)
}

// Items returns the subject's items merged with their progress.
func (l *Library) Items(ctx context.Context, subjectID int64) ([]domain.ItemWithProgress, error) {
	return l.store.GetAllItemsWithProgress(ctx, subjectID)
}

// ImportText parses delimited text and adds the records to the subject.
// With clearExisting the subject's current items are replaced.
func (l *Library) ImportText(ctx context.Context, subjectID int64, r io.Reader, clearExisting bool) (int, error) {
	records, err := parser.Parse(r)
	if err != nil {
		return 0, fmt.Errorf("failed to read import text: %w", err)
	}
	return l.store.ImportItems(ctx, subjectID, records, clearExisting)
}

// ImportRecords adds already parsed records to the subject.
func (l *Library) ImportRecords(ctx context.Context, subjectID int64, records []domain.Record, clearExisting bool) (int, error) {
	return l.store.ImportItems(ctx, subjectID, records, clearExisting)
}

// ClearItems removes every item of the subject.
func (l *Library) ClearItems(ctx context.Context, subjectID int64) error {
	return l.store.ClearItemsBySubject(ctx, subjectID)
}

// Export builds the backup document for a subject.
func (l *Library) Export(ctx context.Context, subjectID int64) (*backup.Document, error) {
	subject, err := l.store.GetSubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	items, err := l.store.GetAllItemsWithProgress(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	return backup.Export(*subject, items), nil
}

// Restore imports a backup document as a new subject and returns its id.
func (l *Library) Restore(ctx context.Context, doc *backup.Document) (int64, error) {
	id, err := backup.Import(ctx, doc, l.store)
	if err != nil {
		return 0, err
	}
	l.logger.Info("backup restored", "subject_id", id, "items", len(doc.Items))
	return id, nil
}

// UpdateItem replaces an item's text fields.
func (l *Library) UpdateItem(ctx context.Context, item domain.Item) error {
	return l.store.UpdateItem(ctx, item)
}

// DeleteItem removes an item.
func (l *Library) DeleteItem(ctx context.Context, itemID int64) error {
	return l.store.DeleteItem(ctx, itemID)
}

// Grade records a review of the item and returns its new level.
func (l *Library) Grade(ctx context.Context, itemID int64, rating level.Rating) (int, error) {
	item, err := l.store.GetItemWithProgress(ctx, itemID)
	if err != nil {
		return 0, err
	}

	next := l.policy.Next(item.Level, rating)
	if err := l.store.UpdateProgress(ctx, itemID, next); err != nil {
		return 0, err
	}

	l.logger.Debug("item graded",
		"item_id", itemID,
		"rating", rating.String(),
		"from_level", item.Level,
		"to_level", next,
	)
	return next, nil
}
