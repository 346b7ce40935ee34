package domain

// Settings holds the per-side speech languages of a subject.
type Settings struct {
	FrontLang string `json:"frontLang"`
	BackLang  string `json:"backLang"`
}

// Subject is a named group of items.
type Subject struct {
	ID        int64
	Name      string
	Settings  Settings
	CreatedAt int64 // unix milliseconds
}

// SubjectPatch lists the subject fields that may be updated.
// A nil field is left untouched; Settings is replaced as a whole.
type SubjectPatch struct {
	Name     *string
	Settings *Settings
}

// Item represents a single flashcard.
type Item struct {
	ID        int64
	SubjectID int64
	Front     string
	FrontInfo string
	Back      string
	BackInfo  string
	CreatedAt int64 // unix milliseconds
}

// Progress is the review state of one item.
// LastStudied is in unix milliseconds, 0 means never studied.
type Progress struct {
	ItemID      int64
	Level       int
	LastStudied int64
}

// ItemWithProgress is an item merged with its progress row.
type ItemWithProgress struct {
	Item
	Level       int
	LastStudied int64
}

// Record is a candidate item produced by an importer.
// When Level is set the progress row is restored from Level and LastStudied.
type Record struct {
	Front     string
	FrontInfo string
	Back      string
	BackInfo  string

	Level       *int
	LastStudied int64
}

// Empty reports whether both sides of the record are blank.
func (r Record) Empty() bool {
	return r.Front == "" && r.Back == ""
}
