// Package knol fingerprints flashcard content so duplicates can be recognised.
package knol

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/hiansit/ankiflow/internal/domain"
)

// Normalize concatenates the record's four text fields after cleaning each part.
// It trims whitespace, lowercases, and normalizes line endings for each field
// before joining them.
func Normalize(r domain.Record) string {
	normalizePart := func(part string) string {
		p := strings.ToLower(part)
		p = strings.TrimSpace(p)
		p = strings.ReplaceAll(p, "\r\n", "\n")
		return p
	}

	// Joining with a newline keeps "ab"+"c" apart from "a"+"bc".
	return strings.Join([]string{
		normalizePart(r.Front),
		normalizePart(r.FrontInfo),
		normalizePart(r.Back),
		normalizePart(r.BackInfo),
	}, "\n")
}

// Hash normalizes a record and returns its SHA-256 hash as a hex string.
func Hash(r domain.Record) string {
	sum := sha256.Sum256([]byte(Normalize(r)))
	return fmt.Sprintf("%x", sum)
}

// HashItem hashes the text fields of a stored item.
func HashItem(item domain.Item) string {
	return Hash(domain.Record{
		Front:     item.Front,
		FrontInfo: item.FrontInfo,
		Back:      item.Back,
		BackInfo:  item.BackInfo,
	})
}
