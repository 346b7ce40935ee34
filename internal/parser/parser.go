// Package parser turns delimited flashcard text into import records.
package parser

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/hiansit/ankiflow/internal/domain"
)

const (
	tab   = '\t'
	comma = ','
	quote = '"'
)

// ParseFile reads a file from the given path and extracts all records.
func ParseFile(path string) ([]domain.Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// ParseString extracts all records from raw text. It never fails.
func ParseString(text string) []domain.Record {
	records, _ := Parse(strings.NewReader(text))
	return records
}

// Parse reads from an io.Reader and extracts all records, one per non-blank line.
// Lines are split on tabs when they contain one, otherwise on commas with
// double-quote awareness. Lines of any length are accepted. Only read errors
// are returned; malformed lines degrade to fewer fields.
func Parse(r io.Reader) ([]domain.Record, error) {
	reader := bufio.NewReader(r)

	var records []domain.Record
	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			if record, ok := parseLine(line); ok {
				records = append(records, record)
			}
		}
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return records, err
		}
	}
}

func parseLine(line string) (domain.Record, bool) {
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	if strings.TrimSpace(line) == "" {
		return domain.Record{}, false
	}

	var fields []string
	if strings.ContainsRune(line, tab) {
		fields = strings.Split(line, string(tab))
	} else {
		fields = splitQuoted(line)
	}
	for i, f := range fields {
		fields[i] = cleanField(f)
	}

	record := mapFields(fields)
	return record, !record.Empty()
}

// splitQuoted splits a comma separated line. A quote toggles quoted mode and
// commas inside quotes are kept as text. A doubled quote toggles twice, so it
// stays literal. Quote characters are left in the fields for cleanField.
func splitQuoted(line string) []string {
	var fields []string
	var current strings.Builder
	inQuote := false

	for _, c := range line {
		switch {
		case c == quote:
			inQuote = !inQuote
			current.WriteRune(c)
		case c == comma && !inQuote:
			fields = append(fields, current.String())
			current.Reset()
		default:
			current.WriteRune(c)
		}
	}
	fields = append(fields, current.String())

	return fields
}

// cleanField trims the field, strips one enclosing quote on each side and
// collapses doubled quotes.
func cleanField(f string) string {
	f = strings.TrimSpace(f)
	f = strings.TrimPrefix(f, string(quote))
	f = strings.TrimSuffix(f, string(quote))
	return strings.ReplaceAll(f, `""`, `"`)
}

// mapFields applies the column layout for the given field count.
// Three columns keep the legacy order front, back, frontInfo.
func mapFields(fields []string) domain.Record {
	switch {
	case len(fields) >= 4:
		return domain.Record{Front: fields[0], FrontInfo: fields[1], Back: fields[2], BackInfo: fields[3]}
	case len(fields) == 3:
		return domain.Record{Front: fields[0], Back: fields[1], FrontInfo: fields[2]}
	case len(fields) == 2:
		return domain.Record{Front: fields[0], Back: fields[1]}
	case len(fields) == 1:
		return domain.Record{Front: fields[0]}
	default:
		return domain.Record{}
	}
}
