package adapter

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"hopper/internal/domain"
)

// CSVConfig holds configuration for a CSV source
type CSVConfig struct {
	Name string
	Path string
	// Fields is the comma-separated column layout. "name" and "address" are
	// required; every other column becomes an attribute of that name.
	Fields string
	// Delimiter is a single character, default ","
	Delimiter string
}

// CSVSource reads hosts from a delimited file
type CSVSource struct {
	name      string
	path      string
	fields    []string
	delimiter rune
	open      func(path string) (io.ReadCloser, error)
}

// NewCSVSource creates a CSV source
func NewCSVSource(cfg CSVConfig) (*CSVSource, error) {
	if cfg.Name == "" {
		cfg.Name = "csv"
	}
	if cfg.Fields == "" {
		cfg.Fields = "name,address"
	}
	if cfg.Delimiter == "" {
		cfg.Delimiter = ","
	}

	delim, size := utf8.DecodeRuneInString(cfg.Delimiter)
	if size != len(cfg.Delimiter) || delim == '"' || delim == '\n' {
		return nil, fmt.Errorf("csv source %s: invalid delimiter %q", cfg.Name, cfg.Delimiter)
	}

	fields := strings.Split(cfg.Fields, ",")
	var hasName, hasAddress bool
	for i, f := range fields {
		fields[i] = strings.ToLower(strings.TrimSpace(f))
		switch fields[i] {
		case "name":
			hasName = true
		case "address":
			hasAddress = true
		}
	}
	if !hasName || !hasAddress {
		return nil, fmt.Errorf("csv source %s: fields must include name and address, got %q", cfg.Name, cfg.Fields)
	}

	return &CSVSource{
		name:      cfg.Name,
		path:      cfg.Path,
		fields:    fields,
		delimiter: delim,
		open: func(path string) (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// Name returns the source identifier
func (s *CSVSource) Name() string {
	return s.name
}

// Kind returns the source kind
func (s *CSVSource) Kind() domain.SourceKind {
	return domain.SourceCSV
}

// Fetch reads the file. Rows with too few columns or empty name/address are
// skipped; an unreadable file fails the fetch.
func (s *CSVSource) Fetch(ctx context.Context) (*Batch, error) {
	f, err := s.open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	return s.parse(ctx, f)
}

func (s *CSVSource) parse(ctx context.Context, r io.Reader) (*Batch, error) {
	reader := csv.NewReader(r)
	reader.Comma = s.delimiter
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	batch := &Batch{}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				batch.skip(fmt.Sprintf("%s:%d", s.path, parseErr.Line), parseErr.Err.Error())
				continue
			}
			return nil, fmt.Errorf("read %s: %w", s.path, err)
		}

		line, _ := reader.FieldPos(0)
		ref := fmt.Sprintf("%s:%d", s.path, line)

		if len(row) < len(s.fields) {
			batch.skip(ref, fmt.Sprintf("expected %d columns, got %d", len(s.fields), len(row)))
			continue
		}

		var name, address string
		attrs := make(map[string]string)
		for i, field := range s.fields {
			value := strings.TrimSpace(row[i])
			switch field {
			case "name":
				name = value
			case "address":
				address = value
			case "":
			default:
				if value != "" {
					attrs[field] = value
				}
			}
		}
		attrs[domain.AttrSourceName] = s.name
		batch.add(ref, name, address, domain.SourceCSV, attrs)
	}

	return batch, nil
}
