// Package parsers reads the CSV files backing file-based reconciliation runs.
//
// Three record shapes are understood: extract entries, payers and
// obligations. Real exports vary in column naming, so each parser resolves
// its columns through a small alias table before touching the data. Parsed
// records are loaded into an in-memory store for the engine to consume.
package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"transfer-reconciliation-service/pkg/logger"
)

// ParseError describes one rejected CSV row
type ParseError struct {
	Line    int
	Field   string
	Value   string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse error at line %d (%s='%s'): %s: %v",
			e.Line, e.Field, e.Value, e.Message, e.Err)
	}
	return fmt.Sprintf("parse error at line %d (%s='%s'): %s",
		e.Line, e.Field, e.Value, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseConfig holds options shared by every CSV parser
type ParseConfig struct {
	Delimiter rune `json:"delimiter"`

	// ColumnAliases maps alternate header names to the canonical column name,
	// e.g. "payer" -> "sender_name". A canonical column present in the file
	// always wins over an alias.
	ColumnAliases map[string]string `json:"column_aliases,omitempty"`

	// SkipInvalidRows collects per-row errors instead of aborting the parse
	SkipInvalidRows bool `json:"skip_invalid_rows"`
}

// DefaultParseConfig returns a configuration with sensible defaults
func DefaultParseConfig() *ParseConfig {
	return &ParseConfig{
		Delimiter:       ',',
		SkipInvalidRows: false,
	}
}

// ParseStats summarizes one file parse
type ParseStats struct {
	TotalRows   int           `json:"total_rows"`
	ParsedRows  int           `json:"parsed_rows"`
	SkippedRows int           `json:"skipped_rows"`
	Errors      []*ParseError `json:"errors,omitempty"`
}

// baseParser carries the plumbing shared by the three record parsers
type baseParser struct {
	config *ParseConfig
	log    logger.Logger
}

func newBaseParser(config *ParseConfig, component string) baseParser {
	if config == nil {
		config = DefaultParseConfig()
	}
	return baseParser{
		config: config,
		log:    logger.GetGlobalLogger().WithComponent(component),
	}
}

// header maps normalized column names to their positions in the file
type header map[string]int

// readRows opens the file and hands each data row with its line number to
// the given callback. The first row is always treated as the header.
func (p *baseParser) readRows(path string, stats *ParseStats, row func(line int, h header, record []string) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = p.config.Delimiter
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	headerRecord, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	h := make(header, len(headerRecord))
	for i, name := range headerRecord {
		h[normalizeColumn(name)] = i
	}
	for alias, canonical := range p.config.ColumnAliases {
		index, ok := h[normalizeColumn(alias)]
		if !ok {
			continue
		}
		if _, exists := h[normalizeColumn(canonical)]; !exists {
			h[normalizeColumn(canonical)] = index
		}
	}

	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return fmt.Errorf("malformed CSV at line %d of %s: %w", line, path, err)
		}

		stats.TotalRows++
		if err := row(line, h, record); err != nil {
			if !p.config.SkipInvalidRows {
				return err
			}
			stats.SkippedRows++
			if parseErr, ok := err.(*ParseError); ok {
				stats.Errors = append(stats.Errors, parseErr)
			}
			continue
		}
		stats.ParsedRows++
	}

	p.log.WithFields(logger.Fields{
		"file":    path,
		"parsed":  stats.ParsedRows,
		"skipped": stats.SkippedRows,
	}).Debug("file parsed")

	return nil
}

// field extracts a canonical column from the record. Aliases are already
// resolved into the header map. Returns the empty string when the column is
// absent from the file.
func (p *baseParser) field(h header, record []string, name string) string {
	index, ok := h[name]
	if !ok || index >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[index])
}

// requireField is field with a ParseError when the value is missing
func (p *baseParser) requireField(h header, record []string, name string, line int) (string, error) {
	value := p.field(h, record, name)
	if value == "" {
		return "", &ParseError{Line: line, Field: name, Message: "required column missing or empty"}
	}
	return value, nil
}

func normalizeColumn(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.TrimPrefix(name, "\ufeff")
	return strings.ReplaceAll(name, " ", "_")
}
