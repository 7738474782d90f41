// Package parsers loads settlement cycle input files into model records.
//
// Two CSV shapes are understood: gateway transaction exports and bank
// settlement statements. Real statement files are messy, so parsing is
// row-tolerant: a malformed row is recorded in the parse stats and skipped,
// and the remaining rows still load. Unparseable dates are kept as nil
// rather than failing the row, because a bad timestamp must not block an
// otherwise matchable record.
//
// Column layouts differ per bank. Both parser types take a format
// configuration naming the columns, with alias support and a small set of
// predefined statement formats:
//
//	cfg := parsers.GetBankFileConfig("standard")
//	parser, err := parsers.NewBankStatementParser(cfg, log)
//	records, stats, err := parser.Parse("statement.csv")
package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"payment-recon-service/pkg/errors"
	"payment-recon-service/pkg/logger"
)

// RowError describes a problem with one CSV row. Row errors accumulate in
// ParseStats instead of aborting the load.
type RowError struct {
	Line    int
	Field   string
	Value   string
	Message string
	Err     error
}

func (e *RowError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("line %d, field %s=%q: %s", e.Line, e.Field, e.Value, e.Message)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// ParseStats summarizes one file load.
type ParseStats struct {
	TotalLines   int
	RecordsValid int
	SkippedRows  int
	Errors       []*RowError
}

func (ps *ParseStats) addError(err *RowError) {
	ps.Errors = append(ps.Errors, err)
	ps.SkippedRows++
}

// HasErrors reports whether any rows were skipped.
func (ps *ParseStats) HasErrors() bool {
	return len(ps.Errors) > 0
}

// SampleErrors returns up to max error messages for logging.
func (ps *ParseStats) SampleErrors(max int) []string {
	limit := len(ps.Errors)
	if max > 0 && max < limit {
		limit = max
	}
	samples := make([]string, 0, limit)
	for _, err := range ps.Errors[:limit] {
		samples = append(samples, err.Error())
	}
	return samples
}

func (ps *ParseStats) String() string {
	return fmt.Sprintf("%d lines, %d valid records, %d skipped",
		ps.TotalLines, ps.RecordsValid, ps.SkippedRows)
}

// csvFile wraps an open statement file with its header index.
type csvFile struct {
	file      *os.File
	reader    *csv.Reader
	headerMap map[string]int
	line      int
}

// openCSV opens the file and indexes its header row. Required columns are
// resolved case-insensitively; a missing one fails the whole load since no
// row could be parsed without it.
func openCSV(path string, delimiter rune, required []string) (*csvFile, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ParseError(errors.CodeFileNotFound,
				fmt.Sprintf("input file %s not found", path), err).
				WithSuggestion("Check the file path")
		}
		return nil, errors.ParseError(errors.CodeInvalidFormat,
			fmt.Sprintf("cannot open input file %s", path), err)
	}

	reader := csv.NewReader(file)
	reader.Comma = delimiter
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		file.Close()
		if err == io.EOF {
			return nil, errors.ParseError(errors.CodeInvalidFormat,
				fmt.Sprintf("input file %s is empty", path), nil).
				WithSuggestion("Ensure the file has a header row and data rows")
		}
		return nil, errors.ParseError(errors.CodeInvalidFormat,
			fmt.Sprintf("cannot read header row of %s", path), err)
	}

	cf := &csvFile{file: file, reader: reader, headerMap: make(map[string]int, len(header)), line: 1}
	for i, h := range header {
		cf.headerMap[strings.ToLower(strings.TrimSpace(h))] = i
	}

	var missing []string
	for _, col := range required {
		if _, ok := cf.headerMap[strings.ToLower(col)]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		file.Close()
		return nil, errors.ParseError(errors.CodeMissingColumn,
			fmt.Sprintf("%s is missing required column(s): %s", path, strings.Join(missing, ", ")), nil).
			WithSuggestion("Check the format configuration against the file's header row")
	}

	return cf, nil
}

// next returns the following non-empty row, or io.EOF.
func (cf *csvFile) next() ([]string, error) {
	for {
		row, err := cf.reader.Read()
		if err != nil {
			return nil, err
		}
		cf.line++
		if !isEmptyRow(row) {
			return row, nil
		}
	}
}

// field resolves a named column in a row. Optional columns yield "" when
// absent from the header or the row.
func (cf *csvFile) field(row []string, column string) string {
	idx, ok := cf.headerMap[strings.ToLower(column)]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func (cf *csvFile) close() {
	cf.file.Close()
}

func isEmptyRow(row []string) bool {
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// resolveLogger applies the nil-logger default shared by both parser types.
func resolveLogger(log logger.Logger, component string) logger.Logger {
	if log == nil {
		log = logger.NewNop()
	}
	return log.WithComponent(component)
}
