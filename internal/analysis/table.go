package analysis

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/volatiletech/null/v8"
	"golang.org/x/text/unicode/norm"
)

// Well-known column names shared by every results tab.
const (
	ColSchool  = "établissement"
	ColSession = "session"
)

// Options controls how raw spreadsheet cells are decoded.
type Options struct {
	// Delimiter for CSV. If 0, picks ',' or '\t' from the file name.
	Delimiter rune
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune // optional; if 0, auto-detect common separators (',' '.' space)
}

// DefaultOptions returns reasonable defaults for results tabs: delimiter from
// the file name and per-value decimal separator detection.
func DefaultOptions() Options {
	return Options{}
}

// Column describes one table column.
type Column struct {
	Name string `json:"name"`
	// Max is the score scale parsed from a "(sur N)" header suffix, 0 if absent.
	Max float64 `json:"max,omitempty"`
}

// Label returns the name without its "(sur N)" scale suffix.
func (c Column) Label() string {
	if c.Max == 0 {
		return c.Name
	}
	return strings.TrimSpace(scalePattern.ReplaceAllString(c.Name, ""))
}

// Label strips a "(sur N)" suffix from a header name.
func Label(name string) string {
	return Column{Name: name, Max: parseScale(name)}.Label()
}

// Cell keeps the trimmed raw text and, when it parses, the numeric value.
type Cell struct {
	Text string
	Num  null.Float64
}

// Table is an ordered sequence of named-column records. Tables are never
// mutated once built; every operation in this package returns a new one.
type Table struct {
	Name    string
	Columns []Column
	Rows    [][]Cell
	// Year is set when the table was produced by FilterYear.
	Year int

	index map[string]int
}

// ColumnError reports a column that a caller required but the table lacks.
type ColumnError struct {
	Table  string
	Column string
}

func (e *ColumnError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("column %q not found in %s", e.Column, e.Table)
	}
	return fmt.Sprintf("column %q not found", e.Column)
}

// NewTable builds a table from a header and raw string records.
// Header names are trimmed and NFC-normalized; short records are padded.
func NewTable(name string, header []string, records [][]string, opt Options) *Table {
	t := &Table{Name: name, Columns: make([]Column, len(header))}
	for i, h := range header {
		clean := normalizeHeader(h)
		t.Columns[i] = Column{Name: clean, Max: parseScale(clean)}
	}
	t.buildIndex()
	t.Rows = make([][]Cell, 0, len(records))
	for _, rec := range records {
		if isBlank(rec) {
			continue
		}
		row := make([]Cell, len(header))
		for j := range row {
			if j >= len(rec) {
				continue
			}
			v := strings.TrimSpace(rec[j])
			row[j] = Cell{Text: v}
			if v == "" {
				continue
			}
			if x, ok := parseNumeric(v, opt); ok {
				row[j].Num = null.Float64From(x)
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func (t *Table) buildIndex() {
	t.index = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		if _, dup := t.index[c.Name]; !dup {
			t.index[c.Name] = i
		}
	}
}

// derive returns a table sharing t's columns with a new row set.
func (t *Table) derive(rows [][]Cell) *Table {
	return &Table{Name: t.Name, Columns: t.Columns, Rows: rows, Year: t.Year, index: t.index}
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Index resolves a column by exact name, then case-insensitively.
func (t *Table) Index(name string) (int, bool) {
	name = normalizeHeader(name)
	if i, ok := t.index[name]; ok {
		return i, true
	}
	for i, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return i, true
		}
	}
	return -1, false
}

// Column returns metadata for the named column.
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.Index(name)
	if !ok {
		return Column{}, false
	}
	return t.Columns[i], true
}

// Require validates that every named column is present.
func (t *Table) Require(names ...string) error {
	var errs []error
	for _, n := range names {
		if _, ok := t.Index(n); !ok {
			errs = append(errs, &ColumnError{Table: t.Name, Column: n})
		}
	}
	return errors.Join(errs...)
}

func (t *Table) mustIndex(name string) (int, error) {
	i, ok := t.Index(name)
	if !ok {
		return -1, &ColumnError{Table: t.Name, Column: name}
	}
	return i, nil
}

// Text returns the raw text of a cell.
func (t *Table) Text(row, col int) string { return t.Rows[row][col].Text }

// Num returns the numeric value of a cell, invalid when missing or non-numeric.
func (t *Table) Num(row, col int) null.Float64 { return t.Rows[row][col].Num }

// Values returns the numeric values of a column, in row order.
func (t *Table) Values(name string) ([]null.Float64, error) {
	j, err := t.mustIndex(name)
	if err != nil {
		return nil, err
	}
	out := make([]null.Float64, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[j].Num
	}
	return out, nil
}

// Distinct returns the distinct non-empty texts of a column in first-appearance order.
func (t *Table) Distinct(name string) ([]string, error) {
	j, err := t.mustIndex(name)
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	var out []string
	for _, row := range t.Rows {
		v := row[j].Text
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}

// Where returns the rows whose text in column name equals value.
func (t *Table) Where(name, value string) (*Table, error) {
	j, err := t.mustIndex(name)
	if err != nil {
		return nil, err
	}
	var rows [][]Cell
	for _, row := range t.Rows {
		if row[j].Text == value {
			rows = append(rows, row)
		}
	}
	return t.derive(rows), nil
}

// ReadCSV decodes a CSV stream whose first record is the header.
func ReadCSV(r io.Reader, name string, opt Options) (*Table, error) {
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(name)
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comma = delim

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return NewTable(name, nil, nil, opt), nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	var records [][]string
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(records)+1, err)
		}
		records = append(records, rec)
	}
	return NewTable(name, header, records, opt), nil
}

// ReadCSVFile opens path and decodes it with ReadCSV.
func ReadCSVFile(path string, opt Options) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	if opt.Delimiter == 0 {
		opt.Delimiter = sniffDelimiter(path)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return ReadCSV(f, name, opt)
}

func sniffDelimiter(path string) rune {
	name := strings.ToLower(path)
	if strings.HasSuffix(name, ".tsv") {
		return '\t'
	}
	return ','
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return norm.NFC.String(strings.TrimSpace(h))
}

var scalePattern = regexp.MustCompile(`(?i)\(\s*sur\s+(\d+(?:[.,]\d+)?)\s*\)\s*$`)

// parseScale extracts N from headers such as "Français (sur 100)".
func parseScale(name string) float64 {
	m := scalePattern.FindStringSubmatch(name)
	if len(m) < 2 {
		return 0
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	if err != nil {
		return 0
	}
	return f
}

func parseNumeric(s string, opt Options) (float64, bool) {
	raw := strings.TrimSpace(s)
	raw = strings.ReplaceAll(raw, "\u00a0", " ")
	raw = strings.ReplaceAll(raw, "\u202f", " ")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	dec := opt.DecimalSeparator
	thou := opt.ThousandsSeparator
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		if cpos >= 0 && dpos >= 0 {
			if cpos > dpos {
				dec = ','
				thou = '.'
			} else {
				dec = '.'
				thou = ','
			}
		} else if cpos >= 0 {
			dec = ','
		} else {
			dec = '.'
		}
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
