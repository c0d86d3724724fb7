package gtfs

import (
	"archive/zip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/AlesonDEV/Api.FreeCity.Services/internal/domain"
)

var errMissingColumn = errors.New("missing column")

// table is a header-addressed reader over one CSV file of the archive.
type table struct {
	name   string
	rc     io.ReadCloser
	reader *csv.Reader
	header map[string]int
	line   int
}

func openTable(f *zip.File) (*table, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", domain.ErrFeedInvalid, f.Name, err)
	}
	r := csv.NewReader(rc)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	head, err := r.Read()
	if err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("%w: read header of %s: %v", domain.ErrFeedInvalid, f.Name, err)
	}
	header := make(map[string]int, len(head))
	for i, col := range head {
		if i == 0 {
			col = strings.TrimPrefix(col, "\ufeff")
		}
		header[strings.TrimSpace(col)] = i
	}
	return &table{name: path.Base(f.Name), rc: rc, reader: r, header: header, line: 1}, nil
}

func (t *table) Close() error { return t.rc.Close() }

func (t *table) require(cols ...string) error {
	var missing []string
	for _, c := range cols {
		if _, ok := t.header[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s: %w %s", domain.ErrFeedInvalid, t.name, errMissingColumn, strings.Join(missing, ", "))
	}
	return nil
}

// next returns the next record. Malformed lines are reported through
// skipped so callers can keep counting rows.
func (t *table) next() (row, bool, error) {
	rec, err := t.reader.Read()
	t.line++
	if err == io.EOF {
		return row{}, false, nil
	}
	var perr *csv.ParseError
	if errors.As(err, &perr) {
		return row{t: t, line: t.line, malformed: true}, true, nil
	}
	if err != nil {
		return row{}, false, fmt.Errorf("%w: read %s: %v", domain.ErrFeedInvalid, t.name, err)
	}
	return row{t: t, fields: rec, line: t.line}, true, nil
}

type row struct {
	t         *table
	fields    []string
	line      int
	malformed bool
}

func (r row) get(col string) string {
	idx, ok := r.t.header[col]
	if !ok || idx >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[idx])
}

// opt maps empty values to nil.
func (r row) opt(col string) *string {
	v := r.get(col)
	if v == "" {
		return nil
	}
	return &v
}

func (r row) optDigit(col string) *int {
	v := r.get(col)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return nil
	}
	return &n
}

func (r row) digitOr(col string, fallback int) int {
	if n := r.optDigit(col); n != nil {
		return *n
	}
	return fallback
}

func (r row) flag(col string) (bool, error) {
	n, err := strconv.Atoi(r.get(col))
	if err != nil {
		return false, fmt.Errorf("%s must be numeric", col)
	}
	return n != 0, nil
}
