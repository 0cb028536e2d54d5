// Package csvsource streams question rows out of a Stack Overflow style
// Questions.csv export.
package csvsource

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// Column positions within a row.
const (
	ColumnID    = 0
	ColumnTitle = 5
	ColumnBody  = 6
)

// ErrMalformedRow signals a record with too few columns. The stream stays usable.
var ErrMalformedRow = errors.New("malformed row")

// ErrUnsupportedEncoding signals an unknown input encoding name.
var ErrUnsupportedEncoding = errors.New("unsupported encoding")

// Row is one question record. Body is read but not indexed.
type Row struct {
	Line  int // 1-based line where the record starts
	ID    string
	Title string
	Body  string
}

// Reader yields rows in file order, the header already skipped.
type Reader struct {
	csv        *csv.Reader
	headerRead bool
}

// NewReader wraps r, decoding it from the named encoding ("latin1"/"iso-8859-1" or "utf-8").
func NewReader(r io.Reader, encoding string) (*Reader, error) {
	decoded, err := decode(r, encoding)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(decoded)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	return &Reader{csv: cr}, nil
}

// Next returns the next row. It returns io.EOF at the end of input and an error
// wrapping ErrMalformedRow for a short record; any other error means the stream
// cannot be read further.
func (r *Reader) Next() (Row, error) {
	if !r.headerRead {
		r.headerRead = true
		if _, err := r.csv.Read(); err != nil {
			if errors.Is(err, io.EOF) {
				return Row{}, io.EOF
			}
			return Row{}, fmt.Errorf("read header: %w", err)
		}
	}

	rec, err := r.csv.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Row{}, io.EOF
		}
		return Row{}, fmt.Errorf("read row: %w", err)
	}

	line, _ := r.csv.FieldPos(0)
	if len(rec) <= ColumnBody {
		return Row{Line: line}, fmt.Errorf("line %d: %w: %d columns, want at least %d",
			line, ErrMalformedRow, len(rec), ColumnBody+1)
	}

	return Row{
		Line:  line,
		ID:    rec[ColumnID],
		Title: rec[ColumnTitle],
		Body:  rec[ColumnBody],
	}, nil
}

func decode(r io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToLower(encoding) {
	case "", "latin1", "iso-8859-1":
		return charmap.ISO8859_1.NewDecoder().Reader(r), nil
	case "utf-8", "utf8":
		return r, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, encoding)
	}
}
