// Package csvsource decodes the roster sheet export into observations.
package csvsource

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/okian/perfconsole/internal/domain/model"
)

// Sheet headers.
const (
	ColPlayer   = "Player"
	ColPosition = "Position"
	ColDate     = "Date"
	ColHeight   = "Height"
	ColWeight   = "Weight"
	ColBodyFat  = "Body_Fat"
	ColWingspan = "Wingspan"
	ColImageURL = "Image_URL"
)

// Sentinel errors.
var (
	ErrMissingColumn = errors.New("required column missing")
	ErrEmptyFile     = errors.New("csv has no header row")
)

// Issue describes one cell or row that could not be used as-is. Row is the
// 1-based line number in the file, header included.
type Issue struct {
	Row    int
	Column string
	Err    error
}

func (i Issue) Error() string {
	if i.Column == "" {
		return fmt.Sprintf("row %d: %v", i.Row, i.Err)
	}
	return fmt.Sprintf("row %d, %s: %v", i.Row, i.Column, i.Err)
}

func (i Issue) Unwrap() error { return i.Err }

// Decode reads the sheet. Rows without an athlete or with an unparseable
// date are dropped. A bad metric cell only drops that metric. Both are
// reported as issues. The error is reserved for unreadable input.
func Decode(r io.Reader) (model.Snapshot, []Issue, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return model.Snapshot{}, nil, ErrEmptyFile
	}
	if err != nil {
		return model.Snapshot{}, nil, fmt.Errorf("read header: %w", err)
	}
	idx := indexHeader(header)
	for _, col := range []string{ColPlayer, ColDate} {
		if _, ok := idx[strings.ToLower(col)]; !ok {
			return model.Snapshot{}, nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}

	var (
		out    []model.Observation
		issues []Issue
		row    = 1
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row++
		if err != nil {
			return model.Snapshot{}, issues, fmt.Errorf("read row %d: %w", row, err)
		}
		cell := func(col string) string {
			i, ok := idx[strings.ToLower(col)]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		o, rowIssues, ok := decodeRow(row, cell)
		issues = append(issues, rowIssues...)
		if ok {
			out = append(out, o)
		}
	}
	return model.NewSnapshot(out), issues, nil
}

// DecodeFile opens path and decodes it.
func DecodeFile(path string) (model.Snapshot, []Issue, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Snapshot{}, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Decode(f)
}

func decodeRow(row int, cell func(string) string) (model.Observation, []Issue, bool) {
	var issues []Issue

	o := model.Observation{
		AthleteID: cell(ColPlayer),
		Position:  cell(ColPosition),
		Values:    make(map[model.Metric]model.Optional[float64], len(model.Metrics())),
	}
	if o.AthleteID == "" {
		return o, []Issue{{Row: row, Column: ColPlayer, Err: model.ErrMissingAthlete}}, false
	}
	date, err := model.ParseDate(cell(ColDate))
	if err != nil {
		return o, []Issue{{Row: row, Column: ColDate, Err: err}}, false
	}
	o.Date = date

	for _, m := range model.Metrics() {
		v, err := model.ParseValue(m.Column(), cell(m.Column()))
		if err != nil {
			issues = append(issues, Issue{Row: row, Column: m.Column(), Err: err})
		}
		o.Values[m] = v
	}

	attrs := []struct {
		col string
		dst *model.Optional[float64]
	}{
		{ColHeight, &o.Height},
		{ColWeight, &o.Weight},
		{ColBodyFat, &o.BodyFat},
		{ColWingspan, &o.Wingspan},
	}
	for _, a := range attrs {
		v, err := model.ParseValue(a.col, cell(a.col))
		if err != nil {
			issues = append(issues, Issue{Row: row, Column: a.col, Err: err})
		}
		*a.dst = v
	}
	if url := cell(ColImageURL); url != "" {
		o.ImageURL = model.Some(url)
	}
	o.ID = model.ObservationID(o)
	return o, issues, true
}

func indexHeader(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}
