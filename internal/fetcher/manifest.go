package fetcher

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Manifest is a tabular manifest file: a header row plus data rows. Rows
// are padded to the header width so column access never goes out of range.
type Manifest struct {
	Header []string
	Rows   [][]string
}

// LoadOptions selects the sheet for XLSX sources.
type LoadOptions struct {
	SheetIndex int
	SheetName  string
}

// LoadManifest fetches and parses a manifest from a local path or URL.
// The format is chosen by file extension: .xlsx reads a workbook, anything
// else parses as CSV.
func LoadManifest(ctx context.Context, source string, opts LoadOptions) (*Manifest, error) {
	if strings.EqualFold(filepath.Ext(strippedPath(source)), ".xlsx") {
		return loadXLSX(ctx, source, opts)
	}
	return loadCSV(ctx, source)
}

// strippedPath drops a URL query string so the extension check works on
// presigned links.
func strippedPath(source string) string {
	if i := strings.IndexByte(source, '?'); i >= 0 {
		return source[:i]
	}
	return source
}

func loadCSV(ctx context.Context, source string) (*Manifest, error) {
	rc, err := Open(ctx, source)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ReadCSV(rc)
}

func loadXLSX(ctx context.Context, source string, opts LoadOptions) (*Manifest, error) {
	path := source
	if IsRemote(source) {
		tmp, err := os.CreateTemp("", "manifest-*.xlsx")
		if err != nil {
			return nil, eris.Wrap(err, "fetcher: temp file")
		}
		tmp.Close()
		defer os.Remove(tmp.Name())

		if _, err := FetchToFile(ctx, source, tmp.Name()); err != nil {
			return nil, err
		}
		path = tmp.Name()
	}
	return ReadXLSX(path, opts)
}

// ReadCSV parses a CSV stream into a Manifest. The first row is the
// header; short rows are padded with empty cells.
func ReadCSV(r io.Reader) (*Manifest, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, eris.New("fetcher: empty manifest")
	}
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: read header")
	}

	m := &Manifest{Header: header}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "fetcher: read row")
		}
		m.Rows = append(m.Rows, padRow(record, len(header)))
	}
	return m, nil
}

// ReadXLSX parses a workbook sheet into a Manifest.
func ReadXLSX(path string, opts LoadOptions) (*Manifest, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: open xlsx %s", path)
	}

	sheet, err := pickSheet(f, opts)
	if err != nil {
		return nil, err
	}
	if len(sheet.Rows) == 0 {
		return nil, eris.New("fetcher: empty manifest")
	}

	m := &Manifest{Header: rowToStrings(sheet.Rows[0])}
	for _, row := range sheet.Rows[1:] {
		m.Rows = append(m.Rows, padRow(rowToStrings(row), len(m.Header)))
	}
	return m, nil
}

func pickSheet(f *xlsx.File, opts LoadOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("fetcher: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}
	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("fetcher: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}
	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

func padRow(row []string, width int) []string {
	for len(row) < width {
		row = append(row, "")
	}
	return row
}

// ColumnIndex returns the position of a header column, or -1.
func (m *Manifest) ColumnIndex(name string) int {
	for i, h := range m.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Column returns all values of a header column in row order.
func (m *Manifest) Column(name string) ([]string, error) {
	idx := m.ColumnIndex(name)
	if idx < 0 {
		return nil, eris.Errorf("fetcher: column %q not in manifest", name)
	}
	out := make([]string, len(m.Rows))
	for i, row := range m.Rows {
		out[i] = row[idx]
	}
	return out, nil
}

// AddColumn appends a column with one value per row. An existing column
// of the same name is overwritten in place.
func (m *Manifest) AddColumn(name string, values []string) error {
	if len(values) != len(m.Rows) {
		return eris.Errorf("fetcher: column %q has %d values for %d rows", name, len(values), len(m.Rows))
	}

	if idx := m.ColumnIndex(name); idx >= 0 {
		for i := range m.Rows {
			m.Rows[i][idx] = values[i]
		}
		return nil
	}

	m.Header = append(m.Header, name)
	for i := range m.Rows {
		m.Rows[i] = append(m.Rows[i], values[i])
	}
	return nil
}

// WriteCSV writes the manifest as CSV.
func (m *Manifest) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(m.Header); err != nil {
		return eris.Wrap(err, "fetcher: write header")
	}
	for _, row := range m.Rows {
		if err := writer.Write(row); err != nil {
			return eris.Wrap(err, "fetcher: write row")
		}
	}
	writer.Flush()
	return eris.Wrap(writer.Error(), "fetcher: flush csv")
}

// WriteCSVFile writes the manifest to a file path.
func (m *Manifest) WriteCSVFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "fetcher: create %s", path)
	}
	defer f.Close()
	return m.WriteCSV(f)
}
