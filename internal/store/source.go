// ABOUTME: Readers that turn a spreadsheet, CSV, or JSON export into vulnerability records.
// ABOUTME: Locates the header row, maps known columns, and carries the rest as attributes.

package store

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/jfeddern/VulnSearch/internal/engine"
	"github.com/jfeddern/VulnSearch/internal/types"

	"github.com/xuri/excelize/v2"
)

// headerSearchRows bounds how many leading rows may precede the header row.
// The FSTEC export puts a title row above the headers.
const headerSearchRows = 10

type field int

const (
	fieldID field = iota
	fieldName
	fieldDescription
	fieldVendor
	fieldSoftware
	fieldVersion
	fieldSeverity
	fieldCount
)

var fieldAliases = map[field][]string{
	fieldID:          {types.ColumnID, "id"},
	fieldName:        {types.ColumnName, "name"},
	fieldDescription: {types.ColumnDescription, "description"},
	fieldVendor:      {types.ColumnVendor, "vendor"},
	fieldSoftware:    {types.ColumnSoftware, "software"},
	fieldVersion:     {types.ColumnVersion, "version"},
	fieldSeverity:    {types.ColumnSeverity, "severity"},
}

// requiredFields must be present in the header; severity may be absent
var requiredFields = []field{fieldID, fieldName, fieldDescription, fieldVendor, fieldSoftware, fieldVersion}

var aliasIndex = func() map[string]field {
	index := make(map[string]field)
	for f, aliases := range fieldAliases {
		for _, alias := range aliases {
			index[engine.Fold(alias)] = f
		}
	}
	return index
}()

type rowVisitor func(cells []string) error

// columns maps record fields to cell positions for one header row
type columns struct {
	header []string
	index  [fieldCount]int
}

// resolveColumns returns nil, nil when cells is not a header row, and an
// error when it is a header row missing required columns.
func resolveColumns(cells []string) (*columns, error) {
	cols := &columns{header: make([]string, len(cells))}
	for i := range cols.index {
		cols.index[i] = -1
	}

	for i, cell := range cells {
		name := strings.TrimSpace(cell)
		cols.header[i] = name
		if f, ok := aliasIndex[engine.Fold(name)]; ok && cols.index[f] < 0 {
			cols.index[f] = i
		}
	}

	if cols.index[fieldID] < 0 {
		return nil, nil
	}

	var missing []string
	for _, f := range requiredFields {
		if cols.index[f] < 0 {
			missing = append(missing, fieldAliases[f][0])
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	return cols, nil
}

func (c *columns) cell(cells []string, f field) string {
	i := c.index[f]
	if i < 0 || i >= len(cells) {
		return ""
	}
	return cells[i]
}

func (c *columns) record(cells []string) types.Record {
	record := types.Record{
		ID:          strings.TrimSpace(c.cell(cells, fieldID)),
		Name:        c.cell(cells, fieldName),
		Description: c.cell(cells, fieldDescription),
		Vendor:      c.cell(cells, fieldVendor),
		Software:    c.cell(cells, fieldSoftware),
		Version:     c.cell(cells, fieldVersion),
		Severity:    c.cell(cells, fieldSeverity),
		Attributes:  make(map[string]string),
	}

	mapped := make(map[int]bool, fieldCount)
	for _, i := range c.index {
		mapped[i] = true
	}
	for i, name := range c.header {
		if name == "" || mapped[i] {
			continue
		}
		value := ""
		if i < len(cells) {
			value = cells[i]
		}
		record.Attributes[name] = value
	}

	return record
}

// tableBuilder accumulates records from raw rows in source order
type tableBuilder struct {
	cols    *columns
	scanned int
	records []types.Record
	skipped int
}

func (b *tableBuilder) visit(cells []string) error {
	if b.cols == nil {
		b.scanned++
		cols, err := resolveColumns(cells)
		if err != nil {
			return err
		}
		if cols != nil {
			b.cols = cols
			return nil
		}
		if b.scanned >= headerSearchRows {
			return errHeaderNotFound
		}
		return nil
	}

	record := b.cols.record(cells)
	if record.ID == "" {
		b.skipped++
		return nil
	}
	b.records = append(b.records, record)
	return nil
}

var errHeaderNotFound = fmt.Errorf("header row with column %q not found in the first %d rows", types.ColumnID, headerSearchRows)

// readSource streams the rows of the file at path into a tableBuilder
func readSource(path string) (*tableBuilder, error) {
	var read func(string, rowVisitor) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		read = readXLSX
	case ".csv":
		read = readCSV
	case ".json":
		read = readJSON
	default:
		return nil, fmt.Errorf("unsupported file format %q", filepath.Ext(path))
	}

	builder := &tableBuilder{}
	if err := read(path, builder.visit); err != nil {
		return nil, err
	}
	if builder.cols == nil {
		return nil, errHeaderNotFound
	}
	return builder, nil
}

func readXLSX(path string, visit rowVisitor) error {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return errors.New("workbook has no sheets")
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		return fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	defer rows.Close()

	for rows.Next() {
		cells, err := rows.Columns()
		if err != nil {
			return fmt.Errorf("failed to read row: %w", err)
		}
		if err := visit(cells); err != nil {
			return err
		}
	}
	return rows.Error()
}

func readCSV(path string, visit rowVisitor) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	first := true
	for {
		cells, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to parse CSV: %w", err)
		}
		if first && len(cells) > 0 {
			cells[0] = strings.TrimPrefix(cells[0], "\ufeff")
			first = false
		}
		if err := visit(cells); err != nil {
			return err
		}
	}
}

// readJSON accepts an array of objects keyed by column name
func readJSON(path string, visit rowVisitor) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var objects []map[string]any
	if err := json.Unmarshal(data, &objects); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}

	keys := make(map[string]bool)
	for _, object := range objects {
		for key := range object {
			keys[key] = true
		}
	}
	header := make([]string, 0, len(keys))
	for key := range keys {
		header = append(header, key)
	}
	sort.Strings(header)

	if err := visit(header); err != nil {
		return err
	}
	for _, object := range objects {
		cells := make([]string, len(header))
		for i, key := range header {
			cells[i] = jsonCell(object[key])
		}
		if err := visit(cells); err != nil {
			return err
		}
	}
	return nil
}

func jsonCell(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
