// Package ingest reads company identifiers for batch enrichment from CSV
// and XLSX files.
package ingest

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/enrich-cli/internal/model"
)

// Canonical column names.
const (
	ColCompanyNumber = "company_number"
	ColVATNumber     = "vat_number"
	ColCompanyName   = "company_name"
)

// Accepted header spellings after normalization.
var headerAliases = map[string]string{
	"company_number":      ColCompanyNumber,
	"company_no":          ColCompanyNumber,
	"companynumber":       ColCompanyNumber,
	"registration_number": ColCompanyNumber,
	"crn":                 ColCompanyNumber,
	"vat_number":          ColVATNumber,
	"vat_no":              ColVATNumber,
	"vat":                 ColVATNumber,
	"company_name":        ColCompanyName,
	"companyname":         ColCompanyName,
	"name":                ColCompanyName,
}

// ReadFile reads identifiers from path, choosing the parser by extension.
func ReadFile(path string) ([]model.Identifiers, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrap(err, "ingest: open csv")
		}
		defer f.Close() //nolint:errcheck
		return ReadCSV(f)
	case ".xlsx":
		return ReadXLSX(path, "")
	default:
		return nil, eris.Errorf("ingest: unsupported file type %q", filepath.Ext(path))
	}
}

// ReadCSV parses identifiers from CSV data with a header row.
func ReadCSV(r io.Reader) ([]model.Identifiers, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read csv")
	}
	return fromRows(records)
}

// ReadXLSX parses identifiers from the named sheet of an XLSX workbook, or
// the first sheet when sheetName is empty.
func ReadXLSX(path, sheetName string) ([]model.Identifiers, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open xlsx")
	}

	var sheet *xlsx.Sheet
	if sheetName != "" {
		s, ok := f.Sheet[sheetName]
		if !ok {
			return nil, eris.Errorf("ingest: sheet %q not found", sheetName)
		}
		sheet = s
	} else {
		if len(f.Sheets) == 0 {
			return nil, eris.New("ingest: workbook has no sheets")
		}
		sheet = f.Sheets[0]
	}

	records := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		if row == nil {
			continue
		}
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		records = append(records, cells)
	}
	return fromRows(records)
}

// NormalizeHeader maps "Company Number", "company-number" and similar
// spellings to a canonical column name. Unknown headers are returned
// normalized but unmapped.
func NormalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	h = strings.NewReplacer(" ", "_", "-", "_", ".", "").Replace(h)
	if c, ok := headerAliases[h]; ok {
		return c
	}
	return h
}

// NormalizeCompanyNumber uppercases and trims n. Purely numeric numbers
// shorter than eight digits are zero padded, restoring the leading zeros
// spreadsheets drop.
func NormalizeCompanyNumber(n string) string {
	n = strings.ToUpper(strings.Join(strings.Fields(n), ""))
	if n == "" || len(n) >= 8 || strings.Trim(n, "0123456789") != "" {
		return n
	}
	return strings.Repeat("0", 8-len(n)) + n
}

func fromRows(records [][]string) ([]model.Identifiers, error) {
	if len(records) < 2 {
		return nil, eris.New("ingest: file has no data rows")
	}

	cols := make(map[string]int)
	for i, h := range records[0] {
		name := NormalizeHeader(h)
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	if _, ok := cols[ColCompanyNumber]; !ok {
		return nil, eris.Errorf("ingest: missing required column %q", ColCompanyNumber)
	}

	seen := make(map[string]bool)
	var out []model.Identifiers
	for _, row := range records[1:] {
		ids := model.Identifiers{
			CompanyNumber: NormalizeCompanyNumber(getCol(row, cols, ColCompanyNumber)),
			VATNumber:     getCol(row, cols, ColVATNumber),
			CompanyName:   getCol(row, cols, ColCompanyName),
		}.Trimmed()
		if ids.CompanyNumber == "" || seen[ids.CompanyNumber] {
			continue
		}
		seen[ids.CompanyNumber] = true
		out = append(out, ids)
	}

	if len(out) == 0 {
		return nil, eris.New("ingest: no rows with a company number")
	}
	return out, nil
}

func getCol(row []string, cols map[string]int, col string) string {
	idx, ok := cols[col]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
