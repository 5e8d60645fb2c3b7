package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/enrich-cli/internal/model"
)

func TestParseStages(t *testing.T) {
	stages, err := parseStages([]string{"hunt", " VAT ", "hunt"})
	require.NoError(t, err)
	assert.Equal(t, []model.Stage{model.StageHunt, model.StageVAT}, stages)

	_, err = parseStages([]string{"hunt", "scrape"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown stages: scrape")

	_, err = parseStages([]string{" "})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one stage")
}

func TestReadCompanies_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "companies.csv")
	data := "Company Number,VAT Number,Company Name\n1234567,GB123456789,Acme Ltd\nSC123456,,Beta Ltd\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	companies, err := readCompanies(path, "")
	require.NoError(t, err)
	require.Len(t, companies, 2)
	assert.Equal(t, "01234567", companies[0].CompanyNumber)
	assert.Equal(t, "GB123456789", companies[0].VATNumber)
	assert.Equal(t, "SC123456", companies[1].CompanyNumber)
}

func TestReadCompanies_UnsupportedExtension(t *testing.T) {
	_, err := readCompanies(filepath.Join(t.TempDir(), "companies.json"), "")
	assert.Error(t, err)
}

func TestWriteRunSummary(t *testing.T) {
	var buf bytes.Buffer
	writeRunSummary(&buf, &model.Run{
		ID:        "abc12345-6789",
		Status:    model.RunStatusComplete,
		Companies: 5,
		Processed: 5,
		Failed:    1,
		Error:     "1 of 5 companies failed",
	})

	assert.Contains(t, buf.String(), "Run abc12345 complete: 5 processed, 1 failed of 5 companies")
	assert.Contains(t, buf.String(), "1 of 5 companies failed")
}
