package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/enrich-cli/internal/model"
)

func TestReadListFile(t *testing.T) {
	doc := `
search_keywords:
  - privacy policy
  - modern slavery statement
blacklist_domains:
  - yell.com
`
	lists, err := readListFile(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, []string{"privacy policy", "modern slavery statement"}, lists.Keywords)
	assert.Empty(t, lists.SERPExcluded)
	assert.Equal(t, []string{"yell.com"}, lists.Blacklist)
}

func TestReadListFile_Empty(t *testing.T) {
	lists, err := readListFile(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, lists.Keywords)
}

func TestReadListFile_Invalid(t *testing.T) {
	_, err := readListFile(strings.NewReader("search_keywords: {nope"))
	assert.Error(t, err)
}

func TestParseKind(t *testing.T) {
	kind, err := parseKind("keywords")
	require.NoError(t, err)
	assert.Equal(t, model.ListSearchKeyword, kind)

	_, err = parseKind("whitelist")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown list kind")
}
