package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"hunt", "vat", "contacts", "linkedin", "approve", "batch", "runs", "lists", "quota", "monitor", "serve"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "enrich-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)

	flag := rootCmd.PersistentFlags().Lookup("format")
	require.NotNil(t, flag)
	assert.Equal(t, "json", flag.DefValue)
	assert.Equal(t, "o", flag.Shorthand)
}

func TestHuntCommand_Flags(t *testing.T) {
	for _, name := range []string{"company", "vat", "name"} {
		assert.NotNil(t, huntCmd.Flags().Lookup(name), "hunt should have --%s flag", name)
	}
}

func TestBatchCommand_Flags(t *testing.T) {
	for _, name := range []string{"input", "sheet", "stages", "concurrency", "auto-approve"} {
		assert.NotNil(t, batchCmd.Flags().Lookup(name), "batch should have --%s flag", name)
	}
	assert.Equal(t, "false", batchCmd.Flags().Lookup("auto-approve").DefValue)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestRunsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range runsCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["list"])
	assert.True(t, names["show"])
}

func TestListsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range listsCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"show", "add", "remove", "import"} {
		assert.True(t, names[name], "lists should have subcommand %q", name)
	}
}
