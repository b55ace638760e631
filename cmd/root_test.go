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

	expected := []string{"estimate", "clients", "executives", "questionnaires", "recommendations", "summary", "template", "runs", "serve"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "estimate-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestEstimateCreate_Flags(t *testing.T) {
	for _, name := range []string{"file", "interactive", "project", "client", "client-id", "sales-exec", "questionnaire", "answer", "json", "xlsx"} {
		assert.NotNil(t, estimateCreateCmd.Flags().Lookup(name), "missing --%s", name)
	}
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestTemplateCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range templateCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"show", "set", "reset"} {
		assert.True(t, names[name], "expected template subcommand %q", name)
	}
}

func TestSummaryRegenerate_Flags(t *testing.T) {
	for _, name := range []string{"project", "client", "run"} {
		assert.NotNil(t, summaryRegenerateCmd.Flags().Lookup(name), "missing --%s", name)
	}
}
