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
	for _, name := range []string{"discover", "verify", "plan", "runs", "migrate", "serve"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "sourdough-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestDiscoverCommand_Flags(t *testing.T) {
	for _, name := range []string{"city", "cities-file", "max-queries", "limit", "concurrency", "resume"} {
		require.NotNil(t, discoverCmd.Flags().Lookup(name), "discover should have --%s", name)
	}
	assert.Equal(t, "20", discoverCmd.Flags().Lookup("limit").DefValue)
	assert.Equal(t, "false", discoverCmd.Flags().Lookup("resume").DefValue)
}

func TestVerifyCommand_Flags(t *testing.T) {
	for _, name := range []string{"name", "city", "state", "website", "description", "json"} {
		require.NotNil(t, verifyCmd.Flags().Lookup(name), "verify should have --%s", name)
	}
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag)
	assert.Equal(t, "0", flag.DefValue)
}
