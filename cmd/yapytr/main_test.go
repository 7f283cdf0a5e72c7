package main

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		verbosity string
		want      slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.verbosity), "verbosity %q", tt.verbosity)
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{
		"login", "dl_docs", "portfolio", "account_info", "details",
		"print_price_alarms", "set_price_alarm", "cancel_price_alarm",
		"export_transactions", "clean", "version",
	}
	registered := map[string]bool{}
	for _, cmd := range rootCmd.Commands() {
		registered[cmd.Name()] = true
	}
	for _, name := range want {
		assert.True(t, registered[name], "command %q not registered", name)
	}
}

func TestVersionCommand(t *testing.T) {
	assert.Equal(t, version, rootCmd.Version)

	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)
	assert.Equal(t, "yapytr "+version+"\n", out.String())
}

func TestDlDocsFlagDefaults(t *testing.T) {
	format, err := dlDocsCmd.Flags().GetString("format")
	require.NoError(t, err)
	assert.Equal(t, "{iso_date}{time} {title}{doc_num}", format)

	workers, err := dlDocsCmd.Flags().GetInt("workers")
	require.NoError(t, err)
	assert.Equal(t, 8, workers)

	lastDays, err := dlDocsCmd.Flags().GetInt("last_days")
	require.NoError(t, err)
	assert.Zero(t, lastDays)
}

func TestLoginFlagsOnNetworkCommands(t *testing.T) {
	for _, cmd := range []string{"login", "dl_docs", "portfolio", "account_info", "details", "print_price_alarms"} {
		c, _, err := rootCmd.Find([]string{cmd})
		require.NoError(t, err)
		assert.NotNil(t, c.Flags().Lookup("phone_no"), "command %q", cmd)
		assert.NotNil(t, c.Flags().Lookup("pin"), "command %q", cmd)
	}
}
