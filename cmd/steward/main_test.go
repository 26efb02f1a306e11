package main

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steward-dev/steward/pkg/types"
)

func TestParseAnswer(t *testing.T) {
	cases := []struct {
		input    string
		approved bool
		remember bool
	}{
		{"y\n", true, false},
		{"yes\n", true, false},
		{"a\n", true, true},
		{"always\n", true, true},
		{"n\n", false, false},
		{"never\n", false, true},
		{"\n", false, false},
		{"whatever\n", false, false},
		{"  Y  \n", true, false},
	}
	for _, tc := range cases {
		approved, remember, err := parseAnswer(tc.input)
		require.NoError(t, err)
		assert.Equal(t, tc.approved, approved, "input %q", tc.input)
		assert.Equal(t, tc.remember, remember, "input %q", tc.input)
	}
}

func TestTerminalPrompt(t *testing.T) {
	in := strings.NewReader("a\n")
	var out strings.Builder
	prompt := terminalPrompt(in, &out)

	approved, remember, err := prompt(context.Background(), &types.ApprovalRequest{
		Description: "delete everything",
		Operations:  []string{"run_shell: rm -rf build"},
		Risk:        types.RiskHigh,
	})
	require.NoError(t, err)
	assert.True(t, approved)
	assert.True(t, remember)

	assert.Contains(t, out.String(), "delete everything")
	assert.Contains(t, out.String(), "rm -rf build")
	assert.Contains(t, out.String(), "HIGH")
}

func TestParseLogLevel(t *testing.T) {
	cases := []struct {
		input string
		want  slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"verbose", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, parseLogLevel(tc.input), "input %q", tc.input)
	}
}

func TestRootCommandWiring(t *testing.T) {
	root := newRootCmd()

	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["run"])
	assert.True(t, names["serve"])
	assert.True(t, names["clean"])

	for _, flag := range []string{"config", "dry-run", "yes", "sandbox"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), "missing flag %s", flag)
	}
}
