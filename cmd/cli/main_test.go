package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRun_PanicRecovery(t *testing.T) {
	// --- Arrange ---
	// An HCL file with a syntax error makes app.NewApp panic while loading the
	// configuration.
	invalidHCL := `
		node_type "broken" {
			input "a" {
		// Missing closing braces here
	`
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "main.hcl")
	require.NoError(t, os.WriteFile(configPath, []byte(invalidHCL), 0o600), "failed to set up test file")

	args := []string{"--config", configPath, "check", filepath.Join(tempDir, "recipe.json")}
	out := &bytes.Buffer{}

	// --- Act ---
	runErr := run(out, args)

	// --- Assert ---
	require.Error(t, runErr, "run() should have returned an error after recovering from a panic")

	errStr := runErr.Error()
	require.True(t, strings.Contains(errStr, "application startup panicked"), "The error message should indicate that a panic was recovered.")
	require.True(t, strings.Contains(errStr, "failed to parse"), "The error message should contain the underlying reason for the panic.")
}

func TestRun_Check(t *testing.T) {
	// --- Arrange ---
	tempDir := t.TempDir()
	recipePath := filepath.Join(tempDir, "recipe.json")
	recipe := `{"id":"r1","nodes":[{"id":"a","type":"model","data":{}}],"edges":[]}`
	require.NoError(t, os.WriteFile(recipePath, []byte(recipe), 0o600))
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(out, []string{"check", recipePath})

	// --- Assert ---
	require.NoError(t, err)
	require.Contains(t, out.String(), "Recipe r1 is valid: 1 node(s), 0 edge(s).")
}

func TestRun_ShouldExit(t *testing.T) {
	// --- Arrange ---
	// The "-h" (help) flag should cause cli.Parse to return `shouldExit=true`.
	args := []string{"-h"}
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(out, args)

	// --- Assert ---
	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	// --- Arrange ---
	args := []string{"--this-is-not-a-valid-flag"}
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(out, args)

	// --- Assert ---
	require.Error(t, err, "run() should return an error when argument parsing fails")
	require.Contains(t, err.Error(), "flag provided but not defined: -this-is-not-a-valid-flag")
}
