package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
)

const defaultRuleset = "../../examples/rulesets/default.yaml"

// newTestCommand returns a bare command whose output is captured.
func newTestCommand() (*cobra.Command, *bytes.Buffer) {
	cmd := &cobra.Command{}
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	return cmd, buf
}

// useGlobals sets the root flags for one test and restores them afterwards.
func useGlobals(t *testing.T, config, rules string) {
	t.Helper()
	origConfig, origRules, origLevel := cfgFile, rulesPath, logLevel
	cfgFile, rulesPath, logLevel = config, rules, ""
	t.Cleanup(func() {
		cfgFile, rulesPath, logLevel = origConfig, origRules, origLevel
	})
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
