package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWritesAssemblyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.mc")
	out := filepath.Join(dir, "out.asm")
	require.NoError(t, os.WriteFile(src, []byte("int main() { return 0; }"), 0o644))

	cfg := &config{output: out}
	require.NoError(t, run(src, cfg))

	contents, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(contents), "global _start")
}

func TestRunReportsCompileError(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "bad.mc")
	require.NoError(t, os.WriteFile(src, []byte("int main() { x = 1; return 0; }"), 0o644))

	cfg := &config{output: filepath.Join(dir, "out.asm")}
	err := run(src, cfg)
	require.Error(t, err)
}

func TestRunReportsMissingFile(t *testing.T) {
	cfg := &config{output: "out.asm"}
	err := run(filepath.Join(t.TempDir(), "missing.mc"), cfg)
	require.Error(t, err)
}

func TestRootCmdRequiresExactlyOneArg(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	err := cmd.Execute()
	require.Error(t, err)
}
