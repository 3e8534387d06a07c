package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	source := filepath.Join(base, "source")
	if err := os.MkdirAll(source, 0o755); err != nil {
		t.Fatalf("mkdir source: %v", err)
	}
	content := fmt.Sprintf(`[paths]
source_dirs = [%q]
destination_dir = %q
log_dir = %q
undo_dir = %q
`, source, filepath.Join(base, "organized"), filepath.Join(base, "logs"), filepath.Join(base, "undo"))
	path := filepath.Join(base, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestOrganizeDryRunCommand(t *testing.T) {
	configPath := writeTestConfig(t)
	output, err := runCommand(t, "--config", configPath, "organize", "--dry-run")
	if err != nil {
		t.Fatalf("organize failed: %v\n%s", err, output)
	}
	if !strings.Contains(output, "Would move 0 file(s)") {
		t.Fatalf("unexpected output: %s", output)
	}
}

func TestPreviewCommandEmptySource(t *testing.T) {
	configPath := writeTestConfig(t)
	output, err := runCommand(t, "--config", configPath, "preview")
	if err != nil {
		t.Fatalf("preview failed: %v\n%s", err, output)
	}
	if !strings.Contains(output, "Nothing to organize.") {
		t.Fatalf("unexpected output: %s", output)
	}
}

func TestConfigInitCommand(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	output, err := runCommand(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init failed: %v\n%s", err, output)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file: %v", err)
	}

	// A second init without --overwrite refuses to clobber the file.
	if _, err := runCommand(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when config already exists")
	}
}

func TestUndoListCommandEmpty(t *testing.T) {
	configPath := writeTestConfig(t)
	output, err := runCommand(t, "--config", configPath, "undo", "list")
	if err != nil {
		t.Fatalf("undo list failed: %v\n%s", err, output)
	}
	if !strings.Contains(output, "No undo logs.") {
		t.Fatalf("unexpected output: %s", output)
	}
}

func TestRunsCommandEmpty(t *testing.T) {
	configPath := writeTestConfig(t)
	output, err := runCommand(t, "--config", configPath, "runs")
	if err != nil {
		t.Fatalf("runs failed: %v\n%s", err, output)
	}
	if !strings.Contains(output, "No recorded runs.") {
		t.Fatalf("unexpected output: %s", output)
	}
}
