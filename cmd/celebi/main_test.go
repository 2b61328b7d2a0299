package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// runCLI runs the command line against an isolated base directory.
func runCLI(t *testing.T, base string, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	args = append([]string{"-base-dir", base}, args...)
	code = run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestCreateSetGetDestroy(t *testing.T) {
	base := t.TempDir()

	if code, _, stderr := runCLI(t, base, "-c", "-n", "mydb"); code != 0 {
		t.Fatalf("create exit %d: %s", code, stderr)
	}
	if _, err := os.Stat(filepath.Join(base, "mydb")); err != nil {
		t.Fatalf("database dir missing: %v", err)
	}

	if code, _, stderr := runCLI(t, base, "-set", "-name", "mydb", "-key", "greeting", "-value", "hello world"); code != 0 {
		t.Fatalf("set exit %d: %s", code, stderr)
	}

	code, stdout, stderr := runCLI(t, base, "-g", "-n", "mydb", "-k", "greeting")
	if code != 0 {
		t.Fatalf("get exit %d: %s", code, stderr)
	}
	if stdout != "hello world" {
		t.Fatalf("get output = %q, want %q", stdout, "hello world")
	}

	if code, _, stderr := runCLI(t, base, "-d", "-n", "mydb"); code != 0 {
		t.Fatalf("destroy exit %d: %s", code, stderr)
	}
	if _, err := os.Stat(filepath.Join(base, "mydb")); !os.IsNotExist(err) {
		t.Fatalf("database dir should be gone, stat err = %v", err)
	}
}

func TestSetWithBucketAndQuery(t *testing.T) {
	base := t.TempDir()
	runCLI(t, base, "-c", "-n", "db")
	runCLI(t, base, "-s", "-n", "db", "-k", "k2", "-v", "2", "-b", "tools")
	runCLI(t, base, "-s", "-n", "db", "-k", "k1", "-v", "1", "-b", "tools")
	runCLI(t, base, "-s", "-n", "db", "-k", "k3", "-v", "3")

	code, stdout, stderr := runCLI(t, base, "-q", "-n", "db", "-b", "tools")
	if code != 0 {
		t.Fatalf("query exit %d: %s", code, stderr)
	}
	if stdout != "k1\nk2\n" {
		t.Fatalf("query output = %q", stdout)
	}
}

func TestBoltBackendFlag(t *testing.T) {
	base := t.TempDir()
	runCLI(t, base, "-backend", "bolt", "-c", "-n", "db")
	runCLI(t, base, "-backend", "bolt", "-s", "-n", "db", "-k", "k", "-v", "v")

	_, stdout, _ := runCLI(t, base, "-backend", "bolt", "-g", "-n", "db", "-k", "k")
	if stdout != "v" {
		t.Fatalf("get output = %q", stdout)
	}
	if _, err := os.Stat(filepath.Join(base, "db", "celebi.db")); err != nil {
		t.Fatalf("bolt file missing: %v", err)
	}
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		code    int
		message string
	}{
		{"no command", nil, 0, "No command specified"},
		{"create without name", []string{"-c"}, 1, "database name"},
		{"set without key", []string{"-s", "-n", "db", "-v", "x"}, 1, "key to set"},
		{"set without value", []string{"-s", "-n", "db", "-k", "x"}, 1, "value to set"},
		{"get without key", []string{"-g", "-n", "db"}, 1, "key to get"},
		{"query without bucket", []string{"-q", "-n", "db"}, 1, "query term"},
		{"bad backend", []string{"-backend", "tape", "-c", "-n", "db"}, 1, "storage.backend"},
		{"unknown flag", []string{"-frobnicate"}, 2, "flag provided but not defined"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runCLI(t, t.TempDir(), tt.args...)
			if code != tt.code {
				t.Errorf("exit code = %d, want %d", code, tt.code)
			}
			if !strings.Contains(stderr, tt.message) {
				t.Errorf("stderr should mention %q: %s", tt.message, stderr)
			}
		})
	}
}

func TestHelp(t *testing.T) {
	code, _, stderr := runCLI(t, t.TempDir(), "-h")
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if !strings.Contains(stderr, "-create") {
		t.Fatalf("help should list flags: %s", stderr)
	}
}

func TestDestroyMissingDatabase(t *testing.T) {
	code, _, stderr := runCLI(t, t.TempDir(), "-d", "-n", "ghost")
	if code != 0 {
		t.Fatalf("destroy of missing db exit %d: %s", code, stderr)
	}
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "data")
	cfgPath := filepath.Join(dir, "celebi.toml")
	cfg := "[storage]\nbase_dir = \"" + filepath.ToSlash(base) + "\"\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	var out, errOut bytes.Buffer
	if code := run([]string{"-config", cfgPath, "-c", "-n", "db"}, &out, &errOut); code != 0 {
		t.Fatalf("exit %d: %s", code, errOut.String())
	}
	if _, err := os.Stat(filepath.Join(base, "db")); err != nil {
		t.Fatalf("config base_dir not honoured: %v", err)
	}
}
