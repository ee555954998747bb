package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	orig := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	fn()

	w.Close()
	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

func TestCmdSubprojectsNoDirectory(t *testing.T) {
	srcDir := t.TempDir()
	out := captureStdout(t, func() {
		if err := cmdSubprojects(context.Background(), []string{srcDir}); err != nil {
			t.Fatalf("cmdSubprojects: %v", err)
		}
	})
	if !bytes.Contains([]byte(out), []byte("no subprojects/ directory")) {
		t.Fatalf("output = %q, want a mention of the missing directory", out)
	}
}

func TestCmdSubprojectsListsCheckoutsAndWraps(t *testing.T) {
	srcDir := t.TempDir()
	subDir := filepath.Join(srcDir, "subprojects")
	if err := os.MkdirAll(filepath.Join(subDir, "localdep"), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	wrapContents := "[wrap-git]\nurl = https://example.invalid/foo.git\nrevision = main\n"
	if err := os.WriteFile(filepath.Join(subDir, "foo.wrap"), []byte(wrapContents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	out := captureStdout(t, func() {
		if err := cmdSubprojects(context.Background(), []string{srcDir}); err != nil {
			t.Fatalf("cmdSubprojects: %v", err)
		}
	})
	if !bytes.Contains([]byte(out), []byte("localdep\t(local checkout)")) {
		t.Errorf("output missing local checkout entry:\n%s", out)
	}
	if !bytes.Contains([]byte(out), []byte("foo\twrap-git")) {
		t.Errorf("output missing wrap summary entry:\n%s", out)
	}
}
