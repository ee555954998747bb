package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCmdInitScaffoldsCProject(t *testing.T) {
	dir := t.TempDir()
	if err := cmdInit(context.Background(), []string{"-name", "widget", dir}); err != nil {
		t.Fatalf("cmdInit: %v", err)
	}

	mainC, err := os.ReadFile(filepath.Join(dir, "main.c"))
	if err != nil {
		t.Fatalf("ReadFile main.c: %v", err)
	}
	if !strings.Contains(string(mainC), "Hello, World!") {
		t.Errorf("main.c = %q, want a hello-world body", mainC)
	}

	projectFile, err := os.ReadFile(filepath.Join(dir, "project.mbs"))
	if err != nil {
		t.Fatalf("ReadFile project.mbs: %v", err)
	}
	if !strings.Contains(string(projectFile), `project('widget'`) {
		t.Errorf("project.mbs = %q, want it to declare the project name", projectFile)
	}
	if !strings.Contains(string(projectFile), `executable('widget', 'main.c'`) {
		t.Errorf("project.mbs = %q, want it to declare the executable", projectFile)
	}
}

func TestCmdInitRejectsUnknownLanguage(t *testing.T) {
	dir := t.TempDir()
	if err := cmdInit(context.Background(), []string{"-language", "rust", dir}); err == nil {
		t.Fatal("expected an error for an unsupported language")
	}
}
