package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseWrapFileGit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "zlib.wrap")
	contents := "[wrap-git]\nurl = https://example.invalid/zlib.git\nrevision = v1.2.11\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	w, err := parseWrapFile(path)
	if err != nil {
		t.Fatalf("parseWrapFile: %v", err)
	}
	if w.kind != "wrap-git" {
		t.Errorf("kind = %q, want wrap-git", w.kind)
	}
	if got, want := w.get("url"), "https://example.invalid/zlib.git"; got != want {
		t.Errorf("url = %q, want %q", got, want)
	}
	if got, want := w.get("revision"), "v1.2.11"; got != want {
		t.Errorf("revision = %q, want %q", got, want)
	}
	if got, want := w.summary(), "wrap-git url=https://example.invalid/zlib.git revision=v1.2.11"; got != want {
		t.Errorf("summary = %q, want %q", got, want)
	}
}

func TestParseWrapFileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "expat.wrap")
	contents := "[wrap-file]\nsource_filename = expat-2.4.1.tar.bz2\nsource_url = https://example.invalid/expat-2.4.1.tar.bz2\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	w, err := parseWrapFile(path)
	if err != nil {
		t.Fatalf("parseWrapFile: %v", err)
	}
	if w.kind != "wrap-file" {
		t.Errorf("kind = %q, want wrap-file", w.kind)
	}
	if got, want := w.get("source_filename"), "expat-2.4.1.tar.bz2"; got != want {
		t.Errorf("source_filename = %q, want %q", got, want)
	}
}

func TestParseWrapFileRejectsUnrecognizedSection(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bogus.wrap")
	if err := os.WriteFile(path, []byte("[not-a-wrap-section]\nfoo = bar\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := parseWrapFile(path); err == nil {
		t.Fatal("expected an error for a .wrap file with no recognized [wrap-*] section")
	}
}
