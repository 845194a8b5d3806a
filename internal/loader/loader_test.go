package loader

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRejectsNamespaceMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.scxml")
	content := `<scxml xmlns="http://example.com/not-scxml" version="1.0"><state id="s0"/></scxml>`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected NamespaceMismatch error, got nil")
	}
}

func TestLoadRejectsMalformedXML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.scxml")
	if err := os.WriteFile(path, []byte("<scxml><unclosed>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected DocumentMalformed error, got nil")
	}
}

func TestLoadAcceptsValidDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "good.scxml")
	content := `<scxml xmlns="` + SCXMLNamespace + `" version="1.0" initial="s0"><state id="s0"/></scxml>`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Root.AttrOr("initial", "") != "s0" {
		t.Errorf("initial attr = %q, want s0", doc.Root.AttrOr("initial", ""))
	}
}

func TestResolveScriptRejectsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	outside := filepath.Join(dir, "outside.js")
	if err := os.WriteFile(outside, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := ResolveScript(sub, "../outside.js"); err == nil {
		t.Error("expected ExternalScriptUnavailable for path-traversal attempt, got nil")
	}
}

func TestResolveScriptReadsSiblingFile(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "sibling.js")
	if err := os.WriteFile(script, []byte("var x = 1;"), 0o644); err != nil {
		t.Fatal(err)
	}
	content, resolved, err := ResolveScript(dir, "sibling.js")
	if err != nil {
		t.Fatalf("ResolveScript: %v", err)
	}
	if content != "var x = 1;" {
		t.Errorf("content = %q", content)
	}
	if resolved != script {
		t.Errorf("resolved = %q, want %q", resolved, script)
	}
}

func TestResolveScriptMissingFile(t *testing.T) {
	dir := t.TempDir()
	if _, _, err := ResolveScript(dir, "missing.js"); err == nil {
		t.Error("expected ExternalScriptUnavailable for missing file, got nil")
	}
}
