package msgcat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEmbeddedDefaults(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, key := range []string{"status.started", "status.resign", "status.variantEnd", "game.start", "lobby.made", "help"} {
		if !c.Has(key) {
			t.Fatalf("missing default key %q", key)
		}
	}
	out, err := c.Render("status.resign", map[string]any{"Loser": "민수"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "민수") {
		t.Fatalf("render = %q", out)
	}
	if keys := c.Keys("status."); len(keys) < 8 || keys[0] != "status.aborted" {
		t.Fatalf("status keys = %v", keys)
	}
}

func TestMissingDataFailsAndFallback(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Render("status.resign", map[string]any{}); err == nil {
		t.Fatalf("missing template data accepted")
	}
	if _, err := c.Render("no.such.key", nil); err == nil {
		t.Fatalf("unknown key rendered")
	}
	if got := c.RenderOr("no.such.key", nil, "fallback"); got != "fallback" {
		t.Fatalf("RenderOr = %q", got)
	}
	var nilCatalog *Catalog
	if got := nilCatalog.RenderOr("status.started", nil, "fb"); got != "fb" {
		t.Fatalf("nil catalog RenderOr = %q", got)
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "10-status.yaml", "status:\n  started: \"지금 두는 중 {{signed .N}}\"\n")
	writeFile(t, dir, "notes.txt", "ignored: true\n")

	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := c.Render("status.started", map[string]any{"N": 3})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out != "지금 두는 중 +3" {
		t.Fatalf("override render = %q", out)
	}
	if !c.Has("status.draw") {
		t.Fatalf("override dropped embedded keys")
	}
}

func TestOverrideDuplicateKey(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "game:\n  win: a\n")
	writeFile(t, dir, "b.yml", "game:\n  win: b\n")
	if _, err := New(dir); err == nil || !strings.Contains(err.Error(), "duplicate override key") {
		t.Fatalf("err = %v", err)
	}
}

func TestOverrideRejectsNonStringLeaf(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.yaml", "game:\n  win: 3\n")
	if _, err := New(dir); err == nil {
		t.Fatalf("numeric leaf accepted")
	}
}

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}
