package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ppiankov/pageguard/internal/model"
	"github.com/ppiankov/pageguard/internal/rules"
)

func TestRulesInitWritesLoadableTables(t *testing.T) {
	dir := t.TempDir()

	if err := runRulesInit(rulesInitCmd, []string{dir}); err != nil {
		t.Fatalf("rules init: %v", err)
	}

	for _, surface := range []string{"privacy", "sensitive", "urlrep", "content"} {
		path := filepath.Join(dir, surface+".yaml")
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s to exist: %v", path, err)
		}
		table, err := rules.Load(surface, path)
		if err != nil {
			t.Fatalf("written %s table does not load back: %v", surface, err)
		}
		if len(table.Entries()) == 0 {
			t.Errorf("%s table is empty", surface)
		}
	}

	// The round-tripped privacy table still matches the way the built-in does.
	table, err := rules.Load("privacy", filepath.Join(dir, "privacy.yaml"))
	if err != nil {
		t.Fatalf("reload privacy: %v", err)
	}
	hits := table.MatchValue("ads.doubleclick.net")
	if len(hits) == 0 || hits[0].Category != model.CatTracker {
		t.Errorf("reloaded table should match tracker suffixes, got %+v", hits)
	}
}

func TestRulesInitSkipsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "privacy.yaml")
	if err := os.WriteFile(path, []byte("[]\n"), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := runRulesInit(rulesInitCmd, []string{dir}); err != nil {
		t.Fatalf("rules init: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "[]\n" {
		t.Errorf("existing file was overwritten")
	}
}
