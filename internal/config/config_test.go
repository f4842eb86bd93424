package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultsValidate(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	if Default().EnableExternalReputationChecks {
		t.Error("external reputation checks must default to off")
	}
	if !Default().BlockOnHighRisk {
		t.Error("block-on-high-risk must default to on")
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load("/nonexistent/pageguard.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LogRetentionCount != 900 {
		t.Errorf("expected default retention, got %d", cfg.LogRetentionCount)
	}
}

func TestLoadOverridesAndValidates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pageguard.yaml")
	data := "block_on_high_risk: false\nscore_thresholds:\n  moderate: 30\n  high: 60\ntrusted_subjects:\n  - shop.example\n"
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BlockOnHighRisk {
		t.Error("expected override to disable blocking")
	}
	if cfg.ScoreThresholds.High != 60 {
		t.Errorf("expected high threshold 60, got %d", cfg.ScoreThresholds.High)
	}
	// Unspecified fields keep defaults.
	if cfg.LogRetentionCount != 900 {
		t.Errorf("expected default retention preserved, got %d", cfg.LogRetentionCount)
	}
}

func TestLoadRejectsNonMonotonicThresholds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	os.WriteFile(path, []byte("score_thresholds:\n  moderate: 80\n  high: 40\n"), 0600)
	if _, err := Load(path); err == nil {
		t.Error("expected error for inverted thresholds")
	}
}

func TestIsTrusted(t *testing.T) {
	cfg := Default()
	cfg.TrustedSubjects = []string{"bank.example"}
	if !cfg.IsTrusted("bank.example") {
		t.Error("exact match must be trusted")
	}
	if !cfg.IsTrusted("login.bank.example") {
		t.Error("subdomain must inherit trust")
	}
	if cfg.IsTrusted("notbank.example") {
		t.Error("suffix match must respect label boundaries")
	}
	if cfg.IsTrusted("") {
		t.Error("empty host must not be trusted")
	}
}

func TestStoreVersioningAndNotification(t *testing.T) {
	s := NewStore(nil)
	if s.Version() != 0 {
		t.Errorf("expected initial version 0, got %d", s.Version())
	}

	var seen []int
	cancel := s.Subscribe(func(c *Config) {
		seen = append(seen, c.ScoreThresholds.High)
	})

	cfg := Default()
	cfg.ScoreThresholds.High = 80
	if err := s.Update(cfg); err != nil {
		t.Fatalf("update: %v", err)
	}
	if s.Version() != 1 {
		t.Errorf("expected version 1, got %d", s.Version())
	}
	if s.Current().ScoreThresholds.High != 80 {
		t.Errorf("expected current config updated")
	}
	if len(seen) != 1 || seen[0] != 80 {
		t.Errorf("expected one notification with new value, got %v", seen)
	}

	cancel()
	s.Update(Default())
	if len(seen) != 1 {
		t.Error("expected no notification after cancel")
	}
}

func TestStoreRejectsInvalidUpdate(t *testing.T) {
	s := NewStore(nil)
	bad := Default()
	bad.LogRetentionCount = 0
	if err := s.Update(bad); err == nil {
		t.Error("expected invalid config rejected")
	}
	if s.Version() != 0 {
		t.Error("rejected update must not bump the version")
	}
}

func TestSnapshotIsolation(t *testing.T) {
	s := NewStore(nil)
	snap := s.Current()

	cfg := Default()
	cfg.TrustedSubjects = []string{"later.example"}
	s.Update(cfg)

	if snap.IsTrusted("later.example") {
		t.Error("existing snapshot must not observe later updates")
	}
}

func TestScheduleCovers(t *testing.T) {
	day := Schedule{Categories: []string{"content_gambling"}, From: "09:00", To: "17:00"}
	night := Schedule{Categories: []string{"content_gambling"}, From: "21:00", To: "07:00"}

	at := func(hhmm string) time.Time {
		ts, err := time.Parse("15:04", hhmm)
		if err != nil {
			t.Fatalf("bad test time %q", hhmm)
		}
		return ts
	}

	if !day.Covers(at("12:00")) {
		t.Error("noon should fall inside 09:00-17:00")
	}
	if day.Covers(at("18:00")) {
		t.Error("18:00 should fall outside 09:00-17:00")
	}
	if !night.Covers(at("23:30")) {
		t.Error("23:30 should fall inside the wrapped 21:00-07:00 window")
	}
	if !night.Covers(at("03:00")) {
		t.Error("03:00 should fall inside the wrapped 21:00-07:00 window")
	}
	if night.Covers(at("12:00")) {
		t.Error("noon should fall outside the wrapped 21:00-07:00 window")
	}
}

func TestIsCategoryBlockedAtHonorsSchedules(t *testing.T) {
	cfg := Default()
	cfg.Schedules = []Schedule{
		{Categories: []string{"content_gambling"}, From: "21:00", To: "07:00"},
	}

	evening := time.Date(2026, 3, 1, 22, 0, 0, 0, time.Local)
	noon := time.Date(2026, 3, 1, 12, 0, 0, 0, time.Local)

	if !cfg.IsCategoryBlockedAt("content_gambling", evening) {
		t.Error("scheduled category should be blocked inside its window")
	}
	if cfg.IsCategoryBlockedAt("content_gambling", noon) {
		t.Error("scheduled category should be open outside its window")
	}

	// The static list blocks at any time.
	cfg.BlockedCategories = []string{"tracker"}
	if !cfg.IsCategoryBlockedAt("tracker", noon) {
		t.Error("statically blocked category ignores schedules")
	}
}

func TestValidateRejectsBadSchedule(t *testing.T) {
	cfg := Default()
	cfg.Schedules = []Schedule{{Categories: []string{"content_adult"}, From: "25:99", To: "07:00"}}
	if err := cfg.Validate(); err == nil {
		t.Error("expected invalid schedule time rejected")
	}

	cfg.Schedules = []Schedule{{From: "21:00", To: "07:00"}}
	if err := cfg.Validate(); err == nil {
		t.Error("expected schedule without categories rejected")
	}
}
