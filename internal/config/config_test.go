package config

import (
	"testing"
	"time"
)

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("CHRON_DATABASE_URL", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when CHRON_DATABASE_URL is unset")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CHRON_DATABASE_URL", "postgres://localhost/chronicle")

	c, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.AttributionWindow != 24*time.Hour {
		t.Errorf("window = %v, want 24h", c.AttributionWindow)
	}
	if c.ExportS3Region != "us-east-1" {
		t.Errorf("region = %q, want us-east-1", c.ExportS3Region)
	}
	if c.ExportS3Prefix != "chronicle" {
		t.Errorf("prefix = %q, want chronicle", c.ExportS3Prefix)
	}
}

func TestLoad_WindowOverride(t *testing.T) {
	t.Setenv("CHRON_DATABASE_URL", "postgres://localhost/chronicle")
	t.Setenv("CHRON_ATTRIBUTION_WINDOW", "2h30m")

	c, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.AttributionWindow != 2*time.Hour+30*time.Minute {
		t.Errorf("window = %v, want 2h30m", c.AttributionWindow)
	}
}

func TestLoad_BadWindow(t *testing.T) {
	t.Setenv("CHRON_DATABASE_URL", "postgres://localhost/chronicle")
	t.Setenv("CHRON_ATTRIBUTION_WINDOW", "yesterday")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed window")
	}
}
