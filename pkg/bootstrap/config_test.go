package bootstrap

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig()

	if cfg.ReportsBucket != "campusreports-artifacts" {
		t.Errorf("ReportsBucket default = %q", cfg.ReportsBucket)
	}
	if cfg.TemplateObject != "report-template.docx" {
		t.Errorf("TemplateObject default = %q", cfg.TemplateObject)
	}
	if cfg.ConvertTo != "pdf" {
		t.Errorf("ConvertTo default = %q", cfg.ConvertTo)
	}
	if cfg.ConvertPollInterval != 2*time.Second {
		t.Errorf("ConvertPollInterval default = %s", cfg.ConvertPollInterval)
	}
	if cfg.ConvertMaxWait != 3*time.Minute {
		t.Errorf("ConvertMaxWait default = %s", cfg.ConvertMaxWait)
	}
	if cfg.TemplateSubjectSlots != 6 {
		t.Errorf("TemplateSubjectSlots default = %d", cfg.TemplateSubjectSlots)
	}
	if cfg.EnablePublish || cfg.RequireAuth {
		t.Error("Publish and auth must default off")
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("GOOGLE_CLOUD_PROJECT", "my-project")
	t.Setenv("ENABLE_PUBLISH", "true")
	t.Setenv("CONVERT_POLL_INTERVAL", "500ms")
	t.Setenv("CONVERT_MAX_WAIT", "90s")
	t.Setenv("TEMPLATE_SUBJECT_SLOTS", "8")
	t.Setenv("CONVERT_TO", "docx")

	cfg := LoadConfig()
	if cfg.ProjectID != "my-project" {
		t.Errorf("ProjectID = %q", cfg.ProjectID)
	}
	if !cfg.EnablePublish {
		t.Error("EnablePublish should be on")
	}
	if cfg.ConvertPollInterval != 500*time.Millisecond {
		t.Errorf("ConvertPollInterval = %s", cfg.ConvertPollInterval)
	}
	if cfg.ConvertMaxWait != 90*time.Second {
		t.Errorf("ConvertMaxWait = %s", cfg.ConvertMaxWait)
	}
	if cfg.TemplateSubjectSlots != 8 {
		t.Errorf("TemplateSubjectSlots = %d", cfg.TemplateSubjectSlots)
	}
	if cfg.ConvertTo != "docx" {
		t.Errorf("ConvertTo = %q", cfg.ConvertTo)
	}
}

func TestLoadConfig_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("CONVERT_POLL_INTERVAL", "soon")
	t.Setenv("TEMPLATE_SUBJECT_SLOTS", "many")

	cfg := LoadConfig()
	if cfg.ConvertPollInterval != 2*time.Second {
		t.Errorf("Malformed duration should fall back, got %s", cfg.ConvertPollInterval)
	}
	if cfg.TemplateSubjectSlots != 6 {
		t.Errorf("Malformed int should fall back, got %d", cfg.TemplateSubjectSlots)
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
