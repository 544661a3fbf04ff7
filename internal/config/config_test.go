package config

import (
	"os"
	"path/filepath"
	"testing"
)

func lookupFrom(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg := FromEnv(lookupFrom(map[string]string{
		"GOOGLE_TASKS_AGENT_HOME_DIR": "/tmp/gta",
	}))

	if cfg.MaxEmails != 20 {
		t.Errorf("MaxEmails = %d, want 20", cfg.MaxEmails)
	}
	if !cfg.TasksEnabled || !cfg.CalendarEnabled || !cfg.StarredEnabled {
		t.Error("expected tasks, calendar and starred enabled by default")
	}
	if cfg.SecondaryCalendarsEnabled {
		t.Error("secondary calendars should be disabled by default")
	}
	if cfg.TaskListName != "Work Tasks" {
		t.Errorf("TaskListName = %q", cfg.TaskListName)
	}
	if cfg.CalendarDays != 28 || cfg.MaxTurns != 50 {
		t.Errorf("CalendarDays=%d MaxTurns=%d", cfg.CalendarDays, cfg.MaxTurns)
	}
	if cfg.StateFile() != "/tmp/gta/state.json" {
		t.Errorf("StateFile = %q", cfg.StateFile())
	}
	if cfg.ProfileLevel != "off" || cfg.TimingsFile() != "/tmp/gta/logs/timings.jsonl" {
		t.Errorf("ProfileLevel=%q TimingsFile=%q", cfg.ProfileLevel, cfg.TimingsFile())
	}
	if len(cfg.HighPrioritySenders()) != len(DefaultHighPrioritySenders) {
		t.Errorf("expected default sender list")
	}
}

func TestFromEnv_Values(t *testing.T) {
	cfg := FromEnv(lookupFrom(map[string]string{
		"GOOGLE_TASKS_AGENT_MAX_EMAILS":                  " 35 ",
		"GOOGLE_TASKS_AGENT_TASKS_ENABLED":               "false",
		"GOOGLE_TASKS_AGENT_CALENDAR_DAYS":               "not-a-number",
		"GOOGLE_TASKS_AGENT_SECONDARY_CALENDAR_IDS":      "a@group.calendar.google.com, b@group.calendar.google.com,",
		"GOOGLE_TASKS_AGENT_SECONDARY_CALENDARS_ENABLED": "true",
		"GOOGLE_TASKS_AGENT_USER_EMAIL":                  "jane.doe@example.com",
		"DEBUG":                                          "true",
	}))

	if cfg.MaxEmails != 35 {
		t.Errorf("MaxEmails = %d, want 35", cfg.MaxEmails)
	}
	if cfg.TasksEnabled {
		t.Error("TasksEnabled should be false")
	}
	if cfg.CalendarDays != 28 {
		t.Errorf("invalid int should fall back, got %d", cfg.CalendarDays)
	}
	ids := cfg.SecondaryCalendarIDs()
	if len(ids) != 2 || ids[1] != "b@group.calendar.google.com" {
		t.Errorf("SecondaryCalendarIDs = %v", ids)
	}
	if !cfg.SecondaryCalendarsEnabled || !cfg.Debug {
		t.Error("expected secondary calendars and debug enabled")
	}
}

func TestFromEnv_BooleansAcceptOnlyTrue(t *testing.T) {
	cases := map[string]bool{
		"true":  true,
		" TRUE": true,
		"True":  true,
		"yes":   false,
		"1":     false,
		"on":    false,
		"":      false,
	}
	for value, want := range cases {
		cfg := FromEnv(lookupFrom(map[string]string{"GOOGLE_TASKS_AGENT_TASKS_ENABLED": value}))
		if cfg.TasksEnabled != want {
			t.Errorf("TASKS_ENABLED=%q: TasksEnabled = %v, want %v", value, cfg.TasksEnabled, want)
		}
	}
}

func TestFromEnv_LegacySecondaryCalendar(t *testing.T) {
	cfg := FromEnv(lookupFrom(map[string]string{
		"GOOGLE_TASKS_AGENT_FCTO_CALENDAR_ID":      "legacy@group.calendar.google.com",
		"GOOGLE_TASKS_AGENT_FCTO_CALENDAR_ENABLED": "true",
	}))

	ids := cfg.SecondaryCalendarIDs()
	if len(ids) != 1 || ids[0] != "legacy@group.calendar.google.com" {
		t.Errorf("SecondaryCalendarIDs = %v", ids)
	}
	if !cfg.SecondaryCalendarsEnabled {
		t.Error("legacy enable flag should be honoured")
	}
}

func TestConfig_ListsAreCopies(t *testing.T) {
	cfg := FromEnv(lookupFrom(nil))
	senders := cfg.HighPrioritySenders()
	senders[0] = "mutated@"
	if cfg.HighPrioritySenders()[0] == "mutated@" {
		t.Error("HighPrioritySenders exposed internal slice")
	}
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()

	o, err := LoadOverrides(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if len(o.HighPrioritySenders) != 0 {
		t.Errorf("expected empty overrides, got %+v", o)
	}

	path := filepath.Join(dir, "config.yaml")
	data := "high_priority_senders:\n  - Payroll@\n  - \"  CEO@ \"\nsecondary_calendar_ids:\n  - team@group.calendar.google.com\n"
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}
	o, err = LoadOverrides(path)
	if err != nil {
		t.Fatalf("LoadOverrides failed: %v", err)
	}

	cfg := FromEnv(lookupFrom(nil)).WithOverrides(o)
	senders := cfg.HighPrioritySenders()
	if len(senders) != 2 || senders[0] != "payroll@" || senders[1] != "ceo@" {
		t.Errorf("senders = %v", senders)
	}
	if ids := cfg.SecondaryCalendarIDs(); len(ids) != 1 {
		t.Errorf("SecondaryCalendarIDs = %v", ids)
	}
}

func TestLoadOverrides_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("high_priority_senders: [unterminated"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadOverrides(path); err == nil {
		t.Error("expected parse error")
	}
}
