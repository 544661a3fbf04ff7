// Package config builds the immutable run configuration from the environment,
// an optional .env file and an optional YAML overrides file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "GOOGLE_TASKS_AGENT_"

const (
	// MaxSeenIDs bounds each seen-id list in the state file
	MaxSeenIDs = 500
	// MaxItemsInNotification caps items listed in a desktop notification
	MaxItemsInNotification = 5
	// MaxCalendarInPrompt caps primary calendar events the agent is asked to fetch
	MaxCalendarInPrompt = 30
	// GeminiNotesSender is the sender of AI-generated meeting notes
	GeminiNotesSender = "gemini-notes@google.com"
	// ToolServerName is the MCP server name; tools appear as mcp__<name>__*
	ToolServerName = "google"
)

// DefaultHighPrioritySenders are sender substrings that always produce a task
var DefaultHighPrioritySenders = []string{
	"hr@", "human.resources@", "humanresources@", "people@", "peopleops@",
	"legal@", "compliance@", "ethics@",
	"finance@", "accounting@", "payroll@", "expenses@",
	"security@", "it-security@", "infosec@",
}

// Config is the run configuration. It is built once by Load and never mutated;
// list accessors return copies.
type Config struct {
	// Paths
	HomeDir string

	// External tool server
	MCPServerCommand string
	MCPServerPath    string

	// Agent runtime
	ClaudeBinary string
	Model        string
	MaxTurns     int

	// Email
	MaxEmails           int
	StarredEnabled      bool
	MaxStarred          int
	UserEmail           string
	highPrioritySenders []string

	// Tasks
	TasksEnabled bool
	TaskListName string
	TaskListID   string

	// Calendars
	CalendarEnabled           bool
	CalendarDays              int
	SecondaryCalendarsEnabled bool
	secondaryCalendarIDs      []string

	// Optional Discord mirror of the notification
	DiscordToken     string
	DiscordChannelID string

	// Stage timing level: off, minimal or detailed
	ProfileLevel string

	Debug bool
}

// Overrides is the shape of the optional config.yaml
type Overrides struct {
	HighPrioritySenders  []string `yaml:"high_priority_senders"`
	SecondaryCalendarIDs []string `yaml:"secondary_calendar_ids"`
}

// Load reads .env (if present), the environment and config.yaml (if present)
func Load() (*Config, error) {
	// Optional: a missing .env is normal
	_ = godotenv.Load()

	cfg := FromEnv(os.LookupEnv)

	overrides, err := LoadOverrides(cfg.OverridesFile())
	if err != nil {
		return nil, err
	}
	cfg.apply(overrides)
	return cfg, nil
}

// FromEnv builds a Config from a lookup function (os.LookupEnv in production)
func FromEnv(lookup func(string) (string, bool)) *Config {
	e := env{lookup: lookup}

	home := e.str("HOME_DIR", "")
	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			userHome = "."
		}
		home = filepath.Join(userHome, ".google-tasks-agent")
	}

	defaultServer := ""
	if userHome, err := os.UserHomeDir(); err == nil {
		defaultServer = filepath.Join(userHome, "Code", "google-mcp", "dist", "index.js")
	}

	secondary := splitList(e.str("SECONDARY_CALENDAR_IDS", ""))
	if len(secondary) == 0 {
		// Older installs configured a single calendar
		secondary = splitList(e.str("FCTO_CALENDAR_ID", ""))
	}
	secondaryEnabled := e.boolean("SECONDARY_CALENDARS_ENABLED", e.boolean("FCTO_CALENDAR_ENABLED", false))

	debug := false
	if v, ok := lookup("DEBUG"); ok {
		debug = strings.EqualFold(strings.TrimSpace(v), "true")
	}

	return &Config{
		HomeDir:                   home,
		MCPServerCommand:          e.str("MCP_SERVER_COMMAND", "node"),
		MCPServerPath:             e.str("MCP_SERVER_PATH", defaultServer),
		ClaudeBinary:              e.str("CLAUDE_BINARY", "claude"),
		Model:                     e.str("MODEL", ""),
		MaxTurns:                  e.integer("MAX_TURNS", 50),
		MaxEmails:                 e.integer("MAX_EMAILS", 20),
		StarredEnabled:            e.boolean("STARRED_ENABLED", true),
		MaxStarred:                e.integer("MAX_STARRED", 20),
		UserEmail:                 e.str("USER_EMAIL", ""),
		highPrioritySenders:       append([]string(nil), DefaultHighPrioritySenders...),
		TasksEnabled:              e.boolean("TASKS_ENABLED", true),
		TaskListName:              e.str("TASK_LIST", "Work Tasks"),
		TaskListID:                e.str("TASK_LIST_ID", ""),
		CalendarEnabled:           e.boolean("CALENDAR_ENABLED", true),
		CalendarDays:              e.integer("CALENDAR_DAYS", 28),
		SecondaryCalendarsEnabled: secondaryEnabled,
		secondaryCalendarIDs:      secondary,
		DiscordToken:              e.str("DISCORD_TOKEN", ""),
		DiscordChannelID:          e.str("DISCORD_CHANNEL_ID", ""),
		ProfileLevel:              e.str("PROFILE", "off"),
		Debug:                     debug,
	}
}

// LoadOverrides reads the YAML overrides file. A missing file yields empty overrides.
func LoadOverrides(path string) (Overrides, error) {
	var o Overrides
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return o, nil
	}
	if err != nil {
		return o, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &o); err != nil {
		return o, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return o, nil
}

func (c *Config) apply(o Overrides) {
	if len(o.HighPrioritySenders) > 0 {
		c.highPrioritySenders = normaliseSenders(o.HighPrioritySenders)
	}
	if len(o.SecondaryCalendarIDs) > 0 {
		c.secondaryCalendarIDs = append([]string(nil), o.SecondaryCalendarIDs...)
	}
}

// WithOverrides returns a copy of c with o applied
func (c *Config) WithOverrides(o Overrides) *Config {
	cp := *c
	cp.highPrioritySenders = c.HighPrioritySenders()
	cp.secondaryCalendarIDs = c.SecondaryCalendarIDs()
	cp.apply(o)
	return &cp
}

// HighPrioritySenders returns the lower-cased sender patterns in configured order
func (c *Config) HighPrioritySenders() []string {
	return append([]string(nil), c.highPrioritySenders...)
}

// SecondaryCalendarIDs returns the secondary calendars in configured order
func (c *Config) SecondaryCalendarIDs() []string {
	return append([]string(nil), c.secondaryCalendarIDs...)
}

func (c *Config) StateFile() string       { return filepath.Join(c.HomeDir, "state.json") }
func (c *Config) ActionItemsFile() string { return filepath.Join(c.HomeDir, "action-items.md") }
func (c *Config) HistoryDB() string       { return filepath.Join(c.HomeDir, "history.db") }
func (c *Config) OverridesFile() string   { return filepath.Join(c.HomeDir, "config.yaml") }
func (c *Config) LogFile() string {
	return filepath.Join(c.HomeDir, "logs", "google-tasks-agent.log")
}
func (c *Config) TimingsFile() string {
	return filepath.Join(c.HomeDir, "logs", "timings.jsonl")
}

func normaliseSenders(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

type env struct {
	lookup func(string) (string, bool)
}

func (e env) str(key, fallback string) string {
	if value, ok := e.lookup(envPrefix + key); ok {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func (e env) integer(key string, fallback int) int {
	if value, ok := e.lookup(envPrefix + key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return fallback
}

// boolean is true only for "true" (any case) once the variable is set
func (e env) boolean(key string, fallback bool) bool {
	if value, ok := e.lookup(envPrefix + key); ok {
		return strings.EqualFold(strings.TrimSpace(value), "true")
	}
	return fallback
}
