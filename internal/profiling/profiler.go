// Package profiling records how long each stage of a run took, one JSON line
// per stage.
package profiling

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ProfilingLevel determines how detailed the profiling is
type ProfilingLevel string

const (
	LevelOff      ProfilingLevel = "off"      // No profiling
	LevelMinimal  ProfilingLevel = "minimal"  // Pipeline stages only
	LevelDetailed ProfilingLevel = "detailed" // Stages plus metadata (tokens, tool calls, counts)
)

// ParseLevel maps a configuration value to a level; unknown values mean off
func ParseLevel(s string) ProfilingLevel {
	switch l := ProfilingLevel(strings.ToLower(strings.TrimSpace(s))); l {
	case LevelMinimal, LevelDetailed:
		return l
	default:
		return LevelOff
	}
}

// StageTiming represents a single timing measurement
type StageTiming struct {
	RunID      string         `json:"run_id"`
	Stage      string         `json:"stage"`
	StartTime  time.Time      `json:"start_time"`
	DurationMs float64        `json:"duration_ms"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Profiler writes stage timings. A nil *Profiler is valid and records nothing.
type Profiler struct {
	level   ProfilingLevel
	mu      sync.Mutex
	closer  io.Closer
	encoder *json.Encoder
	now     func() time.Time
}

// New creates a profiler writing to w
func New(level ProfilingLevel, w io.Writer) *Profiler {
	return &Profiler{level: level, encoder: json.NewEncoder(w), now: time.Now}
}

// Open creates a profiler appending to the file at path. LevelOff opens nothing.
func Open(level ProfilingLevel, path string) (*Profiler, error) {
	if level == LevelOff {
		return &Profiler{level: LevelOff, now: time.Now}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create profiling directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open profiling log: %w", err)
	}
	p := New(level, f)
	p.closer = f
	return p, nil
}

// Close closes the profiler and its log file
func (p *Profiler) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closer != nil {
		return p.closer.Close()
	}
	return nil
}

// Start begins timing a stage and returns a function to call when done
func (p *Profiler) Start(runID, stage string) func(extra ...map[string]any) {
	return p.StartWithMetadata(runID, stage, nil)
}

// StartWithMetadata begins timing a stage. The done function may add
// metadata; it is only written at LevelDetailed.
func (p *Profiler) StartWithMetadata(runID, stage string, metadata map[string]any) func(extra ...map[string]any) {
	if !p.IsEnabled() {
		return func(...map[string]any) {}
	}

	start := p.now()
	return func(extra ...map[string]any) {
		var merged map[string]any
		for _, m := range append([]map[string]any{metadata}, extra...) {
			for k, v := range m {
				if merged == nil {
					merged = make(map[string]any)
				}
				merged[k] = v
			}
		}
		p.Record(runID, stage, start, p.now().Sub(start), merged)
	}
}

// Record records a timing measurement
func (p *Profiler) Record(runID, stage string, start time.Time, duration time.Duration, metadata map[string]any) {
	if !p.IsEnabled() {
		return
	}
	if !p.ShouldProfile(LevelDetailed) {
		metadata = nil
	}

	timing := StageTiming{
		RunID:      runID,
		Stage:      stage,
		StartTime:  start,
		DurationMs: float64(duration.Nanoseconds()) / 1e6,
		Metadata:   metadata,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.encoder != nil {
		_ = p.encoder.Encode(timing)
	}
}

// ShouldProfile returns true if the given level should be profiled
func (p *Profiler) ShouldProfile(level ProfilingLevel) bool {
	if !p.IsEnabled() {
		return false
	}

	switch p.level {
	case LevelDetailed:
		return level == LevelMinimal || level == LevelDetailed
	case LevelMinimal:
		return level == LevelMinimal
	default:
		return false
	}
}

// IsEnabled returns true if profiling is enabled
func (p *Profiler) IsEnabled() bool {
	return p != nil && p.level != LevelOff && p.level != ""
}

// GetLevel returns the current profiling level
func (p *Profiler) GetLevel() ProfilingLevel {
	if p == nil {
		return LevelOff
	}
	return p.level
}
