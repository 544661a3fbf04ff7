package state

import (
	"fmt"
	"os"
	"time"

	"github.com/vthunder/google-tasks-agent/internal/types"
)

// Inspector provides read-mostly introspection of the state file
type Inspector struct {
	store  *Store
	maxIDs int
	now    func() time.Time
}

// NewInspector creates a new state inspector
func NewInspector(store *Store) *Inspector {
	return &Inspector{store: store, maxIDs: store.maxIDs, now: time.Now}
}

// StateSummary holds a summary of the persisted state
type StateSummary struct {
	Path               string                   `json:"path"`
	Exists             bool                     `json:"exists"`
	Mode               os.FileMode              `json:"mode,omitempty"`
	SeenMessages       int                      `json:"seen_messages"`
	SeenSecondary      int                      `json:"seen_secondary_events"`
	LastCheck          *time.Time               `json:"last_check,omitempty"`
	LastItems          int                      `json:"last_items"`
	LastItemsBySource  map[types.SourceType]int `json:"last_items_by_source,omitempty"`
	LastTasksCreated   int                      `json:"last_tasks_created"`
	LastTasksRequested int                      `json:"last_tasks_requested"`
}

// HealthReport holds health check results
type HealthReport struct {
	Status          string   `json:"status"` // "healthy", "warnings"
	Warnings        []string `json:"warnings,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// Summary returns a summary of the state file
func (i *Inspector) Summary() *StateSummary {
	summary := &StateSummary{Path: i.store.Path()}

	if info, err := os.Stat(i.store.Path()); err == nil {
		summary.Exists = true
		summary.Mode = info.Mode().Perm()
	}

	st := i.store.Load()
	summary.SeenMessages = len(st.SeenMessageIDs)
	summary.SeenSecondary = len(st.SeenSecondaryEventIDs)
	summary.LastCheck = st.LastCheck
	summary.LastItems = len(st.LastActionItems)

	_, summary.LastItemsBySource = types.CountBySource(st.LastActionItems)
	for _, item := range st.LastActionItems {
		if item.CreateTask {
			summary.LastTasksRequested++
		}
		if item.TaskCreated {
			summary.LastTasksCreated++
		}
	}
	return summary
}

// Health runs health checks and returns a report
func (i *Inspector) Health() *HealthReport {
	report := &HealthReport{Status: "healthy"}
	summary := i.Summary()

	if !summary.Exists {
		report.Warnings = append(report.Warnings, "No state file yet")
		report.Recommendations = append(report.Recommendations, "Run google-tasks-agent once without --dry-run")
	} else if summary.Mode&0077 != 0 {
		report.Warnings = append(report.Warnings, fmt.Sprintf("State file mode %v is readable by others", summary.Mode))
		report.Recommendations = append(report.Recommendations, "chmod 600 "+summary.Path)
	}

	if summary.LastCheck == nil {
		if summary.Exists {
			report.Warnings = append(report.Warnings, "State has never recorded a successful run")
		}
	} else if age := i.now().Sub(*summary.LastCheck); age > 24*time.Hour {
		report.Warnings = append(report.Warnings, fmt.Sprintf("Last successful run was %s ago", age.Round(time.Minute)))
		report.Recommendations = append(report.Recommendations, "Check the scheduler and the run log")
	}

	if summary.SeenMessages >= i.maxIDs {
		report.Warnings = append(report.Warnings, fmt.Sprintf("Seen message ids at cap (%d); oldest ids are being evicted", i.maxIDs))
	}

	if summary.LastTasksCreated < summary.LastTasksRequested {
		report.Warnings = append(report.Warnings, fmt.Sprintf("Last run created %d of %d requested tasks",
			summary.LastTasksCreated, summary.LastTasksRequested))
	}

	if len(report.Warnings) > 0 {
		report.Status = "warnings"
	}
	return report
}

// Reset replaces the state file with the empty state
func (i *Inspector) Reset() error {
	return i.store.Save(Empty())
}
