package notify

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/vthunder/google-tasks-agent/internal/logging"
	"github.com/vthunder/google-tasks-agent/internal/types"
)

const commandTimeout = 10 * time.Second

// Desktop shows a native notification: osascript on macOS, notify-send on Linux
type Desktop struct {
	maxItems   int
	logPath    string
	goos       string
	log        *logging.Logger
	runCommand func(ctx context.Context, name string, args ...string) error
}

// NewDesktop creates a desktop notifier that points the user at logPath
func NewDesktop(maxItems int, logPath string, log *logging.Logger) *Desktop {
	return &Desktop{
		maxItems:   maxItems,
		logPath:    logPath,
		goos:       runtime.GOOS,
		log:        log.With("notify"),
		runCommand: runCommand,
	}
}

// Notify sends the notification. A missing notification command is logged, not returned.
func (d *Desktop) Notify(ctx context.Context, items []types.ActionItem) error {
	if len(items) == 0 {
		return nil
	}

	name, args, ok := d.command(items)
	if !ok {
		d.log.Warn("Notifications not supported on %s", d.goos)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	if err := d.runCommand(ctx, name, args...); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			d.log.Warn("Notification command not found: %v", err)
			return nil
		}
		return fmt.Errorf("failed to send notification: %w", err)
	}

	d.log.Info("Sent notification for %d action items", len(items))
	return nil
}

// command builds the platform notification command line
func (d *Desktop) command(items []types.ActionItem) (string, []string, bool) {
	title, body := Format(items, d.maxItems)

	switch d.goos {
	case "darwin":
		script := fmt.Sprintf(`display notification "%s" with title "%s" sound name "Glass"`,
			appleScriptEscape(body), appleScriptEscape(title))
		return "osascript", []string{"-e", script}, true
	case "linux":
		short := fmt.Sprintf("%d action items found. Check %s", len(items), d.logPath)
		return "notify-send", []string{"--urgency=normal", "--app-name=Google Tasks Agent", title, short}, true
	default:
		return "", nil, false
	}
}

var appleScriptReplacer = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func appleScriptEscape(s string) string {
	return appleScriptReplacer.Replace(s)
}

func runCommand(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
