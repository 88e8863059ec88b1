// Package telemetry reports anonymous, opt-out counts of command
// invocations — never source code, file paths, or project identifiers
// (spec.md §1 Non-goals name analytical features out of scope; they don't
// reduce the ambient stack below this).
package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/posthog/posthog-go"
)

const (
	CommandScan   = "excflow:scan"
	CommandQuery  = "excflow:query"
	CommandAudit  = "excflow:audit"
	CommandStubs  = "excflow:stubs"
	CommandFailed = "excflow:failed"
)

var (
	// PublicKey is set at build time via -ldflags; an empty key disables
	// reporting even when the user hasn't opted out.
	PublicKey string

	enabled bool
	version string
)

// Init enables or disables reporting for the process lifetime.
func Init(disableMetrics bool) {
	enabled = !disableMetrics
}

// SetVersion attaches a build version to every subsequent event.
func SetVersion(v string) {
	version = v
}

// LoadSession ensures a per-machine anonymous session id exists in
// ~/.excflow/.env and loads it into the process environment.
func LoadSession() {
	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	envFile := filepath.Join(home, ".excflow", ".env")
	if _, statErr := os.Stat(envFile); os.IsNotExist(statErr) {
		if mkErr := os.MkdirAll(filepath.Dir(envFile), 0o755); mkErr != nil {
			return
		}
		_ = godotenv.Write(map[string]string{"session_id": uuid.New().String()}, envFile)
	}
	_ = godotenv.Load(envFile)
}

// SessionID returns the per-machine anonymous id LoadSession wrote to
// ~/.excflow/.env, or "" if LoadSession was never called or failed.
func SessionID() string {
	return os.Getenv("session_id")
}

// ReportEvent sends event with no additional properties.
func ReportEvent(event string) {
	ReportEventWithProperties(event, nil)
}

// ReportEventWithProperties sends event with properties, which must never
// contain file paths, source text, or other project-identifying data —
// only coarse counts and durations.
func ReportEventWithProperties(event string, properties map[string]any) {
	if !enabled || PublicKey == "" {
		return
	}

	disableGeoIP := true
	client, err := posthog.NewWithConfig(PublicKey, posthog.Config{
		Endpoint:     "https://us.i.posthog.com",
		DisableGeoIP: &disableGeoIP,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "telemetry:", err)
		return
	}
	defer client.Close()

	props := posthog.NewProperties()
	props.Set("os", runtime.GOOS)
	props.Set("arch", runtime.GOARCH)
	props.Set("go_version", runtime.Version())
	if version != "" {
		props.Set("excflow_version", version)
	}
	for k, v := range properties {
		props.Set(k, v)
	}

	capture := posthog.Capture{
		DistinctId: os.Getenv("session_id"),
		Event:      event,
		Properties: props,
	}
	if err := client.Enqueue(capture); err != nil {
		fmt.Fprintln(os.Stderr, "telemetry:", err)
	}
}
