package preflight

import (
	"context"
	"fmt"
	"os"
	"strings"

	"agriref/internal/config"
	"agriref/internal/store"
)

// CheckStoreFromConfig evaluates the configured store. A SQLite database
// that does not exist yet passes, since the first run creates it.
func CheckStoreFromConfig(ctx context.Context, cfg *config.Config) Result {
	const name = "Store"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if cfg.Store.Driver == config.DriverSQLite {
		if _, err := os.Stat(cfg.Store.Path); os.IsNotExist(err) {
			return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (created on first run)", cfg.Store.Path)}
		}
	}

	st, err := store.Open(cfg)
	if err != nil {
		return Result{Name: name, Detail: summarizeStoreError(err)}
	}
	defer st.Close()

	health, err := st.CheckHealth(ctx)
	if err != nil {
		return Result{Name: name, Detail: summarizeStoreError(err)}
	}
	if !health.Healthy() {
		return Result{Name: name, Detail: describeUnhealthy(health)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s %s (schema v%d)", health.Driver, health.Location, health.SchemaVersion)}
}

func describeUnhealthy(h store.DatabaseHealth) string {
	if h.Error != "" {
		return h.Error
	}
	var missing []string
	for _, t := range h.Tables {
		if !t.Exists {
			missing = append(missing, t.Name+" table missing")
			continue
		}
		if len(t.MissingColumns) > 0 {
			missing = append(missing, fmt.Sprintf("%s missing %s", t.Name, strings.Join(t.MissingColumns, ", ")))
		}
	}
	if !h.IntegrityCheck {
		missing = append(missing, "integrity check failed")
	}
	if len(missing) == 0 {
		return "unhealthy"
	}
	return strings.Join(missing, "; ")
}

func summarizeStoreError(err error) string {
	msg := err.Error()
	if first, _, ok := strings.Cut(msg, "\n"); ok {
		return first
	}
	return msg
}
