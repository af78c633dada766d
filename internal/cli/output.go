package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/eshaffer321/inventory-sync-manager/internal/domain/platform"
	"github.com/eshaffer321/inventory-sync-manager/internal/infrastructure/config"
)

// PrintHeader prints the application header
func PrintHeader(w io.Writer, version string) {
	fmt.Fprintf(w, "inventory-sync %s\n", version)
}

// PrintConfiguration prints the settings the server starts with
func PrintConfiguration(w io.Writer, cfg *config.Config, products int) {
	enabled := cfg.Platforms.Enabled()
	names := make([]string, len(enabled))
	for i, id := range enabled {
		names[i] = id.DisplayName()
	}
	if len(names) == 0 {
		names = append(names, "none")
	}

	fmt.Fprintf(w, "Port: %d | Database: %s | Products: %d\n",
		cfg.Server.Port, cfg.Storage.DatabasePath, products)
	fmt.Fprintf(w, "Platforms: %s\n", strings.Join(names, ", "))

	fmt.Fprintf(w, "Schedule: %s", cfg.Schedule.Frequency)
	if cfg.Schedule.ErrorThreshold > 0 {
		fmt.Fprintf(w, " | Error alert at %d failures", cfg.Schedule.ErrorThreshold)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("-", 60))
}

// PrintCredentialWarnings lists enabled platforms whose credentials are
// incomplete. Syncs to them will log an error per product.
func PrintCredentialWarnings(w io.Writer, problems map[platform.ID]error) {
	for _, id := range platform.Known() {
		if err, ok := problems[id]; ok {
			fmt.Fprintf(w, "warning: %s: %v\n", id.DisplayName(), err)
		}
	}
}
