package cli

import (
	"context"
	"log"
	"time"

	"quiz-content-service/internal/app"
	"quiz-content-service/internal/config"
	"github.com/spf13/cobra"
)

// NewSyncCmd builds the CLI subcommand that runs one launch pass followed by
// a manual update check, then exits. Useful for priming a store or testing a
// remote source without serving.
func NewSyncCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one sync pass against the configured remote source",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context(), *configPath)
		},
	}
}

func runSync(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	store, closeStore, err := buildStore(cfg)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}
	source, closeSource, err := buildSource(ctx, cfg)
	if err != nil {
		return err
	}
	if closeSource != nil {
		defer closeSource()
	}

	manifestTimeout := config.Duration(cfg.Manifest.Timeout, 5*time.Second)
	coordinator := app.NewUpdateCoordinator(store, source, manifestTimeout)

	launch, err := coordinator.Launch(ctx)
	if err != nil {
		return err
	}
	if launch.State == app.StateBlocked {
		log.Printf("content blocked: %s", launch.BlockMessage)
		return nil
	}
	log.Printf("launch: version=%q bootstrapped=%v", launch.Version, launch.Bootstrapped)

	updated, version, err := coordinator.CheckForUpdates(ctx)
	if err != nil {
		return err
	}
	if updated {
		log.Printf("updated to version %s", version)
	} else {
		log.Printf("already up to date at version %q", version)
	}
	return nil
}
