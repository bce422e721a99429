package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/roe24/workshop-bridge/internal/config"
	"github.com/roe24/workshop-bridge/internal/filemaker"
	syncengine "github.com/roe24/workshop-bridge/internal/sync"
)

// SyncCommand runs a full workshop sync from FileMaker into the cache.
type SyncCommand struct {
	DatabasePath   string
	WorkshopNumber string
	Timeout        time.Duration
}

// NewSyncCommand creates a new SyncCommand
func NewSyncCommand() *SyncCommand {
	return &SyncCommand{}
}

// ParseFlags parses command line flags
func (cmd *SyncCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the cache database file")
	fs.StringVar(&cmd.WorkshopNumber, "workshop", "", "Sync only this workshop number")
	fs.DurationVar(&cmd.Timeout, "timeout", 10*time.Minute, "Maximum time to wait for the sync")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s sync [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Fetch workshops and sessions from FileMaker into the local cache.\n\n")
		fmt.Fprintf(os.Stderr, "The connector is built from the settings database, falling back to\n")
		fmt.Fprintf(os.Stderr, "BRIDGE_API_URL/BRIDGE_API_KEY or FILEMAKER_ODBC_* environment variables.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s sync\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s sync -workshop WS-2341\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s sync -db /var/lib/workshop-bridge/cache.db\n", os.Args[0])
	}

	return fs.Parse(args)
}

// Run executes the sync command
func (cmd *SyncCommand) Run() error {
	env, err := openEnvironment(cmd.DatabasePath)
	if err != nil {
		return err
	}
	defer env.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cmd.Timeout)
	defer cancel()

	if cmd.WorkshopNumber != "" {
		fmt.Printf("Syncing workshop %s...\n", cmd.WorkshopNumber)
		workshop, err := env.engine.SyncOne(ctx, cmd.WorkshopNumber)
		if err != nil {
			if errors.Is(err, filemaker.ErrWorkshopNotFound) {
				return fmt.Errorf("workshop %s not found on the source", cmd.WorkshopNumber)
			}
			return fmt.Errorf("sync failed: %w", err)
		}
		fmt.Printf("Updated %s: %s\n", workshop.WorkshopNumber, workshop.Title)
		return nil
	}

	fmt.Println("Starting full sync...")
	result, err := env.engine.SyncAll(ctx)
	if err != nil {
		if errors.Is(err, syncengine.ErrEmptyFetch) {
			return fmt.Errorf("source returned no workshops, cache left untouched")
		}
		return fmt.Errorf("sync failed: %w", err)
	}

	fmt.Printf("Synced %d workshops and %d sessions in %v",
		result.WorkshopsSynced, result.SessionsSynced, result.Duration.Round(time.Millisecond))
	if result.Failed > 0 {
		fmt.Printf(" (%d failed)", result.Failed)
	}
	fmt.Println()
	return nil
}
