package cli

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/roe24/workshop-bridge/internal/config"
)

// PruneCommand removes stale cache rows and old log entries.
type PruneCommand struct {
	DatabasePath string
	WorkshopDays int
	LogDays      int
}

// NewPruneCommand creates a new PruneCommand
func NewPruneCommand() *PruneCommand {
	return &PruneCommand{}
}

// ParseFlags parses command line flags
func (cmd *PruneCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("prune", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the cache database file")
	fs.IntVar(&cmd.WorkshopDays, "workshop-days", 365, "Remove workshops that started more than this many days ago")
	fs.IntVar(&cmd.LogDays, "log-days", 30, "Remove log entries older than this many days")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s prune [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Remove past workshops, their sessions, and old error log entries\n")
		fmt.Fprintf(os.Stderr, "from the local cache. Workshops without a start date are kept.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

// Run executes the prune command
func (cmd *PruneCommand) Run() error {
	env, err := openEnvironment(cmd.DatabasePath)
	if err != nil {
		return err
	}
	defer env.Close()

	result, err := env.engine.Prune(
		time.Duration(cmd.WorkshopDays)*24*time.Hour,
		time.Duration(cmd.LogDays)*24*time.Hour,
	)
	if err != nil {
		return fmt.Errorf("prune failed: %w", err)
	}

	fmt.Printf("Pruned %d workshops, %d sessions, %d log entries\n",
		result.WorkshopsPruned, result.SessionsPruned, result.LogEntriesPruned)
	return nil
}
