package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/roe24/workshop-bridge/internal/config"
)

// TestConnectionCommand probes the configured FileMaker transport.
type TestConnectionCommand struct {
	DatabasePath string
	Timeout      time.Duration
}

// NewTestConnectionCommand creates a new TestConnectionCommand
func NewTestConnectionCommand() *TestConnectionCommand {
	return &TestConnectionCommand{}
}

// ParseFlags parses command line flags
func (cmd *TestConnectionCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("test-connection", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the cache database file")
	fs.DurationVar(&cmd.Timeout, "timeout", 30*time.Second, "Maximum time to wait for the probe")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s test-connection [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Build the configured connector and run a connectivity probe\n")
		fmt.Fprintf(os.Stderr, "against FileMaker. Exits non-zero on failure.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

// Run executes the test-connection command
func (cmd *TestConnectionCommand) Run() error {
	env, err := openEnvironment(cmd.DatabasePath)
	if err != nil {
		return err
	}
	defer env.Close()

	connector, err := env.store.BuildConnector()
	if err != nil {
		return fmt.Errorf("connector is not configured: %w", err)
	}
	defer func() {
		if closer, ok := connector.(io.Closer); ok {
			closer.Close()
		}
	}()

	fmt.Printf("Testing %s connector...\n", connector.Name())

	ctx, cancel := context.WithTimeout(context.Background(), cmd.Timeout)
	defer cancel()

	result, err := connector.TestConnection(ctx)
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("connection test failed: %s", result.Message)
	}

	fmt.Printf("Connection OK (%v)\n", result.ResponseTime.Round(time.Millisecond))
	if result.Message != "" {
		fmt.Printf("  %s\n", result.Message)
	}
	if result.WorkshopCount > 0 {
		fmt.Printf("  %d workshops visible\n", result.WorkshopCount)
	}
	return nil
}
