package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/faultline/faultline/internal/model"
	"github.com/faultline/faultline/internal/storage/sqlite"
)

type StateCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand
}

// NewStateCommand returns the state command.
func NewStateCommand(rootCmd *RootCommand, app *kingpin.Application) *StateCommand {
	c := &StateCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("state", "Show the previous launch record and the crashed-last-run verdict.")

	return c
}

func (c StateCommand) Name() string { return c.Cmd.FullCommand() }

func (c StateCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	// Initialize storage (SQLite).
	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: c.rootCmd.DBPath,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create repository: %w", err)
	}
	defer repo.Close()

	prev, err := repo.PreviousAppState(ctx)
	if errors.Is(err, model.ErrNotFound) {
		fmt.Fprintln(c.rootCmd.Stdout, "No previous launch recorded.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("could not get previous launch record: %w", err)
	}

	fmt.Fprintf(c.rootCmd.Stdout, "SDK version: %s\n", prev.SDKVersion)
	fmt.Fprintf(c.rootCmd.Stdout, "Started at: %s\n", prev.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(c.rootCmd.Stdout, "Clean shutdown: %t\n", prev.CleanShutdown)
	fmt.Fprintf(c.rootCmd.Stdout, "Crashed last run: %t\n", !prev.CleanShutdown)

	return nil
}
