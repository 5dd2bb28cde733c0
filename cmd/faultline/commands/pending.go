package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/alecthomas/kingpin/v2"

	"github.com/faultline/faultline/internal/storage/sqlite"
)

type PendingCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand
}

// NewPendingCommand returns the pending command.
func NewPendingCommand(rootCmd *RootCommand, app *kingpin.Application) *PendingCommand {
	c := &PendingCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("pending", "List the envelopes persisted in the offline store.")

	return c
}

func (c PendingCommand) Name() string { return c.Cmd.FullCommand() }

func (c PendingCommand) Run(ctx context.Context) error {
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

	envelopes, err := repo.ListEnvelopes(ctx)
	if err != nil {
		return fmt.Errorf("could not list envelopes: %w", err)
	}

	w := tabwriter.NewWriter(c.rootCmd.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tEVENT ID\tCREATED AT")
	for _, e := range envelopes {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.ID, e.Kind, e.EventID, e.CreatedAt.Format("2006-01-02 15:04:05"))
	}

	return w.Flush()
}
