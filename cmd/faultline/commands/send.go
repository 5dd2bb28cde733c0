package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/faultline/faultline/pkg/sdk"
)

type SendCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	message     string
	errMessage  string
	configPath  string
	release     string
	environment string
}

// NewSendCommand returns the send command.
func NewSendCommand(rootCmd *RootCommand, app *kingpin.Application) *SendCommand {
	c := &SendCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("send", "Start the SDK, capture a test event into the offline store and close.")
	c.Cmd.Flag("message", "Capture a message event.").StringVar(&c.message)
	c.Cmd.Flag("error", "Capture an error event.").StringVar(&c.errMessage)
	c.Cmd.Flag("config", "YAML options file.").StringVar(&c.configPath)
	c.Cmd.Flag("release", "Release identifier attached to the event.").StringVar(&c.release)
	c.Cmd.Flag("environment", "Environment attached to the event.").StringVar(&c.environment)

	return c
}

func (c SendCommand) Name() string { return c.Cmd.FullCommand() }

func (c SendCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	if c.message == "" && c.errMessage == "" {
		return fmt.Errorf("either --message or --error is required")
	}

	// Load SDK options.
	opts := &sdk.Options{}
	if c.configPath != "" {
		loaded, err := sdk.NewOptionsFromYAML(c.configPath)
		if err != nil {
			return fmt.Errorf("could not load options file: %w", err)
		}
		opts = loaded
	}
	if opts.DBPath == "" {
		opts.DBPath = c.rootCmd.DBPath
	}
	if c.release != "" {
		opts.Release = c.release
	}
	if c.environment != "" {
		opts.Environment = c.environment
	}
	opts.Debug = opts.Debug || c.rootCmd.Debug
	opts.Logger = logger

	sdk.Start(*opts)
	defer sdk.Close()

	// Capture.
	var id sdk.EventID
	switch {
	case c.message != "":
		id = sdk.CaptureMessage(c.message)
	default:
		id = sdk.CaptureError(errors.New(c.errMessage))
	}
	if id == sdk.EmptyEventID {
		return fmt.Errorf("event was not captured")
	}

	if !sdk.Flush(5 * time.Second) {
		return fmt.Errorf("could not flush captured event before timeout")
	}

	fmt.Fprintf(c.rootCmd.Stdout, "%s\n", id)
	return nil
}
