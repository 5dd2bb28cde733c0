package integration

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faultline/faultline/internal/model"
	"github.com/faultline/faultline/internal/storage/sqlite"
)

func buildTestBinary(t *testing.T) {
	buildCmd := exec.Command("go", "build", "-o", "faultline-test", "../../cmd/faultline")
	out, err := buildCmd.CombinedOutput()
	require.NoError(t, err, "build output: %s", out)
	t.Cleanup(func() {
		os.Remove("faultline-test")
	})
}

func runCommand(t *testing.T, args ...string) (stdout, stderr string, err error) {
	cmd := exec.Command("./faultline-test", args...)
	var outB, errB bytes.Buffer
	cmd.Stdout = &outB
	cmd.Stderr = &errB
	err = cmd.Run()
	return outB.String(), errB.String(), err
}

func sendEvent(t *testing.T, dbPath string, extraArgs ...string) string {
	args := append([]string{"send", "--db-path", dbPath, "--no-log"}, extraArgs...)
	stdout, stderr, err := runCommand(t, args...)
	require.NoError(t, err, "stderr: %s", stderr)
	return stdout
}

func TestSendCommand(t *testing.T) {
	tests := map[string]struct {
		args         []string
		expErr       bool
		expEnvelopes []model.EnvelopeKind
	}{
		"Sending a message captures an event and the epoch session": {
			args: []string{"--message", "something happened"},
			expEnvelopes: []model.EnvelopeKind{
				model.EnvelopeKindEvent,
				model.EnvelopeKindSession,
			},
		},
		"Sending an error captures an event and the epoch session": {
			args: []string{"--error", "something broke"},
			expEnvelopes: []model.EnvelopeKind{
				model.EnvelopeKindEvent,
				model.EnvelopeKindSession,
			},
		},
		"Sending without message or error fails": {
			args:   []string{},
			expErr: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			buildTestBinary(t)

			dbPath := filepath.Join(t.TempDir(), "faultline.db")

			cmdArgs := []string{"send", "--db-path", dbPath, "--no-log"}
			cmdArgs = append(cmdArgs, tt.args...)
			stdout, stderr, err := runCommand(t, cmdArgs...)

			if tt.expErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err, "stderr: %s", stderr)

			// The captured event identifier is printed on success.
			assert.NotEmpty(t, stdout)

			// The envelopes landed in the offline store.
			ctx := context.Background()
			repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{DBPath: dbPath})
			require.NoError(t, err)
			defer repo.Close()

			envelopes, err := repo.ListEnvelopes(ctx)
			require.NoError(t, err)
			require.Len(t, envelopes, len(tt.expEnvelopes))

			gotKinds := map[model.EnvelopeKind]bool{}
			for _, e := range envelopes {
				gotKinds[e.Kind] = true
			}
			for _, kind := range tt.expEnvelopes {
				assert.True(t, gotKinds[kind], "missing envelope kind %q", kind)
			}
		})
	}
}

func TestPendingCommand(t *testing.T) {
	buildTestBinary(t)

	dbPath := filepath.Join(t.TempDir(), "faultline.db")
	eventID := sendEvent(t, dbPath, "--message", "pending test")

	stdout, stderr, err := runCommand(t, "pending", "--db-path", dbPath, "--no-log")
	require.NoError(t, err, "stderr: %s", stderr)

	assert.Contains(t, stdout, "ID")
	assert.Contains(t, stdout, "KIND")
	assert.Contains(t, stdout, "event")
	assert.Contains(t, stdout, "session")
	// The event identifier printed by send shows up in the listing.
	assert.Contains(t, stdout, strings.TrimSpace(eventID))
}

func TestStateCommand(t *testing.T) {
	tests := map[string]struct {
		setup     func(t *testing.T, dbPath string)
		expStdout []string
	}{
		"No previous launch shows nothing to judge": {
			setup: func(t *testing.T, dbPath string) {},
			expStdout: []string{
				"No previous launch recorded.",
			},
		},
		"A clean previous launch is not a crash": {
			setup: func(t *testing.T, dbPath string) {
				// Two launches: the second rotates the first (cleanly closed)
				// launch record into the previous slot.
				sendEvent(t, dbPath, "--message", "first launch")
				sendEvent(t, dbPath, "--message", "second launch")
			},
			expStdout: []string{
				"Clean shutdown: true",
				"Crashed last run: false",
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			buildTestBinary(t)

			dbPath := filepath.Join(t.TempDir(), "faultline.db")
			tt.setup(t, dbPath)

			stdout, stderr, err := runCommand(t, "state", "--db-path", dbPath, "--no-log")
			require.NoError(t, err, "stderr: %s", stderr)

			for _, exp := range tt.expStdout {
				assert.Contains(t, stdout, exp)
			}
		})
	}
}
