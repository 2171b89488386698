package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/lepinkainen/bookcase/internal/catalog"
	"github.com/lepinkainen/bookcase/internal/testutil"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name     string
	priority int
	entries  []catalog.Entry
	err      error
}

func (p stubProvider) Name() string  { return p.name }
func (p stubProvider) Priority() int { return p.priority }

func (p stubProvider) Search(_ context.Context, _ catalog.Query, limit int) ([]catalog.Entry, error) {
	if p.err != nil {
		return nil, p.err
	}
	entries := p.entries
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// resetCmdState isolates viper, the config globals and the package-level
// hooks for one test.
func resetCmdState(t *testing.T, opts ...testutil.SetTestConfigOption) {
	t.Helper()

	testutil.SetTestConfig(t, opts...)

	origProviders := newProviders
	origFinder := runFinder
	origBackend := newBackend
	origNow := now
	t.Cleanup(func() {
		newProviders = origProviders
		runFinder = origFinder
		newBackend = origBackend
		now = origNow
	})
}

func useProviders(t *testing.T, providers ...catalog.Provider) {
	t.Helper()
	newProviders = func() []catalog.Provider { return providers }
}

// setupLibrary points the library at a fresh SQLite file owned by user.
func setupLibrary(t *testing.T, user string) *testutil.TestEnv {
	t.Helper()

	resetCmdState(t, testutil.WithUserID(user))
	env := testutil.NewTestEnv(t)
	testutil.SetupTestBackend(t, env)
	testutil.SetupTestCache(t, env)
	return env
}

func newParser(t *testing.T, cli *CLI) *kong.Kong {
	t.Helper()

	parser, err := kong.New(cli, append(kongOptions(context.Background()),
		kong.Exit(func(code int) {
			t.Fatalf("unexpected Kong exit %d", code)
		}),
	)...)
	require.NoError(t, err)
	return parser
}

func parseCLI(t *testing.T, args ...string) *CLI {
	t.Helper()

	cli := &CLI{}
	_, err := newParser(t, cli).Parse(args)
	require.NoError(t, err)
	return cli
}

// runCLI parses args, applies the global flags and runs the selected
// command, returning what it printed.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	orig := stdout
	stdout = &out
	defer func() { stdout = orig }()

	cli := &CLI{}
	kctx, err := newParser(t, cli).Parse(args)
	if err != nil {
		return "", err
	}
	updateGlobalConfig(cli)
	err = kctx.Run()
	return out.String(), err
}
