package cli

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// run executes the root command with isolated config and data dirs.
func run(t *testing.T, configDir, dataDir string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--config-dir", configDir, "--data-dir", dataDir}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestCommandPresence(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"init", "version", "query", "get", "add", "update", "remove", "serve"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := root.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"config-dir", "data-dir", "log-level"} {
		f := root.PersistentFlags().Lookup(name)
		require.NotNil(t, f, name)
		assert.Equal(t, "", f.DefValue)
	}

	serve, _, err := root.Find([]string{"serve"})
	require.NoError(t, err)
	assert.NotNil(t, serve.Flags().Lookup("listen"))
}

func TestVersion(t *testing.T) {
	out, err := run(t, t.TempDir(), t.TempDir(), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "shelf v"+Version)
	assert.Contains(t, out, modulePath)
}

func TestInitWritesDefaultConfig(t *testing.T) {
	configDir := filepath.Join(t.TempDir(), "config")
	dataDir := filepath.Join(t.TempDir(), "data")

	out, err := run(t, configDir, dataDir, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Shelf initialized successfully")

	data, err := os.ReadFile(filepath.Join(configDir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, defaultConfigYAML, string(data))
	assert.DirExists(t, dataDir)

	// A second init keeps the existing file.
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte("backend: sqlite\n"), 0o644))
	_, err = run(t, configDir, dataDir, "init")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dataDir, "shelf.db"))
}

func TestRecordCommands(t *testing.T) {
	configDir, dataDir := t.TempDir(), t.TempDir()

	for _, body := range []string{
		`{"Title":"Alpha","Url":"https://alpha.org","Category":"News"}`,
		`{"Title":"Beta","Url":"https://beta.com","Category":"News"}`,
		`{"Title":"Gamma","Url":"https://gamma.org","Category":"Tech"}`,
	} {
		_, err := run(t, configDir, dataDir, "add", "bookmark", body)
		require.NoError(t, err)
	}

	out, err := run(t, configDir, dataDir, "query", "bookmark", "Category=News", "sort=name,desc", "fields=Id,Title")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"Id":2,"Title":"Beta"},{"Id":1,"Title":"Alpha"}]`, out)

	out, err = run(t, configDir, dataDir, "query", "Bookmarks", "field=Category")
	require.NoError(t, err)
	assert.JSONEq(t, `["News","Tech"]`, out)

	out, err = run(t, configDir, dataDir, "update", "bookmark", "3", `{"Title":"Gamma","Url":"https://gamma.net"}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Id":3,"Title":"Gamma","Url":"https://gamma.net"}`, out)

	out, err = run(t, configDir, dataDir, "get", "bookmark", "3")
	require.NoError(t, err)
	assert.JSONEq(t, `{"Id":3,"Title":"Gamma","Url":"https://gamma.net"}`, out)

	out, err = run(t, configDir, dataDir, "remove", "bookmark", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed Bookmark 3")

	_, err = run(t, configDir, dataDir, "remove", "bookmark", "3")
	assert.ErrorIs(t, err, types.ErrRecordNotFound)
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestQueryControlsFollowFilters(t *testing.T) {
	root := NewRootCmd()
	query, _, err := root.Find([]string{"query"})
	require.NoError(t, err)
	assert.Contains(t, query.Long, "whatever their position")
	assert.NotContains(t, query.Long, "apply in the order given")

	configDir, dataDir := t.TempDir(), t.TempDir()
	for _, body := range []string{
		`{"Title":"Beta","Url":"https://beta.com","Category":"News"}`,
		`{"Title":"Alpha","Url":"https://alpha.org","Category":"News"}`,
		`{"Title":"Gamma","Url":"https://gamma.org","Category":"Tech"}`,
	} {
		_, err := run(t, configDir, dataDir, "add", "bookmark", body)
		require.NoError(t, err)
	}

	controlsFirst, err := run(t, configDir, dataDir, "query", "bookmark", "fields=Title", "sort=name", "Category=News")
	require.NoError(t, err)
	filtersFirst, err := run(t, configDir, dataDir, "query", "bookmark", "Category=News", "sort=name", "fields=Title")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"Title":"Alpha"},{"Title":"Beta"}]`, controlsFirst)
	assert.JSONEq(t, filtersFirst, controlsFirst)
}

func TestCommandErrors(t *testing.T) {
	configDir, dataDir := t.TempDir(), t.TempDir()
	_, err := run(t, configDir, dataDir, "add", "bookmark", `{"Title":"Alpha","Url":"https://alpha.org"}`)
	require.NoError(t, err)

	tests := []struct {
		name string
		args []string
		want error
	}{
		{name: "conflict", args: []string{"add", "bookmark", `{"Title":"Alpha","Url":"https://a.org"}`}, want: types.ErrConflictOnUniqueKey},
		{name: "validation", args: []string{"query", "bookmark", "limit=abc", "offset=2"}, want: types.ErrNonIntegerPaginationValue},
		{name: "unknown kind", args: []string{"query", "note"}, want: types.ErrKindNotFound},
		{name: "missing record", args: []string{"get", "bookmark", "9"}, want: types.ErrRecordNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, configDir, dataDir, tt.args...)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, exitUserError, exitCode(err))
		})
	}

	t.Run("bad id", func(t *testing.T) {
		_, err := run(t, configDir, dataDir, "get", "bookmark", "x")
		require.Error(t, err)
		assert.Equal(t, exitUserError, exitCode(err))
	})

	t.Run("bad json", func(t *testing.T) {
		_, err := run(t, configDir, dataDir, "add", "bookmark", "{")
		require.Error(t, err)
		assert.Equal(t, exitUserError, exitCode(err))
	})
}

func TestInvalidBackendInConfig(t *testing.T) {
	configDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte("backend: postgres\n"), 0o644))

	_, err := run(t, configDir, t.TempDir(), "query", "bookmark")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrBackendUnknown)
	assert.Equal(t, exitSysError, exitCode(err))
}

func TestEnvOverridesConfig(t *testing.T) {
	configDir, dataDir := t.TempDir(), t.TempDir()
	t.Setenv("SHELF_BACKEND", "sqlite")

	_, err := run(t, configDir, dataDir, "add", "bookmark", `{"Title":"Alpha","Url":"https://alpha.org"}`)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dataDir, "shelf.db"))
	assert.NoFileExists(t, filepath.Join(dataDir, "Bookmarks.jsonl"))
}

func TestKindsFileRelativeToConfigDir(t *testing.T) {
	configDir, dataDir := t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "kinds.yaml"),
		[]byte("kinds:\n  - name: Note\n    fields: [Heading, Body]\n    title: Heading\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.yaml"),
		[]byte("backend: jsonl\nkinds_file: kinds.yaml\n"), 0o644))

	_, err := run(t, configDir, dataDir, "add", "note", `{"Heading":"b"}`)
	require.NoError(t, err)
	_, err = run(t, configDir, dataDir, "add", "note", `{"Heading":"a"}`)
	require.NoError(t, err)

	out, err := run(t, configDir, dataDir, "query", "notes", "sort=name", "field=Heading")
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b"]`, out)
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLogLevel(in), in)
	}
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitSuccess, exitCode(nil))
	assert.Equal(t, exitUserError, exitCode(userErrorf("bad")))
	assert.Equal(t, exitUserError, exitCode(types.ErrUnknownParameter))
	assert.Equal(t, exitSysError, exitCode(errors.New("disk full")))
}

func TestServeStopsOnCancel(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	srv := &http.Server{Addr: addr, Handler: http.NotFoundHandler(), ReadHeaderTimeout: time.Second}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- serve(ctx, srv) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusNotFound
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}
