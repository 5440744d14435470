package schema

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	language "github.com/hanpama/querycost/internal/language"
)

func TestWatcher_Reload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.graphql")
	require.NoError(t, os.WriteFile(path, []byte(`type Query { a: Int }`), 0o644))

	reloaded := make(chan *language.Schema, 4)
	failed := make(chan error, 4)
	w := NewWatcher("", dir)
	w.debounce = 20 * time.Millisecond
	w.OnReload = func(s *language.Schema) { reloaded <- s }
	w.OnError = func(err error) { failed <- err }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	// give the watcher time to register the directory
	time.Sleep(50 * time.Millisecond)

	t.Run("valid change is published", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte(`type Query { a: Int b: String @complexity(value: 2) }`), 0o644))
		select {
		case s := <-reloaded:
			require.NotNil(t, s.Query.Fields.ForName("b"))
		case err := <-failed:
			t.Fatalf("unexpected reload error: %v", err)
		case <-time.After(5 * time.Second):
			t.Fatal("schema was not reloaded")
		}
	})

	t.Run("broken change is reported", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte(`type Query { a: Missing }`), 0o644))
		select {
		case err := <-failed:
			require.Error(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("reload error was not reported")
		}
	})
}
