package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-abcfile"
)

func writeFixture(t *testing.T, name string, classes ...string) string {
	t.Helper()
	data, _ := abcfile.NewBuilder().AddClass(classes...).Build()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.Execute()
	return out.String(), err
}

func TestCommands(t *testing.T) {
	oldPath := writeFixture(t, "old.abc", "La/A;", "La/B;")
	newPath := writeFixture(t, "new.abc", "La/A;", "La/C;")

	t.Run("info", func(t *testing.T) {
		out, err := run(t, "info", oldPath)
		require.NoError(t, err)
		assert.Contains(t, out, "version")
		assert.Contains(t, out, abcfile.CurrentVersion.String())
		assert.Contains(t, out, "ok")
	})

	t.Run("verify", func(t *testing.T) {
		out, err := run(t, "verify", oldPath, newPath)
		require.NoError(t, err)
		assert.Contains(t, out, "OK "+oldPath)
		assert.Contains(t, out, "OK "+newPath)

		bad := filepath.Join(t.TempDir(), "bad.abc")
		require.NoError(t, os.WriteFile(bad, []byte("not a container"), 0o644))
		out, err = run(t, "verify", oldPath, bad)
		assert.Error(t, err)
		assert.Contains(t, out, "FAIL "+bad)
	})

	t.Run("classes", func(t *testing.T) {
		out, err := run(t, "classes", oldPath)
		require.NoError(t, err)
		assert.Contains(t, out, "La/A;")
		assert.Contains(t, out, "La/B;")
	})

	for _, args := range [][]string{{"find"}, {"find", "--hash-table"}} {
		t.Run(args[len(args)-1], func(t *testing.T) {
			out, err := run(t, append(args, oldPath, "La/B;")...)
			require.NoError(t, err)
			assert.Contains(t, out, "La/B;")
			assert.NotContains(t, out, "absent")

			out, err = run(t, append(args, oldPath, "La/B;", "Lnope;")...)
			assert.ErrorIs(t, err, errNotFound)
			assert.Contains(t, out, "absent")
		})
	}

	t.Run("diff", func(t *testing.T) {
		out, err := run(t, "diff", oldPath, newPath)
		require.NoError(t, err)
		assert.Contains(t, out, "- La/B;")
		assert.Contains(t, out, "+ La/C;")

		out, err = run(t, "diff", "-u", oldPath, newPath)
		require.NoError(t, err)
		assert.Contains(t, out, "-La/B;")
		assert.Contains(t, out, "+La/C;")

		out, err = run(t, "diff", oldPath, oldPath)
		require.NoError(t, err)
		assert.Contains(t, out, "identical")
	})

	t.Run("trace is flushed when a command fails", func(t *testing.T) {
		tracePath := filepath.Join(t.TempDir(), "find.trace")
		_, err := run(t, "--trace", tracePath, "find", oldPath, "Lnope;")
		require.ErrorIs(t, err, errNotFound)
		st, err := os.Stat(tracePath)
		require.NoError(t, err)
		assert.Positive(t, st.Size())

		// A trace left running would make this start fail.
		_, err = run(t, "--trace", filepath.Join(t.TempDir(), "info.trace"), "info", oldPath)
		assert.NoError(t, err)
	})

	t.Run("bad access fault", func(t *testing.T) {
		_, err := run(t, "--access-fault", "explode", "info", oldPath)
		assert.ErrorContains(t, err, "explode")
	})

	t.Run("bad log level", func(t *testing.T) {
		_, err := run(t, "--log-level", "loud", "info", oldPath)
		assert.ErrorContains(t, err, "log level")
	})
}
