// cmd/service/main_test.go
package main

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"unknown": slog.LevelInfo,
	}
	for in, want := range tests {
		v := new(slog.LevelVar)
		setLogLevel(in, v)
		assert.Equal(t, want, v.Level(), in)
	}
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()

	for _, name := range []string{"serve", "sync"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestSyncCmd_FailsWithoutDatabaseURL(t *testing.T) {
	t.Setenv("CRATESFYI_DB_URL", "")

	root := newRootCmd()
	root.SetArgs([]string{"sync"})

	err := root.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration")
}
