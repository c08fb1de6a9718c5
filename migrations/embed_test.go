package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedFS_ContainsMigrations(t *testing.T) {
	entries, err := FS.ReadDir(".")
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "001_initial_schema.sql")
	assert.Contains(t, names, "002_search_and_feedback.sql")
}

func TestEmbeddedFS_GooseDirectives(t *testing.T) {
	for _, name := range []string{"001_initial_schema.sql", "002_search_and_feedback.sql"} {
		t.Run(name, func(t *testing.T) {
			content, err := FS.ReadFile(name)
			require.NoError(t, err)
			assert.Contains(t, string(content), "-- +goose Up")
			assert.Contains(t, string(content), "-- +goose Down")
		})
	}
}
