package migrations

import (
	"io/fs"
	"path"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := fs.ReadDir(files, dir)
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())

		body, err := fs.ReadFile(files, path.Join(dir, e.Name()))
		require.NoError(t, err)
		assert.Contains(t, string(body), "-- +goose Up", e.Name())
		assert.Contains(t, string(body), "-- +goose Down", e.Name())
	}
	assert.Equal(t, []string{"00001_create_appointments.sql", "00002_create_outbox_events.sql"}, names)
}

func TestAppointmentsSlotIsUnique(t *testing.T) {
	body, err := fs.ReadFile(files, path.Join(dir, "00001_create_appointments.sql"))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `UNIQUE (name, date, "time")`))
}
