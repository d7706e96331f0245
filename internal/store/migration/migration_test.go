package migration

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/010_add_index.sql":      {Data: []byte("-- +migrate Up\nCREATE INDEX b;\n-- +migrate Down\nDROP INDEX b;")},
		"migrations/2_second.sql":           {Data: []byte("CREATE TABLE b (id TEXT);")},
		"migrations/001_initial_schema.sql": {Data: []byte("CREATE TABLE a (id TEXT);")},
		"migrations/README.md":              {Data: []byte("notes")},
		"migrations/nounderscore.sql":       {Data: []byte("SELECT 1;")},
		"migrations/latest_fix.sql":         {Data: []byte("SELECT 1;")},
	}

	files, err := Load(fsys, "migrations")
	require.NoError(t, err)
	require.Equal(t, []File{
		{Version: 1, Name: "001_initial_schema.sql", SQL: "CREATE TABLE a (id TEXT);"},
		{Version: 2, Name: "2_second.sql", SQL: "CREATE TABLE b (id TEXT);"},
		{Version: 10, Name: "010_add_index.sql", SQL: "\nCREATE INDEX b;\n"},
	}, files)
}

func TestLoadDuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/1_a.sql":  {Data: []byte("SELECT 1;")},
		"migrations/01_b.sql": {Data: []byte("SELECT 2;")},
	}

	_, err := Load(fsys, "migrations")
	require.EqualError(t, err, "duplicate migration version 1: 01_b.sql and 1_a.sql")
}

func TestLoadMissingDir(t *testing.T) {
	_, err := Load(fstest.MapFS{}, "migrations")
	require.ErrorContains(t, err, "failed to read migrations directory")
}

func TestExtractUp(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "no markers", content: "CREATE TABLE a (id TEXT);", want: "CREATE TABLE a (id TEXT);"},
		{name: "up only", content: "-- +migrate Up\nCREATE TABLE a (id TEXT);", want: "\nCREATE TABLE a (id TEXT);"},
		{name: "up and down", content: "-- +migrate Up\nCREATE TABLE a (id TEXT);\n-- +migrate Down\nDROP TABLE a;", want: "\nCREATE TABLE a (id TEXT);\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ExtractUp(tt.content))
		})
	}
}
