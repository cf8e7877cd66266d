package db

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationFiles_SortedSQLOnly(t *testing.T) {
	fsys := fstest.MapFS{
		"002_status_log.sql": {Data: []byte("SELECT 2;")},
		"001_orders.sql":     {Data: []byte("SELECT 1;")},
		"README.md":          {Data: []byte("notes")},
	}

	files, err := migrationFiles(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_orders.sql", "002_status_log.sql"}, files)
}
