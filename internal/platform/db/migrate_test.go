package db

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMigrationsEmbedded(t *testing.T) {
	names, err := fs.Glob(Migrations, "migrations/*.sql")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(names), 3)

	var all strings.Builder
	for _, name := range names {
		body, err := Migrations.ReadFile(name)
		require.NoError(t, err)
		all.Write(body)
	}
	for _, table := range []string{"products", "sales", "profiles", "audit_logs", "idempotency_keys"} {
		require.Contains(t, all.String(), "CREATE TABLE IF NOT EXISTS "+table+" ")
	}
}
