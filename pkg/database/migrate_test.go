package database

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/membership-api/pkg/config"
)

func TestMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, entry := range entries {
		name := entry.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}
	require.NotEmpty(t, ups)
	assert.Equal(t, ups, downs)
}

func TestStudentsMigrationEnforcesUniqueEmail(t *testing.T) {
	raw, err := fs.ReadFile(migrationsFS, "migrations/000002_create_students.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "students_email_key UNIQUE (email)")
	assert.Contains(t, string(raw), "ON DELETE SET NULL")
}

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "membership", SSLMode: "disable"})
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=membership sslmode=disable", dsn)
}
