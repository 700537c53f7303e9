package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"add worker balances":   "add_worker_balances",
		"Add-Worker-Balances":   "add_worker_balances",
		"ADD_WORKER_BALANCES":   "add_worker_balances",
		"add__worker__balances": "add_worker_balances",
		"Tip Groups 2":          "tip_groups_2",
		"create-tip-out-rules":  "create_tip_out_rules",
		"   spaces   ":          "spaces",
		"special!@#$chars":      "specialchars",
		"trailing_":             "trailing",
		"_leading":              "leading",
		"":                      "",
	}

	for input, want := range cases {
		assert.Equal(t, want, sanitizeName(input), "input %q", input)
	}
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()

	mf, err := CreateMigration(dir, "add worker balances", "Track per-worker running balances")
	require.NoError(t, err)
	require.NotNil(t, mf)

	// Versions are timestamps, YYYYMMDDHHMMSS.
	assert.Len(t, mf.Version, 14)

	assert.True(t, strings.HasSuffix(mf.UpPath, ".up.sql"))
	assert.True(t, strings.HasSuffix(mf.DownPath, ".down.sql"))
	assert.Equal(t,
		strings.TrimSuffix(filepath.Base(mf.UpPath), ".up.sql"),
		strings.TrimSuffix(filepath.Base(mf.DownPath), ".down.sql"))

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "add worker balances")
	assert.Contains(t, string(up), "Track per-worker running balances")
	assert.Contains(t, string(up), "Write your UP migration SQL here")

	down, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "Rollback")
	assert.Contains(t, string(down), "Write your DOWN migration SQL here")
}

func TestCreateMigration_CreatesDirectory(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "db", "migrations")

	_, err := CreateMigration(nested, "init schema", "")
	require.NoError(t, err)

	info, err := os.Stat(nested)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func writeMigrationFixtures(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("-- sql"), 0644))
	}
}

func TestListMigrations(t *testing.T) {
	t.Run("one entry per up/down pair", func(t *testing.T) {
		dir := t.TempDir()
		writeMigrationFixtures(t, dir,
			"000001_init_schema.up.sql",
			"000001_init_schema.down.sql",
			"000002_add_worker_balances.up.sql",
			"000002_add_worker_balances.down.sql",
			"000003_add_tip_groups.up.sql",
			"000003_add_tip_groups.down.sql",
		)

		migrations, err := ListMigrations(dir)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"000001_init_schema",
			"000002_add_worker_balances",
			"000003_add_tip_groups",
		}, migrations)
	})

	t.Run("empty directory", func(t *testing.T) {
		migrations, err := ListMigrations(t.TempDir())
		require.NoError(t, err)
		assert.Empty(t, migrations)
	})

	t.Run("missing directory is not an error", func(t *testing.T) {
		migrations, err := ListMigrations(filepath.Join(t.TempDir(), "nope"))
		require.NoError(t, err)
		assert.Empty(t, migrations)
	})

	t.Run("skips files that are not migrations", func(t *testing.T) {
		dir := t.TempDir()
		writeMigrationFixtures(t, dir,
			"000001_init.up.sql",
			"000001_init.down.sql",
			"README.md",
			".gitkeep",
		)

		migrations, err := ListMigrations(dir)
		require.NoError(t, err)
		assert.Equal(t, []string{"000001_init"}, migrations)
	})

	t.Run("skips directories", func(t *testing.T) {
		dir := t.TempDir()
		writeMigrationFixtures(t, dir, "000001_init.up.sql", "000001_init.down.sql")
		require.NoError(t, os.Mkdir(filepath.Join(dir, "archive.up.sql"), 0755))

		migrations, err := ListMigrations(dir)
		require.NoError(t, err)
		assert.Equal(t, []string{"000001_init"}, migrations)
	})
}
