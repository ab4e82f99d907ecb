package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notes/internal/store/sqlstore"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func testEnv(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "notes.db")
	t.Setenv("APP_ENV", "development")
	t.Setenv("DB_DRIVER", "sqlite3")
	t.Setenv("DB_CONN", dbPath)
	t.Setenv("LOG_LEVEL", "error")
	return dbPath
}

func TestRootCommandHasSubcommands(t *testing.T) {
	cmd := NewRootCommand()
	names := map[string]bool{}
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["migrate"])
	assert.True(t, names["seed"])
	assert.NotNil(t, cmd.Flags().Lookup("addr"))
}

func TestMigrate(t *testing.T) {
	dbPath := testEnv(t)

	out, err := execute(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "Schema is up to date")
	assert.FileExists(t, dbPath)
}

func TestSeedIsRepeatable(t *testing.T) {
	dbPath := testEnv(t)

	out, err := execute(t, "seed", "--notes", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "Inserted 5 notes for demo@example.com")

	_, err = execute(t, "seed", "--notes", "3")
	require.NoError(t, err)

	st, err := sqlstore.New("sqlite3", dbPath)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	user, err := st.GetUserByEmail(ctx, "demo@example.com")
	require.NoError(t, err)
	notes, err := st.ListNotes(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, notes, 8)
	categories, err := st.ListCategories(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, categories, 3, "categories are not duplicated")
}

func TestInvalidConfig(t *testing.T) {
	testEnv(t)
	t.Setenv("DB_DRIVER", "oracle")

	_, err := execute(t, "migrate")
	assert.ErrorContains(t, err, "invalid configuration")
}
