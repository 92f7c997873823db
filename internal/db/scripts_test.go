package db

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	script := `-- header comment
CREATE TABLE a (
    id INTEGER PRIMARY KEY
);

INSERT INTO a (id) VALUES (1);
INSERT INTO a (id) VALUES (2)`

	assert.Equal(t, []string{
		"CREATE TABLE a (\n    id INTEGER PRIMARY KEY\n);",
		"INSERT INTO a (id) VALUES (1);",
		"INSERT INTO a (id) VALUES (2)",
	}, splitStatements(script))
}

func TestRunScriptsOnSQLite(t *testing.T) {
	ctx := context.Background()
	conn, err := NewConnection(ctx, Config{Driver: DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	defer conn.Close()

	fsys := fstest.MapFS{
		"scripts/002_seed.sql":   {Data: []byte("INSERT INTO items (id, name) VALUES (1, 'one');\nINSERT INTO items (id, name) VALUES (2, 'two');\n")},
		"scripts/001_schema.sql": {Data: []byte("CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT);\n")},
		"scripts/README.md":      {Data: []byte("not sql")},
	}
	require.NoError(t, RunScripts(ctx, conn.SQL, fsys, "scripts"))

	var count int
	require.NoError(t, conn.SQL.QueryRowContext(ctx, "SELECT COUNT(*) FROM items").Scan(&count))
	assert.Equal(t, 2, count)
	require.NoError(t, conn.Ping(ctx))
}

func TestRunScriptsReportsFailingFile(t *testing.T) {
	ctx := context.Background()
	conn, err := NewConnection(ctx, Config{Driver: DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	defer conn.Close()

	fsys := fstest.MapFS{"001_broken.sql": {Data: []byte("CREATE TABLE;")}}
	err = RunScripts(ctx, conn.SQL, fsys, ".")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "001_broken.sql")
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "postgres default", config: DefaultConfig()},
		{name: "sqlite with path", config: Config{Driver: DriverSQLite, Path: "elements.db"}},
		{name: "sqlite without path", config: Config{Driver: DriverSQLite}, wantErr: true},
		{name: "mysql without host", config: Config{Driver: DriverMySQL}, wantErr: true},
		{name: "unknown driver", config: Config{Driver: "oracle", Host: "db"}, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.config.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBuildMySQLDSN(t *testing.T) {
	dsn := buildMySQLDSN(Config{User: "app", Password: "secret", Host: "db", DBName: "shop", SSLMode: "require"})
	assert.Equal(t, "app:secret@tcp(db:3306)/shop?parseTime=true&charset=utf8mb4&tls=true", dsn)
}
